package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for seller applications.
type Metrics struct {
	ApplicationsSubmitted prometheus.Counter
	SubmissionsRejected   *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ApplicationsSubmitted: f.NewCounter(prometheus.CounterOpts{
			Name: "kudose_seller_applications_submitted_total",
			Help: "Seller applications accepted as pending",
		}),
		SubmissionsRejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kudose_seller_submissions_rejected_total",
			Help: "Seller application submissions refused, by error code",
		}, []string{"code"}),
	}
}

func (m *Metrics) IncrementSubmitted() {
	m.ApplicationsSubmitted.Inc()
}

func (m *Metrics) IncrementRejected(code string) {
	m.SubmissionsRejected.WithLabelValues(code).Inc()
}
