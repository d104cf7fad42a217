package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks administrator activity on the seller queue.
type Metrics struct {
	Decisions           *prometheus.CounterVec
	AuthorizationDenied prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Decisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kudose_seller_decisions_total",
			Help: "Seller application decisions applied, by outcome",
		}, []string{"outcome"}),
		AuthorizationDenied: f.NewCounter(prometheus.CounterOpts{
			Name: "kudose_admin_authorization_denied_total",
			Help: "Admin operations refused because the caller is not an administrator",
		}),
	}
}

func (m *Metrics) IncrementDecision(outcome string) {
	m.Decisions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementDenied() {
	m.AuthorizationDenied.Inc()
}
