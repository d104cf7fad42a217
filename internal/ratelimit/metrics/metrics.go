package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Checks         *prometheus.CounterVec
	StoreErrors    prometheus.Counter
	FallbackActive prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Checks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kudose_ratelimit_checks_total",
			Help: "Rate limit checks by action and outcome",
		}, []string{"action", "outcome"}),
		StoreErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "kudose_ratelimit_store_errors_total",
			Help: "Failed checks against the shared rate limit store",
		}),
		FallbackActive: f.NewGauge(prometheus.GaugeOpts{
			Name: "kudose_ratelimit_fallback_active",
			Help: "1 while rate limiting is served from process memory",
		}),
	}
}

func (m *Metrics) IncrementCheck(action string, allowed bool) {
	outcome := "allowed"
	if !allowed {
		outcome = "denied"
	}
	m.Checks.WithLabelValues(action, outcome).Inc()
}

func (m *Metrics) IncrementStoreErrors() {
	m.StoreErrors.Inc()
}

func (m *Metrics) SetFallbackActive(active bool) {
	if active {
		m.FallbackActive.Set(1)
		return
	}
	m.FallbackActive.Set(0)
}
