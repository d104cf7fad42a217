package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"kudose/pkg/platform/retry"
)

// Metrics holds the process-wide collectors shared across modules.
type Metrics struct {
	HTTPRequestDuration *prometheus.HistogramVec
	StoreRetries        *prometheus.CounterVec
	OutboxPublished     prometheus.Counter
	OutboxFailures      prometheus.Counter
}

// New creates and registers the platform collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kudose_http_request_duration_seconds",
			Help:    "Latency of HTTP requests by route pattern, method and status",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"route", "method", "status"}),
		StoreRetries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kudose_store_retries_total",
			Help: "Retries of store calls after a transient failure",
		}, []string{"operation"}),
		OutboxPublished: f.NewCounter(prometheus.CounterOpts{
			Name: "kudose_outbox_published_total",
			Help: "Audit outbox entries delivered to Kafka",
		}),
		OutboxFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "kudose_outbox_failures_total",
			Help: "Outbox relay batches that failed to deliver",
		}),
	}
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(route, method, status string, start time.Time) {
	m.HTTPRequestDuration.WithLabelValues(route, method, status).Observe(time.Since(start).Seconds())
}

// RetryObserver returns a callback counting retries of operation.
func (m *Metrics) RetryObserver(operation string) retry.Notify {
	c := m.StoreRetries.WithLabelValues(operation)
	return func(error, time.Duration) { c.Inc() }
}

// OutboxObserver adapts the outbox counters to the relay's observer.
type OutboxObserver struct{ m *Metrics }

// Outbox returns the relay observer backed by m.
func (m *Metrics) Outbox() OutboxObserver { return OutboxObserver{m: m} }

func (o OutboxObserver) Published(n int) { o.m.OutboxPublished.Add(float64(n)) }
func (o OutboxObserver) Failed()         { o.m.OutboxFailures.Inc() }
