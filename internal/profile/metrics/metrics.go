package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the profile module.
type Metrics struct {
	ProfilesCreated   prometheus.Counter
	HandlesConfirmed  prometheus.Counter
	HandleConflicts   prometheus.Counter
	OperationDuration *prometheus.HistogramVec
}

// New registers the profile collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ProfilesCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "kudose_profiles_created_total",
			Help: "Profiles created by the bootstrap path",
		}),
		HandlesConfirmed: f.NewCounter(prometheus.CounterOpts{
			Name: "kudose_handles_confirmed_total",
			Help: "Handles confirmed",
		}),
		HandleConflicts: f.NewCounter(prometheus.CounterOpts{
			Name: "kudose_handle_conflicts_total",
			Help: "Handle confirmations rejected because another profile holds the handle",
		}),
		OperationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kudose_profile_operation_duration_seconds",
			Help:    "Duration of profile service operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),
	}
}

func (m *Metrics) IncrementProfilesCreated() {
	m.ProfilesCreated.Inc()
}

func (m *Metrics) IncrementHandlesConfirmed() {
	m.HandlesConfirmed.Inc()
}

func (m *Metrics) IncrementHandleConflicts() {
	m.HandleConflicts.Inc()
}

// ObserveOperation records the duration of operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveOperation(operation string, start time.Time) {
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
