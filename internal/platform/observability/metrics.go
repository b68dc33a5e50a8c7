package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for recorded operations.
const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// Metrics holds the collectors shared by the mapper and the workflows.
type Metrics struct {
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	workflows  *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered, which tests rely on.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "printa",
			Subsystem: "catalog",
			Name:      "operations_total",
			Help:      "Mapper operations by document kind, operation and outcome.",
		}, []string{"kind", "op", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "printa",
			Subsystem: "catalog",
			Name:      "operation_seconds",
			Help:      "Mapper operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind", "op"}),
		workflows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "printa",
			Subsystem: "studio",
			Name:      "workflows_total",
			Help:      "Studio workflow runs by name and outcome.",
		}, []string{"workflow", "outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.operations, m.latency, m.workflows)
	}
	return m
}

// ObserveOperation records one mapper call. It is safe on a nil receiver.
func (m *Metrics) ObserveOperation(kind, op, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(kind, op, outcome).Inc()
	m.latency.WithLabelValues(kind, op).Observe(elapsed.Seconds())
}

// ObserveWorkflow records one workflow run. It is safe on a nil receiver.
func (m *Metrics) ObserveWorkflow(name, outcome string) {
	if m == nil {
		return
	}
	m.workflows.WithLabelValues(name, outcome).Inc()
}

// Operations exposes the operation counter for assertions.
func (m *Metrics) Operations() *prometheus.CounterVec { return m.operations }

// Workflows exposes the workflow counter for assertions.
func (m *Metrics) Workflows() *prometheus.CounterVec { return m.workflows }
