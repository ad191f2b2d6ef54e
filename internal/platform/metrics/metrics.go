package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds process-wide Prometheus metrics. Component-specific
// metrics live next to their component (see internal/compliance/metrics).
type Metrics struct {
	Operations      *prometheus.CounterVec
	OperationErrors *prometheus.CounterVec
	TokensIssued    prometheus.Counter
	TokensBurned    prometheus.Counter
}

// New creates and registers all process-wide Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		Operations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ledgergate_operations_total",
			Help: "Completed ledger operations by kind.",
		}, []string{"kind"}),
		OperationErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ledgergate_operation_errors_total",
			Help: "Rejected ledger operations by kind and error code.",
		}, []string{"kind", "code"}),
		TokensIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ledgergate_tokens_issued_total",
			Help: "Total token units issued.",
		}),
		TokensBurned: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ledgergate_tokens_burned_total",
			Help: "Total token units burned.",
		}),
	}
}

// RecordOperation increments the success counter for an operation kind.
func (m *Metrics) RecordOperation(kind string) {
	m.Operations.WithLabelValues(kind).Inc()
}

// RecordError increments the error counter for an operation kind.
func (m *Metrics) RecordError(kind, code string) {
	m.OperationErrors.WithLabelValues(kind, code).Inc()
}
