package compliance

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks compliance verdicts by operation kind and rule code.
type Metrics struct {
	verdicts *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		verdicts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ledgergate_compliance_verdicts_total",
			Help: "Compliance verdicts by operation kind and rule code.",
		}, []string{"kind", "rule_code"}),
	}
}

func (m *Metrics) RecordVerdict(kind string, code int) {
	m.verdicts.WithLabelValues(kind, strconv.Itoa(code)).Inc()
}
