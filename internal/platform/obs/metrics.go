package obs

import (
	"sla-attribution-service/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	shipmentsEvaluated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sla_shipments_evaluated_total",
			Help: "Shipments evaluated, by client and SLA outcome.",
		},
		[]string{"client", "outcome"},
	)

	failuresAttributed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sla_failures_attributed_total",
			Help: "Failed shipments, by responsible party.",
		},
		[]string{"party"},
	)
)

// RecordSummary adds the counts of a finished analysis to the process metrics.
func RecordSummary(s domain.Summary) {
	for _, c := range s.Clients {
		shipmentsEvaluated.WithLabelValues(c.Client, "met").Add(float64(c.OK))
		shipmentsEvaluated.WithLabelValues(c.Client, "missed").Add(float64(c.Failed))
	}
	for _, c := range s.Causes {
		failuresAttributed.WithLabelValues(string(c.Party)).Add(float64(c.Count))
	}
}
