package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds process-level Prometheus metrics. Enforcement-path metrics
// live in internal/enforce next to the code they observe.
type Metrics struct {
	ComplianceDrift prometheus.Gauge
	AdminOperations *prometheus.CounterVec
}

// New creates and registers all process-level metrics.
func New() *Metrics {
	return &Metrics{
		ComplianceDrift: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "labtrail_compliance_drift_entries",
			Help: "Number of declared-but-unwired drift entries in the last compliance report",
		}),
		AdminOperations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "labtrail_admin_operations_total",
			Help: "Administrative registry operations by kind",
		}, []string{"kind"}),
	}
}
