package enforce

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	guardedWritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "labtrail_guarded_writes_total",
		Help: "Guarded writes that passed enforcement and were logged, by entity and action",
	}, []string{"entity", "action"})

	guardDenialsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "labtrail_guard_denials_total",
		Help: "Guarded writes rejected by enforcement, by cause",
	}, []string{"cause"})

	guardDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "labtrail_guard_duration_ms",
		Help:    "Latency of the enforcement gate on guarded writes in milliseconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
	})
)
