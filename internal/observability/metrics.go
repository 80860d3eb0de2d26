// Package observability exposes Prometheus metrics for the query pipeline.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agrivoice_queries_total",
		Help: "Processed queries by terminal outcome.",
	}, []string{"outcome"})

	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "agrivoice_stage_duration_seconds",
		Help:    "Duration of pipeline stages.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})
)

// RecordOutcome counts one finished query. outcome is a pipeline error
// kind, or "success".
func RecordOutcome(outcome string) {
	queriesTotal.WithLabelValues(outcome).Inc()
}

// TimeStage returns a stop function that observes the stage duration.
func TimeStage(stage string) func() {
	start := time.Now()
	return func() {
		stageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	}
}
