// Package metrics exposes Prometheus instrumentation for the dataset core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SavesTotal counts appended change entries
	SavesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "roadlog",
		Name:      "saves_total",
		Help:      "Number of change entries appended to the log",
	})

	// MergeDuration observes how long reconstructing the merged view takes
	MergeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "roadlog",
		Name:      "merge_duration_seconds",
		Help:      "Time spent folding the change log over the baseline",
		Buckets:   prometheus.DefBuckets,
	})

	// MergedFeatures tracks the size of the last merged view
	MergedFeatures = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "roadlog",
		Name:      "merged_features",
		Help:      "Feature count of the last reconstructed dataset",
	})

	// CheckpointsTotal counts baseline replacements
	CheckpointsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "roadlog",
		Name:      "checkpoints_total",
		Help:      "Number of baseline checkpoints (log compactions)",
	})

	// CounterUpdateFailures counts best-effort user counter updates that failed
	CounterUpdateFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "roadlog",
		Name:      "counter_update_failures_total",
		Help:      "Per-user save counter updates that were dropped",
	})
)
