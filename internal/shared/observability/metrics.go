package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	TransformDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "edgeport_transform_seconds",
		Help:    "Time spent running the rewrite pipeline over one source file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"language"})

	FilesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "edgeport_files_total",
		Help: "Source files processed, by outcome (transformed, unchanged, failed, copied).",
	}, []string{"outcome"})

	RuleEditsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "edgeport_rule_edits_total",
		Help: "Edits applied by each rewrite rule.",
	}, []string{"rule"})

	FunctionsDiscovered = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "edgeport_functions",
		Help: "Number of functions found in the last run.",
	})

	CacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "edgeport_transform_cache_hits_total",
		Help: "Transforms served from the in-memory content cache.",
	})

	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "edgeport_run_seconds",
		Help:    "Wall time of a full conversion run.",
		Buckets: prometheus.DefBuckets,
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "edgeport_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})
)
