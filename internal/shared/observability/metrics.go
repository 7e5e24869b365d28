package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "crateprune_stage_seconds",
		Help:    "Time spent in each analysis stage.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	FilesScannedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crateprune_files_scanned_total",
		Help: "Total number of source files tokenized.",
	})

	FilesSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crateprune_files_skipped_total",
		Help: "Total number of source files skipped because they could not be read or decoded.",
	})

	TokenCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crateprune_token_cache_hits_total",
		Help: "Total number of files whose tokens were served from the cache.",
	})

	CorpusTokens = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "crateprune_corpus_tokens",
		Help: "Number of distinct tokens in the most recent corpus.",
	})

	DeclaredDependencies = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "crateprune_declared_dependencies",
		Help: "Number of dependencies declared in the manifest.",
	})

	UnusedDependencies = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "crateprune_unused_dependencies",
		Help: "Number of potentially unused dependencies by manifest section.",
	}, []string{"section"})

	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crateprune_runs_total",
		Help: "Total number of analysis runs by outcome.",
	}, []string{"outcome"})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crateprune_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})
)

// WriteTextfile writes the default registry in the node_exporter textfile format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
