// file: internal/metrics/metrics.go
// version: 2.0.0
// guid: b0c1d2e3-f4a5-4b6c-7d8e-f9a0b1c2d3e4

package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	filesProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sonarr_metadata_rewrite",
		Name:      "files_processed_total",
		Help:      "Total number of files run through the pipeline by kind",
	}, []string{"kind"})
	filesRewritten = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sonarr_metadata_rewrite",
		Name:      "files_rewritten_total",
		Help:      "Total number of files actually modified by kind",
	}, []string{"kind"})
	filesFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sonarr_metadata_rewrite",
		Name:      "files_failed_total",
		Help:      "Total number of pipeline runs that failed by kind",
	}, []string{"kind"})
	processDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sonarr_metadata_rewrite",
		Name:      "process_duration_seconds",
		Help:      "Histogram of single-file pipeline durations by kind",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms up to ~40s
	}, []string{"kind"})

	eventsCoalesced = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "sonarr_metadata_rewrite",
		Name:      "events_coalesced_total",
		Help:      "File events dropped because the file was already in flight",
	})
	cacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "sonarr_metadata_rewrite",
		Name:      "provider_cache_hits_total",
		Help:      "Provider responses served from the durable cache",
	})
	cacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "sonarr_metadata_rewrite",
		Name:      "provider_cache_misses_total",
		Help:      "Provider lookups that fell through to the network",
	})
	backupsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "sonarr_metadata_rewrite",
		Name:      "backups_created_total",
		Help:      "Original files copied into the backup tree",
	})
	inflightGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "sonarr_metadata_rewrite",
		Name:      "files_in_flight",
		Help:      "Files currently queued or processing",
	})
)

// Register initializes metrics with the global Prometheus registry
// (idempotent).
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(filesProcessed, filesRewritten, filesFailed, processDuration,
			eventsCoalesced, cacheHits, cacheMisses, backupsCreated, inflightGauge)
	})
}

// Pipeline lifecycle helpers
func IncProcessed(kind string) { filesProcessed.WithLabelValues(kind).Inc() }
func IncRewritten(kind string) { filesRewritten.WithLabelValues(kind).Inc() }
func IncFailed(kind string)    { filesFailed.WithLabelValues(kind).Inc() }
func ObserveProcessDuration(kind string, d time.Duration) {
	processDuration.WithLabelValues(kind).Observe(d.Seconds())
}

func IncCoalesced()     { eventsCoalesced.Inc() }
func IncCacheHit()      { cacheHits.Inc() }
func IncCacheMiss()     { cacheMisses.Inc() }
func IncBackupCreated() { backupsCreated.Inc() }
func SetInFlight(n int) { inflightGauge.Set(float64(n)) }
