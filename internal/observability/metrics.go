// Package observability exposes Prometheus metrics for the sync layer.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	cacheHitCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "liftsync",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Number of reads served from the local snapshot without a remote call.",
	})

	cacheMissCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "liftsync",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Number of reads that required a remote fetch.",
	})

	syncFailureCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "liftsync",
		Subsystem: "engine",
		Name:      "sync_failures_total",
		Help:      "Number of remote refreshes that failed and fell back to cache.",
	})

	syncDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "liftsync",
		Subsystem: "engine",
		Name:      "sync_duration_seconds",
		Help:      "Time spent fetching, recomputing, and caching a remote refresh.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
	})

	replayCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "liftsync",
		Subsystem: "replay",
		Name:      "changes_total",
		Help:      "Pending-change replay outcomes, labeled by result.",
	}, []string{"result"})

	queueDepthGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "liftsync",
		Subsystem: "replay",
		Name:      "queue_depth",
		Help:      "Current number of pending changes awaiting replay.",
	})

	lastSyncGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "liftsync",
		Subsystem: "engine",
		Name:      "last_sync_timestamp_seconds",
		Help:      "Unix timestamp of the most recent successful remote sync.",
	})
)

func init() {
	prometheus.MustRegister(cacheHitCounter, cacheMissCounter, syncFailureCounter,
		syncDuration, replayCounter, queueDepthGauge, lastSyncGauge)
}

// RecordCacheHit counts a read served entirely from the local snapshot.
func RecordCacheHit() { cacheHitCounter.Inc() }

// RecordCacheMiss counts a read that went to the backend.
func RecordCacheMiss() { cacheMissCounter.Inc() }

// RecordSyncFailure counts a remote refresh that fell back to cached data.
func RecordSyncFailure() { syncFailureCounter.Inc() }

// ObserveSyncDuration records how long a remote refresh took.
func ObserveSyncDuration(d time.Duration) { syncDuration.Observe(d.Seconds()) }

// RecordReplayed counts a pending change replayed successfully.
func RecordReplayed() { replayCounter.WithLabelValues("delivered").Inc() }

// RecordReplayFailure counts a replay attempt that failed and will retry.
func RecordReplayFailure() { replayCounter.WithLabelValues("failed").Inc() }

// RecordReplayDropped counts a pending change discarded after exhausting its
// retry budget.
func RecordReplayDropped() { replayCounter.WithLabelValues("dropped").Inc() }

// SetQueueDepth updates the pending-queue depth gauge.
func SetQueueDepth(n int) { queueDepthGauge.Set(float64(n)) }

// RecordLastSync updates the last successful sync watermark.
func RecordLastSync(ts time.Time) {
	if ts.IsZero() {
		return
	}
	lastSyncGauge.Set(float64(ts.Unix()))
}
