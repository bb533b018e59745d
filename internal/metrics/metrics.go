// Package metrics provides Prometheus metrics for the sync client.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	syncTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slatesync_syncs_total",
			Help: "Total number of sync operations",
		},
		[]string{"result"},
	)

	syncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "slatesync_sync_duration_seconds",
			Help:    "Time to complete a sync operation",
			Buckets: prometheus.DefBuckets,
		},
	)

	cacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "slatesync_cache_hits_total",
			Help: "Syncs answered from the local cache without a full index read",
		},
	)

	blobRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slatesync_blob_requests_total",
			Help: "Total blob transport requests",
		},
		[]string{"op", "status"},
	)

	blobBytesDownloaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "slatesync_blob_bytes_downloaded_total",
			Help: "Total bytes fetched from the blob endpoint",
		},
	)

	blobBytesUploaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "slatesync_blob_bytes_uploaded_total",
			Help: "Total bytes stored to the blob endpoint",
		},
	)

	commitConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "slatesync_commit_conflicts_total",
			Help: "Root commits rejected for a stale generation",
		},
	)
)

// ObserveSync records the outcome and duration of a sync operation.
func ObserveSync(result string, d time.Duration) {
	syncTotal.WithLabelValues(result).Inc()
	syncDuration.Observe(d.Seconds())
}

// CacheHit records a sync short-circuited by the local cache.
func CacheHit() {
	cacheHitsTotal.Inc()
}

// BlobRequest records one blob transport request.
func BlobRequest(op, status string) {
	blobRequestsTotal.WithLabelValues(op, status).Inc()
}

// BlobDownloaded adds to the downloaded byte counter.
func BlobDownloaded(n int) {
	blobBytesDownloaded.Add(float64(n))
}

// BlobUploaded adds to the uploaded byte counter.
func BlobUploaded(n int) {
	blobBytesUploaded.Add(float64(n))
}

// CommitConflict records a root commit rejected for a stale generation.
func CommitConflict() {
	commitConflictsTotal.Inc()
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
