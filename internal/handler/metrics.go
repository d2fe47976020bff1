package handler

import (
	"fmt"
	"net/http"

	"github.com/leadlens/leadlens/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "leadlens_profile_cache_hits_total %d\n", snap.ProfileCacheHits)
	writeMetric(w, "leadlens_profile_cache_misses_total %d\n", snap.ProfileCacheMisses)
	writeMetric(w, "leadlens_profile_store_hits_total %d\n", snap.ProfileStoreHits)
	writeMetric(w, "leadlens_remote_profiles_fetched_total %d\n", snap.RemoteProfilesFetched)
	writeMetric(w, "leadlens_remote_calls_saved_total %d\n", snap.RemoteCallsSaved)
	writeMetric(w, "leadlens_profile_fetch_duration_seconds_count %d\n", snap.ProfileFetchCount)
	writeMetric(w, "leadlens_profile_fetch_duration_seconds_sum %.6f\n", float64(snap.ProfileFetchTotalNs)/1e9)

	writeMetric(w, "leadlens_jobs_created_total %d\n", snap.JobsCreated)
	writeMetric(w, "leadlens_jobs_completed_total %d\n", snap.JobsCompleted)
	writeMetric(w, "leadlens_jobs_failed_total %d\n", snap.JobsFailed)

	writeMetric(w, "leadlens_job_events_published_total{status=\"success\"} %d\n", snap.JobEventsPublished)
	writeMetric(w, "leadlens_job_events_published_total{status=\"dropped\"} %d\n", snap.JobEventsDropped)
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
