// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Profile fetch metrics
	IncProfileCacheHit()
	IncProfileCacheMiss()
	IncProfileStoreHit()
	IncRemoteProfileFetched()
	IncRemoteCallsSaved(count int)
	ObserveProfileFetchDuration(duration time.Duration)

	// Job lifecycle metrics
	IncJobCreated(kind string)
	IncJobCompleted(kind string)
	IncJobFailed(kind string)
	ObserveJobDuration(kind string, duration time.Duration)

	// Webhook delivery metrics
	IncWebhookDelivery(status string, endpointID string) // status: "success", "failed", "exhausted"
	IncWebhookRetry(endpointID string, attempt int)
	ObserveWebhookDeliveryDuration(endpointID string, duration time.Duration)
	SetWebhookQueueDepth(depth int64)

	// Event pipeline metrics
	IncJobEventPublished(status string) // status: "success" or "dropped"
	IncJobEventProcessed(status string) // status: "success", "failed", "skipped"
	ObserveEventBatchSize(size int)
	ObserveEventBatchDuration(duration time.Duration)
	SetEventQueueDepth(depth int64)
	ObserveEventIngestLag(lag time.Duration)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
