package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncProfileCacheHit is a no-op.
func (n *NoopRecorder) IncProfileCacheHit() {}

// IncProfileCacheMiss is a no-op.
func (n *NoopRecorder) IncProfileCacheMiss() {}

// IncProfileStoreHit is a no-op.
func (n *NoopRecorder) IncProfileStoreHit() {}

// IncRemoteProfileFetched is a no-op.
func (n *NoopRecorder) IncRemoteProfileFetched() {}

// IncRemoteCallsSaved is a no-op.
func (n *NoopRecorder) IncRemoteCallsSaved(count int) {}

// ObserveProfileFetchDuration is a no-op.
func (n *NoopRecorder) ObserveProfileFetchDuration(duration time.Duration) {}

// IncJobCreated is a no-op.
func (n *NoopRecorder) IncJobCreated(kind string) {}

// IncJobCompleted is a no-op.
func (n *NoopRecorder) IncJobCompleted(kind string) {}

// IncJobFailed is a no-op.
func (n *NoopRecorder) IncJobFailed(kind string) {}

// ObserveJobDuration is a no-op.
func (n *NoopRecorder) ObserveJobDuration(kind string, duration time.Duration) {}

// IncWebhookDelivery is a no-op.
func (n *NoopRecorder) IncWebhookDelivery(status string, endpointID string) {}

// IncWebhookRetry is a no-op.
func (n *NoopRecorder) IncWebhookRetry(endpointID string, attempt int) {}

// ObserveWebhookDeliveryDuration is a no-op.
func (n *NoopRecorder) ObserveWebhookDeliveryDuration(endpointID string, duration time.Duration) {}

// SetWebhookQueueDepth is a no-op.
func (n *NoopRecorder) SetWebhookQueueDepth(depth int64) {}

// IncJobEventPublished is a no-op.
func (n *NoopRecorder) IncJobEventPublished(status string) {}

// IncJobEventProcessed is a no-op.
func (n *NoopRecorder) IncJobEventProcessed(status string) {}

// ObserveEventBatchSize is a no-op.
func (n *NoopRecorder) ObserveEventBatchSize(size int) {}

// ObserveEventBatchDuration is a no-op.
func (n *NoopRecorder) ObserveEventBatchDuration(duration time.Duration) {}

// SetEventQueueDepth is a no-op.
func (n *NoopRecorder) SetEventQueueDepth(depth int64) {}

// ObserveEventIngestLag is a no-op.
func (n *NoopRecorder) ObserveEventIngestLag(lag time.Duration) {}
