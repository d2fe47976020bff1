package metrics

import (
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	ProfileCacheHits          uint64
	ProfileCacheMisses        uint64
	ProfileStoreHits          uint64
	RemoteProfilesFetched     uint64
	RemoteCallsSaved          uint64
	ProfileFetchCount         uint64
	ProfileFetchTotalNs       int64
	JobsCreated               uint64
	JobsCompleted             uint64
	JobsFailed                uint64
	JobEventsPublished        uint64
	JobEventsDropped          uint64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	profileCacheHits      uint64
	profileCacheMisses    uint64
	profileStoreHits      uint64
	remoteProfilesFetched uint64
	remoteCallsSaved      uint64
	profileFetchCount     uint64
	profileFetchTotalNs   int64
	jobsCreated           uint64
	jobsCompleted         uint64
	jobsFailed            uint64
	jobEventsPublished    uint64
	jobEventsDropped      uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	return Snapshot{
		ProfileCacheHits:      atomic.LoadUint64(&m.profileCacheHits),
		ProfileCacheMisses:    atomic.LoadUint64(&m.profileCacheMisses),
		ProfileStoreHits:      atomic.LoadUint64(&m.profileStoreHits),
		RemoteProfilesFetched: atomic.LoadUint64(&m.remoteProfilesFetched),
		RemoteCallsSaved:      atomic.LoadUint64(&m.remoteCallsSaved),
		ProfileFetchCount:     atomic.LoadUint64(&m.profileFetchCount),
		ProfileFetchTotalNs:   atomic.LoadInt64(&m.profileFetchTotalNs),
		JobsCreated:           atomic.LoadUint64(&m.jobsCreated),
		JobsCompleted:         atomic.LoadUint64(&m.jobsCompleted),
		JobsFailed:            atomic.LoadUint64(&m.jobsFailed),
		JobEventsPublished:    atomic.LoadUint64(&m.jobEventsPublished),
		JobEventsDropped:      atomic.LoadUint64(&m.jobEventsDropped),
	}
}

// IncProfileCacheHit increments the profile cache hit counter.
func (m *InMemoryRecorder) IncProfileCacheHit() {
	atomic.AddUint64(&m.profileCacheHits, 1)
}

// IncProfileCacheMiss increments the profile cache miss counter.
func (m *InMemoryRecorder) IncProfileCacheMiss() {
	atomic.AddUint64(&m.profileCacheMisses, 1)
}

// IncProfileStoreHit increments the store hit counter.
func (m *InMemoryRecorder) IncProfileStoreHit() {
	atomic.AddUint64(&m.profileStoreHits, 1)
}

// IncRemoteProfileFetched increments the remote fetch counter.
func (m *InMemoryRecorder) IncRemoteProfileFetched() {
	atomic.AddUint64(&m.remoteProfilesFetched, 1)
}

// IncRemoteCallsSaved adds to the saved remote call counter.
func (m *InMemoryRecorder) IncRemoteCallsSaved(count int) {
	if count > 0 {
		atomic.AddUint64(&m.remoteCallsSaved, uint64(count))
	}
}

// ObserveProfileFetchDuration records a profile fetch duration.
func (m *InMemoryRecorder) ObserveProfileFetchDuration(duration time.Duration) {
	atomic.AddUint64(&m.profileFetchCount, 1)
	atomic.AddInt64(&m.profileFetchTotalNs, duration.Nanoseconds())
}

// IncJobCreated increments the job created counter.
func (m *InMemoryRecorder) IncJobCreated(kind string) {
	atomic.AddUint64(&m.jobsCreated, 1)
}

// IncJobCompleted increments the job completed counter.
func (m *InMemoryRecorder) IncJobCompleted(kind string) {
	atomic.AddUint64(&m.jobsCompleted, 1)
}

// IncJobFailed increments the job failed counter.
func (m *InMemoryRecorder) IncJobFailed(kind string) {
	atomic.AddUint64(&m.jobsFailed, 1)
}

// ObserveJobDuration is recorded only in aggregate fetch counters.
func (m *InMemoryRecorder) ObserveJobDuration(kind string, duration time.Duration) {}

// IncJobEventPublished tracks publish outcomes.
func (m *InMemoryRecorder) IncJobEventPublished(status string) {
	if status == "success" {
		atomic.AddUint64(&m.jobEventsPublished, 1)
		return
	}
	atomic.AddUint64(&m.jobEventsDropped, 1)
}

// IncWebhookDelivery is a no-op in the in-memory recorder.
func (m *InMemoryRecorder) IncWebhookDelivery(status string, endpointID string) {}

// IncWebhookRetry is a no-op in the in-memory recorder.
func (m *InMemoryRecorder) IncWebhookRetry(endpointID string, attempt int) {}

// ObserveWebhookDeliveryDuration is a no-op in the in-memory recorder.
func (m *InMemoryRecorder) ObserveWebhookDeliveryDuration(endpointID string, duration time.Duration) {}

// SetWebhookQueueDepth is a no-op in the in-memory recorder.
func (m *InMemoryRecorder) SetWebhookQueueDepth(depth int64) {}

// IncJobEventProcessed is a no-op in the in-memory recorder.
func (m *InMemoryRecorder) IncJobEventProcessed(status string) {}

// ObserveEventBatchSize is a no-op in the in-memory recorder.
func (m *InMemoryRecorder) ObserveEventBatchSize(size int) {}

// ObserveEventBatchDuration is a no-op in the in-memory recorder.
func (m *InMemoryRecorder) ObserveEventBatchDuration(duration time.Duration) {}

// SetEventQueueDepth is a no-op in the in-memory recorder.
func (m *InMemoryRecorder) SetEventQueueDepth(depth int64) {}

// ObserveEventIngestLag is a no-op in the in-memory recorder.
func (m *InMemoryRecorder) ObserveEventIngestLag(lag time.Duration) {}
