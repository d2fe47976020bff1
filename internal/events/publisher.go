// Package events provides job activity capture and processing.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/leadlens/leadlens/internal/metrics"
)

const (
	// StreamKey is the Redis stream for job activity events.
	StreamKey = "stream:job_events"

	// DeadLetterStreamKey is the Redis stream for poison messages.
	DeadLetterStreamKey = "stream:job_events:dlq"

	// MaxStreamLen is the approximate max length of the stream.
	MaxStreamLen = 100000

	// PublishTimeout is the max time to wait for Redis publish.
	PublishTimeout = 100 * time.Millisecond
)

// JobEventPayload is the compressed event format for the Redis stream.
type JobEventPayload struct {
	JobID       string `json:"jid"`          // job_id
	OwnerID     string `json:"oid"`          // owner_id
	Status      string `json:"st"`           // job status at event time
	ResultCount int    `json:"rc,omitempty"` // result_count
	Detail      string `json:"d,omitempty"`  // detail (truncated)
	OccurredAt  int64  `json:"t"`            // Unix milliseconds
}

// Publisher enqueues job activity events to the Redis stream.
type Publisher struct {
	redis   *redis.Client
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewPublisher creates a new activity event publisher.
func NewPublisher(client *redis.Client, logger *slog.Logger, recorder metrics.Recorder) *Publisher {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Publisher{
		redis:   client,
		logger:  logger.With("component", "events.publisher"),
		metrics: recorder,
	}
}

// Publish adds a job event to the stream synchronously.
func (p *Publisher) Publish(ctx context.Context, event JobEventPayload) (string, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}

	result, err := p.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey,
		MaxLen: MaxStreamLen,
		Approx: true, // ~MAXLEN for performance
		ID:     "*",  // Auto-generate ID
		Values: map[string]interface{}{
			"payload": string(data),
		},
	}).Result()

	if err != nil {
		return "", fmt.Errorf("xadd: %w", err)
	}

	return result, nil
}

// PublishAsync publishes without blocking the caller.
// Errors are logged but not returned (fire-and-forget).
func (p *Publisher) PublishAsync(event JobEventPayload) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), PublishTimeout)
		defer cancel()

		streamID, err := p.Publish(ctx, event)
		if err != nil {
			p.logger.Warn("failed to publish job event",
				"job_id", event.JobID,
				"status", event.Status,
				"error", err,
			)
			p.metrics.IncJobEventPublished("dropped")
			return
		}

		p.logger.Debug("job event published",
			"job_id", event.JobID,
			"status", event.Status,
			"stream_id", streamID,
		)
		p.metrics.IncJobEventPublished("success")
	}()
}
