package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/leadlens/leadlens/internal/model"
)

// Publisher creates webhook delivery records when jobs finish.
type Publisher struct {
	repo   *Repository
	logger *slog.Logger
}

// NewPublisher creates a new webhook publisher.
func NewPublisher(repo *Repository, logger *slog.Logger) *Publisher {
	return &Publisher{
		repo:   repo,
		logger: logger.With("component", "webhook.publisher"),
	}
}

// PublishJobEvent creates webhook deliveries for a terminal job.
// It fans out to all active endpoints the owner subscribed to the
// matching event type. Non-terminal jobs are ignored.
func (p *Publisher) PublishJobEvent(ctx context.Context, job *model.Job) error {
	var eventType model.EventType
	switch job.Status {
	case model.JobStatusCompleted:
		eventType = model.EventTypeJobCompleted
	case model.JobStatusFailed:
		eventType = model.EventTypeJobFailed
	default:
		return nil
	}

	endpoints, err := p.repo.ListActiveEndpointsByUserAndEvent(ctx, job.OwnerID, eventType)
	if err != nil {
		return fmt.Errorf("list active endpoints: %w", err)
	}

	if len(endpoints) == 0 {
		return nil // No webhooks configured
	}

	occurredAt := time.Now().UTC()
	if job.CompletedAt != nil {
		occurredAt = *job.CompletedAt
	}

	// Build payload once, reuse for all endpoints
	payload := model.WebhookPayload{
		EventType: string(eventType),
		EventID:   job.ID,
		Timestamp: occurredAt,
		Data: map[string]any{
			"job_id":       job.ID,
			"kind":         string(job.Kind),
			"status":       string(job.Status),
			"result_count": job.ResultCount,
			"error":        job.ErrorText,
		},
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	// Create delivery for each endpoint
	now := time.Now()
	for _, endpoint := range endpoints {
		delivery := &model.WebhookDelivery{
			ID:           ulid.Make().String(),
			EndpointID:   endpoint.ID,
			EventID:      job.ID,
			EventType:    eventType,
			PayloadJSON:  string(payloadJSON),
			Status:       model.DeliveryStatusPending,
			AttemptCount: 0,
			MaxAttempts:  DefaultMaxAttempts,
			NextRetryAt:  now, // Immediate delivery
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		if err := p.repo.CreateDelivery(ctx, delivery); err != nil {
			p.logger.Warn("failed to create delivery",
				"endpoint_id", endpoint.ID,
				"job_id", job.ID,
				"error", err,
			)
			// Continue with other endpoints
			continue
		}

		p.logger.Debug("webhook delivery created",
			"delivery_id", delivery.ID,
			"endpoint_id", endpoint.ID,
			"job_id", job.ID,
		)
	}

	return nil
}
