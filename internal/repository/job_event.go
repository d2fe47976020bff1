package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/leadlens/leadlens/internal/model"
)

// BulkInsertJobEvents appends a batch of activity events.
// Called by the events worker when flushing the Redis stream.
func (r *Repository) BulkInsertJobEvents(ctx context.Context, events []*model.JobEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch := make([][]any, 0, len(events))
	for _, e := range events {
		batch = append(batch, []any{e.JobID, e.OwnerID, e.Status, e.ResultCount, e.Detail, e.OccurredAt})
	}

	query := `
		INSERT INTO job_events (job_id, owner_id, status, result_count, detail, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin job events tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, args := range batch {
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("insert job event: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit job events tx: %w", err)
	}

	return nil
}

// ListJobEvents retrieves the activity trail for a job, oldest first.
func (r *Repository) ListJobEvents(ctx context.Context, jobID string, limit int) ([]*model.JobEvent, error) {
	query := `
		SELECT id, job_id, owner_id, status, result_count, detail, occurred_at
		FROM job_events
		WHERE job_id = $1
		ORDER BY occurred_at ASC, id ASC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, jobID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list job events: %w", err)
	}
	defer rows.Close()

	var events []*model.JobEvent
	for rows.Next() {
		var e model.JobEvent
		if err := rows.Scan(&e.ID, &e.JobID, &e.OwnerID, &e.Status, &e.ResultCount, &e.Detail, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan job event: %w", err)
		}
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating job events: %w", err)
	}

	return events, nil
}

// GetDailyJobStats aggregates an owner's job activity per day. A
// pending event marks job acceptance, so the accepted column counts
// jobs created that day.
func (r *Repository) GetDailyJobStats(ctx context.Context, ownerID string, from, to time.Time) ([]*model.DailyJobStats, error) {
	query := `
		SELECT
			date_trunc('day', occurred_at)::date AS day,
			COUNT(*) FILTER (WHERE status = 'pending') AS accepted,
			COUNT(*) FILTER (WHERE status = 'completed') AS completed,
			COUNT(*) FILTER (WHERE status = 'failed') AS failed,
			COALESCE(SUM(result_count) FILTER (WHERE status = 'completed'), 0) AS results
		FROM job_events
		WHERE owner_id = $1 AND occurred_at >= $2 AND occurred_at < $3
		GROUP BY 1
		ORDER BY 1 ASC
	`

	rows, err := r.pool.Query(ctx, query, ownerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate job stats: %w", err)
	}
	defer rows.Close()

	var stats []*model.DailyJobStats
	for rows.Next() {
		var s model.DailyJobStats
		if err := rows.Scan(&s.Date, &s.Accepted, &s.Completed, &s.Failed, &s.Results); err != nil {
			return nil, fmt.Errorf("failed to scan job stats: %w", err)
		}
		stats = append(stats, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating job stats: %w", err)
	}

	return stats, nil
}
