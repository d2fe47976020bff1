package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"

	"github.com/leadlens/leadlens/internal/model"
)

// Common errors for job repository operations.
var (
	ErrJobNotFound = errors.New("job not found")
	// ErrJobFinalized indicates a transition was rejected because the job
	// already left the expected state. Terminal states are final.
	ErrJobFinalized = errors.New("job already finalized")
)

// CreateJob inserts a new job in pending state.
func (r *Repository) CreateJob(ctx context.Context, job *model.Job) error {
	query := `
		INSERT INTO jobs (id, owner_id, credential_id, kind, targets, status, result_count, error_text, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.pool.Exec(ctx, query,
		job.ID,
		job.OwnerID,
		job.CredentialID,
		job.Kind,
		pq.Array(job.Targets),
		job.Status,
		job.ResultCount,
		job.ErrorText,
		job.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	return nil
}

// GetJobByID retrieves a job by its ID.
func (r *Repository) GetJobByID(ctx context.Context, id string) (*model.Job, error) {
	query := `
		SELECT id, owner_id, credential_id, kind, targets, status, result_count, error_text, created_at, started_at, completed_at
		FROM jobs
		WHERE id = $1
	`

	job, err := scanJob(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job by ID: %w", err)
	}

	return job, nil
}

// ListJobsByOwner retrieves a keyset-paginated list of an owner's jobs.
func (r *Repository) ListJobsByOwner(ctx context.Context, ownerID string, cursor string, limit int) ([]*model.Job, string, error) {
	var cursorData *PaginationCursor
	if cursor != "" {
		var err error
		cursorData, err = decodeCursor(cursor)
		if err != nil {
			return nil, "", ErrInvalidCursor
		}
	}

	query := `
		SELECT id, owner_id, credential_id, kind, targets, status, result_count, error_text, created_at, started_at, completed_at
		FROM jobs
		WHERE owner_id = $1
	`
	args := []any{ownerID}
	argIndex := 2

	if cursorData != nil {
		query += fmt.Sprintf(" AND (created_at, id) < ($%d, $%d)", argIndex, argIndex+1)
		args = append(args, cursorData.CreatedAt, cursorData.ID)
		argIndex += 2
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", argIndex)
	args = append(args, limit+1)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*model.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, "", fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("error iterating jobs: %w", err)
	}

	var nextCursor string
	if len(jobs) > limit {
		jobs = jobs[:limit]
		last := jobs[len(jobs)-1]
		nextCursor = encodeCursor(&PaginationCursor{
			ID:        last.ID,
			CreatedAt: last.CreatedAt,
		})
	}

	return jobs, nextCursor, nil
}

// MarkJobRunning transitions a pending job to running.
// The state guard in the WHERE clause makes the transition monotonic:
// a job that already left pending is rejected with ErrJobFinalized.
func (r *Repository) MarkJobRunning(ctx context.Context, id string, startedAt time.Time) error {
	query := `
		UPDATE jobs
		SET status = $2, started_at = $3
		WHERE id = $1 AND status = $4
	`

	result, err := r.pool.Exec(ctx, query, id, model.JobStatusRunning, startedAt, model.JobStatusPending)
	if err != nil {
		return fmt.Errorf("failed to mark job running: %w", err)
	}

	if result.RowsAffected() == 0 {
		return r.transitionConflict(ctx, id)
	}

	return nil
}

// CompleteJob transitions a running job to completed with its result count.
func (r *Repository) CompleteJob(ctx context.Context, id string, resultCount int, completedAt time.Time) error {
	query := `
		UPDATE jobs
		SET status = $2, result_count = $3, completed_at = $4
		WHERE id = $1 AND status = $5
	`

	result, err := r.pool.Exec(ctx, query, id, model.JobStatusCompleted, resultCount, completedAt, model.JobStatusRunning)
	if err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}

	if result.RowsAffected() == 0 {
		return r.transitionConflict(ctx, id)
	}

	return nil
}

// FailJob transitions a running job to failed with its error text.
func (r *Repository) FailJob(ctx context.Context, id string, errorText string, completedAt time.Time) error {
	query := `
		UPDATE jobs
		SET status = $2, error_text = $3, completed_at = $4
		WHERE id = $1 AND status = $5
	`

	result, err := r.pool.Exec(ctx, query, id, model.JobStatusFailed, errorText, completedAt, model.JobStatusRunning)
	if err != nil {
		return fmt.Errorf("failed to fail job: %w", err)
	}

	if result.RowsAffected() == 0 {
		return r.transitionConflict(ctx, id)
	}

	return nil
}

// transitionConflict distinguishes a missing job from a rejected transition.
func (r *Repository) transitionConflict(ctx context.Context, id string) error {
	if _, err := r.GetJobByID(ctx, id); err != nil {
		return err
	}
	return ErrJobFinalized
}

// scanJob scans a single row into a Job model.
func scanJob(row pgx.Row) (*model.Job, error) {
	var job model.Job
	var targets []string

	err := row.Scan(
		&job.ID,
		&job.OwnerID,
		&job.CredentialID,
		&job.Kind,
		pq.Array(&targets),
		&job.Status,
		&job.ResultCount,
		&job.ErrorText,
		&job.CreatedAt,
		&job.StartedAt,
		&job.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	job.Targets = targets
	return &job, nil
}
