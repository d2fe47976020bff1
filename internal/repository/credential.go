package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/leadlens/leadlens/internal/model"
)

// Common errors for credential repository operations.
var (
	ErrCredentialNotFound = errors.New("credential not found")
	ErrLabelExists        = errors.New("credential label already exists")
)

// CreateCredential inserts a stored provider key for a user.
func (r *Repository) CreateCredential(ctx context.Context, cred *model.Credential) error {
	query := `
		INSERT INTO credentials (id, user_id, label, secret, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		cred.ID,
		cred.UserID,
		cred.Label,
		cred.Secret,
		cred.Active,
		cred.CreatedAt,
		cred.UpdatedAt,
	)

	if err != nil {
		// Unique (user_id, label)
		if isUniqueViolation(err) {
			return ErrLabelExists
		}
		return fmt.Errorf("failed to create credential: %w", err)
	}

	return nil
}

// GetCredentialByID retrieves a credential by its ID.
func (r *Repository) GetCredentialByID(ctx context.Context, id string) (*model.Credential, error) {
	query := `
		SELECT id, user_id, label, secret, active, created_at, updated_at
		FROM credentials
		WHERE id = $1
	`

	cred, err := scanCredential(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCredentialNotFound
		}
		return nil, fmt.Errorf("failed to get credential by ID: %w", err)
	}

	return cred, nil
}

// ListCredentialsByUser retrieves all credentials for a user, newest first.
func (r *Repository) ListCredentialsByUser(ctx context.Context, userID string) ([]*model.Credential, error) {
	query := `
		SELECT id, user_id, label, secret, active, created_at, updated_at
		FROM credentials
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}
	defer rows.Close()

	var creds []*model.Credential
	for rows.Next() {
		cred, err := scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan credential: %w", err)
		}
		creds = append(creds, cred)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating credentials: %w", err)
	}

	return creds, nil
}

// DeactivateCredential clears the active flag on a credential.
func (r *Repository) DeactivateCredential(ctx context.Context, id string) error {
	query := `
		UPDATE credentials
		SET active = FALSE, updated_at = $2
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to deactivate credential: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrCredentialNotFound
	}

	return nil
}

// scanCredential scans a single row into a Credential model.
func scanCredential(row pgx.Row) (*model.Credential, error) {
	var cred model.Credential
	err := row.Scan(
		&cred.ID,
		&cred.UserID,
		&cred.Label,
		&cred.Secret,
		&cred.Active,
		&cred.CreatedAt,
		&cred.UpdatedAt,
	)
	return &cred, err
}
