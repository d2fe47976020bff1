package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"

	"github.com/leadlens/leadlens/internal/model"
)

// ErrProfileNotFound indicates no profile row exists for the identifier.
var ErrProfileNotFound = errors.New("profile not found")

// ProfileFilter defines filters for listing profiles.
type ProfileFilter struct {
	OwnerID string
	Tag     string
}

// UpsertProfile inserts a profile or overwrites the existing row for the
// same profile URL. The URL is globally unique, so concurrent writers for
// one URL are last-writer-wins on payload, tags and owner.
func (r *Repository) UpsertProfile(ctx context.Context, profile *model.Profile) error {
	query := `
		INSERT INTO profiles (id, owner_id, profile_url, payload, tags, last_synced_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (profile_url) DO UPDATE SET
			owner_id = EXCLUDED.owner_id,
			payload = EXCLUDED.payload,
			tags = EXCLUDED.tags,
			last_synced_at = EXCLUDED.last_synced_at,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.pool.Exec(ctx, query,
		profile.ID,
		profile.OwnerID,
		profile.ProfileURL,
		profile.Payload,
		pq.Array(profile.Tags),
		profile.LastSyncedAt,
		profile.CreatedAt,
		profile.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}

	return nil
}

// ProfileExistsByURL checks if a profile row exists for the URL.
func (r *Repository) ProfileExistsByURL(ctx context.Context, profileURL string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM profiles WHERE profile_url = $1)`

	var exists bool
	err := r.pool.QueryRow(ctx, query, profileURL).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check profile existence: %w", err)
	}

	return exists, nil
}

// GetProfileByURL retrieves a profile by its exact URL.
func (r *Repository) GetProfileByURL(ctx context.Context, profileURL string) (*model.Profile, error) {
	query := `
		SELECT id, owner_id, profile_url, payload, tags, last_synced_at, created_at, updated_at
		FROM profiles
		WHERE profile_url = $1
	`

	profile, err := scanProfile(r.pool.QueryRow(ctx, query, profileURL))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile by URL: %w", err)
	}

	return profile, nil
}

// FindProfilesByURLs retrieves every profile whose URL is in the given set.
// This is the batched partition query behind deduplicated fetching: URLs
// absent from the result are the ones that need a remote scrape.
func (r *Repository) FindProfilesByURLs(ctx context.Context, urls []string) ([]*model.Profile, error) {
	if len(urls) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, owner_id, profile_url, payload, tags, last_synced_at, created_at, updated_at
		FROM profiles
		WHERE profile_url = ANY($1)
	`

	rows, err := r.pool.Query(ctx, query, urls)
	if err != nil {
		return nil, fmt.Errorf("failed to find profiles by URLs: %w", err)
	}
	defer rows.Close()

	var profiles []*model.Profile
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, profile)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating profiles: %w", err)
	}

	return profiles, nil
}

// ListProfilesByOwner retrieves a keyset-paginated list of an owner's profiles.
func (r *Repository) ListProfilesByOwner(ctx context.Context, filter ProfileFilter, cursor string, limit int) ([]*model.Profile, string, error) {
	var cursorData *PaginationCursor
	if cursor != "" {
		var err error
		cursorData, err = decodeCursor(cursor)
		if err != nil {
			return nil, "", ErrInvalidCursor
		}
	}

	query := `
		SELECT id, owner_id, profile_url, payload, tags, last_synced_at, created_at, updated_at
		FROM profiles
		WHERE owner_id = $1
	`
	args := []any{filter.OwnerID}
	argIndex := 2

	if cursorData != nil {
		query += fmt.Sprintf(" AND (created_at, id) < ($%d, $%d)", argIndex, argIndex+1)
		args = append(args, cursorData.CreatedAt, cursorData.ID)
		argIndex += 2
	}

	if filter.Tag != "" {
		query += fmt.Sprintf(" AND $%d = ANY(tags)", argIndex)
		args = append(args, filter.Tag)
		argIndex++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", argIndex)
	args = append(args, limit+1) // Fetch one extra to determine hasMore

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*model.Profile
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, "", fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, profile)
	}

	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("error iterating profiles: %w", err)
	}

	var nextCursor string
	if len(profiles) > limit {
		profiles = profiles[:limit]
		last := profiles[len(profiles)-1]
		nextCursor = encodeCursor(&PaginationCursor{
			ID:        last.ID,
			CreatedAt: last.CreatedAt,
		})
	}

	return profiles, nextCursor, nil
}

// ListAllProfiles retrieves every stored profile regardless of owner.
// Admin-only surface; mirrors the shared nature of the profile store.
func (r *Repository) ListAllProfiles(ctx context.Context, limit int) ([]*model.Profile, error) {
	query := `
		SELECT id, owner_id, profile_url, payload, tags, last_synced_at, created_at, updated_at
		FROM profiles
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list all profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*model.Profile
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, profile)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating profiles: %w", err)
	}

	return profiles, nil
}

// scanProfile scans a single row into a Profile model.
func scanProfile(row pgx.Row) (*model.Profile, error) {
	var profile model.Profile
	var tags []string

	err := row.Scan(
		&profile.ID,
		&profile.OwnerID,
		&profile.ProfileURL,
		&profile.Payload,
		pq.Array(&tags),
		&profile.LastSyncedAt,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	profile.Tags = tags
	return &profile, nil
}
