package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/leadlens/leadlens/internal/model"
	"github.com/redis/go-redis/v9"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 420420

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// resetSchema runs a migration's down then up script against the pool.
func resetSchema(ctx context.Context, pool *pgxpool.Pool, name string) error {
	root, err := ProjectRoot()
	if err != nil {
		return err
	}

	downPath := filepath.Join(root, "migrations", name+".down.sql")
	upPath := filepath.Join(root, "migrations", name+".up.sql")

	downSQL, err := os.ReadFile(downPath)
	if err != nil {
		return fmt.Errorf("read %s down migration: %w", name, err)
	}
	if _, err := pool.Exec(ctx, string(downSQL)); err != nil {
		return fmt.Errorf("apply %s down migration: %w", name, err)
	}

	upSQL, err := os.ReadFile(upPath)
	if err != nil {
		return fmt.Errorf("read %s up migration: %w", name, err)
	}
	if _, err := pool.Exec(ctx, string(upSQL)); err != nil {
		return fmt.Errorf("apply %s up migration: %w", name, err)
	}

	return nil
}

// ResetUsersSchema drops and recreates the users schema for tests.
func ResetUsersSchema(ctx context.Context, pool *pgxpool.Pool) error {
	return resetSchema(ctx, pool, "000001_users")
}

// ResetAPIKeysSchema drops and recreates the api_keys schema for tests.
func ResetAPIKeysSchema(ctx context.Context, pool *pgxpool.Pool) error {
	return resetSchema(ctx, pool, "000002_api_keys")
}

// ResetCredentialsSchema drops and recreates the credentials schema for tests.
func ResetCredentialsSchema(ctx context.Context, pool *pgxpool.Pool) error {
	return resetSchema(ctx, pool, "000003_credentials")
}

// ResetProfilesSchema drops and recreates the profiles schema for tests.
func ResetProfilesSchema(ctx context.Context, pool *pgxpool.Pool) error {
	return resetSchema(ctx, pool, "000004_profiles")
}

// ResetJobsSchema drops and recreates the jobs and job_events schema for tests.
func ResetJobsSchema(ctx context.Context, pool *pgxpool.Pool) error {
	return resetSchema(ctx, pool, "000005_jobs")
}

// ResetWebhooksSchema drops and recreates the webhooks schema for tests.
func ResetWebhooksSchema(ctx context.Context, pool *pgxpool.Pool) error {
	return resetSchema(ctx, pool, "000006_webhooks")
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// ProjectRoot returns the project root directory.
func ProjectRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("failed to resolve testutil path")
	}
	root := filepath.Clean(filepath.Join(filepath.Dir(filename), "..", ".."))
	return root, nil
}

// ============================================================================
// Test Data Factories
// ============================================================================

// NewTestCredential creates a test provider credential with sensible defaults.
func NewTestCredential(t testing.TB, userID, label string) *model.Credential {
	t.Helper()
	now := time.Now().UTC()
	return &model.Credential{
		ID:        fmt.Sprintf("cred-%d", now.UnixNano()),
		UserID:    userID,
		Label:     label,
		Secret:    "provider-secret-" + label,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewTestJob creates a pending test job with sensible defaults.
func NewTestJob(t testing.TB, ownerID string, kind model.JobKind, targets ...string) *model.Job {
	t.Helper()
	now := time.Now().UTC()
	if len(targets) == 0 {
		targets = []string{"https://www.linkedin.com/posts/activity-1"}
	}
	return &model.Job{
		ID:        fmt.Sprintf("job-%d", now.UnixNano()),
		OwnerID:   ownerID,
		Kind:      kind,
		Targets:   targets,
		Status:    model.JobStatusPending,
		CreatedAt: now,
	}
}

// NewTestProfile creates a test profile with sensible defaults.
func NewTestProfile(t testing.TB, ownerID, profileURL string) *model.Profile {
	t.Helper()
	now := time.Now().UTC()
	return &model.Profile{
		ID:           fmt.Sprintf("prof-%d", now.UnixNano()),
		OwnerID:      ownerID,
		ProfileURL:   profileURL,
		Payload:      json.RawMessage(`{"name":"Test Person","headline":"Engineer"}`),
		Tags:         []string{"test"},
		LastSyncedAt: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NewTestAPIKey creates a test API key with sensible defaults.
func NewTestAPIKey(t testing.TB, userID string) *model.APIKey {
	t.Helper()
	now := time.Now().UTC()
	return &model.APIKey{
		ID:            fmt.Sprintf("key-%d", now.UnixNano()),
		UserID:        userID,
		SubjectEmail:  userID + "@example.com",
		KeyHash:       fmt.Sprintf("hash-%d", now.UnixNano()),
		KeyPrefix:     "lk_test_",
		Scopes:        []string{model.ScopeRead, model.ScopeWrite},
		RateLimitTier: model.TierFree,
		Name:          "Test Key",
		CreatedAt:     now,
	}
}

// NewTestAPIKeyWithTier creates a test API key with a specific tier.
func NewTestAPIKeyWithTier(t testing.TB, userID string, tier string) *model.APIKey {
	t.Helper()
	key := NewTestAPIKey(t, userID)
	key.RateLimitTier = tier
	return key
}

// UniqueProfileURL generates a unique LinkedIn profile URL for tests.
func UniqueProfileURL(slug string) string {
	return fmt.Sprintf("https://www.linkedin.com/in/%s-%d", slug, time.Now().UnixNano())
}

// UniqueID generates a unique ID for tests.
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
