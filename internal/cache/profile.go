package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/leadlens/leadlens/internal/model"
)

// Cache key prefixes and TTLs.
const (
	profileKeyPrefix = "profile:"

	// DefaultProfileTTL is the TTL for cached profile payloads.
	DefaultProfileTTL = 24 * time.Hour
)

// ErrCacheMiss indicates the key is not present in the cache.
var ErrCacheMiss = errors.New("cache miss")

// profileKey derives the Redis key for a profile URL. The URL is hashed
// so arbitrarily long or odd URLs never leak into key space verbatim.
func profileKey(profileURL string) string {
	hash := sha256.Sum256([]byte(profileURL))
	return profileKeyPrefix + hex.EncodeToString(hash[:16])
}

// GetProfile retrieves a cached profile payload by URL.
// Returns ErrCacheMiss if not found.
func (c *Cache) GetProfile(ctx context.Context, profileURL string) (*model.CachedProfile, error) {
	key := profileKey(profileURL)

	result, err := c.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall failed: %w", err)
	}

	if len(result) == 0 {
		return nil, ErrCacheMiss
	}

	cached := &model.CachedProfile{
		ID:           result["id"],
		ProfileURL:   result["profile_url"],
		Payload:      result["payload"],
		OwnerID:      result["owner_id"],
		LastSyncedAt: result["last_synced_at"],
	}

	return cached, nil
}

// SetProfile stores a profile payload in cache.
func (c *Cache) SetProfile(ctx context.Context, profile *model.Profile) error {
	key := profileKey(profile.ProfileURL)
	cached := profile.ToCachedProfile()

	fields := map[string]any{
		"id":             cached.ID,
		"profile_url":    cached.ProfileURL,
		"payload":        cached.Payload,
		"owner_id":       cached.OwnerID,
		"last_synced_at": cached.LastSyncedAt,
	}

	pipe := c.client.Pipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, DefaultProfileTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache profile: %w", err)
	}

	return nil
}
