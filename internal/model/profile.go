package model

import (
	"encoding/json"
	"strconv"
	"time"
)

// Profile holds the scraped payload for a single LinkedIn profile URL.
// The URL is the global deduplication key: two owners never hold separate
// rows for the same URL, an upsert overwrites the shared record.
type Profile struct {
	ID           string          `json:"id"`
	OwnerID      string          `json:"owner_id"`
	ProfileURL   string          `json:"profile_url"`
	Payload      json.RawMessage `json:"payload"`
	Tags         []string        `json:"tags,omitempty"`
	LastSyncedAt time.Time       `json:"last_synced_at"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// CachedProfile represents profile data stored in Redis.
// Uses string types for Redis hash compatibility.
type CachedProfile struct {
	ID           string `redis:"id"`
	ProfileURL   string `redis:"profile_url"`
	Payload      string `redis:"payload"`
	OwnerID      string `redis:"owner_id"`
	LastSyncedAt string `redis:"last_synced_at"` // Unix timestamp
}

// ToProfile converts CachedProfile to the Profile domain model.
// Cache hits and store hits must serialize with the same identity,
// so the row ID travels through the cache.
func (c *CachedProfile) ToProfile() *Profile {
	p := &Profile{
		ID:         c.ID,
		OwnerID:    c.OwnerID,
		ProfileURL: c.ProfileURL,
		Payload:    json.RawMessage(c.Payload),
	}

	if c.LastSyncedAt != "" {
		if ts, err := strconv.ParseInt(c.LastSyncedAt, 10, 64); err == nil {
			p.LastSyncedAt = time.Unix(ts, 0)
		}
	}

	return p
}

// ToCachedProfile converts a Profile to its Redis representation.
func (p *Profile) ToCachedProfile() *CachedProfile {
	return &CachedProfile{
		ID:           p.ID,
		ProfileURL:   p.ProfileURL,
		Payload:      string(p.Payload),
		OwnerID:      p.OwnerID,
		LastSyncedAt: strconv.FormatInt(p.LastSyncedAt.Unix(), 10),
	}
}
