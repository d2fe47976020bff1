package dto

import (
	"encoding/json"
	"time"

	"github.com/leadlens/leadlens/internal/model"
)

// FetchProfilesRequest represents the request body for on-demand
// profile fetching.
type FetchProfilesRequest struct {
	CredentialID string   `json:"credential_id"`
	ProfileURLs  []string `json:"profile_urls"`
}

// ProfileResponse represents a scraped profile in API responses.
type ProfileResponse struct {
	ID           string          `json:"id"`
	ProfileURL   string          `json:"profile_url"`
	Payload      json.RawMessage `json:"payload"`
	Tags         []string        `json:"tags,omitempty"`
	LastSyncedAt time.Time       `json:"last_synced_at"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// ProfileListResponse represents a paginated list of profiles.
type ProfileListResponse struct {
	Data       []ProfileResponse `json:"data"`
	Pagination *Pagination       `json:"pagination"`
}

// ToProfileResponse converts a Profile model to ProfileResponse DTO.
func ToProfileResponse(profile *model.Profile) *ProfileResponse {
	return &ProfileResponse{
		ID:           profile.ID,
		ProfileURL:   profile.ProfileURL,
		Payload:      profile.Payload,
		Tags:         profile.Tags,
		LastSyncedAt: profile.LastSyncedAt,
		CreatedAt:    profile.CreatedAt,
		UpdatedAt:    profile.UpdatedAt,
	}
}

// ToProfileListResponse converts profiles to a paginated response.
func ToProfileListResponse(profiles []*model.Profile, nextCursor string, hasMore bool) *ProfileListResponse {
	responses := make([]ProfileResponse, len(profiles))
	for i, p := range profiles {
		responses[i] = *ToProfileResponse(p)
	}
	return &ProfileListResponse{
		Data: responses,
		Pagination: &Pagination{
			NextCursor: nextCursor,
			HasMore:    hasMore,
		},
	}
}
