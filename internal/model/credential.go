package model

import "time"

// Credential stores a user's API key for the external scraping provider.
// The secret is held as entered; it is sent to the provider on every
// job submission and is never returned by list endpoints.
type Credential struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Label     string    `json:"label"`
	Secret    string    `json:"-"` // Never serialize
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CredentialCreateRequest represents a request to store a provider key.
type CredentialCreateRequest struct {
	Label  string `json:"label"`
	Secret string `json:"secret"`
}

// CredentialResponse is the API shape for a credential (without the secret).
type CredentialResponse struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToResponse converts a Credential to its API response shape.
func (c *Credential) ToResponse() CredentialResponse {
	return CredentialResponse{
		ID:        c.ID,
		Label:     c.Label,
		Active:    c.Active,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}
