// Package model defines domain entities for the application.
package model

import "time"

// User represents an account that owns credentials, profiles and jobs.
// Users are created lazily on first authenticated access.
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
