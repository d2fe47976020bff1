package model

import (
	"slices"
	"time"
)

// JobStatus represents the lifecycle state of a scraping job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// IsTerminal returns true once no further transition is permitted.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// CanTransitionTo reports whether the transition s -> next is legal.
// The only reachable paths are pending -> running -> {completed, failed}.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	switch s {
	case JobStatusPending:
		return next == JobStatusRunning
	case JobStatusRunning:
		return next == JobStatusCompleted || next == JobStatusFailed
	default:
		return false
	}
}

// JobKind represents the kind of scraping work a job performs.
type JobKind string

const (
	// JobKindPostComments extracts the commenters of a single post URL.
	JobKindPostComments JobKind = "post_comments"
	// JobKindProfileDetails extracts details for a batch of profile URLs.
	JobKindProfileDetails JobKind = "profile_details"
	// JobKindPostProspect chains comment extraction with a deduplicated
	// profile fetch for every commenter found.
	JobKindPostProspect JobKind = "post_prospect"
)

// ValidJobKinds contains all accepted job kinds.
var ValidJobKinds = []JobKind{JobKindPostComments, JobKindProfileDetails, JobKindPostProspect}

// IsValid checks if the job kind is one of the accepted variants.
func (k JobKind) IsValid() bool {
	return slices.Contains(ValidJobKinds, k)
}

// Job tracks a single scraping operation from submission to terminal state.
type Job struct {
	ID           string     `json:"id"`
	OwnerID      string     `json:"owner_id"`
	CredentialID *string    `json:"credential_id,omitempty"`
	Kind         JobKind    `json:"kind"`
	// Targets holds the input of the job: one post URL for comment
	// extraction, one or more profile URLs for detail extraction.
	Targets     []string  `json:"targets"`
	Status      JobStatus `json:"status"`
	ResultCount int       `json:"result_count"`
	ErrorText   string    `json:"error_text,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// IsTerminal returns true if the job reached completed or failed.
func (j *Job) IsTerminal() bool {
	return j.Status.IsTerminal()
}

// JobCreateRequest represents a request to start a scraping job.
type JobCreateRequest struct {
	Kind         JobKind  `json:"kind"`
	CredentialID string   `json:"credential_id"`
	Targets      []string `json:"targets"`
}
