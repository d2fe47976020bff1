// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"time"

	"github.com/leadlens/leadlens/internal/model"
)

// CreateJobRequest represents the request body for creating a scraping job.
type CreateJobRequest struct {
	Kind         string   `json:"kind"`
	CredentialID string   `json:"credential_id"`
	Targets      []string `json:"targets"`
}

// JobResponse represents a job in API responses.
type JobResponse struct {
	ID           string     `json:"id"`
	Kind         string     `json:"kind"`
	CredentialID string     `json:"credential_id,omitempty"`
	Targets      []string   `json:"targets"`
	Status       string     `json:"status"`
	ResultCount  int        `json:"result_count"`
	Error        string     `json:"error,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// JobListResponse represents a paginated list of jobs.
type JobListResponse struct {
	Data       []JobResponse `json:"data"`
	Pagination *Pagination   `json:"pagination"`
}

// JobEventResponse represents one entry of a job's activity trail.
type JobEventResponse struct {
	Status      string    `json:"status"`
	ResultCount int       `json:"result_count"`
	Detail      string    `json:"detail,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// JobEventListResponse represents a job's activity trail.
type JobEventListResponse struct {
	JobID string             `json:"job_id"`
	Data  []JobEventResponse `json:"data"`
}

// Pagination provides cursor-based pagination info.
type Pagination struct {
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ToJobResponse converts a Job model to JobResponse DTO.
func ToJobResponse(job *model.Job) *JobResponse {
	resp := &JobResponse{
		ID:          job.ID,
		Kind:        string(job.Kind),
		Targets:     job.Targets,
		Status:      string(job.Status),
		ResultCount: job.ResultCount,
		Error:       job.ErrorText,
		CreatedAt:   job.CreatedAt,
		StartedAt:   job.StartedAt,
		CompletedAt: job.CompletedAt,
	}
	if job.CredentialID != nil {
		resp.CredentialID = *job.CredentialID
	}
	return resp
}

// ToJobListResponse converts a slice of Job models to JobListResponse.
func ToJobListResponse(jobs []*model.Job, nextCursor string, hasMore bool) *JobListResponse {
	responses := make([]JobResponse, len(jobs))
	for i, job := range jobs {
		responses[i] = *ToJobResponse(job)
	}
	return &JobListResponse{
		Data: responses,
		Pagination: &Pagination{
			NextCursor: nextCursor,
			HasMore:    hasMore,
		},
	}
}

// ToJobEventListResponse converts job events to their API shape.
func ToJobEventListResponse(jobID string, events []*model.JobEvent) *JobEventListResponse {
	responses := make([]JobEventResponse, len(events))
	for i, ev := range events {
		responses[i] = JobEventResponse{
			Status:      string(ev.Status),
			ResultCount: ev.ResultCount,
			Detail:      ev.Detail,
			OccurredAt:  ev.OccurredAt,
		}
	}
	return &JobEventListResponse{
		JobID: jobID,
		Data:  responses,
	}
}
