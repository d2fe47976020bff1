package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/leadlens/leadlens/internal/auth"
	"github.com/leadlens/leadlens/internal/handler/dto"
	"github.com/leadlens/leadlens/internal/service"
)

// JobHandler handles HTTP requests for scraping job operations.
type JobHandler struct {
	svc    *service.JobService
	logger *slog.Logger
}

// NewJobHandler creates a new JobHandler.
func NewJobHandler(svc *service.JobService, logger *slog.Logger) *JobHandler {
	return &JobHandler{
		svc:    svc,
		logger: logger,
	}
}

// Create handles POST /api/v1/jobs.
func (h *JobHandler) Create(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.AuthFromContext(r.Context())
	if authCtx == nil {
		h.writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	var req dto.CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	input := service.CreateJobInput{
		Kind:         req.Kind,
		CredentialID: req.CredentialID,
		Targets:      req.Targets,
	}

	job, err := h.svc.CreateJob(r.Context(), authCtx.UserID, input)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("job_created",
		"job_id", job.ID,
		"kind", string(job.Kind),
		"target_count", len(job.Targets),
	)

	writeJSON(w, http.StatusAccepted, dto.ToJobResponse(job))
}

// Get handles GET /api/v1/jobs/{id}.
func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.AuthFromContext(r.Context())
	if authCtx == nil {
		h.writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_ID", "Job ID is required")
		return
	}

	job, err := h.svc.GetJob(r.Context(), authCtx.UserID, id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToJobResponse(job))
}

// List handles GET /api/v1/jobs.
func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.AuthFromContext(r.Context())
	if authCtx == nil {
		h.writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	query := r.URL.Query()

	limit := 20
	if l := query.Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	input := service.ListJobsInput{
		OwnerID: authCtx.UserID,
		Cursor:  query.Get("cursor"),
		Limit:   limit,
	}

	result, err := h.svc.ListJobs(r.Context(), input)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToJobListResponse(result.Jobs, result.NextCursor, result.HasMore))
}

// Events handles GET /api/v1/jobs/{id}/events.
func (h *JobHandler) Events(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.AuthFromContext(r.Context())
	if authCtx == nil {
		h.writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_ID", "Job ID is required")
		return
	}

	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}

	events, err := h.svc.ListJobEvents(r.Context(), authCtx.UserID, id, limit)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToJobEventListResponse(id, events))
}

// handleServiceError maps service errors to HTTP responses.
func (h *JobHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrJobNotFound):
		h.writeError(w, http.StatusNotFound, "JOB_NOT_FOUND", "Job not found")
	case errors.Is(err, service.ErrInvalidJobKind):
		h.writeError(w, http.StatusBadRequest, "INVALID_KIND", "Job kind must be post_comments, profile_details or post_prospect")
	case errors.Is(err, service.ErrNoTargets):
		h.writeError(w, http.StatusBadRequest, "NO_TARGETS", "At least one target URL is required")
	case errors.Is(err, service.ErrTooManyTargets):
		h.writeError(w, http.StatusBadRequest, "TOO_MANY_TARGETS", "Too many target URLs in one job")
	case errors.Is(err, service.ErrSingleTargetKind):
		h.writeError(w, http.StatusBadRequest, "SINGLE_TARGET_KIND", "This job kind takes exactly one target URL")
	case errors.Is(err, service.ErrInvalidTargetURL):
		h.writeError(w, http.StatusBadRequest, "INVALID_TARGET", "Target URL is not a valid http(s) URL")
	case errors.Is(err, service.ErrCredentialRequired):
		h.writeError(w, http.StatusBadRequest, "CREDENTIAL_REQUIRED", "A credential_id is required")
	case errors.Is(err, service.ErrCredentialNotFound):
		h.writeError(w, http.StatusUnprocessableEntity, "CREDENTIAL_NOT_FOUND", "Credential not found")
	case errors.Is(err, service.ErrCredentialInactive):
		h.writeError(w, http.StatusUnprocessableEntity, "CREDENTIAL_INACTIVE", "Credential is deactivated")
	default:
		h.logger.Error("internal_error", "error", err)
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}

// writeError writes an error response.
func (h *JobHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error: message,
		Code:  code,
	})
}
