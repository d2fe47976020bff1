package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/leadlens/leadlens/internal/model"
)

// AdminProfileSearcher defines the interface for profile lookup operations.
type AdminProfileSearcher interface {
	GetProfileByURL(ctx context.Context, profileURL string) (*model.Profile, error)
	ListAllProfiles(ctx context.Context, limit int) ([]*model.Profile, error)
}

// AdminJobReader defines the interface for cross-owner job lookup.
type AdminJobReader interface {
	GetJobByID(ctx context.Context, id string) (*model.Job, error)
}

// AdminKeyLister defines the interface for listing API keys.
type AdminKeyLister interface {
	ListAPIKeysByUserID(ctx context.Context, userID string) ([]*model.APIKey, error)
}

// AdminHandler provides admin-only endpoints for debugging and operations.
type AdminHandler struct {
	profileRepo AdminProfileSearcher
	jobRepo     AdminJobReader
	keyRepo     AdminKeyLister
	logger      *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(profileRepo AdminProfileSearcher, jobRepo AdminJobReader, keyRepo AdminKeyLister, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		profileRepo: profileRepo,
		jobRepo:     jobRepo,
		keyRepo:     keyRepo,
		logger:      logger,
	}
}

// ProfileLookupResponse represents the response for profile lookup.
type ProfileLookupResponse struct {
	Profiles []*model.Profile `json:"profiles"`
	Total    int              `json:"total"`
}

// LookupProfiles handles GET /api/v1/admin/profiles?q={profile_url}
// Looks up the stored profile for an exact profile URL. Without a
// query it returns the newest profiles across all owners.
func (h *AdminHandler) LookupProfiles(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var profiles []*model.Profile

	if query != "" {
		if profile, err := h.profileRepo.GetProfileByURL(ctx, query); err == nil {
			profiles = append(profiles, profile)
		}
	} else {
		all, err := h.profileRepo.ListAllProfiles(ctx, 20)
		if err != nil {
			h.logger.Error("failed to list profiles",
				"error", err,
			)
			writeErrorJSON(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to list profiles")
			return
		}
		profiles = all
	}

	response := ProfileLookupResponse{
		Profiles: profiles,
		Total:    len(profiles),
	}
	if response.Profiles == nil {
		response.Profiles = []*model.Profile{}
	}

	writeJSON(w, http.StatusOK, response)
}

// LookupJob handles GET /api/v1/admin/jobs?id={job_id}
// Looks up a job regardless of owner (admin only).
func (h *AdminHandler) LookupJob(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeErrorJSON(w, http.StatusBadRequest, "MISSING_ID", "query parameter 'id' is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	job, err := h.jobRepo.GetJobByID(ctx, id)
	if err != nil {
		writeErrorJSON(w, http.StatusNotFound, "JOB_NOT_FOUND", "job not found")
		return
	}

	writeJSON(w, http.StatusOK, job)
}

// AdminAPIKeyListResponse represents the response for API key listing.
type AdminAPIKeyListResponse struct {
	Keys  []model.APIKeyResponse `json:"keys"`
	Total int                    `json:"total"`
}

// ListAPIKeysByUser handles GET /api/v1/admin/api-keys?user_id={id}
// Lists all API keys for a specific user (admin only).
func (h *AdminHandler) ListAPIKeysByUser(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeErrorJSON(w, http.StatusBadRequest, "MISSING_USER_ID", "query parameter 'user_id' is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	keys, err := h.keyRepo.ListAPIKeysByUserID(ctx, userID)
	if err != nil {
		h.logger.Error("failed to list API keys",
			"error", err,
			"user_id", userID,
		)
		writeErrorJSON(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to list API keys")
		return
	}

	response := AdminAPIKeyListResponse{
		Keys:  make([]model.APIKeyResponse, 0, len(keys)),
		Total: len(keys),
	}

	for _, key := range keys {
		response.Keys = append(response.Keys, key.ToResponse())
	}

	writeJSON(w, http.StatusOK, response)
}

// StatsResponse represents operational statistics.
type StatsResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	Uptime    string    `json:"uptime,omitempty"`
}

// Stats handles GET /api/v1/admin/stats
// Returns basic operational statistics.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	response := StatsResponse{
		Timestamp: time.Now().UTC(),
		Service:   "leadlens",
		Version:   "1.0.0", // TODO: inject at build time
	}
	writeJSON(w, http.StatusOK, response)
}

// writeErrorJSON writes a JSON error response.
func writeErrorJSON(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
		"code":  code,
	})
}
