package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/leadlens/leadlens/internal/auth"
	"github.com/leadlens/leadlens/internal/handler/dto"
	"github.com/leadlens/leadlens/internal/service"
)

// ProfileHandler handles HTTP requests for profile operations.
type ProfileHandler struct {
	svc         *service.ProfileService
	credentials *service.CredentialService
	logger      *slog.Logger
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(svc *service.ProfileService, credentials *service.CredentialService, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{
		svc:         svc,
		credentials: credentials,
		logger:      logger,
	}
}

// Fetch handles POST /api/v1/profiles/fetch.
// Profiles already known locally are served from storage; only the
// rest hit the scraping provider.
func (h *ProfileHandler) Fetch(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.AuthFromContext(r.Context())
	if authCtx == nil {
		h.writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	var req dto.FetchProfilesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if req.CredentialID == "" {
		h.writeError(w, http.StatusBadRequest, "CREDENTIAL_REQUIRED", "A credential_id is required")
		return
	}

	providerKey, err := h.credentials.ResolveProviderKey(r.Context(), authCtx.UserID, req.CredentialID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	profiles, err := h.svc.FetchProfiles(r.Context(), authCtx.UserID, providerKey, req.ProfileURLs)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("profiles_fetched",
		"requested", len(req.ProfileURLs),
		"returned", len(profiles),
	)

	responses := make([]dto.ProfileResponse, len(profiles))
	for i, p := range profiles {
		responses[i] = *dto.ToProfileResponse(p)
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": responses})
}

// List handles GET /api/v1/profiles.
func (h *ProfileHandler) List(w http.ResponseWriter, r *http.Request) {
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

	input := service.ListProfilesInput{
		OwnerID: authCtx.UserID,
		Tag:     query.Get("tag"),
		Cursor:  query.Get("cursor"),
		Limit:   limit,
	}

	result, err := h.svc.ListProfiles(r.Context(), input)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToProfileListResponse(result.Profiles, result.NextCursor, result.HasMore))
}

// ListAll handles GET /api/v1/profiles/all. It returns profiles across
// all owners and requires the admin scope.
func (h *ProfileHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	profiles, err := h.svc.ListAllProfiles(r.Context(), limit)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	responses := make([]dto.ProfileResponse, len(profiles))
	for i, p := range profiles {
		responses[i] = *dto.ToProfileResponse(p)
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": responses})
}

// handleServiceError maps service errors to HTTP responses.
func (h *ProfileHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidProfileURL):
		h.writeError(w, http.StatusBadRequest, "INVALID_PROFILE_URL", "Profile URL is not a valid http(s) URL")
	case errors.Is(err, service.ErrNoProfileURLs):
		h.writeError(w, http.StatusBadRequest, "NO_PROFILE_URLS", "At least one profile URL is required")
	case errors.Is(err, service.ErrTooManyProfiles):
		h.writeError(w, http.StatusBadRequest, "TOO_MANY_PROFILES", "Too many profile URLs in one request")
	case errors.Is(err, service.ErrMissingProviderKey):
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
func (h *ProfileHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error: message,
		Code:  code,
	})
}
