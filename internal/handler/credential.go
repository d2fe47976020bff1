package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/leadlens/leadlens/internal/auth"
	"github.com/leadlens/leadlens/internal/handler/dto"
	"github.com/leadlens/leadlens/internal/model"
	"github.com/leadlens/leadlens/internal/service"
)

// CredentialHandler handles HTTP requests for provider credentials.
type CredentialHandler struct {
	svc    *service.CredentialService
	logger *slog.Logger
}

// NewCredentialHandler creates a new CredentialHandler.
func NewCredentialHandler(svc *service.CredentialService, logger *slog.Logger) *CredentialHandler {
	return &CredentialHandler{
		svc:    svc,
		logger: logger,
	}
}

// Create handles POST /api/v1/credentials.
func (h *CredentialHandler) Create(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.AuthFromContext(r.Context())
	if authCtx == nil {
		h.writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	var req model.CredentialCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	cred, err := h.svc.CreateCredential(r.Context(), authCtx.UserID, req)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("credential_created",
		"credential_id", cred.ID,
		"label", cred.Label,
	)

	writeJSON(w, http.StatusCreated, cred.ToResponse())
}

// Get handles GET /api/v1/credentials/{id}.
func (h *CredentialHandler) Get(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.AuthFromContext(r.Context())
	if authCtx == nil {
		h.writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_ID", "Credential ID is required")
		return
	}

	cred, err := h.svc.GetCredential(r.Context(), authCtx.UserID, id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, cred.ToResponse())
}

// List handles GET /api/v1/credentials.
func (h *CredentialHandler) List(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.AuthFromContext(r.Context())
	if authCtx == nil {
		h.writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	creds, err := h.svc.ListCredentials(r.Context(), authCtx.UserID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	responses := make([]model.CredentialResponse, len(creds))
	for i, cred := range creds {
		responses[i] = cred.ToResponse()
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": responses})
}

// Deactivate handles DELETE /api/v1/credentials/{id}.
// The credential stays on record for job history but can no longer be
// used for new jobs.
func (h *CredentialHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.AuthFromContext(r.Context())
	if authCtx == nil {
		h.writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_ID", "Credential ID is required")
		return
	}

	if err := h.svc.DeactivateCredential(r.Context(), authCtx.UserID, id); err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("credential_deactivated", "credential_id", id)

	w.WriteHeader(http.StatusNoContent)
}

// handleServiceError maps service errors to HTTP responses.
func (h *CredentialHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrCredentialNotFound):
		h.writeError(w, http.StatusNotFound, "CREDENTIAL_NOT_FOUND", "Credential not found")
	case errors.Is(err, service.ErrCredentialInactive):
		h.writeError(w, http.StatusUnprocessableEntity, "CREDENTIAL_INACTIVE", "Credential is deactivated")
	case errors.Is(err, service.ErrInvalidLabel):
		h.writeError(w, http.StatusBadRequest, "INVALID_LABEL", "Label must start with a letter or digit and be at most 64 characters")
	case errors.Is(err, service.ErrInvalidSecret):
		h.writeError(w, http.StatusBadRequest, "INVALID_SECRET", "Secret must be at least 8 characters")
	case errors.Is(err, service.ErrLabelTaken):
		h.writeError(w, http.StatusConflict, "LABEL_TAKEN", "A credential with this label already exists")
	default:
		h.logger.Error("internal_error", "error", err)
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}

// writeError writes an error response.
func (h *CredentialHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error: message,
		Code:  code,
	})
}
