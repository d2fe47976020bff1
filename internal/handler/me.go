package handler

import (
	"log/slog"
	"net/http"

	"github.com/oklog/ulid/v2"

	"github.com/leadlens/leadlens/internal/auth"
	"github.com/leadlens/leadlens/internal/handler/dto"
	"github.com/leadlens/leadlens/internal/model"
	"github.com/leadlens/leadlens/internal/repository"
)

// MeHandler serves the authenticated account endpoint.
type MeHandler struct {
	logger     *slog.Logger
	repository *repository.Repository
}

// NewMeHandler creates a new MeHandler.
func NewMeHandler(logger *slog.Logger, repo *repository.Repository) *MeHandler {
	return &MeHandler{
		logger:     logger,
		repository: repo,
	}
}

// Get handles GET /api/v1/me. The account record is created on first
// authenticated access.
func (h *MeHandler) Get(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.AuthFromContext(r.Context())
	if authCtx == nil {
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{
			Error: "Authentication required",
			Code:  "UNAUTHORIZED",
		})
		return
	}

	user, err := h.repository.GetOrCreateUser(r.Context(), &model.User{
		ID:    ulid.Make().String(),
		Email: authCtx.UserEmail,
	})
	if err != nil {
		h.logger.Error("failed to resolve user", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{
			Error: "An internal error occurred",
			Code:  "INTERNAL_ERROR",
		})
		return
	}

	writeJSON(w, http.StatusOK, user)
}
