package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/leadlens/leadlens/internal/auth"
	"github.com/leadlens/leadlens/internal/handler/dto"
	"github.com/leadlens/leadlens/internal/model"
	"github.com/leadlens/leadlens/internal/service"
)

func TestJobHandler_ServiceErrorMapping(t *testing.T) {
	t.Parallel()

	h := NewJobHandler(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"job not found", service.ErrJobNotFound, http.StatusNotFound, "JOB_NOT_FOUND"},
		{"invalid kind", service.ErrInvalidJobKind, http.StatusBadRequest, "INVALID_KIND"},
		{"no targets", service.ErrNoTargets, http.StatusBadRequest, "NO_TARGETS"},
		{"too many targets", service.ErrTooManyTargets, http.StatusBadRequest, "TOO_MANY_TARGETS"},
		{"single target kind", service.ErrSingleTargetKind, http.StatusBadRequest, "SINGLE_TARGET_KIND"},
		{"invalid target url", service.ErrInvalidTargetURL, http.StatusBadRequest, "INVALID_TARGET"},
		{"credential required", service.ErrCredentialRequired, http.StatusBadRequest, "CREDENTIAL_REQUIRED"},
		{"credential not found", service.ErrCredentialNotFound, http.StatusUnprocessableEntity, "CREDENTIAL_NOT_FOUND"},
		{"credential inactive", service.ErrCredentialInactive, http.StatusUnprocessableEntity, "CREDENTIAL_INACTIVE"},
		{"unknown error", errors.New("pool exhausted"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			h.handleServiceError(rec, tt.err)

			if rec.Code != tt.wantStatus {
				t.Errorf("status: got %d, want %d", rec.Code, tt.wantStatus)
			}

			var resp dto.ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode error response: %v", err)
			}
			if resp.Code != tt.wantCode {
				t.Errorf("code: got %q, want %q", resp.Code, tt.wantCode)
			}
			if resp.Error == "" {
				t.Error("error message should not be empty")
			}
		})
	}
}

func TestJobHandler_Create_Unauthenticated(t *testing.T) {
	t.Parallel()

	h := NewJobHandler(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestJobHandler_Create_InvalidJSON(t *testing.T) {
	t.Parallel()

	h := NewJobHandler(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	authCtx := &model.AuthContext{UserID: "user-1", Scopes: []string{model.ScopeWrite}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", strings.NewReader(`{not json`))
	req = req.WithContext(auth.ContextWithAuth(context.Background(), authCtx))
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusBadRequest)
	}

	var resp dto.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if resp.Code != "INVALID_JSON" {
		t.Errorf("code: got %q, want INVALID_JSON", resp.Code)
	}
}
