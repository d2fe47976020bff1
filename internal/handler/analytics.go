package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/leadlens/leadlens/internal/auth"
	"github.com/leadlens/leadlens/internal/handler/dto"
	"github.com/leadlens/leadlens/internal/model"
	"github.com/leadlens/leadlens/internal/repository"
)

// AnalyticsHandler serves aggregated job activity.
type AnalyticsHandler struct {
	repo   *repository.Repository
	logger *slog.Logger
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(repo *repository.Repository, logger *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		repo:   repo,
		logger: logger.With("component", "handler.analytics"),
	}
}

// GetJobStats handles GET /api/v1/jobs/analytics.
// Returns per-day counts of accepted, completed and failed jobs built
// from the activity trail.
func (h *AnalyticsHandler) GetJobStats(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.AuthFromContext(r.Context())
	if authCtx == nil {
		h.writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	from, to := h.parseTimeRange(r)

	stats, err := h.repo.GetDailyJobStats(r.Context(), authCtx.UserID, from, to)
	if err != nil {
		h.logger.Error("failed to aggregate job stats", "user_id", authCtx.UserID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch job analytics")
		return
	}

	response := buildJobStatsResponse(from, to, stats)
	writeJSON(w, http.StatusOK, response)
}

// parseTimeRange extracts from/to dates from query params.
func (h *AnalyticsHandler) parseTimeRange(r *http.Request) (time.Time, time.Time) {
	now := time.Now().UTC()
	defaultFrom := now.AddDate(0, 0, -7) // 7 days ago
	defaultTo := now

	fromStr := r.URL.Query().Get("from")
	toStr := r.URL.Query().Get("to")

	from := defaultFrom
	to := defaultTo

	if fromStr != "" {
		if parsed, err := time.Parse("2006-01-02", fromStr); err == nil {
			from = parsed
		}
	}

	if toStr != "" {
		if parsed, err := time.Parse("2006-01-02", toStr); err == nil {
			to = parsed
		}
	}

	// Cap to 90 days max
	if to.Sub(from) > 90*24*time.Hour {
		from = to.AddDate(0, 0, -90)
	}

	// Don't allow future dates
	if to.After(now) {
		to = now
	}

	return from, to
}

// buildJobStatsResponse constructs the API response.
func buildJobStatsResponse(from, to time.Time, stats []*model.DailyJobStats) *model.JobStatsResponse {
	response := &model.JobStatsResponse{
		GeneratedAt: time.Now().UTC(),
	}
	response.Period.From = from.Format("2006-01-02")
	response.Period.To = to.Format("2006-01-02")

	for _, stat := range stats {
		response.Summary.Accepted += stat.Accepted
		response.Summary.Completed += stat.Completed
		response.Summary.Failed += stat.Failed
		response.Summary.Results += stat.Results
		response.Daily = append(response.Daily, *stat)
	}
	if response.Daily == nil {
		response.Daily = []model.DailyJobStats{}
	}

	return response
}

// writeError writes a JSON error response.
func (h *AnalyticsHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error: message,
		Code:  code,
	})
}
