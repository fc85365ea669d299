package api

import (
	"log/slog"
	"net/http"

	"github.com/mvail/tourhost/internal/analytics"
	"github.com/mvail/tourhost/internal/middleware"
)

// AnalyticsResponse combines the headline snapshot with the monthly
// breakdown for the dashboard.
type AnalyticsResponse struct {
	Snapshot *analytics.Snapshot     `json:"snapshot"`
	Monthly  []analytics.PeriodStats `json:"monthly"`
}

// AnalyticsHandlers holds dependencies for analytics HTTP handlers.
type AnalyticsHandlers struct {
	service *analytics.Service
}

// NewAnalyticsHandlers creates a new AnalyticsHandlers instance.
func NewAnalyticsHandlers(service *analytics.Service) *AnalyticsHandlers {
	return &AnalyticsHandlers{service: service}
}

// Dashboard handles GET /analytics - platform-wide metrics.
func (h *AnalyticsHandlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	snap, err := h.service.Snapshot(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to compute analytics snapshot", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to compute analytics")
		return
	}
	monthly, err := h.service.Monthly(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to compute monthly analytics", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to compute analytics")
		return
	}

	WriteJSON(w, r.Context(), http.StatusOK, AnalyticsResponse{
		Snapshot: snap,
		Monthly:  monthly,
	})
}
