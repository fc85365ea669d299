package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mvail/tourhost/internal/middleware"
	"github.com/mvail/tourhost/internal/tour"
	"github.com/mvail/tourhost/internal/viewer"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin enforcement happens in the CORS middleware; the upgrade
		// itself accepts any origin the middleware let through.
		return true
	},
}

// TourHandlers holds dependencies for tour HTTP handlers.
type TourHandlers struct {
	repo   tour.Repository
	policy tour.TransitionPolicy
	events *tour.EventBroadcaster
}

// NewTourHandlers creates a new TourHandlers instance.
func NewTourHandlers(repo tour.Repository, policy tour.TransitionPolicy, events *tour.EventBroadcaster) *TourHandlers {
	return &TourHandlers{repo: repo, policy: policy, events: events}
}

// ListTours handles GET /tours - returns all tours.
func (h *TourHandlers) ListTours(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	tours, err := h.repo.List(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list tours", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to list tours")
		return
	}

	WriteJSON(w, r.Context(), http.StatusOK, map[string]any{"tours": tours})
}

// Route dispatches /tours/{id}[/action] requests.
// GET  /tours/{id}          - fetch one tour
// POST /tours/{id}/approve  - approve (policy-checked)
// POST /tours/{id}/reject   - reject (policy-checked)
// GET  /tours/{id}/manifest - rendering-engine catalogue for the viewer
// GET  /tours/{id}/events   - websocket stream of mutation events
func (h *TourHandlers) Route(w http.ResponseWriter, r *http.Request) {
	pathParts := strings.Split(strings.TrimPrefix(r.URL.Path, "/tours/"), "/")
	if len(pathParts) == 0 || pathParts[0] == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Tour ID is required")
		return
	}
	tourID := pathParts[0]

	switch {
	case len(pathParts) == 1 && r.Method == http.MethodGet:
		h.getTour(w, r, tourID)
	case len(pathParts) == 2 && pathParts[1] == "approve" && r.Method == http.MethodPost:
		h.transition(w, r, tourID, tour.StatusApproved)
	case len(pathParts) == 2 && pathParts[1] == "reject" && r.Method == http.MethodPost:
		h.transition(w, r, tourID, tour.StatusRejected)
	case len(pathParts) == 2 && pathParts[1] == "manifest" && r.Method == http.MethodGet:
		h.getManifest(w, r, tourID)
	case len(pathParts) == 2 && pathParts[1] == "events" && r.Method == http.MethodGet:
		h.streamEvents(w, r, tourID)
	default:
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Unknown tour endpoint")
	}
}

func (h *TourHandlers) getTour(w http.ResponseWriter, r *http.Request, tourID string) {
	t, err := h.repo.Get(r.Context(), tourID)
	if err != nil {
		if tour.IsNotFound(err) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Tour not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to get tour", "error", err, "tour_id", tourID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to retrieve tour")
		return
	}

	WriteJSON(w, r.Context(), http.StatusOK, t)
}

// getManifest serves the tour in the shape the embedded panoramic engine
// consumes: scenes keyed by id with explicit and derived hotspots merged.
func (h *TourHandlers) getManifest(w http.ResponseWriter, r *http.Request, tourID string) {
	t, err := h.repo.Get(r.Context(), tourID)
	if err != nil {
		if tour.IsNotFound(err) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Tour not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to get tour", "error", err, "tour_id", tourID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to retrieve tour")
		return
	}

	WriteJSON(w, r.Context(), http.StatusOK, viewer.BuildManifest(t))
}

func (h *TourHandlers) transition(w http.ResponseWriter, r *http.Request, tourID string, to tour.Status) {
	updated, err := h.repo.Mutate(r.Context(), tourID, func(t *tour.Tour) error {
		return t.Transition(to, h.policy)
	})
	if err != nil {
		switch {
		case tour.IsNotFound(err):
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Tour not found")
		case errors.Is(err, tour.ErrTransitionDenied):
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeTransitionDenied)
			WriteError(w, ctx, http.StatusConflict, ErrCodeTransitionDenied, "Status change not allowed by review policy")
		default:
			slog.ErrorContext(r.Context(), "failed to transition tour", "error", err, "tour_id", tourID)
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
			WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to update tour status")
		}
		return
	}

	h.events.Broadcast(&tour.Event{
		Type:   tour.EventStatusChanged,
		TourID: tourID,
		Status: updated.Status,
		At:     time.Now().UTC(),
	})

	WriteJSON(w, r.Context(), http.StatusOK, updated)
}

// streamEvents upgrades the connection and subscribes it to the tour's
// mutation events until the client disconnects.
func (h *TourHandlers) streamEvents(w http.ResponseWriter, r *http.Request, tourID string) {
	ctx := r.Context()

	if _, err := h.repo.Get(ctx, tourID); err != nil {
		if tour.IsNotFound(err) {
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Tour not found")
		} else {
			slog.ErrorContext(ctx, "failed to get tour", "error", err, "tour_id", tourID)
			WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Internal server error")
		}
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.ErrorContext(ctx, "failed to upgrade websocket connection",
			"error", err,
			"tour_id", tourID,
		)
		return
	}

	h.events.Subscribe(tourID, conn)

	requestID := middleware.GetRequestID(ctx)
	slog.InfoContext(ctx, "websocket client subscribed to tour events",
		"tour_id", tourID,
		"request_id", requestID,
	)

	defer func() {
		h.events.Unsubscribe(conn)
		conn.Close()
		slog.InfoContext(ctx, "websocket client unsubscribed",
			"tour_id", tourID,
			"request_id", requestID,
		)
	}()

	// Clients never send messages; reading detects disconnection.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.WarnContext(ctx, "websocket connection closed unexpectedly",
					"error", err,
					"tour_id", tourID,
				)
			}
			break
		}
	}
}
