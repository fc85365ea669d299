package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mvail/tourhost/internal/middleware"
	"github.com/mvail/tourhost/internal/tour"
)

// Hotspot title length cap; titles render inside viewer tooltips.
const MaxHotspotTitleLength = 120

// CreateHotspotRequest represents the request body for POST /hotspots.
type CreateHotspotRequest struct {
	SceneID       string           `json:"scene_id"`
	Title         string           `json:"title"`
	Yaw           float64          `json:"yaw"`
	Pitch         float64          `json:"pitch"`
	Type          tour.HotspotType `json:"type,omitempty"`
	TargetSceneID string           `json:"target_scene_id,omitempty"`
}

// UpdateHotspotRequest represents the request body for PUT /hotspots/{id}.
// Only title, yaw and pitch are mutable.
type UpdateHotspotRequest struct {
	Title *string  `json:"title,omitempty"`
	Yaw   *float64 `json:"yaw,omitempty"`
	Pitch *float64 `json:"pitch,omitempty"`
}

// HotspotHandlers holds dependencies for hotspot HTTP handlers.
type HotspotHandlers struct {
	repo   tour.Repository
	events *tour.EventBroadcaster
}

// NewHotspotHandlers creates a new HotspotHandlers instance.
func NewHotspotHandlers(repo tour.Repository, events *tour.EventBroadcaster) *HotspotHandlers {
	return &HotspotHandlers{repo: repo, events: events}
}

// CreateHotspot handles POST /hotspots - adds a hotspot to a scene.
func (h *HotspotHandlers) CreateHotspot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	var req CreateHotspotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	if strings.TrimSpace(req.SceneID) == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "scene_id is required")
		return
	}
	if len(req.Title) > MaxHotspotTitleLength {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "title must not exceed 120 characters")
		return
	}

	owner, err := h.repo.FindBySceneID(r.Context(), req.SceneID)
	if err != nil {
		if tour.IsNotFound(err) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Scene not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to resolve scene owner", "error", err, "scene_id", req.SceneID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to resolve scene")
		return
	}

	var created tour.Hotspot
	_, err = h.repo.Mutate(r.Context(), owner.ID, func(t *tour.Tour) error {
		var addErr error
		created, addErr = t.AddHotspot(tour.NewHotspot{
			SceneID:       req.SceneID,
			Title:         req.Title,
			Yaw:           req.Yaw,
			Pitch:         req.Pitch,
			Type:          req.Type,
			TargetSceneID: req.TargetSceneID,
		})
		return addErr
	})
	if err != nil {
		if errors.Is(err, tour.ErrInvalidHotspotType) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "type must be 'info' or 'scene'")
			return
		}
		slog.ErrorContext(r.Context(), "failed to create hotspot", "error", err, "scene_id", req.SceneID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to create hotspot")
		return
	}

	h.events.Broadcast(&tour.Event{
		Type:      tour.EventHotspotCreated,
		TourID:    owner.ID,
		SceneID:   req.SceneID,
		HotspotID: created.ID,
		At:        time.Now().UTC(),
	})

	WriteJSON(w, r.Context(), http.StatusCreated, created)
}

// Route dispatches /hotspots/{id} requests.
// PUT    /hotspots/{id} - partial update (title, yaw, pitch)
// DELETE /hotspots/{id} - idempotent delete
func (h *HotspotHandlers) Route(w http.ResponseWriter, r *http.Request) {
	hotspotID := strings.TrimPrefix(r.URL.Path, "/hotspots/")
	if hotspotID == "" || strings.Contains(hotspotID, "/") {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Hotspot ID is required")
		return
	}

	// Derived navigation hotspots are render-time artifacts; reject their
	// ids before touching storage.
	if tour.IsAutoHotspot(hotspotID) {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeAutoHotspot)
		WriteError(w, ctx, http.StatusForbidden, ErrCodeAutoHotspot, "Derived navigation hotspots cannot be modified")
		return
	}

	switch r.Method {
	case http.MethodPut:
		h.updateHotspot(w, r, hotspotID)
	case http.MethodDelete:
		h.deleteHotspot(w, r, hotspotID)
	default:
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
	}
}

func (h *HotspotHandlers) updateHotspot(w http.ResponseWriter, r *http.Request, hotspotID string) {
	var req UpdateHotspotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}
	if req.Title != nil && len(*req.Title) > MaxHotspotTitleLength {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "title must not exceed 120 characters")
		return
	}

	owner, err := h.repo.FindByHotspotID(r.Context(), hotspotID)
	if err != nil {
		if tour.IsNotFound(err) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Hotspot not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to resolve hotspot owner", "error", err, "hotspot_id", hotspotID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to resolve hotspot")
		return
	}

	var updated tour.Hotspot
	_, err = h.repo.Mutate(r.Context(), owner.ID, func(t *tour.Tour) error {
		var upErr error
		updated, upErr = t.UpdateHotspot(hotspotID, tour.HotspotPatch{
			Title: req.Title,
			Yaw:   req.Yaw,
			Pitch: req.Pitch,
		})
		return upErr
	})
	if err != nil {
		if tour.IsNotFound(err) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Hotspot not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to update hotspot", "error", err, "hotspot_id", hotspotID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to update hotspot")
		return
	}

	h.events.Broadcast(&tour.Event{
		Type:      tour.EventHotspotUpdated,
		TourID:    owner.ID,
		SceneID:   updated.SceneID,
		HotspotID: updated.ID,
		At:        time.Now().UTC(),
	})

	WriteJSON(w, r.Context(), http.StatusOK, updated)
}

// deleteHotspot removes a hotspot. Deleting an id that no longer exists
// returns 204 as well: deletes are idempotent so retries and double-clicks
// converge on the same state.
func (h *HotspotHandlers) deleteHotspot(w http.ResponseWriter, r *http.Request, hotspotID string) {
	owner, err := h.repo.FindByHotspotID(r.Context(), hotspotID)
	if err != nil {
		if tour.IsNotFound(err) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		slog.ErrorContext(r.Context(), "failed to resolve hotspot owner", "error", err, "hotspot_id", hotspotID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to resolve hotspot")
		return
	}

	var removed bool
	_, err = h.repo.Mutate(r.Context(), owner.ID, func(t *tour.Tour) error {
		var rmErr error
		removed, rmErr = t.RemoveHotspot(hotspotID)
		return rmErr
	})
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to delete hotspot", "error", err, "hotspot_id", hotspotID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to delete hotspot")
		return
	}

	if removed {
		h.events.Broadcast(&tour.Event{
			Type:      tour.EventHotspotDeleted,
			TourID:    owner.ID,
			HotspotID: hotspotID,
			At:        time.Now().UTC(),
		})
	}

	w.WriteHeader(http.StatusNoContent)
}
