package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mvail/tourhost/internal/middleware"
	"github.com/mvail/tourhost/internal/tour"
)

// ReplaceSceneImageRequest represents the request body for
// PUT /scenes/{id}/image.
type ReplaceSceneImageRequest struct {
	ImageURL string `json:"image_url"`
}

// SceneHandlers holds dependencies for scene HTTP handlers.
type SceneHandlers struct {
	repo   tour.Repository
	events *tour.EventBroadcaster
}

// NewSceneHandlers creates a new SceneHandlers instance.
func NewSceneHandlers(repo tour.Repository, events *tour.EventBroadcaster) *SceneHandlers {
	return &SceneHandlers{repo: repo, events: events}
}

// Route dispatches /scenes/{id}/image requests.
func (h *SceneHandlers) Route(w http.ResponseWriter, r *http.Request) {
	pathParts := strings.Split(strings.TrimPrefix(r.URL.Path, "/scenes/"), "/")
	if len(pathParts) != 2 || pathParts[0] == "" || pathParts[1] != "image" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Unknown scene endpoint")
		return
	}
	if r.Method != http.MethodPut {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}
	h.replaceImage(w, r, pathParts[0])
}

// replaceImage swaps the scene's panorama reference. Hotspots keep their
// angular coordinates; only the image asset changes.
func (h *SceneHandlers) replaceImage(w http.ResponseWriter, r *http.Request, sceneID string) {
	var req ReplaceSceneImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}
	if strings.TrimSpace(req.ImageURL) == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "image_url is required")
		return
	}

	owner, err := h.repo.FindBySceneID(r.Context(), sceneID)
	if err != nil {
		if tour.IsNotFound(err) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Scene not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to resolve scene owner", "error", err, "scene_id", sceneID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to resolve scene")
		return
	}

	updated, err := h.repo.Mutate(r.Context(), owner.ID, func(t *tour.Tour) error {
		return t.ReplaceSceneImage(sceneID, req.ImageURL)
	})
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to replace scene image", "error", err, "scene_id", sceneID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to replace scene image")
		return
	}

	h.events.Broadcast(&tour.Event{
		Type:    tour.EventSceneImage,
		TourID:  owner.ID,
		SceneID: sceneID,
		At:      time.Now().UTC(),
	})

	scene, _ := updated.SceneByID(sceneID)
	WriteJSON(w, r.Context(), http.StatusOK, scene)
}
