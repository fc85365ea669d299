// Package tour provides models and repository for managing 360° virtual
// tours, their panoramic scenes, and interactive hotspots.
package tour

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
)

// HotspotType distinguishes informational annotations from scene links.
type HotspotType string

const (
	// HotspotInfo is a static annotation pinned to the panorama.
	HotspotInfo HotspotType = "info"

	// HotspotScene is a navigation link that jumps to another scene.
	HotspotScene HotspotType = "scene"
)

// AutoHotspotPrefix is the id prefix of derived navigation hotspots.
// Derived hotspots are computed at render time from scene order and are
// never persisted; ids with this prefix are rejected by all mutation paths.
const AutoHotspotPrefix = "auto-"

// Hotspot is a clickable marker at angular coordinates on a scene's
// panoramic sphere. Yaw is in degrees in [-180, 180], pitch in [-90, 90].
type Hotspot struct {
	ID            string      `json:"id"`
	Title         string      `json:"title"`
	Yaw           float64     `json:"yaw"`
	Pitch         float64     `json:"pitch"`
	SceneID       string      `json:"scene_id"`
	Type          HotspotType `json:"type"`
	TargetSceneID string      `json:"target_scene_id,omitempty"`
}

// IsAutoHotspot reports whether the id belongs to a derived navigation
// hotspot rather than a persisted one.
func IsAutoHotspot(id string) bool {
	return strings.HasPrefix(id, AutoHotspotPrefix)
}

// Scene is one panoramic image plus the explicit hotspots it owns.
// ImageURL may be a temporary upload reference while editing; it is
// replaced with the hosted URL once the panorama is persisted.
type Scene struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	ImageURL string    `json:"image_url"`
	Hotspots []Hotspot `json:"hotspots"`
}

// Status is the review lifecycle state of a tour.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusLive     Status = "live"
)

// Valid reports whether s is one of the known lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusLive:
		return true
	}
	return false
}

// Tour is a client's complete 360° walkthrough. Scene order matters: it
// determines the default auto-navigation links between consecutive scenes.
type Tour struct {
	ID          string  `json:"id"`
	ClientID    string  `json:"client_id"`
	ClientName  string  `json:"client_name"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Status      Status  `json:"status"`
	UploadDate  string  `json:"upload_date"`
	SizeMB      float64 `json:"size_mb"`
	BandwidthMB float64 `json:"bandwidth_mb"`
	Scenes      []Scene `json:"scenes"`
}

// NewHotspot carries caller-supplied fields for creating a hotspot.
// Type defaults to HotspotInfo when empty.
type NewHotspot struct {
	SceneID       string      `json:"scene_id"`
	Title         string      `json:"title"`
	Yaw           float64     `json:"yaw"`
	Pitch         float64     `json:"pitch"`
	Type          HotspotType `json:"type,omitempty"`
	TargetSceneID string      `json:"target_scene_id,omitempty"`
}

// HotspotPatch carries partial updates for an existing hotspot.
// Only title, yaw and pitch are mutable; nil fields are left unchanged.
type HotspotPatch struct {
	Title *string  `json:"title,omitempty"`
	Yaw   *float64 `json:"yaw,omitempty"`
	Pitch *float64 `json:"pitch,omitempty"`
}

// NormalizeYaw wraps a yaw angle into [-180, 180].
func NormalizeYaw(yaw float64) float64 {
	y := math.Mod(yaw+180, 360)
	if y < 0 {
		y += 360
	}
	return y - 180
}

// ClampPitch clamps a pitch angle into [-90, 90].
func ClampPitch(pitch float64) float64 {
	return math.Max(-90, math.Min(90, pitch))
}

// DeriveAutoNavigationHotspots synthesizes one navigation hotspot per
// consecutive scene pair: for every scene except the last, a hotspot with
// id "auto-<nextSceneID>" pointing at the next scene in order, at yaw 0
// pitch 0. The result is a pure function of scene order and is never
// merged into the stored model; callers concatenate it with a scene's
// explicit hotspots for rendering only.
func DeriveAutoNavigationHotspots(scenes []Scene) map[string][]Hotspot {
	derived := make(map[string][]Hotspot, len(scenes))
	for i := 0; i < len(scenes)-1; i++ {
		next := scenes[i+1]
		derived[scenes[i].ID] = []Hotspot{{
			ID:            AutoHotspotPrefix + next.ID,
			Title:         fmt.Sprintf("Go to %s", next.Title),
			Yaw:           0,
			Pitch:         0,
			SceneID:       scenes[i].ID,
			Type:          HotspotScene,
			TargetSceneID: next.ID,
		}}
	}
	return derived
}

// SceneByID returns the scene with the given id, if present.
func (t *Tour) SceneByID(id string) (*Scene, bool) {
	for i := range t.Scenes {
		if t.Scenes[i].ID == id {
			return &t.Scenes[i], true
		}
	}
	return nil, false
}

// FirstScene returns the scene at ordinal position 0, the default entry
// point when a tour is opened. Returns nil for a tour with no scenes;
// an empty tour renders as an empty viewer, not an error.
func (t *Tour) FirstScene() *Scene {
	if len(t.Scenes) == 0 {
		return nil
	}
	return &t.Scenes[0]
}

// AddHotspot assigns a fresh id, defaults the type to info, clamps the
// angular coordinates, and appends the hotspot to the owning scene's
// explicit set. Returns ErrSceneNotFound if the scene id does not resolve
// within this tour.
func (t *Tour) AddHotspot(n NewHotspot) (Hotspot, error) {
	scene, ok := t.SceneByID(n.SceneID)
	if !ok {
		return Hotspot{}, fmt.Errorf("add hotspot: scene %q: %w", n.SceneID, ErrSceneNotFound)
	}

	typ := n.Type
	if typ == "" {
		typ = HotspotInfo
	}
	if typ != HotspotInfo && typ != HotspotScene {
		return Hotspot{}, fmt.Errorf("add hotspot: type %q: %w", typ, ErrInvalidHotspotType)
	}

	hs := Hotspot{
		ID:            uuid.New().String(),
		Title:         n.Title,
		Yaw:           NormalizeYaw(n.Yaw),
		Pitch:         ClampPitch(n.Pitch),
		SceneID:       n.SceneID,
		Type:          typ,
		TargetSceneID: n.TargetSceneID,
	}
	scene.Hotspots = append(scene.Hotspots, hs)
	return hs, nil
}

// UpdateHotspot applies a partial patch to the hotspot with the given id.
// id, scene_id and type are immutable. Derived auto-navigation hotspots
// are not editable through this path; their ids are rejected outright.
func (t *Tour) UpdateHotspot(id string, patch HotspotPatch) (Hotspot, error) {
	if IsAutoHotspot(id) {
		return Hotspot{}, fmt.Errorf("update hotspot %q: %w", id, ErrAutoHotspot)
	}
	for si := range t.Scenes {
		scene := &t.Scenes[si]
		for hi := range scene.Hotspots {
			if scene.Hotspots[hi].ID != id {
				continue
			}
			hs := &scene.Hotspots[hi]
			if patch.Title != nil {
				hs.Title = *patch.Title
			}
			if patch.Yaw != nil {
				hs.Yaw = NormalizeYaw(*patch.Yaw)
			}
			if patch.Pitch != nil {
				hs.Pitch = ClampPitch(*patch.Pitch)
			}
			return *hs, nil
		}
	}
	return Hotspot{}, fmt.Errorf("update hotspot %q: %w", id, ErrHotspotNotFound)
}

// RemoveHotspot removes the hotspot with the given id from its owning
// scene's explicit set. Removing an absent id is a no-op, matching
// idempotent-delete semantics; the boolean reports whether anything was
// removed. Derived auto-navigation hotspot ids are rejected.
func (t *Tour) RemoveHotspot(id string) (bool, error) {
	if IsAutoHotspot(id) {
		return false, fmt.Errorf("remove hotspot %q: %w", id, ErrAutoHotspot)
	}
	for si := range t.Scenes {
		scene := &t.Scenes[si]
		for hi := range scene.Hotspots {
			if scene.Hotspots[hi].ID == id {
				scene.Hotspots = append(scene.Hotspots[:hi], scene.Hotspots[hi+1:]...)
				return true, nil
			}
		}
	}
	return false, nil
}

// ReplaceSceneImage swaps the scene's panorama reference in place.
// Hotspots are untouched; their angular coordinates are relative to the
// sphere, not the image asset.
func (t *Tour) ReplaceSceneImage(sceneID, imageRef string) error {
	scene, ok := t.SceneByID(sceneID)
	if !ok {
		return fmt.Errorf("replace scene image: scene %q: %w", sceneID, ErrSceneNotFound)
	}
	scene.ImageURL = imageRef
	return nil
}
