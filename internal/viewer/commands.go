package viewer

import (
	"context"
	"fmt"

	"github.com/mvail/tourhost/internal/tour"
)

// Mutation operation names, used in failure callbacks and event payloads.
const (
	OpCreateHotspot     = "create_hotspot"
	OpUpdateHotspot     = "update_hotspot"
	OpDeleteHotspot     = "delete_hotspot"
	OpReplaceSceneImage = "replace_scene_image"
)

// enqueue hands a job to the worker. Returns ErrClosed after Close.
// Callers hold s.mu, so the send must never block: the worker's failure
// path takes the same lock, and a blocking send on a saturated queue
// would wedge the session. A refused job is compensated immediately so
// the optimistic local change does not outlive its rejection.
func (s *Session) enqueue(j job) error {
	if s.closed {
		return ErrClosed
	}
	j.gen = s.gen
	select {
	case s.jobs <- j:
		return nil
	default:
		j.compensate()
		return ErrBusy
	}
}

// PlaceHotspot creates a hotspot on the current scene from engine-supplied
// angular coordinates. The hotspot appears locally at once with a
// provisional id and becomes the selection; the create is forwarded to the
// boundary in the background and rolled back if it fails. The boundary's
// assigned id replaces the provisional one when the call completes.
func (s *Session) PlaceHotspot(title string, yaw, pitch float64) (tour.Hotspot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return tour.Hotspot{}, ErrClosed
	}
	if s.mode != ModeEditing {
		return tour.Hotspot{}, ErrNotEditing
	}
	if s.sceneID == "" {
		return tour.Hotspot{}, ErrNoCurrentScene
	}

	n := tour.NewHotspot{SceneID: s.sceneID, Title: title, Yaw: yaw, Pitch: pitch}
	local, err := s.tour.AddHotspot(n)
	if err != nil {
		return tour.Hotspot{}, err
	}
	s.selection = local.ID

	localID := local.ID
	gen := s.gen
	err = s.enqueue(job{
		op: OpCreateHotspot,
		sync: func(ctx context.Context) error {
			created, err := s.boundary.CreateHotspot(ctx, n)
			if err != nil {
				return err
			}
			s.adoptServerID(gen, localID, created.ID)
			return nil
		},
		compensate: func() {
			if _, err := s.tour.RemoveHotspot(localID); err == nil && s.selection == localID {
				s.selection = ""
			}
		},
	})
	if err != nil {
		return tour.Hotspot{}, err
	}
	return local, nil
}

// adoptServerID swaps a provisional hotspot id for the id the boundary
// assigned. Dropped silently if the session closed, a Reload replaced the
// state the hotspot lived in, or the hotspot was removed in the meantime.
func (s *Session) adoptServerID(gen int, localID, serverID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.gen != gen || localID == serverID {
		return
	}
	for si := range s.tour.Scenes {
		hotspots := s.tour.Scenes[si].Hotspots
		for hi := range hotspots {
			if hotspots[hi].ID == localID {
				hotspots[hi].ID = serverID
				if s.selection == localID {
					s.selection = serverID
				}
				return
			}
		}
	}
}

// UpdateHotspot patches an explicit hotspot, applying the change locally
// first and reverting it if the boundary rejects the update.
func (s *Session) UpdateHotspot(id string, patch tour.HotspotPatch) (tour.Hotspot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return tour.Hotspot{}, ErrClosed
	}
	if s.mode != ModeEditing {
		return tour.Hotspot{}, ErrNotEditing
	}

	prev, err := s.findHotspot(id)
	if err != nil {
		return tour.Hotspot{}, err
	}
	updated, err := s.tour.UpdateHotspot(id, patch)
	if err != nil {
		return tour.Hotspot{}, err
	}

	before := prev
	err = s.enqueue(job{
		op: OpUpdateHotspot,
		sync: func(ctx context.Context) error {
			_, err := s.boundary.UpdateHotspot(ctx, id, patch)
			return err
		},
		compensate: func() {
			restore := tour.HotspotPatch{Title: &before.Title, Yaw: &before.Yaw, Pitch: &before.Pitch}
			_, _ = s.tour.UpdateHotspot(id, restore)
		},
	})
	if err != nil {
		return tour.Hotspot{}, err
	}
	return updated, nil
}

// DeleteHotspot removes an explicit hotspot locally and forwards the
// delete. Deleting an absent id is a local no-op and is not forwarded.
func (s *Session) DeleteHotspot(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.mode != ModeEditing {
		return ErrNotEditing
	}

	prev, err := s.findHotspot(id)
	if err != nil {
		if tour.IsNotFound(err) {
			return nil
		}
		return err
	}
	if _, err := s.tour.RemoveHotspot(id); err != nil {
		return err
	}
	if s.selection == id {
		s.selection = ""
	}

	removed := prev
	return s.enqueue(job{
		op: OpDeleteHotspot,
		sync: func(ctx context.Context) error {
			return s.boundary.DeleteHotspot(ctx, id)
		},
		compensate: func() {
			if sc, ok := s.tour.SceneByID(removed.SceneID); ok {
				sc.Hotspots = append(sc.Hotspots, removed)
			}
		},
	})
}

// ReplaceSceneImage swaps the current scene's panorama reference and
// forwards the change, restoring the previous reference on failure.
func (s *Session) ReplaceSceneImage(imageRef string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.mode != ModeEditing {
		return ErrNotEditing
	}
	if s.sceneID == "" {
		return ErrNoCurrentScene
	}

	sc, ok := s.tour.SceneByID(s.sceneID)
	if !ok {
		return fmt.Errorf("replace image: scene %q: %w", s.sceneID, tour.ErrSceneNotFound)
	}
	sceneID := s.sceneID
	prevRef := sc.ImageURL
	sc.ImageURL = imageRef

	return s.enqueue(job{
		op: OpReplaceSceneImage,
		sync: func(ctx context.Context) error {
			return s.boundary.ReplaceSceneImage(ctx, sceneID, imageRef)
		},
		compensate: func() {
			if sc, ok := s.tour.SceneByID(sceneID); ok {
				sc.ImageURL = prevRef
			}
		},
	})
}

// findHotspot locates an explicit hotspot in the local tour copy.
// Callers hold s.mu.
func (s *Session) findHotspot(id string) (tour.Hotspot, error) {
	if tour.IsAutoHotspot(id) {
		return tour.Hotspot{}, fmt.Errorf("hotspot %q: %w", id, tour.ErrAutoHotspot)
	}
	for _, sc := range s.tour.Scenes {
		for _, hs := range sc.Hotspots {
			if hs.ID == id {
				return hs, nil
			}
		}
	}
	return tour.Hotspot{}, fmt.Errorf("hotspot %q: %w", id, tour.ErrHotspotNotFound)
}
