// Package viewer provides the transient editing session for a single tour:
// current-scene tracking, hotspot selection, and optimistic mutations that
// are forwarded to a sync boundary with rollback on failure.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mvail/tourhost/internal/tour"
)

// Mode is the session's top-level state.
type Mode string

const (
	// ModeViewing renders the tour read-only.
	ModeViewing Mode = "viewing"

	// ModeEditing enables hotspot placement and scene-image replacement.
	ModeEditing Mode = "editing"
)

// Session errors.
var (
	// ErrClosed indicates the session has been discarded.
	ErrClosed = errors.New("session closed")

	// ErrBusy indicates the mutation queue is saturated. The edit was
	// rolled back locally and never forwarded to the boundary.
	ErrBusy = errors.New("mutation queue is full")

	// ErrNotEditing indicates a mutation was attempted in viewing mode.
	ErrNotEditing = errors.New("session is not in edit mode")

	// ErrNoCurrentScene indicates the tour has no scenes to act on.
	ErrNoCurrentScene = errors.New("no current scene")
)

// Boundary is the remote store the session forwards mutations to. The
// session never blocks on it: mutations apply locally first and the
// boundary call runs on the session's worker goroutine.
type Boundary interface {
	CreateHotspot(ctx context.Context, n tour.NewHotspot) (tour.Hotspot, error)
	UpdateHotspot(ctx context.Context, id string, patch tour.HotspotPatch) (tour.Hotspot, error)
	DeleteHotspot(ctx context.Context, id string) error
	ReplaceSceneImage(ctx context.Context, sceneID, imageRef string) error
}

// FailureFunc receives sync failures after the local compensating action
// has run. op names the mutation that failed.
type FailureFunc func(op string, err error)

// Session is per-view UI state for one tour. It is rebuilt on every view
// activation and never persisted. All mutations for a session flow through
// a single worker goroutine, so boundary calls complete in submission
// order even when the operator edits faster than the network round-trips.
type Session struct {
	mu sync.Mutex

	tour      *tour.Tour // optimistic local copy, replaced wholesale on Reload
	mode      Mode
	sceneID   string // current scene; empty for a tour with no scenes
	selection string // selected hotspot id, empty for no selection

	boundary  Boundary
	onFailure FailureFunc

	jobs   chan job
	closed bool
	gen    int // bumped on Reload; worker results from older generations are discarded
	wg     sync.WaitGroup
}

type job struct {
	op         string
	gen        int
	sync       func(ctx context.Context) error
	compensate func()
}

// NewSession creates a session over a local copy of t. onFailure may be
// nil; sync failures are then dropped after compensation.
func NewSession(t *tour.Tour, b Boundary, onFailure FailureFunc) *Session {
	s := &Session{
		tour:      t,
		mode:      ModeViewing,
		boundary:  b,
		onFailure: onFailure,
		jobs:      make(chan job, 64),
	}
	if fs := t.FirstScene(); fs != nil {
		s.sceneID = fs.ID
	}
	s.wg.Add(1)
	go s.run()
	return s
}

// run drains the mutation queue one job at a time, preserving submission
// order. A failed sync triggers the job's compensating action and the
// failure callback; results arriving after Close, or after a Reload
// replaced the state the job was applied to, are discarded.
func (s *Session) run() {
	defer s.wg.Done()
	for j := range s.jobs {
		err := j.sync(context.Background())
		if err == nil {
			continue
		}

		s.mu.Lock()
		stale := s.closed || j.gen != s.gen
		if !stale {
			j.compensate()
		}
		s.mu.Unlock()

		if !stale && s.onFailure != nil {
			s.onFailure(j.op, err)
		}
	}
}

// Close discards the session. In-flight boundary results are dropped
// rather than applied to stale local state.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.jobs)
	s.mu.Unlock()
	s.wg.Wait()
}

// Mode returns the session's current mode.
func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// SetEditing toggles between viewing and editing. Leaving edit mode
// clears the hotspot selection.
func (s *Session) SetEditing(editing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if editing {
		s.mode = ModeEditing
		return
	}
	s.mode = ModeViewing
	s.selection = ""
}

// CurrentSceneID returns the id of the scene the viewer is showing.
// Empty for a tour with no scenes.
func (s *Session) CurrentSceneID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sceneID
}

// HandleSceneChange records a scene change reported by the rendering
// engine. Pure UI-local state; nothing is persisted.
func (s *Session) HandleSceneChange(sceneID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tour.SceneByID(sceneID); !ok {
		return fmt.Errorf("scene change to %q: %w", sceneID, tour.ErrSceneNotFound)
	}
	s.sceneID = sceneID
	return nil
}

// Navigate follows a scene-type hotspot (explicit or derived) to its
// target scene.
func (s *Session) Navigate(hotspotID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := ""
	if tour.IsAutoHotspot(hotspotID) {
		derived := tour.DeriveAutoNavigationHotspots(s.tour.Scenes)
		for _, hs := range derived[s.sceneID] {
			if hs.ID == hotspotID {
				target = hs.TargetSceneID
			}
		}
	} else {
		for _, sc := range s.tour.Scenes {
			for _, hs := range sc.Hotspots {
				if hs.ID == hotspotID && hs.Type == tour.HotspotScene {
					target = hs.TargetSceneID
				}
			}
		}
	}
	if target == "" {
		return fmt.Errorf("navigate via %q: %w", hotspotID, tour.ErrHotspotNotFound)
	}
	if _, ok := s.tour.SceneByID(target); !ok {
		return fmt.Errorf("navigate to %q: %w", target, tour.ErrSceneNotFound)
	}
	s.sceneID = target
	return nil
}

// SelectHotspot marks an explicit hotspot as selected for editing.
// Derived auto-navigation hotspots are not selectable: they have no
// persisted state to edit.
func (s *Session) SelectHotspot(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tour.IsAutoHotspot(id) {
		return fmt.Errorf("select %q: %w", id, tour.ErrAutoHotspot)
	}
	for _, sc := range s.tour.Scenes {
		for _, hs := range sc.Hotspots {
			if hs.ID == id {
				s.selection = id
				return nil
			}
		}
	}
	return fmt.Errorf("select %q: %w", id, tour.ErrHotspotNotFound)
}

// SelectedHotspotID returns the selected hotspot id, empty for no selection.
func (s *Session) SelectedHotspotID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection
}

// ClearSelection returns the editing sub-state to "no selection".
func (s *Session) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = ""
}

// Tour returns a deep copy of the session's local tour state.
func (s *Session) Tour() *tour.Tour {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneTour(s.tour)
}

// Reload replaces the local tour wholesale with a fresh snapshot from the
// store, re-entering at the first scene. Selection is cleared. Queued
// mutations still complete against the boundary, but their results belong
// to the previous generation and no longer touch local state.
func (s *Session) Reload(t *tour.Tour) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.tour = t
	s.selection = ""
	s.sceneID = ""
	if fs := t.FirstScene(); fs != nil {
		s.sceneID = fs.ID
	}
}

func cloneTour(t *tour.Tour) *tour.Tour {
	cp := *t
	cp.Scenes = make([]tour.Scene, len(t.Scenes))
	for i, sc := range t.Scenes {
		c := sc
		c.Hotspots = make([]tour.Hotspot, len(sc.Hotspots))
		copy(c.Hotspots, sc.Hotspots)
		cp.Scenes[i] = c
	}
	return &cp
}
