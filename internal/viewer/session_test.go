package viewer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mvail/tourhost/internal/tour"
)

// fakeBoundary records calls and can be made to fail per operation.
type fakeBoundary struct {
	mu      sync.Mutex
	calls   []string
	failOps map[string]error
	release chan struct{} // if set, calls block until the channel closes
}

func newFakeBoundary() *fakeBoundary {
	return &fakeBoundary{failOps: make(map[string]error)}
}

func (f *fakeBoundary) record(op string) error {
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
	return f.failOps[op]
}

func (f *fakeBoundary) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeBoundary) CreateHotspot(ctx context.Context, n tour.NewHotspot) (tour.Hotspot, error) {
	if err := f.record(OpCreateHotspot); err != nil {
		return tour.Hotspot{}, err
	}
	return tour.Hotspot{
		ID:      "srv-" + uuid.New().String(),
		Title:   n.Title,
		Yaw:     n.Yaw,
		Pitch:   n.Pitch,
		SceneID: n.SceneID,
		Type:    tour.HotspotInfo,
	}, nil
}

func (f *fakeBoundary) UpdateHotspot(ctx context.Context, id string, patch tour.HotspotPatch) (tour.Hotspot, error) {
	if err := f.record(OpUpdateHotspot); err != nil {
		return tour.Hotspot{}, err
	}
	return tour.Hotspot{ID: id}, nil
}

func (f *fakeBoundary) DeleteHotspot(ctx context.Context, id string) error {
	return f.record(OpDeleteHotspot)
}

func (f *fakeBoundary) ReplaceSceneImage(ctx context.Context, sceneID, imageRef string) error {
	return f.record(OpReplaceSceneImage)
}

func testTour() *tour.Tour {
	return &tour.Tour{
		ID:     "tour-1",
		Title:  "Demo",
		Status: tour.StatusApproved,
		Scenes: []tour.Scene{
			{ID: "scene-a", Title: "Lobby", ImageURL: "/a.jpg", Hotspots: []tour.Hotspot{}},
			{ID: "scene-b", Title: "Suite", ImageURL: "/b.jpg", Hotspots: []tour.Hotspot{}},
		},
	}
}

// drain closes the session, waiting for queued jobs to finish.
func drain(s *Session) { s.Close() }

func TestNewSession_StartsAtFirstScene(t *testing.T) {
	s := NewSession(testTour(), newFakeBoundary(), nil)
	defer drain(s)

	if s.CurrentSceneID() != "scene-a" {
		t.Errorf("expected first scene scene-a, got %s", s.CurrentSceneID())
	}
	if s.Mode() != ModeViewing {
		t.Errorf("expected viewing mode, got %s", s.Mode())
	}
}

func TestNewSession_EmptyTour(t *testing.T) {
	s := NewSession(&tour.Tour{ID: "t", Scenes: []tour.Scene{}}, newFakeBoundary(), nil)
	defer drain(s)

	if s.CurrentSceneID() != "" {
		t.Errorf("expected no current scene for empty tour, got %s", s.CurrentSceneID())
	}
}

func TestPlaceHotspot_RequiresEditMode(t *testing.T) {
	s := NewSession(testTour(), newFakeBoundary(), nil)
	defer drain(s)

	if _, err := s.PlaceHotspot("X", 10, 10); !errors.Is(err, ErrNotEditing) {
		t.Errorf("expected ErrNotEditing, got %v", err)
	}
}

func TestPlaceHotspot_OptimisticAndSynced(t *testing.T) {
	fb := newFakeBoundary()
	s := NewSession(testTour(), fb, nil)
	s.SetEditing(true)

	hs, err := s.PlaceHotspot("Reception", 45, -10)
	if err != nil {
		t.Fatalf("PlaceHotspot failed: %v", err)
	}
	if hs.Yaw != 45 || hs.Pitch != -10 {
		t.Errorf("expected yaw/pitch 45/-10, got %f/%f", hs.Yaw, hs.Pitch)
	}
	if s.SelectedHotspotID() != hs.ID {
		t.Error("placed hotspot must become the selection")
	}

	// Visible locally before the boundary call completes.
	local := s.Tour()
	if len(local.Scenes[0].Hotspots) != 1 {
		t.Fatal("expected optimistic hotspot in local state")
	}

	drain(s)

	if calls := fb.callLog(); len(calls) != 1 || calls[0] != OpCreateHotspot {
		t.Errorf("expected one create call, got %v", calls)
	}

	// Provisional id swapped for the server-assigned one.
	final := s.Tour()
	got := final.Scenes[0].Hotspots[0].ID
	if got == hs.ID {
		t.Error("expected provisional id replaced by server id")
	}
	if got[:4] != "srv-" {
		t.Errorf("expected server id, got %s", got)
	}
}

func TestPlaceHotspot_RollbackOnSyncFailure(t *testing.T) {
	fb := newFakeBoundary()
	fb.failOps[OpCreateHotspot] = errors.New("backend down")

	var failMu sync.Mutex
	var failedOp string
	s := NewSession(testTour(), fb, func(op string, err error) {
		failMu.Lock()
		failedOp = op
		failMu.Unlock()
	})
	s.SetEditing(true)

	if _, err := s.PlaceHotspot("Reception", 45, -10); err != nil {
		t.Fatalf("PlaceHotspot failed: %v", err)
	}
	drain(s)

	if len(s.Tour().Scenes[0].Hotspots) != 0 {
		t.Error("failed create must be rolled back locally")
	}
	if s.SelectedHotspotID() != "" {
		t.Error("selection must be cleared when the optimistic hotspot is rolled back")
	}
	failMu.Lock()
	defer failMu.Unlock()
	if failedOp != OpCreateHotspot {
		t.Errorf("expected failure callback for create, got %q", failedOp)
	}
}

func TestUpdateHotspot_RollbackRestoresPriorFields(t *testing.T) {
	fb := newFakeBoundary()
	fb.failOps[OpUpdateHotspot] = errors.New("409")

	tr := testTour()
	hs, err := tr.AddHotspot(tour.NewHotspot{SceneID: "scene-a", Title: "Desk", Yaw: 30, Pitch: 5})
	if err != nil {
		t.Fatalf("AddHotspot failed: %v", err)
	}

	s := NewSession(tr, fb, nil)
	s.SetEditing(true)

	title := "Front Desk"
	yaw := 60.0
	if _, err := s.UpdateHotspot(hs.ID, tour.HotspotPatch{Title: &title, Yaw: &yaw}); err != nil {
		t.Fatalf("UpdateHotspot failed: %v", err)
	}
	drain(s)

	got := s.Tour().Scenes[0].Hotspots[0]
	if got.Title != "Desk" || got.Yaw != 30 || got.Pitch != 5 {
		t.Errorf("expected rollback to prior fields, got %+v", got)
	}
}

func TestDeleteHotspot_AbsentIsNoOpAndNotForwarded(t *testing.T) {
	fb := newFakeBoundary()
	s := NewSession(testTour(), fb, nil)
	s.SetEditing(true)

	if err := s.DeleteHotspot("nonexistent"); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
	drain(s)
	if calls := fb.callLog(); len(calls) != 0 {
		t.Errorf("absent-id delete must not reach the boundary, got %v", calls)
	}
}

func TestDeleteHotspot_RollbackRestoresHotspot(t *testing.T) {
	fb := newFakeBoundary()
	fb.failOps[OpDeleteHotspot] = errors.New("503")

	tr := testTour()
	hs, err := tr.AddHotspot(tour.NewHotspot{SceneID: "scene-b", Title: "Desk"})
	if err != nil {
		t.Fatalf("AddHotspot failed: %v", err)
	}

	s := NewSession(tr, fb, nil)
	s.SetEditing(true)

	if err := s.DeleteHotspot(hs.ID); err != nil {
		t.Fatalf("DeleteHotspot failed: %v", err)
	}
	if len(s.Tour().Scenes[1].Hotspots) != 0 {
		t.Fatal("expected optimistic removal")
	}
	drain(s)

	if len(s.Tour().Scenes[1].Hotspots) != 1 {
		t.Error("failed delete must restore the hotspot")
	}
}

func TestMutations_CompleteInSubmissionOrder(t *testing.T) {
	fb := newFakeBoundary()
	fb.release = make(chan struct{})

	s := NewSession(testTour(), fb, nil)
	s.SetEditing(true)

	if _, err := s.PlaceHotspot("one", 1, 1); err != nil {
		t.Fatalf("PlaceHotspot failed: %v", err)
	}
	if err := s.ReplaceSceneImage("/new-a.jpg"); err != nil {
		t.Fatalf("ReplaceSceneImage failed: %v", err)
	}
	if err := s.HandleSceneChange("scene-b"); err != nil {
		t.Fatalf("HandleSceneChange failed: %v", err)
	}
	if _, err := s.PlaceHotspot("two", 2, 2); err != nil {
		t.Fatalf("PlaceHotspot failed: %v", err)
	}

	// Nothing reached the boundary yet; releasing lets the worker drain in order.
	close(fb.release)
	drain(s)

	want := []string{OpCreateHotspot, OpReplaceSceneImage, OpCreateHotspot}
	got := fb.callLog()
	if len(got) != len(want) {
		t.Fatalf("expected %d boundary calls, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("call %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestClose_DiscardsLateResults(t *testing.T) {
	fb := newFakeBoundary()
	fb.release = make(chan struct{})
	fb.failOps[OpCreateHotspot] = errors.New("late failure")

	var called bool
	var mu sync.Mutex
	s := NewSession(testTour(), fb, func(op string, err error) {
		mu.Lock()
		called = true
		mu.Unlock()
	})
	s.SetEditing(true)

	if _, err := s.PlaceHotspot("X", 0, 0); err != nil {
		t.Fatalf("PlaceHotspot failed: %v", err)
	}

	// Close while the boundary call is still blocked, then let it fail.
	go func() {
		time.Sleep(10 * time.Millisecond)
		close(fb.release)
	}()
	s.Close()

	mu.Lock()
	defer mu.Unlock()
	if called {
		t.Error("failure arriving after Close must be discarded")
	}
}

func TestMutationsAfterClose(t *testing.T) {
	s := NewSession(testTour(), newFakeBoundary(), nil)
	s.SetEditing(true)
	s.Close()

	if _, err := s.PlaceHotspot("X", 0, 0); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if err := s.ReplaceSceneImage("/x.jpg"); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestNavigate_DerivedHotspot(t *testing.T) {
	s := NewSession(testTour(), newFakeBoundary(), nil)
	defer drain(s)

	if err := s.Navigate("auto-scene-b"); err != nil {
		t.Fatalf("Navigate failed: %v", err)
	}
	if s.CurrentSceneID() != "scene-b" {
		t.Errorf("expected scene-b, got %s", s.CurrentSceneID())
	}
}

func TestSelectHotspot_RejectsDerived(t *testing.T) {
	s := NewSession(testTour(), newFakeBoundary(), nil)
	defer drain(s)

	if err := s.SelectHotspot("auto-scene-b"); err == nil {
		t.Error("derived hotspots must not be selectable for editing")
	}
}

func TestSetEditing_LeavingEditClearsSelection(t *testing.T) {
	tr := testTour()
	hs, err := tr.AddHotspot(tour.NewHotspot{SceneID: "scene-a", Title: "Desk"})
	if err != nil {
		t.Fatalf("AddHotspot failed: %v", err)
	}

	s := NewSession(tr, newFakeBoundary(), nil)
	defer drain(s)
	s.SetEditing(true)

	if err := s.SelectHotspot(hs.ID); err != nil {
		t.Fatalf("SelectHotspot failed: %v", err)
	}
	s.SetEditing(false)
	if s.SelectedHotspotID() != "" {
		t.Error("leaving edit mode must clear the selection")
	}
}

func TestReload_ReplacesWholesale(t *testing.T) {
	s := NewSession(testTour(), newFakeBoundary(), nil)
	defer drain(s)

	if err := s.HandleSceneChange("scene-b"); err != nil {
		t.Fatalf("HandleSceneChange failed: %v", err)
	}

	fresh := &tour.Tour{
		ID:     "tour-1",
		Scenes: []tour.Scene{{ID: "scene-z", Title: "New", Hotspots: []tour.Hotspot{}}},
	}
	s.Reload(fresh)

	if s.CurrentSceneID() != "scene-z" {
		t.Errorf("expected reload to re-enter at first scene, got %s", s.CurrentSceneID())
	}
	if s.SelectedHotspotID() != "" {
		t.Error("reload must clear selection")
	}
}

// TestPlaceHotspot_SaturatedQueueReturnsBusy wedges the worker inside a
// blocked boundary call and floods the queue past its capacity. Refused
// edits must come back as ErrBusy with the local change rolled back, and
// the session must stay responsive throughout.
func TestPlaceHotspot_SaturatedQueueReturnsBusy(t *testing.T) {
	fb := newFakeBoundary()
	fb.release = make(chan struct{})

	s := NewSession(testTour(), fb, nil)
	s.SetEditing(true)

	// Queue capacity is 64 plus the job parked in the worker.
	accepted, busy := 0, 0
	for i := 0; i < 70; i++ {
		_, err := s.PlaceHotspot("X", 0, 0)
		switch {
		case err == nil:
			accepted++
		case errors.Is(err, ErrBusy):
			busy++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if busy == 0 {
		t.Fatal("expected ErrBusy once the queue saturated")
	}

	// Refused edits are compensated immediately, so the local copy holds
	// exactly the accepted hotspots.
	sc, _ := s.Tour().SceneByID("scene-a")
	if len(sc.Hotspots) != accepted {
		t.Errorf("expected %d local hotspots, got %d", accepted, len(sc.Hotspots))
	}

	// Session methods must not block while the queue is full.
	done := make(chan struct{})
	go func() {
		_, _ = s.PlaceHotspot("overflow", 0, 0)
		s.ClearSelection()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("session wedged on a saturated queue")
	}

	close(fb.release)
	s.Close()
}

// TestReload_DiscardsStaleResults verifies that a compensation arriving
// after Reload does not clobber the fresh snapshot: the failed update was
// applied to state that no longer exists.
func TestReload_DiscardsStaleResults(t *testing.T) {
	fb := newFakeBoundary()
	fb.release = make(chan struct{})
	fb.failOps[OpUpdateHotspot] = errors.New("409")

	tr := testTour()
	hs, err := tr.AddHotspot(tour.NewHotspot{SceneID: "scene-a", Title: "Old", Yaw: 10, Pitch: 0})
	if err != nil {
		t.Fatalf("AddHotspot failed: %v", err)
	}

	var called bool
	var mu sync.Mutex
	s := NewSession(tr, fb, func(op string, err error) {
		mu.Lock()
		called = true
		mu.Unlock()
	})
	s.SetEditing(true)

	newTitle := "Edited"
	if _, err := s.UpdateHotspot(hs.ID, tour.HotspotPatch{Title: &newTitle}); err != nil {
		t.Fatalf("UpdateHotspot failed: %v", err)
	}

	// Replace local state while the boundary call is still blocked. The
	// fresh snapshot carries the authoritative title.
	fresh := testTour()
	fresh.Scenes[0].Hotspots = []tour.Hotspot{{
		ID: hs.ID, Title: "Server", Yaw: 10, SceneID: "scene-a", Type: tour.HotspotInfo,
	}}
	s.Reload(fresh)

	close(fb.release)
	s.Close()

	got := s.Tour().Scenes[0].Hotspots[0].Title
	if got != "Server" {
		t.Errorf("stale compensation clobbered the reloaded snapshot: title = %q", got)
	}
	mu.Lock()
	defer mu.Unlock()
	if called {
		t.Error("failure from a previous generation must not reach the callback")
	}
}

// TestReload_DiscardsStaleServerID checks the create path: a provisional
// id adoption completing after Reload must not touch the new snapshot.
func TestReload_DiscardsStaleServerID(t *testing.T) {
	fb := newFakeBoundary()
	fb.release = make(chan struct{})

	s := NewSession(testTour(), fb, nil)
	s.SetEditing(true)

	local, err := s.PlaceHotspot("X", 0, 0)
	if err != nil {
		t.Fatalf("PlaceHotspot failed: %v", err)
	}

	// The fresh snapshot happens to carry a hotspot under the same
	// provisional id; the late adoption must leave it alone.
	fresh := testTour()
	fresh.Scenes[0].Hotspots = []tour.Hotspot{{
		ID: local.ID, Title: "Fresh", SceneID: "scene-a", Type: tour.HotspotInfo,
	}}
	s.Reload(fresh)

	close(fb.release)
	s.Close()

	if got := s.Tour().Scenes[0].Hotspots[0].ID; got != local.ID {
		t.Errorf("stale server id adoption rewrote the reloaded snapshot: id = %q", got)
	}
}
