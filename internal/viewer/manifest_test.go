package viewer

import (
	"testing"

	"github.com/mvail/tourhost/internal/tour"
)

func TestBuildManifest_TagsAndOrder(t *testing.T) {
	tr := testTour()
	hs, err := tr.AddHotspot(tour.NewHotspot{SceneID: "scene-a", Title: "Reception", Yaw: 45, Pitch: -10})
	if err != nil {
		t.Fatalf("AddHotspot failed: %v", err)
	}

	m := BuildManifest(tr)

	if m.FirstScene != "scene-a" {
		t.Errorf("expected firstScene scene-a, got %s", m.FirstScene)
	}
	if len(m.Scenes) != 2 {
		t.Fatalf("expected 2 scenes, got %d", len(m.Scenes))
	}

	a := m.Scenes["scene-a"]
	if a.Type != "equirectangular" {
		t.Errorf("expected equirectangular, got %s", a.Type)
	}
	if a.Panorama != "/a.jpg" {
		t.Errorf("expected panorama /a.jpg, got %s", a.Panorama)
	}
	if len(a.HotSpots) != 2 {
		t.Fatalf("expected explicit + derived hotspot, got %d", len(a.HotSpots))
	}

	// Explicit hotspot first, tagged info.
	if a.HotSpots[0].ID != hs.ID || a.HotSpots[0].Type != "info" {
		t.Errorf("expected explicit info hotspot first, got %+v", a.HotSpots[0])
	}
	if a.HotSpots[0].SceneID != "" {
		t.Error("info hotspots carry no target scene")
	}

	// Derived navigation hotspot after, tagged scene with target.
	d := a.HotSpots[1]
	if d.ID != "auto-scene-b" || d.Type != "scene" || d.SceneID != "scene-b" {
		t.Errorf("expected derived scene hotspot targeting scene-b, got %+v", d)
	}
	if d.Yaw != 0 || d.Pitch != 0 {
		t.Errorf("derived hotspot must sit at yaw 0 pitch 0, got %f/%f", d.Yaw, d.Pitch)
	}

	// Last scene has no derived hotspot.
	b := m.Scenes["scene-b"]
	if len(b.HotSpots) != 0 {
		t.Errorf("last scene must have no derived hotspots, got %+v", b.HotSpots)
	}
}

func TestBuildManifest_EmptyTour(t *testing.T) {
	m := BuildManifest(&tour.Tour{ID: "t", Scenes: []tour.Scene{}})
	if m.FirstScene != "" {
		t.Errorf("expected no first scene, got %s", m.FirstScene)
	}
	if len(m.Scenes) != 0 {
		t.Errorf("expected empty scene map, got %d", len(m.Scenes))
	}
}

func TestBuildManifest_DoesNotMutateTour(t *testing.T) {
	tr := testTour()
	BuildManifest(tr)
	for _, sc := range tr.Scenes {
		for _, hs := range sc.Hotspots {
			if tour.IsAutoHotspot(hs.ID) {
				t.Fatal("derived hotspots leaked into the stored model")
			}
		}
	}
}
