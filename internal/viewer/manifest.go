package viewer

import "github.com/mvail/tourhost/internal/tour"

// SceneManifest is one scene in the shape the panoramic rendering engine
// consumes: an equirectangular panorama plus its combined hotspot list.
type SceneManifest struct {
	Title    string            `json:"title"`
	Type     string            `json:"type"`
	Panorama string            `json:"panorama"`
	HotSpots []ManifestHotspot `json:"hotSpots"`
}

// ManifestHotspot is a hotspot in engine shape. For scene-type hotspots
// SceneID names the target scene to jump to; the engine wires navigation
// from it.
type ManifestHotspot struct {
	ID      string  `json:"id"`
	Text    string  `json:"text"`
	Yaw     float64 `json:"yaw"`
	Pitch   float64 `json:"pitch"`
	Type    string  `json:"type"`
	SceneID string  `json:"sceneId,omitempty"`
}

// Manifest is the full catalogue handed to the rendering engine.
type Manifest struct {
	FirstScene string                   `json:"firstScene,omitempty"`
	Scenes     map[string]SceneManifest `json:"scenes"`
}

// BuildManifest converts a tour into the engine catalogue. Explicit
// hotspots are tagged info; derived auto-navigation hotspots are computed
// fresh from scene order, tagged scene, and concatenated after the
// explicit set. The stored model is never touched.
func BuildManifest(t *tour.Tour) Manifest {
	derived := tour.DeriveAutoNavigationHotspots(t.Scenes)

	m := Manifest{Scenes: make(map[string]SceneManifest, len(t.Scenes))}
	if fs := t.FirstScene(); fs != nil {
		m.FirstScene = fs.ID
	}

	for _, sc := range t.Scenes {
		spots := make([]ManifestHotspot, 0, len(sc.Hotspots)+1)
		for _, hs := range sc.Hotspots {
			mh := ManifestHotspot{
				ID:    hs.ID,
				Text:  hs.Title,
				Yaw:   hs.Yaw,
				Pitch: hs.Pitch,
				Type:  string(hs.Type),
			}
			if hs.Type == tour.HotspotScene {
				mh.SceneID = hs.TargetSceneID
			}
			spots = append(spots, mh)
		}
		for _, hs := range derived[sc.ID] {
			spots = append(spots, ManifestHotspot{
				ID:      hs.ID,
				Text:    hs.Title,
				Yaw:     hs.Yaw,
				Pitch:   hs.Pitch,
				Type:    string(tour.HotspotScene),
				SceneID: hs.TargetSceneID,
			})
		}
		m.Scenes[sc.ID] = SceneManifest{
			Title:    sc.Title,
			Type:     "equirectangular",
			Panorama: sc.ImageURL,
			HotSpots: spots,
		}
	}
	return m
}
