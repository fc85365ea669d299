package tour

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Seed populates the repository with demo tours for development
// deployments that run without real client content. Each demo client gets
// one tour of sceneCount scenes pointing at placeholder panoramas.
//
// The seed is an ordinary repository write; nothing in the runtime path
// depends on it.
func Seed(ctx context.Context, repo Repository, sceneCount int) error {
	clients := []struct {
		id, name string
	}{
		{"client-healthcareplus", "HealthcarePlus Clinic"},
		{"client-grandhotels", "Grand Hotels Group"},
		{"client-techuniversity", "Tech University"},
	}

	for _, c := range clients {
		scenes := make([]Scene, 0, sceneCount)
		for i := 0; i < sceneCount; i++ {
			scenes = append(scenes, Scene{
				ID:       uuid.New().String(),
				Title:    fmt.Sprintf("Scene %d", i+1),
				ImageURL: fmt.Sprintf("/images/office-%d.jpg", i+1),
				Hotspots: []Hotspot{},
			})
		}
		t := &Tour{
			ID:          "tour-" + c.id,
			ClientID:    c.id,
			ClientName:  c.name,
			Title:       fmt.Sprintf("%s 360° Tour", c.name),
			Status:      StatusApproved,
			UploadDate:  time.Now().UTC().Format(time.RFC3339),
			SizeMB:      float64(sceneCount),
			BandwidthMB: float64(sceneCount) * 100,
			Scenes:      scenes,
		}
		if err := repo.Put(ctx, t); err != nil {
			return fmt.Errorf("seed tour %s: %w", t.ID, err)
		}
	}
	return nil
}
