package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/mvail/tourhost/internal/tour"
)

// DefaultTourTTL bounds staleness when an invalidation is lost.
const DefaultTourTTL = 5 * time.Minute

// TourRepository is a read-through cache decorator over tour.Repository.
// Tour snapshots are stored in the KV as CBOR. Cache failures are logged
// and degrade to the inner repository; they never fail the request.
type TourRepository struct {
	inner  tour.Repository
	kv     KV
	ttl    time.Duration
	logger *slog.Logger
}

var _ tour.Repository = (*TourRepository)(nil)

// NewTourRepository wraps inner with a KV-backed snapshot cache.
func NewTourRepository(inner tour.Repository, kv KV, ttl time.Duration, logger *slog.Logger) *TourRepository {
	if ttl <= 0 {
		ttl = DefaultTourTTL
	}
	return &TourRepository{inner: inner, kv: kv, ttl: ttl, logger: logger}
}

func tourKey(id string) string {
	return "tour:" + id
}

// Get retrieves a tour, serving from the cache when possible.
func (r *TourRepository) Get(ctx context.Context, id string) (*tour.Tour, error) {
	if b, err := r.kv.Get(ctx, tourKey(id)); err == nil {
		var t tour.Tour
		if err := cbor.Unmarshal(b, &t); err == nil {
			return &t, nil
		}
		// Corrupt entry: drop it and fall through to the source of truth.
		r.logger.WarnContext(ctx, "dropping corrupt cached tour", "tour_id", id)
		if err := r.kv.Del(ctx, tourKey(id)); err != nil {
			r.logger.WarnContext(ctx, "cache delete failed", "tour_id", id, "error", err)
		}
	} else if !errors.Is(err, ErrMiss) {
		r.logger.WarnContext(ctx, "cache read failed", "tour_id", id, "error", err)
	}

	t, err := r.inner.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	r.store(ctx, t)
	return t, nil
}

// List always hits the source of truth. Listings are admin-dashboard
// traffic; per-tour snapshots are what the viewer path hammers.
func (r *TourRepository) List(ctx context.Context) ([]tour.Tour, error) {
	return r.inner.List(ctx)
}

// Put writes through to the inner repository and refreshes the snapshot.
func (r *TourRepository) Put(ctx context.Context, t *tour.Tour) error {
	if err := r.inner.Put(ctx, t); err != nil {
		return err
	}
	r.store(ctx, t)
	return nil
}

// Delete removes the tour and its cached snapshot.
func (r *TourRepository) Delete(ctx context.Context, id string) error {
	if err := r.inner.Delete(ctx, id); err != nil {
		return err
	}
	if err := r.kv.Del(ctx, tourKey(id)); err != nil {
		r.logger.WarnContext(ctx, "cache delete failed", "tour_id", id, "error", err)
	}
	return nil
}

// Mutate delegates to the inner repository and refreshes the snapshot
// with the committed result.
func (r *TourRepository) Mutate(ctx context.Context, id string, fn func(*tour.Tour) error) (*tour.Tour, error) {
	t, err := r.inner.Mutate(ctx, id, fn)
	if err != nil {
		return nil, err
	}
	r.store(ctx, t)
	return t, nil
}

// FindBySceneID delegates to the inner repository. Scene and hotspot
// lookups scan across tours, which the per-tour keying cannot answer.
func (r *TourRepository) FindBySceneID(ctx context.Context, sceneID string) (*tour.Tour, error) {
	return r.inner.FindBySceneID(ctx, sceneID)
}

// FindByHotspotID delegates to the inner repository.
func (r *TourRepository) FindByHotspotID(ctx context.Context, hotspotID string) (*tour.Tour, error) {
	return r.inner.FindByHotspotID(ctx, hotspotID)
}

func (r *TourRepository) store(ctx context.Context, t *tour.Tour) {
	b, err := cbor.Marshal(t)
	if err != nil {
		r.logger.WarnContext(ctx, "tour snapshot encode failed", "tour_id", t.ID, "error", err)
		return
	}
	if err := r.kv.Set(ctx, tourKey(t.ID), b, r.ttl); err != nil {
		r.logger.WarnContext(ctx, "cache write failed", "tour_id", t.ID, "error", err)
	}
}
