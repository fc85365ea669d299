package tour

import (
	"context"
	"fmt"
	"sync"
)

// Repository defines storage operations for tours. The repository is the
// single source of truth; callers treat fetched tours as snapshots and
// replace them wholesale, never via partial merge.
type Repository interface {
	// List returns all tours ordered by id.
	List(ctx context.Context) ([]Tour, error)

	// Get retrieves one tour by id. Returns ErrTourNotFound if absent.
	Get(ctx context.Context, id string) (*Tour, error)

	// Put stores a tour, replacing any previous tour with the same id.
	Put(ctx context.Context, t *Tour) error

	// Delete removes a tour. Deleting an absent id is a no-op.
	Delete(ctx context.Context, id string) error

	// Mutate applies fn to the tour under the repository's write lock and
	// persists the result if fn succeeds. Returns ErrTourNotFound if the
	// tour is absent; fn errors are returned unwrapped.
	Mutate(ctx context.Context, id string, fn func(*Tour) error) (*Tour, error)

	// FindBySceneID returns the tour owning the given scene.
	FindBySceneID(ctx context.Context, sceneID string) (*Tour, error)

	// FindByHotspotID returns the tour owning the given explicit hotspot.
	FindByHotspotID(ctx context.Context, hotspotID string) (*Tour, error)
}

// InMemoryRepository is a mutex-guarded in-memory implementation of
// Repository. It is the authoritative store in development and the fake
// used throughout the tests; all reads and writes exchange deep copies so
// callers can never alias stored state.
type InMemoryRepository struct {
	mu    sync.RWMutex
	tours map[string]*Tour
	order []string
}

// NewInMemoryRepository creates an empty in-memory tour repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{tours: make(map[string]*Tour)}
}

// cloneTour returns a deep copy of t.
func cloneTour(t *Tour) *Tour {
	cp := *t
	cp.Scenes = make([]Scene, len(t.Scenes))
	for i, s := range t.Scenes {
		sc := s
		sc.Hotspots = make([]Hotspot, len(s.Hotspots))
		copy(sc.Hotspots, s.Hotspots)
		cp.Scenes[i] = sc
	}
	return &cp
}

// List returns deep copies of all tours in insertion order.
func (r *InMemoryRepository) List(ctx context.Context) ([]Tour, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Tour, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *cloneTour(r.tours[id]))
	}
	return out, nil
}

// Get retrieves a deep copy of one tour by id.
func (r *InMemoryRepository) Get(ctx context.Context, id string) (*Tour, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tours[id]
	if !ok {
		return nil, fmt.Errorf("get tour %q: %w", id, ErrTourNotFound)
	}
	return cloneTour(t), nil
}

// Put stores a deep copy of t, replacing any previous tour with the same id.
func (r *InMemoryRepository) Put(ctx context.Context, t *Tour) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tours[t.ID]; !ok {
		r.order = append(r.order, t.ID)
	}
	r.tours[t.ID] = cloneTour(t)
	return nil
}

// Delete removes a tour. Absent ids are a no-op.
func (r *InMemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tours[id]; !ok {
		return nil
	}
	delete(r.tours, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Mutate applies fn to a working copy of the tour under the write lock and
// commits the copy if fn returns nil. The returned tour is a fresh copy.
func (r *InMemoryRepository) Mutate(ctx context.Context, id string, fn func(*Tour) error) (*Tour, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.tours[id]
	if !ok {
		return nil, fmt.Errorf("mutate tour %q: %w", id, ErrTourNotFound)
	}
	work := cloneTour(stored)
	if err := fn(work); err != nil {
		return nil, err
	}
	r.tours[id] = work
	return cloneTour(work), nil
}

// FindBySceneID returns a deep copy of the tour owning the given scene.
func (r *InMemoryRepository) FindBySceneID(ctx context.Context, sceneID string) (*Tour, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.order {
		if _, ok := r.tours[id].SceneByID(sceneID); ok {
			return cloneTour(r.tours[id]), nil
		}
	}
	return nil, fmt.Errorf("find tour by scene %q: %w", sceneID, ErrSceneNotFound)
}

// FindByHotspotID returns a deep copy of the tour owning the given
// explicit hotspot. Derived hotspot ids never match.
func (r *InMemoryRepository) FindByHotspotID(ctx context.Context, hotspotID string) (*Tour, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.order {
		for _, s := range r.tours[id].Scenes {
			for _, h := range s.Hotspots {
				if h.ID == hotspotID {
					return cloneTour(r.tours[id]), nil
				}
			}
		}
	}
	return nil, fmt.Errorf("find tour by hotspot %q: %w", hotspotID, ErrHotspotNotFound)
}
