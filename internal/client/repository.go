package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrClientNotFound indicates the client id is absent from the repository.
var ErrClientNotFound = errors.New("client not found")

// Repository defines storage operations for clients.
type Repository interface {
	List(ctx context.Context) ([]Client, error)
	Get(ctx context.Context, id string) (*Client, error)
	Put(ctx context.Context, c *Client) error
	Mutate(ctx context.Context, id string, fn func(*Client) error) (*Client, error)
}

// InMemoryRepository is a mutex-guarded in-memory implementation of
// Repository. Reads and writes exchange deep copies.
type InMemoryRepository struct {
	mu      sync.RWMutex
	clients map[string]*Client
	order   []string
}

// NewInMemoryRepository creates an empty in-memory client repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{clients: make(map[string]*Client)}
}

func cloneClient(c *Client) *Client {
	cp := *c
	if c.Logo != nil {
		logo := *c.Logo
		logo.Bytes = append([]byte(nil), c.Logo.Bytes...)
		cp.Logo = &logo
	}
	cp.Documents = make([]Document, len(c.Documents))
	for i, d := range c.Documents {
		doc := d
		doc.Asset.Bytes = append([]byte(nil), d.Asset.Bytes...)
		cp.Documents[i] = doc
	}
	return &cp
}

// List returns deep copies of all clients in insertion order.
func (r *InMemoryRepository) List(ctx context.Context) ([]Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Client, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *cloneClient(r.clients[id]))
	}
	return out, nil
}

// Get retrieves a deep copy of one client by id.
func (r *InMemoryRepository) Get(ctx context.Context, id string) (*Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.clients[id]
	if !ok {
		return nil, fmt.Errorf("get client %q: %w", id, ErrClientNotFound)
	}
	return cloneClient(c), nil
}

// Put stores a deep copy of c, replacing any previous client with the same id.
func (r *InMemoryRepository) Put(ctx context.Context, c *Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.clients[c.ID]; !ok {
		r.order = append(r.order, c.ID)
	}
	r.clients[c.ID] = cloneClient(c)
	return nil
}

// Mutate applies fn to a working copy under the write lock and commits it
// if fn succeeds.
func (r *InMemoryRepository) Mutate(ctx context.Context, id string, fn func(*Client) error) (*Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.clients[id]
	if !ok {
		return nil, fmt.Errorf("mutate client %q: %w", id, ErrClientNotFound)
	}
	work := cloneClient(stored)
	if err := fn(work); err != nil {
		return nil, err
	}
	r.clients[id] = work
	return cloneClient(work), nil
}
