// Package ticket provides models and repository for client support tickets.
package ticket

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is a ticket's workflow state.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusClosed     Status = "closed"
)

// Valid reports whether s is a known ticket status.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// Priority orders tickets in the support queue.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Ticket is one client support request.
type Ticket struct {
	ID          string    `json:"id"`
	ClientID    string    `json:"client_id"`
	ClientName  string    `json:"client_name"`
	Subject     string    `json:"subject"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	Priority    Priority  `json:"priority"`
	AssignedTo  string    `json:"assigned_to,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Package errors.
var (
	ErrTicketNotFound = errors.New("ticket not found")
	ErrInvalidStatus  = errors.New("invalid ticket status")
)

// Repository defines storage operations for tickets.
type Repository interface {
	List(ctx context.Context) ([]Ticket, error)
	Get(ctx context.Context, id string) (*Ticket, error)
	Create(ctx context.Context, t *Ticket) (*Ticket, error)
	SetStatus(ctx context.Context, id string, status Status) (*Ticket, error)
	Assign(ctx context.Context, id, assignee string) (*Ticket, error)
}

// InMemoryRepository is a mutex-guarded in-memory implementation of
// Repository.
type InMemoryRepository struct {
	mu      sync.RWMutex
	tickets map[string]*Ticket
	order   []string
	now     func() time.Time
}

// NewInMemoryRepository creates an empty in-memory ticket repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		tickets: make(map[string]*Ticket),
		now:     time.Now,
	}
}

// List returns copies of all tickets in creation order.
func (r *InMemoryRepository) List(ctx context.Context) ([]Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Ticket, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.tickets[id])
	}
	return out, nil
}

// Get retrieves one ticket by id.
func (r *InMemoryRepository) Get(ctx context.Context, id string) (*Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tickets[id]
	if !ok {
		return nil, fmt.Errorf("get ticket %q: %w", id, ErrTicketNotFound)
	}
	cp := *t
	return &cp, nil
}

// Create assigns an id and timestamps, defaults status to open and
// priority to medium, and stores the ticket.
func (r *InMemoryRepository) Create(ctx context.Context, t *Ticket) (*Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *t
	cp.ID = uuid.New().String()
	if cp.Status == "" {
		cp.Status = StatusOpen
	}
	if cp.Priority == "" {
		cp.Priority = PriorityMedium
	}
	if !cp.Status.Valid() {
		return nil, fmt.Errorf("create ticket: status %q: %w", cp.Status, ErrInvalidStatus)
	}
	now := r.now().UTC()
	cp.CreatedAt = now
	cp.UpdatedAt = now

	r.tickets[cp.ID] = &cp
	r.order = append(r.order, cp.ID)
	out := cp
	return &out, nil
}

// SetStatus updates the workflow state and bumps UpdatedAt.
func (r *InMemoryRepository) SetStatus(ctx context.Context, id string, status Status) (*Ticket, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("set ticket status %q: %w", status, ErrInvalidStatus)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tickets[id]
	if !ok {
		return nil, fmt.Errorf("set status on ticket %q: %w", id, ErrTicketNotFound)
	}
	t.Status = status
	t.UpdatedAt = r.now().UTC()
	cp := *t
	return &cp, nil
}

// Assign hands the ticket to a support operator and bumps UpdatedAt.
func (r *InMemoryRepository) Assign(ctx context.Context, id, assignee string) (*Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tickets[id]
	if !ok {
		return nil, fmt.Errorf("assign ticket %q: %w", id, ErrTicketNotFound)
	}
	t.AssignedTo = assignee
	t.UpdatedAt = r.now().UTC()
	cp := *t
	return &cp, nil
}
