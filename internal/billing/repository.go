package billing

import (
	"context"
	"fmt"
	"sync"
)

// Repository defines storage operations for invoices and subscriptions.
type Repository interface {
	ListInvoices(ctx context.Context) ([]Invoice, error)
	PutInvoice(ctx context.Context, inv *Invoice) error

	ListSubscriptions(ctx context.Context) ([]Subscription, error)
	GetSubscription(ctx context.Context, clientID string) (*Subscription, error)
	SetSubscription(ctx context.Context, clientID, plan string) (*Subscription, error)
	CancelSubscription(ctx context.Context, clientID string) (*Subscription, error)
}

// InMemoryRepository is a mutex-guarded in-memory implementation of
// Repository.
type InMemoryRepository struct {
	mu       sync.RWMutex
	invoices map[string]*Invoice
	invOrder []string
	subs     map[string]*Subscription
	subOrder []string
}

// NewInMemoryRepository creates an empty in-memory billing repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		invoices: make(map[string]*Invoice),
		subs:     make(map[string]*Subscription),
	}
}

// ListInvoices returns copies of all invoices in insertion order.
func (r *InMemoryRepository) ListInvoices(ctx context.Context) ([]Invoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Invoice, 0, len(r.invOrder))
	for _, id := range r.invOrder {
		out = append(out, *r.invoices[id])
	}
	return out, nil
}

// PutInvoice stores an invoice, replacing any previous one with the same id.
func (r *InMemoryRepository) PutInvoice(ctx context.Context, inv *Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.invoices[inv.ID]; !ok {
		r.invOrder = append(r.invOrder, inv.ID)
	}
	cp := *inv
	r.invoices[inv.ID] = &cp
	return nil
}

// ListSubscriptions returns copies of all subscriptions.
func (r *InMemoryRepository) ListSubscriptions(ctx context.Context) ([]Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Subscription, 0, len(r.subOrder))
	for _, id := range r.subOrder {
		out = append(out, *r.subs[id])
	}
	return out, nil
}

// GetSubscription retrieves the client's subscription.
func (r *InMemoryRepository) GetSubscription(ctx context.Context, clientID string) (*Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.subs[clientID]
	if !ok {
		return nil, fmt.Errorf("subscription for %q: %w", clientID, ErrSubscriptionMissing)
	}
	cp := *s
	return &cp, nil
}

// SetSubscription assigns or changes the client's plan. The plan must
// exist in the catalogue.
func (r *InMemoryRepository) SetSubscription(ctx context.Context, clientID, plan string) (*Subscription, error) {
	if _, err := LookupPlan(plan); err != nil {
		return nil, fmt.Errorf("set subscription for %q: %w", clientID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.subs[clientID]
	if !ok {
		s = &Subscription{ClientID: clientID}
		r.subs[clientID] = s
		r.subOrder = append(r.subOrder, clientID)
	}
	s.Plan = plan
	cp := *s
	return &cp, nil
}

// CancelSubscription drops the client back to the free tier. Cancelling
// an absent subscription is a no-op that returns the resulting free-tier
// subscription, keeping the operation idempotent.
func (r *InMemoryRepository) CancelSubscription(ctx context.Context, clientID string) (*Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.subs[clientID]
	if !ok {
		s = &Subscription{ClientID: clientID}
		r.subs[clientID] = s
		r.subOrder = append(r.subOrder, clientID)
	}
	s.Plan = "free"
	cp := *s
	return &cp, nil
}
