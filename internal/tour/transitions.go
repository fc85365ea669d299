package tour

import "fmt"

// TransitionPolicy decides whether a tour may move between two lifecycle
// states. Reviewer actions (approve, reject, publish) consult the policy
// before mutating status; the policy is injected so deployments can choose
// between the permissive legacy behavior and a strict review flow.
type TransitionPolicy interface {
	// Allowed reports whether a transition from one status to another is
	// permitted. Both statuses are assumed valid.
	Allowed(from, to Status) bool
}

// AnyTransition permits every transition between valid statuses. This is
// the default: reviewer actions are trusted and carry no client-side
// guard rails.
type AnyTransition struct{}

// Allowed always returns true for AnyTransition.
func (AnyTransition) Allowed(from, to Status) bool { return true }

// ReviewTransitions enforces a strict review flow:
//
//	pending  -> approved | rejected
//	approved -> live | rejected
//	rejected -> pending (resubmission)
//	live     -> (terminal)
//
// Self-transitions are permitted so repeated reviewer actions stay
// idempotent.
type ReviewTransitions struct{}

// Allowed implements TransitionPolicy for the strict review flow.
func (ReviewTransitions) Allowed(from, to Status) bool {
	if from == to {
		return true
	}
	switch from {
	case StatusPending:
		return to == StatusApproved || to == StatusRejected
	case StatusApproved:
		return to == StatusLive || to == StatusRejected
	case StatusRejected:
		return to == StatusPending
	}
	return false
}

// Transition validates the target status against the policy and applies
// it to the tour. Returns ErrInvalidStatus for unknown states and
// ErrTransitionDenied when the policy forbids the change.
func (t *Tour) Transition(to Status, policy TransitionPolicy) error {
	if !to.Valid() {
		return fmt.Errorf("transition to %q: %w", to, ErrInvalidStatus)
	}
	if !policy.Allowed(t.Status, to) {
		return fmt.Errorf("transition %s -> %s: %w", t.Status, to, ErrTransitionDenied)
	}
	t.Status = to
	return nil
}
