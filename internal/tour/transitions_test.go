package tour

import (
	"errors"
	"testing"
)

func TestAnyTransition_AllowsEverything(t *testing.T) {
	statuses := []Status{StatusPending, StatusApproved, StatusRejected, StatusLive}
	policy := AnyTransition{}
	for _, from := range statuses {
		for _, to := range statuses {
			if !policy.Allowed(from, to) {
				t.Errorf("AnyTransition must allow %s -> %s", from, to)
			}
		}
	}
}

func TestReviewTransitions(t *testing.T) {
	policy := ReviewTransitions{}
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusApproved, true},
		{StatusPending, StatusRejected, true},
		{StatusPending, StatusLive, false},
		{StatusApproved, StatusLive, true},
		{StatusApproved, StatusRejected, true},
		{StatusApproved, StatusPending, false},
		{StatusRejected, StatusPending, true},
		{StatusRejected, StatusApproved, false},
		{StatusLive, StatusPending, false},
		{StatusLive, StatusRejected, false},
		{StatusLive, StatusLive, true},
		{StatusPending, StatusPending, true},
	}
	for _, c := range cases {
		if got := policy.Allowed(c.from, c.to); got != c.want {
			t.Errorf("ReviewTransitions %s -> %s = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestTransition_AppliesStatus(t *testing.T) {
	tr := threeSceneTour()
	tr.Status = StatusPending

	if err := tr.Transition(StatusApproved, ReviewTransitions{}); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	if tr.Status != StatusApproved {
		t.Errorf("expected approved, got %s", tr.Status)
	}
}

func TestTransition_DeniedByPolicy(t *testing.T) {
	tr := threeSceneTour()
	tr.Status = StatusLive

	err := tr.Transition(StatusPending, ReviewTransitions{})
	if !errors.Is(err, ErrTransitionDenied) {
		t.Fatalf("expected ErrTransitionDenied, got %v", err)
	}
	if tr.Status != StatusLive {
		t.Error("denied transition must not mutate status")
	}
}

func TestTransition_InvalidStatus(t *testing.T) {
	tr := threeSceneTour()
	err := tr.Transition(Status("archived"), AnyTransition{})
	if !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}
