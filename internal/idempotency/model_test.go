package idempotency

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr error
	}{
		{
			name:    "empty key",
			key:     "",
			wantErr: ErrInvalidKey,
		},
		{
			name: "console-generated uuid",
			key:  "550e8400-e29b-41d4-a716-446655440000",
		},
		{
			name: "freeform key",
			key:  "checkout-retry-2026-08-30",
		},
		{
			name: "key at the length ceiling",
			key:  strings.Repeat("k", MaxKeyLength),
		},
		{
			name:    "key over the length ceiling",
			key:     strings.Repeat("k", MaxKeyLength+1),
			wantErr: ErrKeyTooLong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateKey(tt.key); !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateKey(%q) error = %v, want %v", tt.key, err, tt.wantErr)
			}
		})
	}
}

func TestComputeResponseHash(t *testing.T) {
	body := `{"checkout_url":"https://checkout.stripe.com/c/pay/cs_test_1"}`

	hash := ComputeResponseHash(body)
	if len(hash) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(hash))
	}

	// Replays compare hashes, so the function must be deterministic and
	// distinguish different checkout sessions.
	if hash != ComputeResponseHash(body) {
		t.Error("same body must hash identically")
	}
	other := ComputeResponseHash(`{"checkout_url":"https://checkout.stripe.com/c/pay/cs_test_2"}`)
	if hash == other {
		t.Error("different bodies must hash differently")
	}
}
