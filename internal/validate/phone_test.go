package validate

import (
	"errors"
	"testing"
)

func TestPhone(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{
			name:  "plain digits",
			input: "5551234567",
			want:  "5551234567",
		},
		{
			name:  "international with plus",
			input: "+15551234567",
			want:  "+15551234567",
		},
		{
			name:  "separators stripped",
			input: "+1 (555) 123-4567",
			want:  "+15551234567",
		},
		{
			name:  "dots stripped",
			input: "555.123.4567",
			want:  "5551234567",
		},
		{
			name:    "too short",
			input:   "12345",
			wantErr: ErrInvalidPhone,
		},
		{
			name:    "too long",
			input:   "1234567890123456",
			wantErr: ErrInvalidPhone,
		},
		{
			name:    "letters rejected",
			input:   "555-CALL-NOW",
			wantErr: ErrInvalidPhone,
		},
		{
			name:    "empty",
			input:   "",
			wantErr: ErrEmpty,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Phone(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Phone() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Errorf("Phone() unexpected error: %v", err)
				return
			}
			if got != tt.want {
				t.Errorf("Phone() = %q, want %q", got, tt.want)
			}
		})
	}
}
