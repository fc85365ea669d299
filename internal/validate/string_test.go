package validate

import (
	"errors"
	"regexp"
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		constraints StringConstraints
		wantErr     error
		wantOutput  string
	}{
		{
			name:  "valid string within length constraints",
			input: "Hello World",
			constraints: StringConstraints{
				MinLength: 5,
				MaxLength: 20,
				TrimSpace: true,
			},
			wantErr:    nil,
			wantOutput: "Hello World",
		},
		{
			name:  "string too short",
			input: "Hi",
			constraints: StringConstraints{
				MinLength: 5,
				MaxLength: 20,
			},
			wantErr: ErrStringTooShort,
		},
		{
			name:  "string too long",
			input: strings.Repeat("a", 101),
			constraints: StringConstraints{
				MinLength: 1,
				MaxLength: 100,
			},
			wantErr: ErrStringTooLong,
		},
		{
			name:  "empty string not allowed",
			input: "",
			constraints: StringConstraints{
				AllowEmpty: false,
			},
			wantErr: ErrEmpty,
		},
		{
			name:  "empty string allowed",
			input: "",
			constraints: StringConstraints{
				AllowEmpty: true,
			},
			wantErr:    nil,
			wantOutput: "",
		},
		{
			name:  "whitespace trimmed before validation",
			input: "   trimmed   ",
			constraints: StringConstraints{
				MinLength: 1,
				MaxLength: 20,
				TrimSpace: true,
			},
			wantErr:    nil,
			wantOutput: "trimmed",
		},
		{
			name:  "pattern mismatch",
			input: "has spaces!",
			constraints: StringConstraints{
				AllowedPattern: mustCompile(`^[a-z]+$`),
			},
			wantErr: ErrInvalidCharacters,
		},
		{
			name:  "multibyte runes counted as characters",
			input: "héllo",
			constraints: StringConstraints{
				MinLength: 5,
				MaxLength: 5,
			},
			wantErr:    nil,
			wantOutput: "héllo",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := String(tt.input, tt.constraints)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("String() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Errorf("String() unexpected error: %v", err)
				return
			}
			if got != tt.wantOutput {
				t.Errorf("String() = %q, want %q", got, tt.wantOutput)
			}
		})
	}
}

func TestSanitizeHTML(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain text unchanged",
			input: "Hello World",
			want:  "Hello World",
		},
		{
			name:  "script tag escaped",
			input: "<script>alert('xss')</script>",
			want:  "&lt;script&gt;alert(&#39;xss&#39;)&lt;/script&gt;",
		},
		{
			name:  "HTML entities escaped",
			input: `<div onclick="evil()">Click me</div>`,
			want:  "&lt;div onclick=&#34;evil()&#34;&gt;Click me&lt;/div&gt;",
		},
		{
			name:  "ampersand escaped",
			input: "Tom & Jerry",
			want:  "Tom &amp; Jerry",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeHTML(tt.input)
			if got != tt.want {
				t.Errorf("SanitizeHTML() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClientName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{
			name:    "valid business name",
			input:   "HealthcarePlus Clinic",
			wantErr: false,
		},
		{
			name:    "valid with ampersand and apostrophe",
			input:   "O'Brien & Sons",
			wantErr: false,
		},
		{
			name:    "too short",
			input:   "A",
			wantErr: true,
		},
		{
			name:    "too long",
			input:   strings.Repeat("a", 101),
			wantErr: true,
		},
		{
			name:    "invalid characters",
			input:   "Acme <Corp>",
			wantErr: true,
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
		{
			name:    "sql injection attempt",
			input:   "x; DROP TABLE clients",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ClientName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ClientName() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && got == "" {
				t.Errorf("ClientName() returned empty string for valid input")
			}
		})
	}
}

func TestTourTitle(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{
			name:    "valid title",
			input:   "Grand Hotel Lobby Walkthrough",
			wantErr: false,
		},
		{
			name:    "max length",
			input:   strings.Repeat("a", 200),
			wantErr: false,
		},
		{
			name:    "over max length",
			input:   strings.Repeat("a", 201),
			wantErr: true,
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
		{
			name:    "whitespace only",
			input:   "   ",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TourTitle(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("TourTitle() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && got == "" {
				t.Errorf("TourTitle() returned empty string for valid input")
			}
		})
	}
}

func TestTicketSubject(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantErr   bool
		checkHTML bool
	}{
		{
			name:    "valid subject",
			input:   "Panorama upload fails with 500",
			wantErr: false,
		},
		{
			name:      "subject with HTML gets escaped",
			input:     "Viewer shows <script> warning",
			wantErr:   false,
			checkHTML: true,
		},
		{
			name:    "subject quoting a SQL error is allowed",
			input:   "Dashboard shows 'SELECT failed' banner",
			wantErr: false,
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
		{
			name:    "over max length",
			input:   strings.Repeat("a", 201),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TicketSubject(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("TicketSubject() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.checkHTML && strings.Contains(got, "<") {
				t.Errorf("TicketSubject() did not escape HTML: got %q", got)
			}
		})
	}
}

func TestSQLKeywordDetection(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{
			name:    "clean string",
			input:   "Grand Hotels Group",
			wantErr: false,
		},
		{
			name:    "standalone SELECT",
			input:   "SELECT something",
			wantErr: true,
		},
		{
			name:    "SQL comment pattern",
			input:   "test -- comment",
			wantErr: true,
		},
		{
			name:    "stored procedure prefix",
			input:   "xp_cmdshell test",
			wantErr: true,
		},
	}

	constraints := StringConstraints{
		MinLength:        1,
		MaxLength:        100,
		CheckSQLKeywords: true,
		TrimSpace:        true,
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := String(tt.input, constraints)
			hasErr := err != nil
			if hasErr != tt.wantErr {
				t.Errorf("String(%q) with SQL keyword check error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

// Helper function for tests
func mustCompile(pattern string) *regexp.Regexp {
	return regexp.MustCompile(pattern)
}
