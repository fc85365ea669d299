package validate

import (
	"errors"
	"regexp"
	"strings"
)

// Email validation errors
var (
	ErrInvalidEmail = errors.New("invalid email format")
)

// emailPattern accepts the common address shapes clients register with.
// It is deliberately looser than RFC 5322; deliverability is settled by
// the mail provider, not here.
var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Email validates a contact address and returns it normalized
// (trimmed, lowercased). Client records store the normalized form so
// lookups are case-insensitive.
func Email(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if email == "" {
		return "", ErrEmpty
	}
	// RFC 5321 length ceilings: 254 total, 64 local part, 255 domain.
	if len(email) > 254 {
		return "", ErrStringTooLong
	}
	if !emailPattern.MatchString(email) {
		return "", ErrInvalidEmail
	}

	local, domain, _ := strings.Cut(email, "@")
	if len(local) > 64 || len(domain) > 255 {
		return "", ErrStringTooLong
	}

	return email, nil
}
