package validate

import (
	"errors"
	"regexp"
	"strings"
)

// Phone validation errors
var (
	ErrInvalidPhone = errors.New("invalid phone number format")
)

// phonePattern accepts international numbers with an optional leading +
// and 7-15 digits (ITU E.164), after separators are stripped.
var phonePattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

// phoneSeparators are the punctuation characters tolerated in input.
var phoneSeparators = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")

// Phone validates a phone number. Returns the normalized number (digits
// with optional leading +) and an error if invalid. Empty input is an
// error; callers treat phone as optional by skipping validation.
func Phone(phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", ErrEmpty
	}

	normalized := phoneSeparators.Replace(phone)
	if !phonePattern.MatchString(normalized) {
		return "", ErrInvalidPhone
	}
	return normalized, nil
}
