package middleware

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Input limits for user payloads.
const (
	// MaxNameLength is the maximum length of a display name, in runes.
	MaxNameLength = 200

	// MaxEmailLength is the maximum length of an email address (RFC 5321 path limit).
	MaxEmailLength = 254
)

// Input validation errors.
var (
	ErrNameRequired     = errors.New("name is required")
	ErrNameTooLong      = errors.New("name exceeds maximum length")
	ErrEmailRequired    = errors.New("email is required")
	ErrEmailTooLong     = errors.New("email exceeds maximum length")
	ErrControlCharacter = errors.New("value contains control characters")
)

// ValidateUserInput checks the shape of a user payload.
// It does not judge whether the address is deliverable; that verdict
// belongs to the external validation API.
func ValidateUserInput(name, email string) error {
	if strings.TrimSpace(name) == "" {
		return ErrNameRequired
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return ErrNameTooLong
	}

	if strings.TrimSpace(email) == "" {
		return ErrEmailRequired
	}
	if len(email) > MaxEmailLength {
		return ErrEmailTooLong
	}

	if hasControl(name) || hasControl(email) {
		return ErrControlCharacter
	}

	return nil
}

func hasControl(s string) bool {
	for _, r := range s {
		if unicode.IsControl(r) {
			return true
		}
	}
	return false
}
