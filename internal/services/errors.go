package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

var (
	// ErrNotFound covers both "does not exist" and "not owned by the
	// caller" so existence never leaks across users.
	ErrNotFound = errors.New("not found")

	ErrUsernameTaken = errors.New("username already taken")
	ErrEmailTaken    = errors.New("email already registered")

	// ErrMissingEmail means the identity provider supplied no email and
	// reconciliation cannot proceed.
	ErrMissingEmail = errors.New("identity has no email address")
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func newValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// isDuplicateKey detects unique-constraint violations across the
// drivers in play (postgres in production, sqlite in tests), including
// setups where the dialect does not translate to gorm.ErrDuplicatedKey.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
