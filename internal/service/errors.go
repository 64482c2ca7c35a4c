package service

import (
	"errors"
)

// Kind classifies service failures.
type Kind string

// Failure kinds.
const (
	KindNotFound              Kind = "not_found"
	KindInvalidEmail          Kind = "invalid_email"
	KindValidationUnavailable Kind = "validation_unavailable"
	KindStore                 Kind = "store"
)

// Error is returned by every UserService operation that fails.
// Reason carries the user id for KindNotFound and the validator's reason
// for KindInvalidEmail. Err holds the underlying cause, if any.
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

// Sentinels for errors.Is; they match any *Error of the same kind.
var (
	ErrUserNotFound          = &Error{Kind: KindNotFound}
	ErrInvalidEmail          = &Error{Kind: KindInvalidEmail}
	ErrValidationUnavailable = &Error{Kind: KindValidationUnavailable}
	ErrStore                 = &Error{Kind: KindStore}
)

func (e *Error) Error() string {
	var msg string
	switch e.Kind {
	case KindNotFound:
		msg = "user not found"
	case KindInvalidEmail:
		msg = "invalid email"
	case KindValidationUnavailable:
		msg = "email validation unavailable"
	case KindStore:
		msg = "store error"
	default:
		msg = "service error"
	}

	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func notFound(id string) error {
	return &Error{Kind: KindNotFound, Reason: id}
}

func invalidEmail(reason string) error {
	return &Error{Kind: KindInvalidEmail, Reason: reason}
}

func validationUnavailable(err error) error {
	return &Error{Kind: KindValidationUnavailable, Err: err}
}

func storeError(err error) error {
	return &Error{Kind: KindStore, Err: err}
}
