package validation

import (
	"errors"
	"fmt"
)

// ErrUnavailable matches any failure of the validation call itself.
var ErrUnavailable = errors.New("email validation unavailable")

// UnavailableError describes why a validation verdict could not be obtained:
// transport failure, non-2xx status, or a malformed response body.
type UnavailableError struct {
	// StatusCode is the HTTP status when a response was received, 0 otherwise.
	StatusCode int
	Err        error
}

func (e *UnavailableError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", ErrUnavailable, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", ErrUnavailable, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrUnavailable.
func (e *UnavailableError) Is(target error) bool {
	return target == ErrUnavailable
}
