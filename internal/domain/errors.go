package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by repo and service functions when the requested
// record does not exist in the database.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. latitude out of range, inconsistent radius bounds).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrConflict is returned by repo functions when a write loses a race on the
// per-(user, place) unique constraint — e.g. two near-simultaneous pings both
// trying to open a visit for the same pair. The detection engine retries on
// this error; callers of ProcessPing never see it.
var ErrConflict = errors.New("concurrent update conflict")

// validationf wraps ErrValidation with a formatted human-readable message.
func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
