package suggestion

import (
	"errors"
	"fmt"
)

// Sentinel errors for the remote analysis boundary. The refiner maps HTTP
// failures onto these; everything else is wrapped as a NetworkError.
var (
	ErrAuth      = errors.New("remote analysis requires authentication")
	ErrRateLimit = errors.New("remote analysis rate limited")
)

// ValidationError rejects bad input (empty or oversized text, malformed
// suggestion shapes). It is never surfaced as a crash, only as a rejected
// request or a dropped entry.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

// NewValidationError builds a ValidationError with a formatted reason.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// NetworkError wraps a transient remote failure. Retryable.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return "remote analysis unavailable: " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// StaleError reports that a suggestion's recorded text can no longer be
// found in the live document. Callers drop the suggestion silently rather
// than surfacing an error to the user.
type StaleError struct {
	ID string
}

func (e *StaleError) Error() string {
	return "suggestion " + e.ID + " no longer matches document text"
}

// IsStale reports whether err is a StaleError.
func IsStale(err error) bool {
	var se *StaleError
	return errors.As(err, &se)
}
