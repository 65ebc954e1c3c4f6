// Package clients provides the instrumented HTTP client used to fetch pages.
package clients

import (
	"errors"
	"fmt"
)

// Client errors are infrastructure failures; callers translate them into
// domain errors.
var (
	// ErrCircuitOpen is returned while the circuit breaker blocks requests.
	ErrCircuitOpen = errors.New("circuit breaker open")

	// ErrMaxRetriesExceeded wraps the last error once every attempt has failed.
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)

// StatusError reports a response whose status is outside the accepted range.
type StatusError struct {
	URL        string
	StatusCode int
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}
