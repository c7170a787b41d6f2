package gateway

import (
	"errors"
	"fmt"
)

// ErrMissingVersion is returned when a version endpoint answers without one.
var ErrMissingVersion = errors.New("gateway: response carries no version")

// TransportError is a failure below the envelope: connection, timeout,
// rate limiter, open breaker, or a non-2xx HTTP status.
type TransportError struct {
	// Op is "<METHOD> <path>".
	Op string
	// StatusCode is the HTTP status code, 0 for connection-level errors.
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("gateway: %s: HTTP %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("gateway: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// VersionCheckError is a failed startup version check.
type VersionCheckError struct {
	Endpoint string
	Err      error
}

func (e *VersionCheckError) Error() string {
	return fmt.Sprintf("gateway: version check %s: %v", e.Endpoint, e.Err)
}

func (e *VersionCheckError) Unwrap() error {
	return e.Err
}

// IsTransport checks if err is a *TransportError.
func IsTransport(err error) bool {
	var e *TransportError
	return errors.As(err, &e)
}

// IsVersionCheck checks if err is a *VersionCheckError.
func IsVersionCheck(err error) bool {
	var e *VersionCheckError
	return errors.As(err, &e)
}
