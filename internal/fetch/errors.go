package fetch

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport is the root of every failure to obtain a response body:
	// network errors, non-2xx statuses, oversized bodies and unusable URLs.
	ErrTransport = errors.New("transport error")

	// ErrInvalidProxyAddress is returned when the proxy address format is invalid.
	// Expected format is "host:port".
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")

	// ErrBodyTooLarge is returned when a response exceeds the body size limit.
	ErrBodyTooLarge = errors.New("response body too large")

	// ErrUnsupportedURL is returned for URLs that are not absolute http(s)
	// and cannot be resolved against the referrer.
	ErrUnsupportedURL = errors.New("unsupported url")
)

// StatusError is returned when the server answers with a non-2xx status.
// It matches ErrTransport with errors.Is.
type StatusError struct {
	URL        string
	StatusCode int
}

// Error implements error.
func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d for %s", e.StatusCode, e.URL)
}

// Is reports whether target is ErrTransport.
func (e *StatusError) Is(target error) bool {
	return target == ErrTransport
}
