package config

import (
	"errors"
	"fmt"
)

// Configuration validation errors.
// These errors are returned by Config.Validate() and SiteConfig.Validate().
var (
	// ErrInvalidTimeout is returned when the request timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidInterval is returned when the request interval is negative.
	// Use 0 to disable throttling.
	ErrInvalidInterval = errors.New("invalid request interval: must be non-negative")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrNoDBDir is returned when no database directory is configured.
	ErrNoDBDir = errors.New("no database directory configured")

	// ErrInvalidSiteConfig is the parent of every site file validation failure.
	// Use errors.As with *ValidationError to get the offending field.
	ErrInvalidSiteConfig = errors.New("invalid site config")
)

// ValidationError describes one invalid field of a site file.
type ValidationError struct {
	// Field is a path such as "walkers[1].urlPattern".
	Field string

	// Reason explains what is wrong with the field.
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrInvalidSiteConfig, e.Field, e.Reason)
}

// Unwrap allows errors.Is(err, ErrInvalidSiteConfig).
func (e *ValidationError) Unwrap() error {
	return ErrInvalidSiteConfig
}

// invalid is shorthand for building a *ValidationError.
func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
