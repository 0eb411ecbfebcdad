package walker

import (
	"errors"
	"fmt"

	"github.com/nao1215/sitewalker/internal/model"
)

var (
	// ErrQueueEmpty is returned by Step when the site has no pending pages.
	// Callers running a step loop usually treat it as crawl-complete.
	ErrQueueEmpty = errors.New("queue is empty")

	// ErrUnknownProcessor is matched by every *UnknownProcessorError.
	ErrUnknownProcessor = errors.New("unknown processor")

	// ErrStepInProgress is returned when Step is called while another step
	// of the same Manager is still running.
	ErrStepInProgress = errors.New("step already in progress")

	// ErrPageMissing is returned when a queue entry references a page that
	// no longer exists.
	ErrPageMissing = errors.New("queued page not found")
)

// UnknownProcessorError reports a rule whose processor kind has no
// registered implementation.
type UnknownProcessorError struct {
	Rule string
	Kind model.ProcessorKind
}

// Error implements error.
func (e *UnknownProcessorError) Error() string {
	return fmt.Sprintf("unknown processor %q for rule %q", e.Kind, e.Rule)
}

// Unwrap returns ErrUnknownProcessor.
func (e *UnknownProcessorError) Unwrap() error {
	return ErrUnknownProcessor
}
