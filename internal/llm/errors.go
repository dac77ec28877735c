package llm

import (
	"fmt"

	"github.com/pkg/errors"

	"construct-chat/internal/models"
)

var (
	// ErrUnknownBackend is returned when the stored endpoint type names no backend
	ErrUnknownBackend = errors.New("unknown endpoint type")
	// ErrInvalidEndpoint is returned when the normalized endpoint is too short to use
	ErrInvalidEndpoint = errors.New("invalid endpoint")
	// ErrNoGeneration marks every transport or backend failure
	ErrNoGeneration = errors.New("no generation produced")
	// ErrPollTimeout is returned when an async job outlives its poll timeout
	ErrPollTimeout = errors.New("generation poll timed out")
	// ErrStatusUnsupported is returned by backends without a status probe
	ErrStatusUnsupported = errors.New("status check not yet supported for this endpoint type")
)

// GenerationError wraps a backend failure. It matches ErrNoGeneration and
// unwraps to the underlying cause.
type GenerationError struct {
	Backend models.EndpointType
	Err     error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s generation failed: %v", e.Backend, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrNoGeneration
func (e *GenerationError) Is(target error) bool {
	return target == ErrNoGeneration
}

// APIError represents a non-success response from a backend
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend API error (status %d): %s", e.StatusCode, e.Message)
}
