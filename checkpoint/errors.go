package checkpoint

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Sentinel errors for checkpoint operations.
var (
	// ErrNotFound indicates no snapshot exists for the session.
	ErrNotFound = errors.New("checkpoint not found")

	// ErrInvalidSnapshot indicates a snapshot failed structural validation
	// before being written.
	ErrInvalidSnapshot = errors.New("invalid snapshot")
)

// CorruptedError reports a snapshot that exists but cannot be parsed.
// The corrupted source is left in place for inspection; it is never
// deleted by this package.
type CorruptedError struct {
	// SessionID is the session whose snapshot is corrupted.
	SessionID uuid.UUID

	// Source identifies where the snapshot was read from (file path or
	// table name).
	Source string

	// Err is the underlying parse error.
	Err error
}

// Error returns a formatted error message.
func (e *CorruptedError) Error() string {
	return fmt.Sprintf("corrupted checkpoint for session %s at %s: %v", e.SessionID, e.Source, e.Err)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *CorruptedError) Unwrap() error {
	return e.Err
}

// IsCorrupted reports whether err is a *CorruptedError.
func IsCorrupted(err error) bool {
	var ce *CorruptedError
	return errors.As(err, &ce)
}
