package ctxbudget

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Common errors
var (
	// ErrInvalidConfig is returned when the manager configuration is invalid
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidContent is returned when tracked content is empty
	ErrInvalidContent = errors.New("invalid content")

	// ErrEmergencyStop is returned when the emergency guard halts the session
	ErrEmergencyStop = errors.New("emergency stop")

	// ErrNoCheckpointStore is returned when a checkpoint operation is
	// requested but no store was configured
	ErrNoCheckpointStore = errors.New("no checkpoint store configured")
)

// SessionError represents an error with additional session context
type SessionError struct {
	Op        string         // Operation that failed
	Err       error          // Underlying error
	SessionID uuid.UUID      // Session ID if applicable
	Context   map[string]any // Additional context
}

// Error implements the error interface
func (e *SessionError) Error() string {
	if e.SessionID != uuid.Nil {
		return fmt.Sprintf("%s (session=%s): %v", e.Op, e.SessionID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *SessionError) Unwrap() error {
	return e.Err
}

// WithSession attaches the session ID to the error
func (e *SessionError) WithSession(id uuid.UUID) *SessionError {
	e.SessionID = id
	return e
}

// WithContext adds additional context to the error
func (e *SessionError) WithContext(key string, value any) *SessionError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// NewSessionError creates a new SessionError
func NewSessionError(op string, err error) *SessionError {
	return &SessionError{
		Op:  op,
		Err: err,
	}
}
