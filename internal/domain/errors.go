package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound is returned when history is requested for an unknown session.
	ErrSessionNotFound = errors.New("chat history not found")
	// ErrBusy is returned when a call is already outstanding for a session.
	ErrBusy = errors.New("a request is already in progress")
	// ErrInvalidTransition is returned for an event the current state does not accept.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrFrameNotFound is returned when a preview frame id is unknown or torn down.
	ErrFrameNotFound = errors.New("preview frame not found")
)

// ValidationError reports a missing or rejected request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s is required", e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// NewValidationError returns a ValidationError for a missing field.
func NewValidationError(field string) *ValidationError {
	return &ValidationError{Field: field}
}

// ModelError reports an upstream model failure. Message is passed through to
// the caller unchanged.
type ModelError struct {
	Op      string
	Message string
	Err     error
}

func (e *ModelError) Error() string {
	return e.Message
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// NewModelError wraps err as a ModelError for op.
func NewModelError(op string, err error) *ModelError {
	return &ModelError{Op: op, Message: err.Error(), Err: err}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsModel reports whether err is a ModelError.
func IsModel(err error) bool {
	var me *ModelError
	return errors.As(err, &me)
}
