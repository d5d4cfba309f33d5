package registry

import (
	"errors"
)

// Error types for classifying registry errors.

// ErrNotFound indicates an ID that does not exist in the registry. Resolved,
// not retried: the answer is "absent", and validators report it as a
// consistency failure.
var ErrNotFound = errors.New("id not found in registry")

// ErrUnavailable indicates the registry could not be reached at all within
// the run's deadline. The run fails closed rather than passing on partial
// data.
var ErrUnavailable = errors.New("registry unavailable")

// TransientError represents a temporary error that may succeed on retry.
type TransientError struct {
	err error
}

func (e *TransientError) Error() string {
	return e.err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.err
}

// NewTransientError wraps an error as transient (retryable).
func NewTransientError(err error) error {
	return &TransientError{err: err}
}

// FatalError represents a permanent error that should not be retried.
type FatalError struct {
	err error
}

func (e *FatalError) Error() string {
	return e.err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.err
}

// NewFatalError wraps an error as fatal (non-retryable).
func NewFatalError(err error) error {
	return &FatalError{err: err}
}

// IsTransient returns true if the error is transient and should be retried.
func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}

// IsFatal returns true if the error is fatal and should not be retried.
func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}
