package llm

import (
	"errors"
)

// Error types for classifying completion failures. Classification does not
// trigger automatic retries; it tells the caller whether re-issuing the
// same request manually could succeed.

// TransientError represents a temporary failure (network error, 429, 5xx).
type TransientError struct {
	err error
}

func (e *TransientError) Error() string {
	return e.err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.err
}

// NewTransientError wraps an error as transient.
func NewTransientError(err error) error {
	return &TransientError{err: err}
}

// FatalError represents a permanent failure (auth, bad request, malformed
// response).
type FatalError struct {
	err error
}

func (e *FatalError) Error() string {
	return e.err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.err
}

// NewFatalError wraps an error as fatal.
func NewFatalError(err error) error {
	return &FatalError{err: err}
}

// IsTransient returns true if the error is transient.
func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}

// IsFatal returns true if the error is fatal.
func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}
