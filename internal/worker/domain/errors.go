package domain

import "errors"

var (
	// ErrInvalidPayload is returned when a queued message is not a job message
	ErrInvalidPayload = errors.New("invalid job payload")

	// ErrPoolStopped is returned when work is submitted after Stop
	ErrPoolStopped = errors.New("worker pool stopped")

	// ErrNoDispatcher is returned by Submit on an orchestrator built without one
	ErrNoDispatcher = errors.New("no job dispatcher configured")
)

// RetryableError wraps transient errors that should trigger a requeue
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return "retryable error: " + e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError creates a new retryable error
func NewRetryableError(err error) error {
	return &RetryableError{Err: err}
}
