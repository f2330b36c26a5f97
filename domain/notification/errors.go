package notification

import (
	"errors"
	"fmt"
)

var (
	// ErrNotification is returned when a sink fails to deliver an event
	ErrNotification = errors.New("notification failed")

	// ErrQueueFull is returned when a sink cannot accept more events without blocking
	ErrQueueFull = errors.New("notification queue full")

	// ErrClosed is returned when submitting to a dispatcher that has shut down
	ErrClosed = errors.New("dispatcher closed")
)

// SendError records which sink failed to deliver which event
type SendError struct {
	Sink     string
	ClipName string
	Err      error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("%v: sink %s, clip %s: %v", ErrNotification, e.Sink, e.ClipName, e.Err)
}

func (e *SendError) Unwrap() []error {
	return []error{ErrNotification, e.Err}
}
