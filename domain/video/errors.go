package video

import (
	"errors"
	"fmt"
)

// ErrStreamRead is returned when frames cannot be read from the source
var ErrStreamRead = errors.New("stream read failed")

// StreamReadError records a read failure and how many attempts were made
type StreamReadError struct {
	Source   string
	Attempts int
	Err      error
}

func (e *StreamReadError) Error() string {
	return fmt.Sprintf("%v: %s after %d attempt(s): %v", ErrStreamRead, e.Source, e.Attempts, e.Err)
}

func (e *StreamReadError) Unwrap() []error {
	return []error{ErrStreamRead, e.Err}
}
