package snippet

import (
	"errors"
	"fmt"
)

var (
	// ErrExtraction is returned when keyframes cannot be extracted from a snippet video
	ErrExtraction = errors.New("keyframe extraction failed")

	// ErrEmptySignature is returned when a snippet source yields no usable hashes
	ErrEmptySignature = errors.New("snippet has no usable keyframes")

	// ErrUnknownHashMethod is returned for hash method names that are not supported
	ErrUnknownHashMethod = errors.New("unknown hash method")
)

// BuildError records which snippet path failed to build
type BuildError struct {
	Path string
	Err  error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("snippet %s: %v", e.Path, e.Err)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}
