// Package imagehash provides perceptual hash implementations for snippet matching
package imagehash

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"

	"clipwatch/domain/snippet"

	"github.com/corona10/goimagehash"
)

// ErrUnavailable is returned for hash methods that need a backend not compiled into this binary
var ErrUnavailable = errors.New("hash method not available in this build")

// New returns the hasher for a method, preferring OpenCV when the binary was built with it
func New(method snippet.Method) (snippet.Hasher, error) {
	if _, err := snippet.ParseMethod(method.String()); err != nil {
		return nil, err
	}
	return newBackend(method)
}

// Available lists the methods this build can compute
func Available() []snippet.Method {
	var out []snippet.Method
	for _, m := range snippet.Methods() {
		if _, err := newBackend(m); err == nil {
			out = append(out, m)
		}
	}
	return out
}

// goHasher computes 64-bit hashes in pure Go
type goHasher struct {
	method  snippet.Method
	compute func(image.Image) (*goimagehash.ImageHash, error)
}

// NewGoHasher returns a pure-Go hasher for phash or average
func NewGoHasher(method snippet.Method) (snippet.Hasher, error) {
	switch method {
	case snippet.MethodPHash:
		return &goHasher{method: method, compute: goimagehash.PerceptionHash}, nil
	case snippet.MethodAverage:
		return &goHasher{method: method, compute: goimagehash.AverageHash}, nil
	default:
		return nil, fmt.Errorf("%w: %s requires a build with -tags=detection and OpenCV/GoCV", ErrUnavailable, method)
	}
}

func (h *goHasher) Method() snippet.Method {
	return h.method
}

// Backend identifies goimagehash output, which differs from OpenCV img_hash for the same method
func (h *goHasher) Backend() string {
	return "goimagehash"
}

func (h *goHasher) Compute(img image.Image) (snippet.Hash, error) {
	if img == nil {
		return nil, errors.New("cannot hash nil image")
	}
	ih, err := h.compute(img)
	if err != nil {
		return nil, fmt.Errorf("%s hash failed: %w", h.method, err)
	}

	out := make(snippet.Hash, 8)
	binary.BigEndian.PutUint64(out, ih.GetHash())
	return out, nil
}

func (h *goHasher) Distance(a, b snippet.Hash) int {
	return snippet.HammingDistance(a, b)
}

// Ensure goHasher implements snippet.Hasher
var _ snippet.Hasher = (*goHasher)(nil)
