//go:build detection

package imagehash

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"clipwatch/domain/snippet"

	"gocv.io/x/gocv"
	"gocv.io/x/gocv/contrib"
)

// cvHasher computes hashes with OpenCV's img_hash module
type cvHasher struct {
	method snippet.Method
	impl   contrib.ImgHashBase
	mu     sync.Mutex
}

// newBackend uses OpenCV for every method when GoCV is compiled in
func newBackend(method snippet.Method) (snippet.Hasher, error) {
	var impl contrib.ImgHashBase
	switch method {
	case snippet.MethodPHash:
		impl = contrib.PHash{}
	case snippet.MethodAverage:
		impl = contrib.AverageHash{}
	case snippet.MethodMarr:
		impl = contrib.NewMarrHildrethHash()
	case snippet.MethodRadial:
		impl = contrib.NewRadialVarianceHash()
	default:
		return nil, fmt.Errorf("%w: %s", snippet.ErrUnknownHashMethod, method)
	}
	return &cvHasher{method: method, impl: impl}, nil
}

func (h *cvHasher) Method() snippet.Method {
	return h.method
}

func (h *cvHasher) Backend() string {
	return "opencv"
}

func (h *cvHasher) Compute(img image.Image) (snippet.Hash, error) {
	if img == nil {
		return nil, errors.New("cannot hash nil image")
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("failed to convert image: %w", err)
	}
	defer mat.Close()

	return h.ComputeMat(mat)
}

// ComputeMat hashes a frame already decoded by OpenCV
func (h *cvHasher) ComputeMat(mat gocv.Mat) (snippet.Hash, error) {
	if mat.Empty() {
		return nil, errors.New("cannot hash empty frame")
	}

	out := gocv.NewMat()
	defer out.Close()

	h.mu.Lock()
	h.impl.Compute(mat, &out)
	h.mu.Unlock()

	b := out.ToBytes()
	if len(b) == 0 {
		return nil, fmt.Errorf("%s hash produced no output", h.method)
	}
	return snippet.Hash(b).Clone(), nil
}

func (h *cvHasher) Distance(a, b snippet.Hash) int {
	return snippet.HammingDistance(a, b)
}

// Ensure cvHasher implements snippet.Hasher
var _ snippet.Hasher = (*cvHasher)(nil)
