// Package opencv decodes sources and shows the live preview through GoCV.
// Both need a binary built with -tags=detection; otherwise the constructors
// return ErrUnavailable.
package opencv

import "errors"

// ErrUnavailable is returned when the binary was built without GoCV
var ErrUnavailable = errors.New("opencv support requires a build with -tags=detection")

// CaptureConfig controls frame sampling for the OpenCV capture backend
type CaptureConfig struct {
	SampleFPS float64
	Width     int
	Height    int
}

// sampleStride returns how many native frames to advance per sample
func sampleStride(nativeFPS, sampleFPS float64) int {
	if nativeFPS <= 0 || sampleFPS <= 0 || sampleFPS >= nativeFPS {
		return 1
	}
	n := int(nativeFPS/sampleFPS + 0.5)
	if n < 1 {
		return 1
	}
	return n
}
