//go:build !detection

package opencv

import (
	"context"

	"clipwatch/domain/video"
)

// Opener is a stub when GoCV is not compiled in
type Opener struct{}

// NewOpener returns ErrUnavailable (requires building with -tags=detection)
func NewOpener(cfg CaptureConfig) (*Opener, error) {
	return nil, ErrUnavailable
}

// Open returns ErrUnavailable
func (o *Opener) Open(ctx context.Context, location string, start float64) (video.FrameSource, error) {
	return nil, ErrUnavailable
}

// Preview is a stub when GoCV is not compiled in
type Preview struct{}

// NewPreview returns ErrUnavailable (requires building with -tags=detection)
func NewPreview(title string) (*Preview, error) {
	return nil, ErrUnavailable
}

// Show is a no-op
func (p *Preview) Show(frame video.Frame, caption string) bool {
	return true
}

// Close is a no-op
func (p *Preview) Close() error {
	return nil
}

// Ensure Opener implements video.SourceOpener
var _ video.SourceOpener = (*Opener)(nil)
