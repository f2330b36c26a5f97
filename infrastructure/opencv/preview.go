//go:build detection

package opencv

import (
	"image"
	"image/color"
	"sync"

	"gocv.io/x/gocv"

	"clipwatch/domain/video"
)

// Preview shows sampled frames in a window with the latest detection overlaid
type Preview struct {
	window *gocv.Window
	mu     sync.Mutex
}

// NewPreview opens the preview window
func NewPreview(title string) (*Preview, error) {
	return &Preview{window: gocv.NewWindow(title)}, nil
}

// Show draws frame with caption and reports false once the operator closes the window or presses q
func (p *Preview) Show(frame video.Frame, caption string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	mat, err := gocv.ImageToMatRGB(frame.Image)
	if err != nil {
		return true
	}
	defer mat.Close()

	if caption != "" {
		gocv.PutText(&mat, caption, image.Pt(4, 14), gocv.FontHersheySimplex, 0.4, color.RGBA{G: 255, A: 255}, 1)
	}
	p.window.IMShow(mat)

	key := p.window.WaitKey(1)
	return key != 'q' && p.window.IsOpen()
}

// Close destroys the window
func (p *Preview) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.window.Close()
}
