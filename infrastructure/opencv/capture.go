//go:build detection

package opencv

import (
	"context"
	"fmt"
	"image"
	"io"

	"gocv.io/x/gocv"

	"clipwatch/domain/video"
)

// Opener implements video.SourceOpener with gocv.VideoCapture
type Opener struct {
	cfg CaptureConfig
}

// NewOpener creates an OpenCV source opener
func NewOpener(cfg CaptureConfig) (*Opener, error) {
	return &Opener{cfg: cfg}, nil
}

// Open implements video.SourceOpener
func (o *Opener) Open(ctx context.Context, location string, start float64) (video.FrameSource, error) {
	vc, err := gocv.OpenVideoCapture(location)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot open %s: %v", video.ErrStreamRead, location, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("%w: cannot open %s", video.ErrStreamRead, location)
	}

	live := video.IsLive(location)
	if start > 0 && !live {
		vc.Set(gocv.VideoCapturePosMsec, start*1000)
	}

	native := vc.Get(gocv.VideoCaptureFPS)
	return &captureSource{
		vc:     vc,
		mat:    gocv.NewMat(),
		small:  gocv.NewMat(),
		cfg:    o.cfg,
		live:   live,
		start:  start,
		native: native,
		stride: sampleStride(native, o.cfg.SampleFPS),
	}, nil
}

type captureSource struct {
	vc     *gocv.VideoCapture
	mat    gocv.Mat
	small  gocv.Mat
	cfg    CaptureConfig
	live   bool
	start  float64
	native float64
	stride int
	read   int
	closed bool
}

func (s *captureSource) Next(ctx context.Context) (video.Frame, error) {
	for {
		if err := ctx.Err(); err != nil {
			return video.Frame{}, err
		}
		if s.closed {
			return video.Frame{}, io.EOF
		}

		if ok := s.vc.Read(&s.mat); !ok || s.mat.Empty() {
			if s.live {
				return video.Frame{}, fmt.Errorf("%w: capture returned no frame", video.ErrStreamRead)
			}
			return video.Frame{}, io.EOF
		}
		index := s.read
		s.read++
		if index%s.stride != 0 {
			continue
		}

		gocv.Resize(s.mat, &s.small, image.Pt(s.cfg.Width, s.cfg.Height), 0, 0, gocv.InterpolationArea)
		img, err := s.small.ToImage()
		if err != nil {
			return video.Frame{}, fmt.Errorf("%w: %v", video.ErrStreamRead, err)
		}

		return video.Frame{Timestamp: s.timestamp(index), Image: img}, nil
	}
}

// timestamp prefers the container position for files and falls back to the frame count
func (s *captureSource) timestamp(index int) float64 {
	if !s.live {
		if ms := s.vc.Get(gocv.VideoCapturePosMsec); ms > 0 {
			return ms / 1000
		}
	}
	fps := s.native
	if fps <= 0 {
		fps = s.cfg.SampleFPS
	}
	return s.start + float64(index)/fps
}

func (s *captureSource) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.mat.Close()
	s.small.Close()
	return s.vc.Close()
}

// Ensure Opener implements video.SourceOpener
var _ video.SourceOpener = (*Opener)(nil)
