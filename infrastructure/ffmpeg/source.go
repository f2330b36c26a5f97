package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"strconv"

	"clipwatch/domain/video"
)

// SourceConfig controls how the monitored source is decoded
type SourceConfig struct {
	FFmpegPath string
	SampleFPS  float64
	Width      int
	Height     int
}

// Opener implements video.SourceOpener by decoding raw RGB frames from an ffmpeg pipe
type Opener struct {
	cfg    SourceConfig
	runner StreamRunner
}

// OpenerOption is a functional option for configuring Opener
type OpenerOption func(*Opener)

// WithStreamRunner sets a custom process runner (for testing)
func WithStreamRunner(runner StreamRunner) OpenerOption {
	return func(o *Opener) {
		o.runner = runner
	}
}

// NewOpener creates a frame source opener
func NewOpener(cfg SourceConfig, opts ...OpenerOption) *Opener {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.SampleFPS <= 0 {
		cfg.SampleFPS = 10
	}
	if cfg.Width <= 0 {
		cfg.Width = 160
	}
	if cfg.Height <= 0 {
		cfg.Height = 160
	}

	o := &Opener{cfg: cfg, runner: &ExecCommandRunner{}}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Args returns the ffmpeg arguments used to decode location from start seconds
func (o *Opener) Args(location string, start float64) []string {
	args := []string{"-v", "error", "-nostdin"}
	if start > 0 && !video.IsLive(location) {
		args = append(args, "-ss", video.FormatTimestamp(start))
	}
	if video.IsLive(location) {
		args = append(args, "-rw_timeout", "15000000")
	}
	args = append(args,
		"-i", location,
		"-an",
		"-vf", fmt.Sprintf("fps=%s,scale=%d:%d", strconv.FormatFloat(o.cfg.SampleFPS, 'f', -1, 64), o.cfg.Width, o.cfg.Height),
		"-pix_fmt", "rgb24",
		"-f", "rawvideo",
		"pipe:1",
	)
	return args
}

// Open implements video.SourceOpener
func (o *Opener) Open(ctx context.Context, location string, start float64) (video.FrameSource, error) {
	proc, err := o.runner.Start(ctx, o.cfg.FFmpegPath, o.Args(location, start)...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", video.ErrStreamRead, err)
	}

	return &rawSource{
		proc:   proc,
		start:  start,
		fps:    o.cfg.SampleFPS,
		width:  o.cfg.Width,
		height: o.cfg.Height,
		buf:    make([]byte, o.cfg.Width*o.cfg.Height*3),
	}, nil
}

// rawSource reads fixed-size rgb24 frames from an ffmpeg process
type rawSource struct {
	proc   Process
	start  float64
	fps    float64
	width  int
	height int
	buf    []byte
	index  int
	done   bool
}

func (s *rawSource) Next(ctx context.Context) (video.Frame, error) {
	if s.done {
		return video.Frame{}, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return video.Frame{}, err
	}

	if _, err := io.ReadFull(s.proc.Stdout(), s.buf); err != nil {
		s.done = true
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			if werr := s.proc.Wait(); werr != nil {
				if ctx.Err() != nil {
					return video.Frame{}, ctx.Err()
				}
				return video.Frame{}, fmt.Errorf("%w: ffmpeg exited: %v", video.ErrStreamRead, werr)
			}
			return video.Frame{}, io.EOF
		}
		return video.Frame{}, fmt.Errorf("%w: %v", video.ErrStreamRead, err)
	}

	frame := video.Frame{
		Timestamp: s.start + float64(s.index)/s.fps,
		Image:     toRGBA(s.buf, s.width, s.height),
	}
	s.index++
	return frame, nil
}

func (s *rawSource) Close() error {
	if s.done {
		return nil
	}
	s.done = true
	_ = s.proc.Kill()
	_ = s.proc.Wait()
	return nil
}

// toRGBA copies packed rgb24 pixels into a new image
func toRGBA(rgb []byte, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i, j := 0, 0; i+2 < len(rgb); i, j = i+3, j+4 {
		img.Pix[j] = rgb[i]
		img.Pix[j+1] = rgb[i+1]
		img.Pix[j+2] = rgb[i+2]
		img.Pix[j+3] = 0xff
	}
	return img
}

// Ensure Opener implements video.SourceOpener
var _ video.SourceOpener = (*Opener)(nil)
