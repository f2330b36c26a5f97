// Package monitor runs the detection pipeline: frames are hashed by a producer
// goroutine and a single consumer feeds the matching engine and the dispatcher.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cenkalti/backoff/v4"

	"clipwatch/domain/matching"
	"clipwatch/domain/snippet"
	"clipwatch/domain/video"
	"clipwatch/infrastructure/logging"
)

// Submitter receives detection events and reports whether they were emitted
type Submitter interface {
	Submit(event matching.DetectionEvent) bool
}

// Recorder tracks pipeline progress for health reporting
type Recorder interface {
	Start()
	Stop()
	RecordFrame(timestamp float64)
	RecordDetection()
	RecordReconnect()
}

// Preview displays sampled frames; Show returns false when the operator closes it
type Preview interface {
	Show(frame video.Frame, caption string) bool
	Close() error
}

// ProgramClock resolves the absolute program time at which a stream starts
type ProgramClock interface {
	ProgramStart(ctx context.Context, location string) (time.Time, error)
}

// Config controls source handling
type Config struct {
	// Source is the file path or stream URL
	Source string

	// Start is the seek offset in seconds for file sources
	Start float64

	// SampleFPS is the sampling rate of the source, used to continue the timeline after a reconnect
	SampleFPS float64

	// MaxRetries bounds consecutive reconnect attempts for live sources
	MaxRetries int

	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
}

// sample pairs a hashed frame with the frame itself for the preview
type sample struct {
	matching.Sample
	frame video.Frame
}

// Service drives source -> hasher -> engine -> dispatcher
type Service struct {
	cfg        Config
	opener     video.SourceOpener
	hasher     snippet.Hasher
	engine     *matching.Engine
	dispatcher Submitter
	recorder   Recorder
	preview    Preview
	clock      ProgramClock
	out        io.Writer
	log        *logging.Logger
}

// Option is a functional option for configuring Service
type Option func(*Service)

// WithRecorder sets the health recorder
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		s.recorder = r
	}
}

// WithPreview shows every sample in a preview window
func WithPreview(p Preview) Option {
	return func(s *Service) {
		s.preview = p
	}
}

// WithProgramClock aligns HLS sources with EXT-X-PROGRAM-DATE-TIME
func WithProgramClock(c ProgramClock) Option {
	return func(s *Service) {
		s.clock = c
	}
}

// WithLogger sets the pipeline logger
func WithLogger(l *logging.Logger) Option {
	return func(s *Service) {
		s.log = l
	}
}

// NewService creates the pipeline. Detection lines are written to out.
func NewService(cfg Config, opener video.SourceOpener, hasher snippet.Hasher, engine *matching.Engine, dispatcher Submitter, out io.Writer, opts ...Option) *Service {
	if cfg.SampleFPS <= 0 {
		cfg.SampleFPS = 10
	}
	s := &Service{
		cfg:        cfg,
		opener:     opener,
		hasher:     hasher,
		engine:     engine,
		dispatcher: dispatcher,
		recorder:   nopRecorder{},
		out:        out,
		log:        logging.Named("monitor"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run processes the source until it ends, ctx is cancelled or the operator
// closes the preview. Active single-image runs are flushed before returning.
// It returns nil on end-of-stream or cancellation and a *video.StreamReadError
// when a live source cannot be re-established.
func (s *Service) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.recorder.Start()
	defer s.recorder.Stop()

	samples := make(chan sample, 8)
	errc := make(chan error, 1)
	go func() {
		defer close(samples)
		errc <- s.produce(ctx, samples)
	}()

	last := -1.0
	caption := ""
	for smp := range samples {
		if smp.Timestamp < last {
			s.log.Debug().
				Float64("timestamp", smp.Timestamp).
				Float64("previous", last).
				Msg("dropping out-of-order sample")
			continue
		}
		last = smp.Timestamp
		s.recorder.RecordFrame(smp.Timestamp)

		for _, ev := range s.engine.Step(smp.Sample) {
			if s.emit(ev) {
				caption = ev.String()
			}
		}

		if s.preview != nil && !s.preview.Show(smp.frame, caption) {
			s.log.Info().Msg("preview closed, stopping")
			cancel()
		}
	}

	for _, ev := range s.engine.Flush() {
		s.emit(ev)
	}

	return <-errc
}

func (s *Service) emit(ev matching.DetectionEvent) bool {
	if !s.dispatcher.Submit(ev) {
		return false
	}
	fmt.Fprintln(s.out, ev.String())
	s.recorder.RecordDetection()
	s.log.Debug().
		Str("clip", ev.ClipName).
		Float64("start", ev.StartTime).
		Float64("end", ev.EndTime).
		Msg("detection emitted")
	return true
}

// produce reads, hashes and forwards frames, reconnecting live sources
func (s *Service) produce(ctx context.Context, out chan<- sample) error {
	live := video.IsLive(s.cfg.Source)
	start := s.cfg.Start
	step := 1 / s.cfg.SampleFPS

	policy := s.reconnectPolicy()
	attempts := 0
	delivered := false

	for {
		src, offset, err := s.open(ctx, start)
		if err == nil {
			var last float64
			var read bool
			last, read, err = s.pump(ctx, src, offset, out)
			src.Close()
			if read {
				delivered = true
				start = last - offset + step
				attempts = 0
				policy.Reset()
			}
		}

		if ctx.Err() != nil {
			return nil
		}
		if err == nil && live && !video.IsHLS(s.cfg.Source) {
			// a live stream that ends was interrupted upstream
			err = fmt.Errorf("%w: stream ended", video.ErrStreamRead)
		}
		if err == nil {
			return nil
		}

		if !live {
			if delivered {
				s.log.Warn().Err(err).Str("source", s.cfg.Source).Msg("source ended with a read error")
				return nil
			}
			return &video.StreamReadError{Source: s.cfg.Source, Attempts: 1, Err: err}
		}

		attempts++
		wait := policy.NextBackOff()
		if wait == backoff.Stop {
			return &video.StreamReadError{Source: s.cfg.Source, Attempts: attempts, Err: err}
		}

		s.log.Warn().
			Err(err).
			Int("attempt", attempts).
			Dur("retry_in", wait).
			Msg("stream read failed, reconnecting")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
		s.recorder.RecordReconnect()
	}
}

func (s *Service) reconnectPolicy() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.RetryDelay
	if b.InitialInterval <= 0 {
		b.InitialInterval = time.Second
	}
	if s.cfg.MaxRetryDelay > 0 {
		b.MaxInterval = s.cfg.MaxRetryDelay
	}
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithMaxRetries(b, uint64(max(s.cfg.MaxRetries, 0)))
}

// open starts the source at start seconds and returns the offset added to its
// timestamps; HLS sources with program date time are shifted onto program time
func (s *Service) open(ctx context.Context, start float64) (video.FrameSource, float64, error) {
	var offset float64
	if s.clock != nil && video.IsHLS(s.cfg.Source) {
		pdt, err := s.clock.ProgramStart(ctx, s.cfg.Source)
		if err != nil {
			s.log.Warn().Err(err).Msg("program date time unavailable, using stream offsets")
		} else {
			offset = float64(pdt.UnixNano()) / 1e9
			if video.IsLive(s.cfg.Source) {
				start = 0
			}
		}
	}

	src, err := s.opener.Open(ctx, s.cfg.Source, start)
	if err != nil {
		return nil, 0, err
	}
	return src, offset, nil
}

// pump forwards frames until the source ends; it returns the last timestamp
// delivered and whether any frame was delivered
func (s *Service) pump(ctx context.Context, src video.FrameSource, offset float64, out chan<- sample) (float64, bool, error) {
	var last float64
	read := false

	for {
		frame, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return last, read, nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return last, read, nil
			}
			return last, read, err
		}

		h, err := s.hasher.Compute(frame.Image)
		if err != nil {
			s.log.Debug().Err(err).Float64("timestamp", frame.Timestamp).Msg("skipping unhashable frame")
			continue
		}

		frame.Timestamp += offset
		smp := sample{Sample: matching.Sample{Timestamp: frame.Timestamp, Hash: h}, frame: frame}
		select {
		case out <- smp:
			last, read = frame.Timestamp, true
		case <-ctx.Done():
			return last, read, nil
		}
	}
}

type nopRecorder struct{}

func (nopRecorder) Start()              {}
func (nopRecorder) Stop()               {}
func (nopRecorder) RecordFrame(float64) {}
func (nopRecorder) RecordDetection()    {}
func (nopRecorder) RecordReconnect()    {}
