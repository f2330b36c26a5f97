package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"clipwatch/domain/snippet"
	"clipwatch/domain/video"
)

// KeyframeInterval is the spacing of intermediate keyframes in seconds
const KeyframeInterval = 1.0

// Extractor implements video.KeyframeExtractor using ffmpeg and ffprobe
type Extractor struct {
	ffmpegPath string
	runner     CommandRunner
	prober     *Prober
}

// ExtractorOption is a functional option for configuring Extractor
type ExtractorOption func(*Extractor)

// WithExtractorFFmpegPath sets a custom ffmpeg executable path
func WithExtractorFFmpegPath(path string) ExtractorOption {
	return func(e *Extractor) {
		e.ffmpegPath = path
	}
}

// WithExtractorCommandRunner sets a custom command runner (for testing)
func WithExtractorCommandRunner(runner CommandRunner) ExtractorOption {
	return func(e *Extractor) {
		e.runner = runner
	}
}

// WithExtractorProber sets the prober used to read snippet durations
func WithExtractorProber(p *Prober) ExtractorOption {
	return func(e *Extractor) {
		e.prober = p
	}
}

// NewExtractor creates a new FFmpeg-based keyframe extractor
func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		ffmpegPath: "ffmpeg",
		runner:     &ExecCommandRunner{},
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.prober == nil {
		e.prober = NewProber(WithProberCommandRunner(e.runner))
	}

	return e
}

// KeyframeTimes returns the sample positions for a clip of the given duration:
// the first frame and every whole second while at least half a second remains
// before the end. The last frame is extracted separately.
func KeyframeTimes(duration float64) []float64 {
	times := []float64{0}
	for t := KeyframeInterval; t <= duration-0.5; t += KeyframeInterval {
		times = append(times, t)
	}
	return times
}

// Extract implements video.KeyframeExtractor. Frames are written to a staging
// directory and moved into outputDir only once extraction succeeded, so a
// cancelled or failed run never leaves a truncated keyframe set behind.
func (e *Extractor) Extract(ctx context.Context, videoPath, outputDir string) (int, error) {
	duration, err := e.prober.Duration(ctx, videoPath)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", snippet.ErrExtraction, err)
	}

	parent := filepath.Dir(outputDir)
	if err := os.MkdirAll(parent, 0755); err != nil {
		return 0, fmt.Errorf("failed to create keyframe directory: %w", err)
	}
	staging, err := os.MkdirTemp(parent, "."+filepath.Base(outputDir)+"-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	written, err := e.extractInto(ctx, videoPath, staging, duration)
	if err != nil {
		return 0, err
	}

	if err := publish(staging, outputDir); err != nil {
		return 0, err
	}
	return written, nil
}

func (e *Extractor) extractInto(ctx context.Context, videoPath, dir string, duration float64) (int, error) {
	written := 0
	index := 1
	for _, t := range KeyframeTimes(duration) {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		out := frameName(dir, index)
		args := []string{
			"-v", "error",
			"-ss", video.FormatTimestamp(t),
			"-i", videoPath,
			"-frames:v", "1",
			"-q:v", "2",
			"-y",
			out,
		}
		if err := e.runner.Run(ctx, e.ffmpegPath, args...); err != nil {
			if ctx.Err() != nil {
				return 0, ctx.Err()
			}
			if t == 0 {
				return 0, fmt.Errorf("%w: cannot decode first frame of %s: %v", snippet.ErrExtraction, videoPath, err)
			}
			continue
		}
		written++
		index++
	}

	if duration > 0.5 {
		// -update overwrites the single output with each decoded frame, leaving the last one
		args := []string{
			"-v", "error",
			"-sseof", "-1",
			"-i", videoPath,
			"-update", "1",
			"-q:v", "2",
			"-y",
			frameName(dir, index),
		}
		if err := e.runner.Run(ctx, e.ffmpegPath, args...); err == nil {
			written++
		}
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	if written == 0 {
		return 0, fmt.Errorf("%w: no decodable frames in %s", snippet.ErrExtraction, videoPath)
	}
	return written, nil
}

// publish moves the extracted frames from staging into dir
func publish(staging, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create keyframe directory: %w", err)
	}
	entries, err := os.ReadDir(staging)
	if err != nil {
		return fmt.Errorf("failed to read staging directory: %w", err)
	}
	for _, entry := range entries {
		if err := os.Rename(filepath.Join(staging, entry.Name()), filepath.Join(dir, entry.Name())); err != nil {
			return fmt.Errorf("failed to move keyframe %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// VerifyInstalled checks that ffmpeg is available
func (e *Extractor) VerifyInstalled(ctx context.Context) error {
	_, err := e.runner.Output(ctx, e.ffmpegPath, "-version")
	if err != nil {
		return fmt.Errorf("ffmpeg not found or not executable: %w", err)
	}
	return e.prober.VerifyInstalled(ctx)
}

func frameName(dir string, index int) string {
	return filepath.Join(dir, fmt.Sprintf("keyframe_%04d.jpg", index))
}

// Ensure Extractor implements video.KeyframeExtractor
var _ video.KeyframeExtractor = (*Extractor)(nil)
