package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clipwatch/domain/snippet"
)

// mockRunner records ffmpeg calls and answers ffprobe queries
type mockRunner struct {
	duration string
	probeErr error
	failAt   map[string]bool // -ss values that fail
	failLast bool
	calls    [][]string
	afterRun func(call int)
}

func (m *mockRunner) Run(ctx context.Context, name string, args ...string) error {
	m.calls = append(m.calls, append([]string{name}, args...))
	if m.afterRun != nil {
		defer m.afterRun(len(m.calls))
	}

	for i, a := range args {
		if a == "-ss" && m.failAt[args[i+1]] {
			return errors.New("decode error")
		}
		if a == "-sseof" && m.failLast {
			return errors.New("decode error")
		}
	}

	out := args[len(args)-1]
	return os.WriteFile(out, []byte("jpeg"), 0644)
}

func (m *mockRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	if m.probeErr != nil {
		return nil, m.probeErr
	}
	return []byte(m.duration + "\n"), nil
}

func TestKeyframeTimes(t *testing.T) {
	cases := []struct {
		duration float64
		want     []float64
	}{
		{0.3, []float64{0}},
		{2.0, []float64{0, 1}},
		{3.7, []float64{0, 1, 2, 3}},
	}
	for _, c := range cases {
		got := KeyframeTimes(c.duration)
		if fmt.Sprint(got) != fmt.Sprint(c.want) {
			t.Errorf("KeyframeTimes(%v) = %v, want %v", c.duration, got, c.want)
		}
	}
}

func TestExtractor(t *testing.T) {
	t.Run("extracts first, per-second and last frames", func(t *testing.T) {
		runner := &mockRunner{duration: "3.2"}
		e := NewExtractor(WithExtractorCommandRunner(runner))
		dir := filepath.Join(t.TempDir(), "intro_frames")

		n, err := e.Extract(context.Background(), "intro.mp4", dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != 4 {
			t.Errorf("expected 4 keyframes, got %d", n)
		}

		entries, _ := os.ReadDir(dir)
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		want := "keyframe_0001.jpg keyframe_0002.jpg keyframe_0003.jpg keyframe_0004.jpg"
		if strings.Join(names, " ") != want {
			t.Errorf("unexpected files %v", names)
		}

		first := strings.Join(runner.calls[0], " ")
		if !strings.Contains(first, "-ss 00:00:00.000 -i intro.mp4 -frames:v 1") {
			t.Errorf("unexpected first call %q", first)
		}
		last := strings.Join(runner.calls[len(runner.calls)-1], " ")
		if !strings.Contains(last, "-sseof -1 -i intro.mp4 -update 1") {
			t.Errorf("unexpected last call %q", last)
		}
	})

	t.Run("skips undecodable intermediate frames without gaps in names", func(t *testing.T) {
		runner := &mockRunner{duration: "3.0", failAt: map[string]bool{"00:00:01.000": true}}
		e := NewExtractor(WithExtractorCommandRunner(runner))
		dir := t.TempDir()

		n, err := e.Extract(context.Background(), "intro.mp4", dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != 3 {
			t.Errorf("expected 3 keyframes, got %d", n)
		}
		if _, err := os.Stat(filepath.Join(dir, "keyframe_0003.jpg")); err != nil {
			t.Errorf("expected contiguous numbering: %v", err)
		}
	})

	t.Run("unreadable video is an extraction error", func(t *testing.T) {
		runner := &mockRunner{probeErr: errors.New("Invalid data found when processing input")}
		e := NewExtractor(WithExtractorCommandRunner(runner))

		_, err := e.Extract(context.Background(), "broken.mp4", t.TempDir())
		if !errors.Is(err, snippet.ErrExtraction) {
			t.Errorf("expected ErrExtraction, got %v", err)
		}
	})

	t.Run("undecodable first frame is an extraction error", func(t *testing.T) {
		runner := &mockRunner{duration: "2.0", failAt: map[string]bool{"00:00:00.000": true}}
		e := NewExtractor(WithExtractorCommandRunner(runner))

		_, err := e.Extract(context.Background(), "broken.mp4", t.TempDir())
		if !errors.Is(err, snippet.ErrExtraction) {
			t.Errorf("expected ErrExtraction, got %v", err)
		}
	})
}

func TestExtractorCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := &mockRunner{duration: "5.0"}
	runner.afterRun = func(call int) {
		if call == 2 {
			cancel()
		}
	}
	e := NewExtractor(WithExtractorCommandRunner(runner))
	parent := t.TempDir()
	dir := filepath.Join(parent, "intro_frames")

	if _, err := e.Extract(ctx, "intro.mp4", dir); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	if entries, err := os.ReadDir(dir); err == nil && len(entries) > 0 {
		t.Errorf("cancelled extraction left %d files in %s", len(entries), dir)
	}
	leftovers, _ := os.ReadDir(parent)
	if len(leftovers) != 0 {
		t.Errorf("expected staging directory to be removed, found %v", leftovers)
	}
}

func TestProber(t *testing.T) {
	p := NewProber(WithProberCommandRunner(&mockRunner{duration: "N/A"}))
	if _, err := p.Duration(context.Background(), "live.ts"); err == nil {
		t.Error("expected error for missing duration")
	}

	p = NewProber(WithProberCommandRunner(&mockRunner{duration: "12.480000"}))
	d, err := p.Duration(context.Background(), "clip.mp4")
	if err != nil || d != 12.48 {
		t.Errorf("expected 12.48, got %v (%v)", d, err)
	}
}
