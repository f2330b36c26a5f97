package registry

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"clipwatch/domain/snippet"
	"clipwatch/infrastructure/cache"
	"clipwatch/infrastructure/imagehash"
	"clipwatch/infrastructure/logging"
)

// pattern draws alternating blocks; each block size gives a distinct hash
func pattern(block int) image.Image {
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			if (x/block+y/block)%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

// fakeExtractor writes one PNG per block size into the output directory
type fakeExtractor struct {
	blocks []int
	err    error
	calls  int
}

func (f *fakeExtractor) Extract(ctx context.Context, videoPath, outputDir string) (int, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return 0, err
	}
	for i, b := range f.blocks {
		img := pattern(b)
		path := filepath.Join(outputDir, fmt.Sprintf("keyframe_%04d.png", i+1))
		file, err := os.Create(path)
		if err != nil {
			return i, err
		}
		png.Encode(file, img)
		file.Close()
	}
	return len(f.blocks), nil
}

func newTestService(t *testing.T, ext *fakeExtractor, opts ...Option) *Service {
	t.Helper()
	h, err := imagehash.NewGoHasher(snippet.MethodPHash)
	if err != nil {
		t.Fatal(err)
	}
	opts = append([]Option{WithLogger(logging.Nop())}, opts...)
	return NewService(h, ext, opts...)
}

func writeVideo(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("not really a video"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBuildVideo(t *testing.T) {
	t.Run("extracts into sibling keyframe directory", func(t *testing.T) {
		dir := t.TempDir()
		video := writeVideo(t, dir, "intro.mp4")
		ext := &fakeExtractor{blocks: []int{4, 8, 16}}
		svc := newTestService(t, ext)

		sn, err := svc.Build(context.Background(), video)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if sn.Name != "intro.mp4" || sn.Kind != snippet.KindSequence || sn.Len() != 3 {
			t.Errorf("unexpected snippet %+v (len %d)", sn, sn.Len())
		}
		if sn.Source != video {
			t.Errorf("expected source %s, got %s", video, sn.Source)
		}
		if _, err := os.Stat(filepath.Join(dir, "intro_frames", "keyframe_0001.png")); err != nil {
			t.Errorf("expected keyframes next to the video: %v", err)
		}
		if _, err := os.Stat(filepath.Join(dir, "intro_frames", cache.FileName)); err != nil {
			t.Errorf("expected hash cache to be written: %v", err)
		}
	})

	t.Run("reuses existing keyframes", func(t *testing.T) {
		dir := t.TempDir()
		video := writeVideo(t, dir, "intro.mp4")
		ext := &fakeExtractor{blocks: []int{4, 8}}
		svc := newTestService(t, ext)

		svc.Build(context.Background(), video)
		svc.Build(context.Background(), video)
		if ext.calls != 1 {
			t.Errorf("expected one extraction, got %d", ext.calls)
		}
	})

	t.Run("frames root override", func(t *testing.T) {
		dir := t.TempDir()
		root := t.TempDir()
		video := writeVideo(t, dir, "outro.mkv")
		svc := newTestService(t, &fakeExtractor{blocks: []int{4}}, WithFramesRoot(root))

		if _, err := svc.Build(context.Background(), video); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := os.Stat(filepath.Join(root, "outro_frames")); err != nil {
			t.Errorf("expected keyframes under frames root: %v", err)
		}
	})

	t.Run("extraction failure", func(t *testing.T) {
		dir := t.TempDir()
		video := writeVideo(t, dir, "broken.mp4")
		svc := newTestService(t, &fakeExtractor{err: errors.New("moov atom not found")})

		_, err := svc.Build(context.Background(), video)
		if !errors.Is(err, snippet.ErrExtraction) {
			t.Errorf("expected ErrExtraction, got %v", err)
		}
		var be *snippet.BuildError
		if !errors.As(err, &be) || be.Path != video {
			t.Errorf("expected BuildError for %s, got %v", video, err)
		}
	})
}

func TestBuildDirectory(t *testing.T) {
	t.Run("natural order", func(t *testing.T) {
		dir := t.TempDir()
		frames := filepath.Join(dir, "logo_frames")
		os.Mkdir(frames, 0755)
		writePNG(t, filepath.Join(frames, "frame_10.png"), pattern(16))
		writePNG(t, filepath.Join(frames, "frame_2.png"), pattern(8))
		writePNG(t, filepath.Join(frames, "frame_1.png"), pattern(4))

		svc := newTestService(t, &fakeExtractor{})
		sn, err := svc.Build(context.Background(), frames)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		h, _ := imagehash.NewGoHasher(snippet.MethodPHash)
		for i, block := range []int{4, 8, 16} {
			want, _ := h.Compute(pattern(block))
			if !sn.Keyframe(i).Equal(want) {
				t.Errorf("keyframe %d out of order", i)
			}
		}
	})

	t.Run("undecodable files are skipped", func(t *testing.T) {
		dir := t.TempDir()
		writePNG(t, filepath.Join(dir, "a.png"), pattern(4))
		os.WriteFile(filepath.Join(dir, "b.jpg"), []byte("garbage"), 0644)

		sn, err := newTestService(t, &fakeExtractor{}).Build(context.Background(), dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if sn.Len() != 1 {
			t.Errorf("expected 1 keyframe, got %d", sn.Len())
		}
	})

	t.Run("empty directory", func(t *testing.T) {
		_, err := newTestService(t, &fakeExtractor{}).Build(context.Background(), t.TempDir())
		if !errors.Is(err, snippet.ErrEmptySignature) {
			t.Errorf("expected ErrEmptySignature, got %v", err)
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		dir := t.TempDir()
		for i, b := range []int{2, 4, 8, 16} {
			writePNG(t, filepath.Join(dir, fmt.Sprintf("k%d.png", i)), pattern(b))
		}
		svc := newTestService(t, &fakeExtractor{})

		first, err := svc.Build(context.Background(), dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		// second build is served from the hash cache
		second, err := svc.Build(context.Background(), dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		uncached, _ := newTestService(t, &fakeExtractor{}, WithoutCache()).Build(context.Background(), dir)

		for _, other := range []snippet.Snippet{second, uncached} {
			if other.Len() != first.Len() {
				t.Fatalf("length differs: %d vs %d", other.Len(), first.Len())
			}
			for i := 0; i < first.Len(); i++ {
				if !first.Keyframe(i).Equal(other.Keyframe(i)) {
					t.Errorf("keyframe %d differs", i)
				}
			}
		}
	})
}

// constantHasher claims phash but returns fixed bytes, like a second phash backend would
type constantHasher struct {
	hash snippet.Hash
}

func (h *constantHasher) Method() snippet.Method { return snippet.MethodPHash }

func (h *constantHasher) Compute(img image.Image) (snippet.Hash, error) {
	return h.hash.Clone(), nil
}

func (h *constantHasher) Distance(a, b snippet.Hash) int { return snippet.HammingDistance(a, b) }

func (h *constantHasher) Backend() string { return "constant" }

func TestHashCacheBackend(t *testing.T) {
	dir := t.TempDir()
	for i, b := range []int{2, 4} {
		writePNG(t, filepath.Join(dir, fmt.Sprintf("k%d.png", i)), pattern(b))
	}

	goHashes, err := newTestService(t, &fakeExtractor{}).Hashes(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := snippet.Hash{0xab, 0xcd}
	other := NewService(&constantHasher{hash: want}, &fakeExtractor{}, WithLogger(logging.Nop()))
	got, err := other.Hashes(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := range got {
		if !got[i].Equal(want) {
			t.Errorf("keyframe %d: got %s from cache written by another backend (go hash %s), want %s", i, got[i], goHashes[i], want)
		}
	}

	// the cache now belongs to the other backend; the go hasher must recompute
	again, err := newTestService(t, &fakeExtractor{}).Hashes(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range again {
		if !again[i].Equal(goHashes[i]) {
			t.Errorf("keyframe %d: got %s, want %s", i, again[i], goHashes[i])
		}
	}
}

func TestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	video := writeVideo(t, dir, "promo.mp4")
	svc := newTestService(t, &fakeExtractor{blocks: []int{2, 4, 8, 16, 32}})

	fromVideo, err := svc.Build(context.Background(), video)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fromDir, err := newTestService(t, &fakeExtractor{}, WithoutCache()).Build(context.Background(), filepath.Join(dir, "promo_frames"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if fromVideo.Len() != fromDir.Len() {
		t.Fatalf("length differs: %d vs %d", fromVideo.Len(), fromDir.Len())
	}
	for i := 0; i < fromVideo.Len(); i++ {
		if !fromVideo.Keyframe(i).Equal(fromDir.Keyframe(i)) {
			t.Errorf("keyframe %d differs", i)
		}
	}
}

func TestBuildImage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "logo.png")
	writePNG(t, path, pattern(8))

	sn, err := newTestService(t, &fakeExtractor{}, WithImageMinDuration(2.5)).Build(context.Background(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sn.Kind != snippet.KindSingleImage || sn.Len() != 1 || sn.MinDuration() != 2.5 {
		t.Errorf("unexpected snippet %+v", sn)
	}
}

func TestBuildAll(t *testing.T) {
	t.Run("skips failures", func(t *testing.T) {
		dir := t.TempDir()
		img := filepath.Join(dir, "logo.png")
		writePNG(t, img, pattern(8))

		got, err := newTestService(t, &fakeExtractor{}).BuildAll(context.Background(), []string{
			filepath.Join(dir, "missing.mp4"),
			img,
			t.TempDir(),
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 1 || got[0].Name != "logo.png" {
			t.Errorf("unexpected snippets %+v", got)
		}
	})

	t.Run("fails when nothing remains", func(t *testing.T) {
		dir := t.TempDir()
		_, err := newTestService(t, &fakeExtractor{}).BuildAll(context.Background(), []string{
			filepath.Join(dir, "missing.mp4"),
			t.TempDir(),
		})
		if !errors.Is(err, ErrNoSnippets) {
			t.Errorf("expected ErrNoSnippets, got %v", err)
		}
		if !errors.Is(err, snippet.ErrExtraction) || !errors.Is(err, snippet.ErrEmptySignature) {
			t.Errorf("expected individual failures to be joined, got %v", err)
		}
	})

	t.Run("colliding names use the path", func(t *testing.T) {
		a := filepath.Join(t.TempDir(), "logo.png")
		b := filepath.Join(t.TempDir(), "logo.png")
		writePNG(t, a, pattern(8))
		writePNG(t, b, pattern(4))

		got, err := newTestService(t, &fakeExtractor{}).BuildAll(context.Background(), []string{a, b})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got[0].Name != "logo.png" || got[1].Name != b {
			t.Errorf("unexpected names %q, %q", got[0].Name, got[1].Name)
		}
	})
}
