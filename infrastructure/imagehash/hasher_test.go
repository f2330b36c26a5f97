package imagehash

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"clipwatch/domain/snippet"
)

// gradient draws a horizontal ramp; brighter is applied as an offset
func gradient(w, h int, brighter uint8) image.Image {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(x*200/w) + brighter
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return img
}

// checker draws alternating blocks
func checker(w, h, block int) image.Image {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x/block+y/block)%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}

func TestGoHasher(t *testing.T) {
	for _, method := range []snippet.Method{snippet.MethodPHash, snippet.MethodAverage} {
		t.Run(method.String(), func(t *testing.T) {
			h, err := NewGoHasher(method)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if h.Method() != method {
				t.Errorf("expected method %s, got %s", method, h.Method())
			}

			a, err := h.Compute(gradient(128, 96, 0))
			if err != nil {
				t.Fatalf("compute failed: %v", err)
			}
			again, _ := h.Compute(gradient(128, 96, 0))
			if len(a) != 8 {
				t.Errorf("expected 8-byte hash, got %d bytes", len(a))
			}
			if h.Distance(a, again) != 0 {
				t.Errorf("hash is not deterministic: %s vs %s", a, again)
			}

			resized, _ := h.Compute(gradient(256, 192, 0))
			different, _ := h.Compute(checker(128, 96, 16))
			if h.Distance(a, resized) >= h.Distance(a, different) {
				t.Errorf("resized image (%d) should be closer than a different image (%d)",
					h.Distance(a, resized), h.Distance(a, different))
			}
		})
	}

	t.Run("nil image", func(t *testing.T) {
		h, _ := NewGoHasher(snippet.MethodPHash)
		if _, err := h.Compute(nil); err == nil {
			t.Error("expected error for nil image")
		}
	})

	t.Run("opencv-only methods", func(t *testing.T) {
		for _, m := range []snippet.Method{snippet.MethodMarr, snippet.MethodRadial} {
			if _, err := NewGoHasher(m); !errors.Is(err, ErrUnavailable) {
				t.Errorf("expected ErrUnavailable for %s, got %v", m, err)
			}
		}
	})
}

func TestNew(t *testing.T) {
	if _, err := New("dhash"); !errors.Is(err, snippet.ErrUnknownHashMethod) {
		t.Errorf("expected ErrUnknownHashMethod, got %v", err)
	}

	h, err := New(snippet.MethodPHash)
	if err != nil {
		t.Fatalf("phash should be available in every build: %v", err)
	}
	if h.Method() != snippet.MethodPHash {
		t.Errorf("unexpected method %s", h.Method())
	}

	avail := Available()
	if len(avail) < 2 {
		t.Errorf("expected at least phash and average, got %v", avail)
	}
}
