package snippet

import (
	"errors"
	"image"
	"testing"
)

func TestHammingDistance(t *testing.T) {
	t.Run("identical hashes have zero distance", func(t *testing.T) {
		h := Hash{0xde, 0xad, 0xbe, 0xef}
		if d := HammingDistance(h, h.Clone()); d != 0 {
			t.Errorf("expected 0, got %d", d)
		}
	})

	t.Run("counts differing bits", func(t *testing.T) {
		a := Hash{0x00, 0xff}
		b := Hash{0x01, 0x0f}
		if d := HammingDistance(a, b); d != 5 {
			t.Errorf("expected 5, got %d", d)
		}
	})

	t.Run("length mismatch counts missing bytes as different", func(t *testing.T) {
		a := Hash{0x00}
		b := Hash{0x00, 0x00, 0x00}
		if d := HammingDistance(a, b); d != 16 {
			t.Errorf("expected 16, got %d", d)
		}
	})
}

func TestParseHash(t *testing.T) {
	h, err := ParseHash("00ff10")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !h.Equal(Hash{0x00, 0xff, 0x10}) {
		t.Errorf("unexpected hash %v", h)
	}
	if h.String() != "00ff10" {
		t.Errorf("expected 00ff10, got %s", h.String())
	}

	if _, err := ParseHash("zz"); err == nil {
		t.Error("expected error for invalid hex")
	}
}

func TestParseMethod(t *testing.T) {
	for _, name := range []string{"phash", "average", "marr", "radial", " PHash "} {
		if _, err := ParseMethod(name); err != nil {
			t.Errorf("ParseMethod(%q) returned error: %v", name, err)
		}
	}

	_, err := ParseMethod("dhash")
	if !errors.Is(err, ErrUnknownHashMethod) {
		t.Errorf("expected ErrUnknownHashMethod, got %v", err)
	}
}

func TestNewSequence(t *testing.T) {
	t.Run("rejects empty signature", func(t *testing.T) {
		_, err := NewSequence("clip", MethodPHash, nil)
		if !errors.Is(err, ErrEmptySignature) {
			t.Errorf("expected ErrEmptySignature, got %v", err)
		}
	})

	t.Run("keeps keyframes immutable", func(t *testing.T) {
		frames := []Hash{{0x01}, {0x02}}
		s, err := NewSequence("clip", MethodPHash, frames)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		frames[0][0] = 0xff

		if s.Keyframe(0)[0] != 0x01 {
			t.Errorf("snippet keyframe changed after caller mutation")
		}
		if s.Len() != 2 || s.Kind != KindSequence {
			t.Errorf("unexpected snippet %+v", s)
		}
	})
}

func TestNewSingleImage(t *testing.T) {
	s, err := NewSingleImage("logo.png", MethodAverage, Hash{0xaa}, 1.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Kind != KindSingleImage || s.Len() != 1 || s.MinDuration() != 1.5 {
		t.Errorf("unexpected snippet %+v", s)
	}

	if _, err := NewSingleImage("logo.png", MethodAverage, Hash{0xaa}, -1); err == nil {
		t.Error("expected error for negative duration")
	}
}

func TestBuildError(t *testing.T) {
	err := &BuildError{Path: "clips/a.mp4", Err: ErrExtraction}
	if !errors.Is(err, ErrExtraction) {
		t.Error("BuildError should unwrap to its cause")
	}
	if err.Error() != "snippet clips/a.mp4: keyframe extraction failed" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

type plainHasher struct{}

func (plainHasher) Method() Method                    { return MethodPHash }
func (plainHasher) Compute(image.Image) (Hash, error) { return Hash{0}, nil }
func (plainHasher) Distance(a, b Hash) int            { return HammingDistance(a, b) }

type namedHasher struct{ plainHasher }

func (namedHasher) Backend() string { return "named" }

func TestBackendOf(t *testing.T) {
	if got := BackendOf(namedHasher{}); got != "named" {
		t.Errorf("expected declared backend, got %q", got)
	}
	if got := BackendOf(plainHasher{}); got != "snippet.plainHasher" {
		t.Errorf("expected type name, got %q", got)
	}
}
