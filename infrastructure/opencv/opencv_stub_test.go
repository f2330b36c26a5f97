//go:build !detection

package opencv

import (
	"errors"
	"testing"
)

func TestStubsUnavailable(t *testing.T) {
	if _, err := NewOpener(CaptureConfig{}); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
	if _, err := NewPreview("clipwatch"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}
