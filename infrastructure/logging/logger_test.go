package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	t.Run("verbose enables debug", func(t *testing.T) {
		var buf bytes.Buffer
		l := New(Options{Verbose: true, Format: "json", Writer: &buf})
		l.Debug().Msg("debug-line")

		if !strings.Contains(buf.String(), "debug-line") {
			t.Errorf("expected debug output, got %q", buf.String())
		}
	})

	t.Run("default level hides debug", func(t *testing.T) {
		var buf bytes.Buffer
		l := New(Options{Format: "json", Writer: &buf})
		l.Debug().Msg("debug-line")
		l.Info().Msg("info-line")

		out := buf.String()
		if strings.Contains(out, "debug-line") {
			t.Errorf("debug output should be suppressed, got %q", out)
		}
		if !strings.Contains(out, "info-line") {
			t.Errorf("expected info output, got %q", out)
		}
	})

	t.Run("component field", func(t *testing.T) {
		var buf bytes.Buffer
		l := New(Options{Format: "json", Writer: &buf, Component: "registry"})
		l.Info().Msg("x")

		if !strings.Contains(buf.String(), `"component":"registry"`) {
			t.Errorf("expected component field, got %q", buf.String())
		}
	})
}

func TestNamed(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Format: "json", Writer: &buf})

	Named("monitor").Info().Msg("hello")
	if !strings.Contains(buf.String(), `"component":"monitor"`) {
		t.Errorf("expected component field, got %q", buf.String())
	}
	if Named("") != Get() {
		t.Error("empty component should return the root logger")
	}
}
