package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"clipwatch/infrastructure/config"
)

func TestLoadConfig(t *testing.T) {
	t.Run("environment overrides file overrides defaults", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "clipwatch.yaml")
		content := "source: show.mp4\nmatching:\n  match_threshold: 7\n  time_window: 4.5\n"
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}

		env := map[string]string{"CLIPWATCH_MATCH_THRESHOLD": "9"}
		lookup := func(k string) (string, bool) {
			v, ok := env[k]
			return v, ok
		}

		c, err := LoadConfig(path, "", lookup)
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}
		if c.Matching.MatchThreshold != 9 {
			t.Errorf("MatchThreshold = %d, want env value 9", c.Matching.MatchThreshold)
		}
		if c.Matching.TimeWindow != 4.5 {
			t.Errorf("TimeWindow = %v, want file value 4.5", c.Matching.TimeWindow)
		}
		if c.DetectionCooldown != 10 {
			t.Errorf("DetectionCooldown = %v, want default 10", c.DetectionCooldown)
		}
	})

	t.Run("missing file yields defaults", func(t *testing.T) {
		c, err := LoadConfig(filepath.Join(t.TempDir(), "none.yaml"), "", func(string) (string, bool) { return "", false })
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}
		if c.Matching.HashMethod != "phash" {
			t.Errorf("HashMethod = %q, want phash", c.Matching.HashMethod)
		}
	})

	t.Run("malformed file is a configuration error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		if err := os.WriteFile(path, []byte("matching: [oops"), 0644); err != nil {
			t.Fatal(err)
		}
		_, err := LoadConfig(path, "", func(string) (string, bool) { return "", false })
		if !errors.Is(err, config.ErrConfiguration) {
			t.Errorf("error = %v, want ErrConfiguration", err)
		}
	})
}
