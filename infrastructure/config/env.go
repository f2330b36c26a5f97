package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads variables from a .env file into the process environment.
// A missing file is not an error; variables already set are not overwritten.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides configuration values from CLIPWATCH_* environment variables
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	var problems []string
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				problems = append(problems, fmt.Sprintf("%s: not an integer: %q", key, v))
				return
			}
			*dst = n
		}
	}
	float := func(key string, dst *float64) {
		if v, ok := lookup(key); ok && v != "" {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				problems = append(problems, fmt.Sprintf("%s: not a number: %q", key, v))
				return
			}
			*dst = f
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				problems = append(problems, fmt.Sprintf("%s: not a boolean: %q", key, v))
				return
			}
			*dst = b
		}
	}

	str("CLIPWATCH_SOURCE", &cfg.Source)
	if v, ok := lookup("CLIPWATCH_CLIPS"); ok && v != "" {
		cfg.Clips = splitList(v)
	}
	integer("CLIPWATCH_MATCH_THRESHOLD", &cfg.Matching.MatchThreshold)
	float("CLIPWATCH_TIME_WINDOW", &cfg.Matching.TimeWindow)
	float("CLIPWATCH_IMAGE_MIN_DURATION", &cfg.Matching.ImageMinDuration)
	str("CLIPWATCH_HASH_METHOD", &cfg.Matching.HashMethod)
	float("CLIPWATCH_DETECTION_COOLDOWN", &cfg.DetectionCooldown)
	str("CLIPWATCH_NOTIFY_URL", &cfg.Notify.URL)
	boolean("CLIPWATCH_USE_AMQP", &cfg.Notify.UseAMQP)
	str("AMQP_URL", &cfg.Notify.AMQP.URL)
	str("CLIPWATCH_AMQP_URL", &cfg.Notify.AMQP.URL)
	str("CLIPWATCH_MQTT_BROKER", &cfg.Notify.MQTT.Broker)
	integer("CLIPWATCH_HEALTH_CHECK_INTERVAL", &cfg.Health.Interval)
	str("CLIPWATCH_LISTEN", &cfg.Health.Listen)
	str("CLIPWATCH_STORE_PATH", &cfg.Store.Path)
	str("CLIPWATCH_FFMPEG_PATH", &cfg.Stream.FFmpegPath)
	str("CLIPWATCH_FFPROBE_PATH", &cfg.Stream.FFprobePath)
	boolean("CLIPWATCH_VERBOSE", &cfg.Verbose)

	if len(problems) > 0 {
		return &ConfigurationError{Problems: problems}
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
