package video

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// timestampRegex matches HH:MM:SS with optional fractional seconds
var timestampRegex = regexp.MustCompile(`^(\d{2}):(\d{2}):(\d{2})(\.\d+)?$`)

// ParseTimestamp parses a stream position given as HH:MM:SS[.fff] or as plain seconds
func ParseTimestamp(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("invalid timestamp format %q: empty", s)
	}

	if matches := timestampRegex.FindStringSubmatch(s); matches != nil {
		hours, _ := strconv.Atoi(matches[1])
		minutes, _ := strconv.Atoi(matches[2])
		seconds, _ := strconv.Atoi(matches[3])

		if minutes > 59 {
			return 0, fmt.Errorf("invalid timestamp %q: minutes must be 0-59", s)
		}
		if seconds > 59 {
			return 0, fmt.Errorf("invalid timestamp %q: seconds must be 0-59", s)
		}

		total := float64(hours*3600 + minutes*60 + seconds)
		if matches[4] != "" {
			frac, _ := strconv.ParseFloat("0"+matches[4], 64)
			total += frac
		}
		return total, nil
	}

	secs, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(secs) || math.IsInf(secs, 0) {
		return 0, fmt.Errorf("invalid timestamp format %q: expected HH:MM:SS or seconds", s)
	}
	if secs < 0 {
		return 0, fmt.Errorf("invalid timestamp %q: must not be negative", s)
	}
	return secs, nil
}

// FormatTimestamp renders seconds as HH:MM:SS.mmm, the form ffmpeg accepts for -ss
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	ms := int64(math.Round(seconds * 1000))
	hours := ms / 3_600_000
	minutes := (ms % 3_600_000) / 60_000
	secs := (ms % 60_000) / 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, minutes, secs, ms%1000)
}
