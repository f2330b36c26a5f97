package video

import (
	"context"
	"image"
	"net/url"
	"strings"
)

// Frame is one decoded frame of the monitored source
type Frame struct {
	// Timestamp is the frame position in seconds on the source timeline
	Timestamp float64

	// Image is the decoded picture
	Image image.Image
}

// FrameSource yields decoded frames in presentation order.
// Next returns io.EOF once a finite source is exhausted.
type FrameSource interface {
	Next(ctx context.Context) (Frame, error)
	Close() error
}

// SourceOpener opens a frame source positioned at start seconds
type SourceOpener interface {
	Open(ctx context.Context, location string, start float64) (FrameSource, error)
}

// liveSchemes are URL schemes treated as live network streams
var liveSchemes = map[string]bool{
	"rtmp":  true,
	"rtmps": true,
	"rtsp":  true,
	"http":  true,
	"https": true,
	"srt":   true,
	"udp":   true,
	"tcp":   true,
}

// IsLive reports whether a source location refers to a network stream rather than a file
func IsLive(location string) bool {
	u, err := url.Parse(location)
	if err != nil || u.Scheme == "" {
		return false
	}
	return liveSchemes[strings.ToLower(u.Scheme)]
}

// IsHLS reports whether a source location looks like an HLS playlist
func IsHLS(location string) bool {
	u, err := url.Parse(location)
	if err != nil {
		return false
	}
	return strings.HasSuffix(strings.ToLower(u.Path), ".m3u8")
}
