// Package hls reads HLS playlists to align stream samples with program time
package hls

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/grafov/m3u8"
)

// liveStartIndex mirrors the ffmpeg HLS demuxer default: live playback starts three segments from the end
const liveStartIndex = 3

// ErrNoProgramTime is returned when the playlist carries no EXT-X-PROGRAM-DATE-TIME
var ErrNoProgramTime = errors.New("playlist has no program date time")

// Inspector fetches playlists over HTTP
type Inspector struct {
	client *http.Client
}

// Option is a functional option for configuring Inspector
type Option func(*Inspector)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(i *Inspector) {
		i.client = c
	}
}

// NewInspector creates a playlist inspector
func NewInspector(opts ...Option) *Inspector {
	i := &Inspector{client: &http.Client{Timeout: 10 * time.Second}}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// ProgramStart returns the program date time of the segment a decoder opening
// location right now would begin with. Master playlists are followed to their
// highest bandwidth variant.
func (i *Inspector) ProgramStart(ctx context.Context, location string) (time.Time, error) {
	media, base, err := i.mediaPlaylist(ctx, location)
	if err != nil {
		return time.Time{}, err
	}

	segments := make([]*m3u8.MediaSegment, 0, len(media.Segments))
	for _, s := range media.Segments {
		if s != nil {
			segments = append(segments, s)
		}
	}
	if len(segments) == 0 {
		return time.Time{}, fmt.Errorf("playlist %s has no segments", base)
	}

	start := 0
	if !media.Closed && len(segments) > liveStartIndex {
		start = len(segments) - liveStartIndex
	}

	// segments without their own tag inherit the time of the last tagged one
	var pdt time.Time
	var offset float64
	for _, s := range segments[:start+1] {
		if !s.ProgramDateTime.IsZero() {
			pdt = s.ProgramDateTime
			offset = 0
		}
		offset += s.Duration
	}
	if pdt.IsZero() {
		return time.Time{}, ErrNoProgramTime
	}
	offset -= segments[start].Duration

	return pdt.Add(time.Duration(offset * float64(time.Second))), nil
}

func (i *Inspector) mediaPlaylist(ctx context.Context, location string) (*m3u8.MediaPlaylist, string, error) {
	for hops := 0; hops < 2; hops++ {
		p, kind, err := i.fetch(ctx, location)
		if err != nil {
			return nil, location, err
		}

		switch kind {
		case m3u8.MEDIA:
			return p.(*m3u8.MediaPlaylist), location, nil
		case m3u8.MASTER:
			next, err := bestVariant(p.(*m3u8.MasterPlaylist), location)
			if err != nil {
				return nil, location, err
			}
			location = next
		}
	}
	return nil, location, fmt.Errorf("playlist %s: too many master playlist levels", location)
}

func (i *Inspector) fetch(ctx context.Context, location string) (m3u8.Playlist, m3u8.ListType, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid playlist url %s: %w", location, err)
	}

	resp, err := i.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch playlist %s: %w", location, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("failed to fetch playlist %s: status %d", location, resp.StatusCode)
	}

	p, kind, err := m3u8.DecodeFrom(resp.Body, false)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse playlist %s: %w", location, err)
	}
	return p, kind, nil
}

func bestVariant(master *m3u8.MasterPlaylist, base string) (string, error) {
	var best *m3u8.Variant
	for _, v := range master.Variants {
		if v == nil || v.Iframe {
			continue
		}
		if best == nil || v.Bandwidth > best.Bandwidth {
			best = v
		}
	}
	if best == nil {
		return "", fmt.Errorf("master playlist %s has no variants", base)
	}

	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(best.URI)
	if err != nil {
		return "", fmt.Errorf("invalid variant uri %q: %w", best.URI, err)
	}
	return b.ResolveReference(ref).String(), nil
}
