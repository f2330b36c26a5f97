// Package webhook delivers detection events as HTTP POST requests
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"clipwatch/domain/matching"
	"clipwatch/domain/notification"
)

// Sink posts the JSON event payload to a fixed URL
type Sink struct {
	url    string
	client *http.Client
}

// Option is a functional option for configuring Sink
type Option func(*Sink)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(s *Sink) {
		s.client = c
	}
}

// WithTimeout bounds every request
func WithTimeout(d time.Duration) Option {
	return func(s *Sink) {
		s.client = &http.Client{Timeout: d}
	}
}

// NewSink creates a webhook sink for url
func NewSink(url string, opts ...Option) *Sink {
	s := &Sink{
		url:    url,
		client: &http.Client{Timeout: 5 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements notification.Sink
func (s *Sink) Name() string {
	return "webhook"
}

// Send implements notification.Sink; any non-2xx status is a failure
func (s *Sink) Send(ctx context.Context, event matching.DetectionEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post to %s failed: %w", s.url, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("post to %s returned status %d", s.url, resp.StatusCode)
	}
	return nil
}

// Ensure Sink implements notification.Sink
var _ notification.Sink = (*Sink)(nil)
