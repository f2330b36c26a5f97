// Package health prints the periodic heartbeat and tracks pipeline progress
package health

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"clipwatch/infrastructure/logging"
)

// Status is a point-in-time snapshot of pipeline progress
type Status struct {
	Running         bool      `json:"running"`
	Source          string    `json:"source"`
	StartedAt       time.Time `json:"started_at"`
	UptimeSeconds   float64   `json:"uptime_seconds"`
	FramesProcessed uint64    `json:"frames_processed"`
	LastTimestamp   float64   `json:"last_timestamp"`
	LastFrameAt     time.Time `json:"last_frame_at,omitempty"`
	Detections      uint64    `json:"detections"`
	Reconnects      uint64    `json:"reconnects"`
}

// Monitor records progress from the pipeline and reports it on a timer
// independent of frame ingestion.
type Monitor struct {
	interval time.Duration
	out      io.Writer
	now      func() time.Time
	log      *logging.Logger

	mu     sync.RWMutex
	status Status
}

// Option is a functional option for configuring Monitor
type Option func(*Monitor)

// WithClock sets the time source (for testing)
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		m.now = now
	}
}

// WithLogger sets the monitor logger
func WithLogger(l *logging.Logger) Option {
	return func(m *Monitor) {
		m.log = l
	}
}

// NewMonitor creates a health monitor; an interval of zero disables the heartbeat
func NewMonitor(source string, interval time.Duration, out io.Writer, opts ...Option) *Monitor {
	m := &Monitor{
		interval: interval,
		out:      out,
		now:      time.Now,
		log:      logging.Named("health"),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.status.Source = source
	return m
}

// Start marks the pipeline as running
func (m *Monitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status.Running = true
	m.status.StartedAt = m.now()
}

// Stop marks the pipeline as finished
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status.Running = false
}

// RecordFrame counts one processed sample
func (m *Monitor) RecordFrame(timestamp float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status.FramesProcessed++
	m.status.LastTimestamp = timestamp
	m.status.LastFrameAt = m.now()
}

// RecordDetection counts one emitted event
func (m *Monitor) RecordDetection() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status.Detections++
}

// RecordReconnect counts one source reconnect
func (m *Monitor) RecordReconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status.Reconnects++
}

// Status returns a snapshot of the current progress
func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := m.status
	if !s.StartedAt.IsZero() {
		s.UptimeSeconds = m.now().Sub(s.StartedAt).Seconds()
	}
	return s
}

// Run prints a heartbeat every interval until ctx is cancelled
func (m *Monitor) Run(ctx context.Context) {
	if m.interval <= 0 {
		return
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	var lastFrames uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := m.now()
			fmt.Fprintf(m.out, "[%s] Health check: Video processing is running fine.\n", now.Format(time.RFC3339))

			s := m.Status()
			if s.Running && s.FramesProcessed == lastFrames {
				m.log.Warn().
					Dur("interval", m.interval).
					Uint64("frames", s.FramesProcessed).
					Msg("no frames processed since last health check")
			}
			lastFrames = s.FramesProcessed
		}
	}
}
