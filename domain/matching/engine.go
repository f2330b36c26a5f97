package matching

import (
	"errors"
	"fmt"

	"clipwatch/domain/snippet"
)

// tracker is the per-snippet match state, chosen once from the snippet kind
type tracker interface {
	name() string
	pending() int
	step(s Sample, m *matcher) []DetectionEvent
	flush() []DetectionEvent
}

type matcher struct {
	cfg    Config
	metric Metric
}

func (m *matcher) matches(a, b snippet.Hash) bool {
	return m.metric.Distance(a, b) <= m.cfg.MatchThreshold
}

// Engine turns a time-ordered stream of samples into detection events.
// It is not safe for concurrent use; one goroutine owns it.
type Engine struct {
	matcher  matcher
	trackers []tracker
}

// NewEngine creates an engine matching the given snippets
func NewEngine(cfg Config, metric Metric, snippets []snippet.Snippet) (*Engine, error) {
	if metric == nil {
		return nil, errors.New("matching metric is required")
	}
	if cfg.MatchThreshold < 0 {
		return nil, fmt.Errorf("match threshold must not be negative, got %d", cfg.MatchThreshold)
	}
	if cfg.TimeWindow < 0 {
		return nil, fmt.Errorf("time window must not be negative, got %v", cfg.TimeWindow)
	}

	e := &Engine{matcher: matcher{cfg: cfg, metric: metric}}
	for _, s := range snippets {
		switch s.Kind {
		case snippet.KindSequence:
			e.trackers = append(e.trackers, &sequenceTracker{snippet: s})
		case snippet.KindSingleImage:
			e.trackers = append(e.trackers, &imageTracker{snippet: s})
		default:
			return nil, fmt.Errorf("snippet %s has unknown kind %q", s.Name, s.Kind)
		}
	}

	return e, nil
}

// Step feeds one sample to every snippet and returns the detections it completed.
// Samples must arrive in non-decreasing timestamp order.
func (e *Engine) Step(s Sample) []DetectionEvent {
	var events []DetectionEvent
	for _, t := range e.trackers {
		events = append(events, t.step(s, &e.matcher)...)
	}
	return events
}

// Flush ends the stream: still-active single-image runs are reported, partial sequences are dropped
func (e *Engine) Flush() []DetectionEvent {
	var events []DetectionEvent
	for _, t := range e.trackers {
		events = append(events, t.flush()...)
	}
	return events
}

// Pending returns the number of in-flight candidates (or active runs) for a snippet
func (e *Engine) Pending(name string) int {
	for _, t := range e.trackers {
		if t.name() == name {
			return t.pending()
		}
	}
	return 0
}

// Snippets returns the names of the matched snippets in registration order
func (e *Engine) Snippets() []string {
	names := make([]string, len(e.trackers))
	for i, t := range e.trackers {
		names[i] = t.name()
	}
	return names
}
