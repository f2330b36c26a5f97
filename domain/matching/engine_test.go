package matching

import (
	"testing"

	"clipwatch/domain/snippet"
)

var (
	h1 = snippet.Hash{0x00, 0x00}
	h2 = snippet.Hash{0xff, 0x00}
	h3 = snippet.Hash{0x00, 0xff}
	hx = snippet.Hash{0xff, 0xff}
)

func sequence(t *testing.T, name string, frames ...snippet.Hash) snippet.Snippet {
	t.Helper()
	s, err := snippet.NewSequence(name, snippet.MethodPHash, frames)
	if err != nil {
		t.Fatalf("failed to build sequence: %v", err)
	}
	return s
}

func single(t *testing.T, name string, h snippet.Hash, minDuration float64) snippet.Snippet {
	t.Helper()
	s, err := snippet.NewSingleImage(name, snippet.MethodPHash, h, minDuration)
	if err != nil {
		t.Fatalf("failed to build single image: %v", err)
	}
	return s
}

func newEngine(t *testing.T, cfg Config, snippets ...snippet.Snippet) *Engine {
	t.Helper()
	e, err := NewEngine(cfg, Hamming, snippets)
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	return e
}

func feed(e *Engine, samples ...Sample) []DetectionEvent {
	var events []DetectionEvent
	for _, s := range samples {
		events = append(events, e.Step(s)...)
	}
	return events
}

func TestSequenceMatching(t *testing.T) {
	cfg := Config{MatchThreshold: 5, TimeWindow: 2.0}

	t.Run("completes when keyframes match in order within the window", func(t *testing.T) {
		e := newEngine(t, cfg, sequence(t, "clip", h1, h2, h3))
		events := feed(e,
			Sample{0.0, h1},
			Sample{1.0, h2},
			Sample{2.5, h3},
		)

		if len(events) != 1 {
			t.Fatalf("expected 1 event, got %d", len(events))
		}
		want := DetectionEvent{ClipName: "clip", StartTime: 0.0, EndTime: 2.5}
		if events[0] != want {
			t.Errorf("expected %+v, got %+v", want, events[0])
		}
		if e.Pending("clip") != 0 {
			t.Errorf("completed candidate should be discarded, %d pending", e.Pending("clip"))
		}
	})

	t.Run("discards candidate when gap exceeds the window", func(t *testing.T) {
		e := newEngine(t, cfg, sequence(t, "clip", h1, h2, h3))
		events := feed(e,
			Sample{0.0, h1},
			Sample{1.0, h2},
			Sample{4.0, h3},
		)

		if len(events) != 0 {
			t.Errorf("expected no events, got %+v", events)
		}
	})

	t.Run("window is measured from the last match not the start", func(t *testing.T) {
		e := newEngine(t, cfg, sequence(t, "clip", h1, h2, h3, h1))
		events := feed(e,
			Sample{0.0, h1},
			Sample{1.9, h2},
			Sample{3.8, h3},
			Sample{5.7, h1},
		)

		if len(events) != 1 || events[0].StartTime != 0.0 || events[0].EndTime != 5.7 {
			t.Errorf("expected one event spanning 0.0-5.7, got %+v", events)
		}
	})

	t.Run("non matching frames between keyframes are ignored", func(t *testing.T) {
		e := newEngine(t, cfg, sequence(t, "clip", h1, h2))
		events := feed(e,
			Sample{0.0, h1},
			Sample{0.5, hx},
			Sample{1.0, hx},
			Sample{1.5, h2},
		)

		if len(events) != 1 || events[0].EndTime != 1.5 {
			t.Errorf("expected one event ending at 1.5, got %+v", events)
		}
	})

	t.Run("overlapping candidates complete independently", func(t *testing.T) {
		e := newEngine(t, cfg, sequence(t, "clip", h1, h2, h3))
		events := feed(e,
			Sample{0.0, h1},
			Sample{0.5, h1},
			Sample{1.0, h2},
			Sample{1.5, h2},
			Sample{2.0, h3},
		)

		if len(events) != 1 {
			t.Fatalf("expected the oldest candidate to complete first, got %+v", events)
		}
		if events[0].StartTime != 0.0 || events[0].EndTime != 2.0 {
			t.Errorf("unexpected first event %+v", events[0])
		}
		if e.Pending("clip") != 1 {
			t.Fatalf("expected second candidate still pending, got %d", e.Pending("clip"))
		}

		events = e.Step(Sample{2.5, h3})
		if len(events) != 1 || events[0].StartTime != 0.5 || events[0].EndTime != 2.5 {
			t.Errorf("expected second event 0.5-2.5, got %+v", events)
		}
	})

	t.Run("a sample can advance one candidate and seed another", func(t *testing.T) {
		e := newEngine(t, cfg, sequence(t, "clip", h1, h1, h2))
		events := feed(e,
			Sample{0.0, h1}, // seeds A
			Sample{1.0, h1}, // advances A, seeds B
			Sample{2.0, h2}, // completes A
		)

		if len(events) != 1 || events[0].StartTime != 0.0 {
			t.Fatalf("expected candidate started at 0.0 to complete, got %+v", events)
		}
		if e.Pending("clip") != 1 {
			t.Errorf("expected candidate seeded at 1.0 to remain, got %d pending", e.Pending("clip"))
		}
	})

	t.Run("single keyframe sequence completes on the seeding sample", func(t *testing.T) {
		e := newEngine(t, cfg, sequence(t, "flash", h2))
		events := feed(e, Sample{3.0, hx}, Sample{4.0, h2})

		if len(events) != 1 || events[0].StartTime != 4.0 || events[0].EndTime != 4.0 {
			t.Errorf("expected instantaneous event at 4.0, got %+v", events)
		}
		if e.Pending("flash") != 0 {
			t.Errorf("single keyframe snippet should keep no candidates")
		}
	})

	t.Run("threshold is inclusive", func(t *testing.T) {
		near := snippet.Hash{0x1f, 0x00} // 5 bits from h1
		e := newEngine(t, cfg, sequence(t, "clip", h1))
		if events := e.Step(Sample{0, near}); len(events) != 1 {
			t.Errorf("distance equal to threshold should match")
		}

		far := snippet.Hash{0x3f, 0x00} // 6 bits from h1
		if events := e.Step(Sample{1, far}); len(events) != 0 {
			t.Errorf("distance above threshold should not match")
		}
	})

	t.Run("flush drops partial sequences", func(t *testing.T) {
		e := newEngine(t, cfg, sequence(t, "clip", h1, h2, h3))
		feed(e, Sample{0.0, h1}, Sample{1.0, h2})

		if events := e.Flush(); len(events) != 0 {
			t.Errorf("partial sequence must not produce an event, got %+v", events)
		}
		if e.Pending("clip") != 0 {
			t.Errorf("flush should clear candidates")
		}
	})
}

func TestSingleImageMatching(t *testing.T) {
	cfg := Config{MatchThreshold: 5, TimeWindow: 2.0}

	run := func(e *Engine, from, to, step float64) []DetectionEvent {
		var events []DetectionEvent
		for ts := from; ts <= to+1e-9; ts += step {
			events = append(events, e.Step(Sample{ts, h1})...)
		}
		return events
	}

	t.Run("short run yields no event", func(t *testing.T) {
		e := newEngine(t, cfg, single(t, "logo", h1, 1.5))
		events := run(e, 0.0, 1.4, 0.2)
		events = append(events, e.Step(Sample{1.6, hx})...)

		if len(events) != 0 {
			t.Errorf("expected no events, got %+v", events)
		}
	})

	t.Run("long enough run yields event when broken", func(t *testing.T) {
		e := newEngine(t, cfg, single(t, "logo", h1, 1.5))
		feed(e, Sample{0.0, h1}, Sample{0.8, h1}, Sample{1.6, h1})
		events := e.Step(Sample{1.8, hx})

		want := DetectionEvent{ClipName: "logo", StartTime: 0.0, EndTime: 1.6}
		if len(events) != 1 || events[0] != want {
			t.Errorf("expected %+v, got %+v", want, events)
		}
	})

	t.Run("non matching frame resets the run", func(t *testing.T) {
		e := newEngine(t, cfg, single(t, "logo", h1, 1.0))
		events := feed(e,
			Sample{0.0, h1},
			Sample{0.6, hx},
			Sample{1.0, h1},
			Sample{1.5, h1},
			Sample{1.7, hx},
		)

		if len(events) != 0 {
			t.Errorf("runs of 0.0s and 0.5s should not be reported, got %+v", events)
		}
	})

	t.Run("flush reports an active run", func(t *testing.T) {
		e := newEngine(t, cfg, single(t, "logo", h1, 1.0))
		feed(e, Sample{10.0, h1}, Sample{11.0, h1}, Sample{12.0, h1})

		if e.Pending("logo") != 1 {
			t.Fatalf("expected active run")
		}
		events := e.Flush()
		if len(events) != 1 || events[0].StartTime != 10.0 || events[0].EndTime != 12.0 {
			t.Errorf("expected flushed event 10.0-12.0, got %+v", events)
		}
		if again := e.Flush(); len(again) != 0 {
			t.Errorf("second flush should be empty, got %+v", again)
		}
	})
}

func TestEngine(t *testing.T) {
	t.Run("matches every snippet on each sample", func(t *testing.T) {
		e := newEngine(t, Config{MatchThreshold: 0, TimeWindow: 1.0},
			sequence(t, "intro", h1, h2),
			single(t, "logo", h2, 0),
		)
		events := feed(e, Sample{0, h1}, Sample{0.5, h2}, Sample{1.0, h3})

		if len(events) != 2 {
			t.Fatalf("expected 2 events, got %+v", events)
		}
		if events[0].ClipName != "intro" || events[1].ClipName != "logo" {
			t.Errorf("unexpected events %+v", events)
		}
		names := e.Snippets()
		if len(names) != 2 || names[0] != "intro" || names[1] != "logo" {
			t.Errorf("unexpected snippet order %v", names)
		}
	})

	t.Run("rejects invalid configuration", func(t *testing.T) {
		if _, err := NewEngine(Config{MatchThreshold: -1}, Hamming, nil); err == nil {
			t.Error("expected error for negative threshold")
		}
		if _, err := NewEngine(Config{TimeWindow: -1}, Hamming, nil); err == nil {
			t.Error("expected error for negative window")
		}
		if _, err := NewEngine(Config{}, nil, nil); err == nil {
			t.Error("expected error for missing metric")
		}
	})
}

func TestDetectionEventString(t *testing.T) {
	e := DetectionEvent{ClipName: "snippet1.mp4", StartTime: 10.5, EndTime: 12.7}
	want := "[snippet1.mp4] Detected snippet! Start: 10.50s, End: 12.70s"
	if e.String() != want {
		t.Errorf("expected %q, got %q", want, e.String())
	}
}
