package matching

import "clipwatch/domain/snippet"

// imageTracker follows the current unbroken run of frames matching a SingleImage snippet
type imageTracker struct {
	snippet  snippet.Snippet
	active   bool
	runStart float64
	lastSeen float64
}

func (t *imageTracker) name() string {
	return t.snippet.Name
}

func (t *imageTracker) pending() int {
	if t.active {
		return 1
	}
	return 0
}

func (t *imageTracker) step(s Sample, m *matcher) []DetectionEvent {
	if m.matches(s.Hash, t.snippet.Keyframe(0)) {
		if !t.active {
			t.active = true
			t.runStart = s.Timestamp
		}
		t.lastSeen = s.Timestamp
		return nil
	}

	return t.closeRun()
}

func (t *imageTracker) flush() []DetectionEvent {
	return t.closeRun()
}

// closeRun resets the run and reports it when it lasted long enough
func (t *imageTracker) closeRun() []DetectionEvent {
	if !t.active {
		return nil
	}
	t.active = false

	if t.lastSeen-t.runStart < t.snippet.MinDuration() {
		return nil
	}
	return []DetectionEvent{{
		ClipName:  t.snippet.Name,
		StartTime: t.runStart,
		EndTime:   t.lastSeen,
	}}
}
