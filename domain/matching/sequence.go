package matching

import "clipwatch/domain/snippet"

// sequenceTracker holds the in-flight candidates of one Sequence snippet
type sequenceTracker struct {
	snippet    snippet.Snippet
	candidates []*Candidate // creation order, oldest first
}

func (t *sequenceTracker) name() string {
	return t.snippet.Name
}

func (t *sequenceTracker) pending() int {
	return len(t.candidates)
}

func (t *sequenceTracker) step(s Sample, m *matcher) []DetectionEvent {
	t.expire(s.Timestamp, m.cfg.TimeWindow)

	var events []DetectionEvent

	// Only the oldest eligible candidate waiting on a given keyframe advances.
	matched := make(map[int]bool)
	advanced := make(map[int]bool)
	kept := t.candidates[:0]
	for _, c := range t.candidates {
		slot := c.NextIndex
		if !advanced[slot] && t.matchesKeyframe(s.Hash, slot, matched, m) {
			advanced[slot] = true
			c.NextIndex++
			c.LastMatchTime = s.Timestamp

			if c.NextIndex == t.snippet.Len() {
				events = append(events, t.complete(c))
				continue
			}
		}
		kept = append(kept, c)
	}
	t.candidates = kept

	if t.matchesKeyframe(s.Hash, 0, matched, m) {
		c := &Candidate{NextIndex: 1, StartTime: s.Timestamp, LastMatchTime: s.Timestamp}
		if c.NextIndex == t.snippet.Len() {
			events = append(events, t.complete(c))
		} else {
			t.candidates = append(t.candidates, c)
		}
	}

	return events
}

// expire discards candidates whose last match is older than the time window
func (t *sequenceTracker) expire(now, window float64) {
	kept := t.candidates[:0]
	for _, c := range t.candidates {
		if now-c.LastMatchTime > window {
			continue
		}
		kept = append(kept, c)
	}
	for i := len(kept); i < len(t.candidates); i++ {
		t.candidates[i] = nil
	}
	t.candidates = kept
}

func (t *sequenceTracker) matchesKeyframe(h snippet.Hash, index int, cache map[int]bool, m *matcher) bool {
	if ok, seen := cache[index]; seen {
		return ok
	}
	ok := m.matches(h, t.snippet.Keyframe(index))
	cache[index] = ok
	return ok
}

func (t *sequenceTracker) complete(c *Candidate) DetectionEvent {
	return DetectionEvent{
		ClipName:  t.snippet.Name,
		StartTime: c.StartTime,
		EndTime:   c.LastMatchTime,
	}
}

// flush drops incomplete candidates; partial sequences never produce events
func (t *sequenceTracker) flush() []DetectionEvent {
	t.candidates = nil
	return nil
}
