package notification

import "clipwatch/domain/matching"

// Cooldown suppresses repeat events per clip on the event timeline.
// It is owned by a single goroutine.
type Cooldown struct {
	interval    float64
	lastEmitted map[string]float64
}

// NewCooldown creates an empty cooldown state with the given interval in seconds
func NewCooldown(interval float64) *Cooldown {
	return &Cooldown{
		interval:    interval,
		lastEmitted: make(map[string]float64),
	}
}

// Allow reports whether the event may be emitted and records it when it may
func (c *Cooldown) Allow(event matching.DetectionEvent) bool {
	last, seen := c.lastEmitted[event.ClipName]
	if seen && event.EndTime-last < c.interval {
		return false
	}
	c.lastEmitted[event.ClipName] = event.EndTime
	return true
}

// LastEmitted returns the end time of the last emitted event for a clip
func (c *Cooldown) LastEmitted(clip string) (float64, bool) {
	t, ok := c.lastEmitted[clip]
	return t, ok
}
