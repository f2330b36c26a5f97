package matching

import (
	"fmt"

	"clipwatch/domain/snippet"
)

// Sample is one hashed frame of the monitored stream
type Sample struct {
	// Timestamp is the frame position in seconds on the stream timeline
	Timestamp float64

	// Hash is the perceptual hash of the frame
	Hash snippet.Hash
}

// DetectionEvent reports a completed snippet match
type DetectionEvent struct {
	ClipName  string  `json:"clip_name"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
}

// String returns the console line printed for a detection
func (e DetectionEvent) String() string {
	return fmt.Sprintf("[%s] Detected snippet! Start: %.2fs, End: %.2fs", e.ClipName, e.StartTime, e.EndTime)
}

// Candidate is an in-progress attempt to match a Sequence snippet
type Candidate struct {
	// NextIndex is the keyframe expected next; the candidate completes when it reaches the signature length
	NextIndex int

	// StartTime is the timestamp of the sample that matched keyframe 0
	StartTime float64

	// LastMatchTime is the timestamp of the most recently matched keyframe
	LastMatchTime float64
}

// Config holds the matching thresholds shared by all snippets
type Config struct {
	// MatchThreshold is the largest distance still counted as a match
	MatchThreshold int

	// TimeWindow is the largest gap in seconds allowed between consecutive keyframe matches
	TimeWindow float64
}

// Metric compares two hashes
type Metric interface {
	Distance(a, b snippet.Hash) int
}

// MetricFunc adapts a plain function to Metric
type MetricFunc func(a, b snippet.Hash) int

// Distance implements Metric
func (f MetricFunc) Distance(a, b snippet.Hash) int {
	return f(a, b)
}

// Hamming is the bit-count metric used by every supported hash method
var Hamming Metric = MetricFunc(snippet.HammingDistance)
