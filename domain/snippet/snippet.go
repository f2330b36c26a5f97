package snippet

import "fmt"

// Kind identifies how a snippet is matched against the stream
type Kind string

const (
	// KindSequence is an ordered set of keyframes matched in temporal order
	KindSequence Kind = "sequence"

	// KindSingleImage is one reference image that must match continuously for a minimum duration
	KindSingleImage Kind = "single_image"
)

// Snippet is a registered detection target. It is immutable once built.
type Snippet struct {
	// Name identifies the snippet in events and cooldown state
	Name string

	// Kind selects the matching strategy
	Kind Kind

	// Method is the hash algorithm the keyframes were produced with
	Method Method

	// Source is the path the snippet was built from
	Source string

	keyframes   []Hash
	minDuration float64
}

// NewSequence creates a Sequence snippet from keyframe hashes in temporal order
func NewSequence(name string, method Method, keyframes []Hash) (Snippet, error) {
	if len(keyframes) == 0 {
		return Snippet{}, fmt.Errorf("%w: %s", ErrEmptySignature, name)
	}

	return Snippet{
		Name:      name,
		Kind:      KindSequence,
		Method:    method,
		keyframes: cloneHashes(keyframes),
	}, nil
}

// NewSingleImage creates a SingleImage snippet that must match for at least minDuration seconds
func NewSingleImage(name string, method Method, hash Hash, minDuration float64) (Snippet, error) {
	if len(hash) == 0 {
		return Snippet{}, fmt.Errorf("%w: %s", ErrEmptySignature, name)
	}
	if minDuration < 0 {
		return Snippet{}, fmt.Errorf("min duration must not be negative, got %v", minDuration)
	}

	return Snippet{
		Name:        name,
		Kind:        KindSingleImage,
		Method:      method,
		keyframes:   []Hash{hash.Clone()},
		minDuration: minDuration,
	}, nil
}

// WithSource returns a copy of the snippet recording the path it was built from
func (s Snippet) WithSource(path string) Snippet {
	s.Source = path
	return s
}

// Len returns the number of hashes in the signature
func (s Snippet) Len() int {
	return len(s.keyframes)
}

// Keyframe returns the hash at index i of the signature
func (s Snippet) Keyframe(i int) Hash {
	return s.keyframes[i]
}

// Keyframes returns a copy of the signature hashes
func (s Snippet) Keyframes() []Hash {
	return cloneHashes(s.keyframes)
}

// MinDuration returns the continuous match duration required by a SingleImage snippet
func (s Snippet) MinDuration() float64 {
	return s.minDuration
}

func cloneHashes(hashes []Hash) []Hash {
	out := make([]Hash, len(hashes))
	for i, h := range hashes {
		out[i] = h.Clone()
	}
	return out
}
