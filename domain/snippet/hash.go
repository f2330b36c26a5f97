package snippet

import (
	"encoding/hex"
	"fmt"
	"image"
	"math/bits"
	"strings"
)

// Hash is a perceptual hash stored as raw bytes
type Hash []byte

// ParseHash decodes a hexadecimal hash string
func ParseHash(s string) (Hash, error) {
	b, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("invalid hash %q: %w", s, err)
	}
	return Hash(b), nil
}

// String returns the hash in hexadecimal
func (h Hash) String() string {
	return hex.EncodeToString(h)
}

// Clone returns an independent copy of the hash
func (h Hash) Clone() Hash {
	if h == nil {
		return nil
	}
	out := make(Hash, len(h))
	copy(out, h)
	return out
}

// Equal reports whether both hashes hold the same bytes
func (h Hash) Equal(other Hash) bool {
	if len(h) != len(other) {
		return false
	}
	for i := range h {
		if h[i] != other[i] {
			return false
		}
	}
	return true
}

// HammingDistance counts differing bits between two hashes.
// Bytes present in only one of the hashes count as fully different.
func HammingDistance(a, b Hash) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	d := 0
	for i := 0; i < n; i++ {
		d += bits.OnesCount8(a[i] ^ b[i])
	}

	extra := len(a) - len(b)
	if extra < 0 {
		extra = -extra
	}
	return d + extra*8
}

// Hasher computes perceptual hashes and compares them
type Hasher interface {
	// Method returns the algorithm identifier
	Method() Method

	// Compute hashes a decoded image
	Compute(img image.Image) (Hash, error)

	// Distance returns the dissimilarity of two hashes produced by this hasher
	Distance(a, b Hash) int
}

// BackendOf names the implementation behind h. Hashes of one method are only
// comparable when they come from the same backend.
func BackendOf(h Hasher) string {
	if b, ok := h.(interface{ Backend() string }); ok {
		return b.Backend()
	}
	return fmt.Sprintf("%T", h)
}
