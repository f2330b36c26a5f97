package snippet

import (
	"fmt"
	"strings"
)

// Method identifies a perceptual hash algorithm
type Method string

const (
	MethodPHash   Method = "phash"
	MethodAverage Method = "average"
	MethodMarr    Method = "marr"
	MethodRadial  Method = "radial"
)

// Methods lists every supported hash method
func Methods() []Method {
	return []Method{MethodPHash, MethodAverage, MethodMarr, MethodRadial}
}

// ParseMethod parses a method name (case-insensitive)
func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Methods() {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownHashMethod, s)
}

// String returns the method name
func (m Method) String() string {
	return string(m)
}
