//go:build !detection

package imagehash

import "clipwatch/domain/snippet"

// newBackend uses the pure-Go hashers when GoCV/OpenCV is not compiled in
func newBackend(method snippet.Method) (snippet.Hasher, error) {
	return NewGoHasher(method)
}
