package imagehash

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"clipwatch/domain/snippet"
)

// Decode reads an image file in any registered format
func Decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	return img, nil
}

// HashFile decodes and hashes an image file
func HashFile(h snippet.Hasher, path string) (snippet.Hash, error) {
	img, err := Decode(path)
	if err != nil {
		return nil, err
	}
	return h.Compute(img)
}
