package filesystem

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/maruel/natural"
)

// PathKind classifies a snippet path
type PathKind int

const (
	// KindMissing means nothing exists at the path
	KindMissing PathKind = iota

	// KindVideo is a snippet video file
	KindVideo

	// KindImage is a single reference image
	KindImage

	// KindDirectory is a directory of pre-extracted keyframes
	KindDirectory
)

func (k PathKind) String() string {
	switch k {
	case KindVideo:
		return "video"
	case KindImage:
		return "image"
	case KindDirectory:
		return "directory"
	default:
		return "missing"
	}
}

// imageExtensions are the file types decoded as keyframes or reference images
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".webp": true,
	".gif":  true,
}

// Checker inspects snippet paths using the os package
type Checker struct{}

// NewChecker creates a new filesystem checker
func NewChecker() *Checker {
	return &Checker{}
}

// Exists returns true if the file exists
func (c *Checker) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Classify determines whether a path is a video, an image or a keyframe directory
func (c *Checker) Classify(path string) PathKind {
	info, err := os.Stat(path)
	if err != nil {
		return KindMissing
	}
	if info.IsDir() {
		return KindDirectory
	}
	if IsImage(path) {
		return KindImage
	}
	return KindVideo
}

// ListImages returns the image files in dir in natural filename order
// (frame_2.jpg sorts before frame_10.jpg)
func (c *Checker) ListImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if IsImage(entry.Name()) {
			names = append(names, entry.Name())
		}
	}
	sort.Sort(natural.StringSlice(names))

	files := make([]string, len(names))
	for i, name := range names {
		files[i] = filepath.Join(dir, name)
	}
	return files, nil
}

// IsImage reports whether the path has a supported image extension
func IsImage(path string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(path))]
}

// KeyframeDir returns the sibling directory that holds extracted keyframes for a snippet video
func KeyframeDir(videoPath, root string) string {
	base := strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))
	if root == "" {
		root = filepath.Dir(videoPath)
	}
	return filepath.Join(root, base+"_frames")
}
