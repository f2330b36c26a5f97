package video

import "context"

// KeyframeExtractor defines the interface for pulling keyframes out of a snippet video.
// This is a port that can be implemented by different infrastructure adapters.
type KeyframeExtractor interface {
	// Extract writes the first frame, frames at 1-second intervals and the last frame
	// of videoPath into outputDir as images whose lexical order is temporal order.
	// It returns the number of frames written.
	Extract(ctx context.Context, videoPath, outputDir string) (int, error)
}
