package cmd

import (
	"context"
	"fmt"
	"io"

	"clipwatch/domain/video"
	"clipwatch/infrastructure/ffmpeg"
	"clipwatch/infrastructure/filesystem"

	"github.com/spf13/cobra"
)

var extractFramesDir string

var extractCmd = &cobra.Command{
	Use:   "extract <video>...",
	Short: "Extract keyframes from snippet videos",
	Long: `Extract one keyframe per second from each snippet video, plus the
final frame. Keyframes are written next to the video in a <name>_frames
directory, or under --frames_dir, and reused by later watch runs.

Examples:
  clipwatch extract intro.mp4
  clipwatch extract intro.mp4 outro.mp4 --frames_dir ./keyframes`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().StringVar(&extractFramesDir, "frames_dir", "", "directory for extracted keyframes (default: next to each video)")
}

func runExtract(cmd *cobra.Command, args []string) error {
	c := GetConfig()
	extractor := ffmpeg.NewExtractor(
		ffmpeg.WithExtractorFFmpegPath(c.Stream.FFmpegPath),
		ffmpeg.WithExtractorProber(ffmpeg.NewProber(ffmpeg.WithFFprobePath(c.Stream.FFprobePath))),
	)
	if err := extractor.VerifyInstalled(cmd.Context()); err != nil {
		return fmt.Errorf("ffmpeg verification failed: %w", err)
	}

	root := extractFramesDir
	if root == "" {
		root = c.Matching.FramesDir
	}
	return RunExtractWithDependencies(cmd.Context(), extractor, filesystem.NewChecker(), args, root, cmd.OutOrStdout())
}

// RunExtractWithDependencies extracts keyframes for every video in paths
func RunExtractWithDependencies(ctx context.Context, extractor video.KeyframeExtractor, fs *filesystem.Checker, paths []string, framesRoot string, out io.Writer) error {
	for _, p := range paths {
		if kind := fs.Classify(p); kind != filesystem.KindVideo {
			return fmt.Errorf("%s is not a video file (%s)", p, kind)
		}

		dir := filesystem.KeyframeDir(p, framesRoot)
		fmt.Fprintf(out, "Extracting keyframes from %s...\n", p)
		n, err := extractor.Extract(ctx, p, dir)
		if err != nil {
			return fmt.Errorf("failed to extract %s: %w", p, err)
		}
		fmt.Fprintf(out, "  %d keyframes written to %s\n", n, dir)
	}
	return nil
}
