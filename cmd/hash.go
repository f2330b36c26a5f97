package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"clipwatch/domain/snippet"
	"clipwatch/infrastructure/config"
	"clipwatch/infrastructure/filesystem"
	"clipwatch/infrastructure/imagehash"

	"github.com/spf13/cobra"
)

var (
	hashMethod   string
	hashDistance bool
)

var hashCmd = &cobra.Command{
	Use:   "hash <image-or-dir>...",
	Short: "Print perceptual hashes of images",
	Long: `Print the perceptual hash of each image, or of every image in a
keyframe directory. With --distance, exactly two images are compared and
their Hamming distance is printed, which helps choose --match_threshold.

Examples:
  clipwatch hash logo.png
  clipwatch hash intro_frames/ --hash_method average
  clipwatch hash --distance logo.png frame.jpg`,
	Args: cobra.MinimumNArgs(1),
	RunE: runHash,
}

func init() {
	rootCmd.AddCommand(hashCmd)
	hashCmd.Flags().StringVar(&hashMethod, "hash_method", "", "hash algorithm: phash, average, marr or radial")
	hashCmd.Flags().BoolVar(&hashDistance, "distance", false, "print the distance between two images")
}

func runHash(cmd *cobra.Command, args []string) error {
	name := hashMethod
	if name == "" {
		name = GetConfig().Matching.HashMethod
	}
	method, err := snippet.ParseMethod(name)
	if err != nil {
		return config.Errorf("hash_method: %v", err)
	}
	hasher, err := imagehash.New(method)
	if err != nil {
		return config.Errorf("hash_method: %v", err)
	}

	if hashDistance {
		if len(args) != 2 {
			return fmt.Errorf("--distance needs exactly two images, got %d", len(args))
		}
		return RunHashDistance(hasher, args[0], args[1], cmd.OutOrStdout())
	}
	return RunHashWithDependencies(hasher, filesystem.NewChecker(), args, cmd.OutOrStdout())
}

// RunHashWithDependencies prints one line per hashed image
func RunHashWithDependencies(hasher snippet.Hasher, fs *filesystem.Checker, paths []string, out io.Writer) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, p := range paths {
		var images []string
		switch kind := fs.Classify(p); kind {
		case filesystem.KindImage:
			images = []string{p}
		case filesystem.KindDirectory:
			list, err := fs.ListImages(p)
			if err != nil {
				return err
			}
			images = list
		default:
			return fmt.Errorf("%s is not an image or keyframe directory (%s)", p, kind)
		}

		for _, img := range images {
			h, err := imagehash.HashFile(hasher, img)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s\t%s\n", h, img)
		}
	}
	return w.Flush()
}

// RunHashDistance prints the distance between two images under hasher's method
func RunHashDistance(hasher snippet.Hasher, a, b string, out io.Writer) error {
	ha, err := imagehash.HashFile(hasher, a)
	if err != nil {
		return err
	}
	hb, err := imagehash.HashFile(hasher, b)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%d\n", hasher.Distance(ha, hb))
	return nil
}
