package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"clipwatch/domain/video"
	"clipwatch/infrastructure/server"
	"clipwatch/infrastructure/sqlite"

	"github.com/spf13/cobra"
)

var (
	historyClip  string
	historyLimit int
	historyStore string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded detections",
	Long: `List detections recorded by watch runs that had a history store
configured, newest first.

Examples:
  clipwatch history --store detections.db
  clipwatch history --clip intro.mp4 --limit 10`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().StringVar(&historyClip, "clip", "", "only show detections of this clip")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "max rows to show")
	historyCmd.Flags().StringVar(&historyStore, "store", "", "sqlite history file (default: store.path from config)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	path := historyStore
	if path == "" {
		path = GetConfig().Store.Path
	}
	if path == "" {
		return fmt.Errorf("no history store configured. Use --store or set store.path")
	}

	store, err := sqlite.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	return RunHistoryWithDependencies(cmd.Context(), store, historyClip, historyLimit, cmd.OutOrStdout())
}

// RunHistoryWithDependencies prints stored detections as a table
func RunHistoryWithDependencies(ctx context.Context, history server.History, clip string, limit int, out io.Writer) error {
	records, err := history.List(ctx, clip, limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(out, "No detections recorded.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DETECTED\tCLIP\tSTART\tEND")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			r.DetectedAt.Local().Format(time.DateTime),
			r.ClipName,
			video.FormatTimestamp(r.StartTime),
			video.FormatTimestamp(r.EndTime),
		)
	}
	return w.Flush()
}
