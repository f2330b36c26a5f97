package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"clipwatch/infrastructure/config"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// OutputWriter is where commands print their results
type OutputWriter interface {
	io.Writer
}

// DefaultOutput is the default output writer for config commands
var DefaultOutput OutputWriter = os.Stdout

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration entries",
	Long: `Manage the registered clips and the monitored source in the configuration file.

Examples:
  clipwatch config clips add intro.mp4
  clipwatch config clips list
  clipwatch config clips remove intro.mp4
  clipwatch config source set rtmp://live.example.com/app/stream
  clipwatch config show`,
}

var configClipsCmd = &cobra.Command{
	Use:   "clips",
	Short: "Manage registered clips",
}

var configSourceCmd = &cobra.Command{
	Use:   "source",
	Short: "Manage the monitored source",
}

func init() {
	rootCmd.AddCommand(configCmd)

	configCmd.AddCommand(configClipsCmd)
	configCmd.AddCommand(configSourceCmd)
	configCmd.AddCommand(configShowCmd)

	configClipsCmd.AddCommand(configClipsAddCmd)
	configClipsCmd.AddCommand(configClipsListCmd)
	configClipsCmd.AddCommand(configClipsRemoveCmd)
	configSourceCmd.AddCommand(configSourceSetCmd)
}

func loadedConfig() (*config.Config, error) {
	if cfgErr != nil {
		return nil, cfgErr
	}
	return GetConfig(), nil
}

// --- CLIPS ---

var configClipsAddCmd = &cobra.Command{
	Use:   "add <path>...",
	Short: "Register one or more clips",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadedConfig()
		if err != nil {
			return err
		}
		return RunConfigClipsAddWithDependencies(cfg, cfgFile, args, DefaultOutput)
	},
}

// RunConfigClipsAddWithDependencies registers clips and saves the config file
func RunConfigClipsAddWithDependencies(cfg *config.Config, configPath string, paths []string, out OutputWriter) error {
	mgr := config.NewConfigManager(cfg, configPath)
	for _, p := range paths {
		if err := mgr.AddClip(p); err != nil {
			return err
		}
		fmt.Fprintf(out, "Added clip %q\n", p)
	}
	return nil
}

var configClipsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered clips",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadedConfig()
		if err != nil {
			return err
		}
		return RunConfigClipsListWithDependencies(cfg, cfgFile, DefaultOutput)
	},
}

// RunConfigClipsListWithDependencies prints the registered clips in order
func RunConfigClipsListWithDependencies(cfg *config.Config, configPath string, out OutputWriter) error {
	mgr := config.NewConfigManager(cfg, configPath)
	clips := mgr.ListClips()
	if len(clips) == 0 {
		fmt.Fprintln(out, "No clips configured.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tPATH")
	for i, c := range clips {
		fmt.Fprintf(w, "%d\t%s\n", i+1, c)
	}
	return w.Flush()
}

var configClipsRemoveCmd = &cobra.Command{
	Use:   "remove <path>",
	Short: "Unregister a clip",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadedConfig()
		if err != nil {
			return err
		}
		return RunConfigClipsRemoveWithDependencies(cfg, cfgFile, args[0], DefaultOutput)
	},
}

// RunConfigClipsRemoveWithDependencies unregisters a clip and saves the config file
func RunConfigClipsRemoveWithDependencies(cfg *config.Config, configPath, path string, out OutputWriter) error {
	mgr := config.NewConfigManager(cfg, configPath)
	if err := mgr.RemoveClip(path); err != nil {
		return err
	}
	fmt.Fprintf(out, "Removed clip %q\n", path)
	return nil
}

// --- SOURCE ---

var configSourceSetCmd = &cobra.Command{
	Use:   "set <file-or-url>",
	Short: "Set the monitored source",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadedConfig()
		if err != nil {
			return err
		}
		return RunConfigSourceSetWithDependencies(cfg, cfgFile, args[0], DefaultOutput)
	},
}

// RunConfigSourceSetWithDependencies updates the source and saves the config file
func RunConfigSourceSetWithDependencies(cfg *config.Config, configPath, source string, out OutputWriter) error {
	mgr := config.NewConfigManager(cfg, configPath)
	if err := mgr.SetSource(source); err != nil {
		return err
	}
	fmt.Fprintf(out, "Source set to %q\n", source)
	return nil
}

// --- SHOW ---

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long:  `Print the configuration after defaults, the config file and CLIPWATCH_* environment variables are applied.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadedConfig()
		if err != nil {
			return err
		}
		return RunConfigShowWithDependencies(cfg, DefaultOutput)
	},
}

// RunConfigShowWithDependencies writes cfg as YAML
func RunConfigShowWithDependencies(cfg *config.Config, out OutputWriter) error {
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}
	return enc.Close()
}
