package cmd

import (
	"fmt"
	"io"
	"os"

	"clipwatch/infrastructure/config"
	"clipwatch/infrastructure/logging"

	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	envFile   string
	verbose   bool
	logFormat string
	cfg       *config.Config
	cfgErr    error
)

var rootCmd = &cobra.Command{
	Use:   "clipwatch",
	Short: "Detect registered video snippets in files and live streams",
	Long: `clipwatch watches a video file or live stream (RTMP, RTSP, HLS) for
pre-registered snippets and reports every occurrence:

  - Snippet videos are reduced to ordered keyframe hashes
  - Keyframe directories and single reference images are supported
  - Detections are printed and sent to HTTP, AMQP and MQTT sinks

Example:
  clipwatch watch --source rtmp://live.example.com/app/stream --clips intro.mp4,logo.png`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initLogging(cmd.ErrOrStderr())
	},
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.SilenceErrors = true
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "clipwatch.yaml", "config file (optional)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with CLIPWATCH_* overrides (optional)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: console or json")
}

// initConfig resolves defaults < config file < environment. Flags are applied by each command.
func initConfig() {
	cfg, cfgErr = LoadConfig(cfgFile, envFile, os.LookupEnv)
}

// LoadConfig loads the optional config file and applies environment overrides
func LoadConfig(path, dotenv string, lookup func(string) (string, bool)) (*config.Config, error) {
	if dotenv != "" {
		if err := config.LoadDotEnv(dotenv); err != nil {
			return config.Default(), err
		}
	}

	c, err := config.LoadOptional(path)
	if err != nil {
		return config.Default(), config.Errorf("%v", err)
	}
	if err := config.ApplyEnv(c, lookup); err != nil {
		return c, err
	}
	return c, nil
}

func initLogging(w io.Writer) {
	c := GetConfig()
	opts := logging.Options{Writer: w, Verbose: verbose || c.Verbose, Format: c.LogFormat}
	if logFormat != "" {
		opts.Format = logFormat
	}
	logging.Init(opts)
}

// GetConfig returns the loaded configuration, falling back to defaults
func GetConfig() *config.Config {
	if cfg == nil {
		cfg = config.Default()
	}
	return cfg
}
