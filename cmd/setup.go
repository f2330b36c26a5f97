package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"clipwatch/infrastructure/config"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
)

// Prompter interface for interactive prompts (allows mocking in tests)
type Prompter interface {
	Input(message string, defaultValue string) (string, error)
	Confirm(message string, defaultValue bool) (bool, error)
}

// SurveyPrompter implements Prompter using the survey library
type SurveyPrompter struct{}

func (p *SurveyPrompter) Input(message string, defaultValue string) (string, error) {
	result := ""
	prompt := &survey.Input{
		Message: message,
		Default: defaultValue,
	}
	if err := survey.AskOne(prompt, &result); err != nil {
		return "", err
	}
	return result, nil
}

func (p *SurveyPrompter) Confirm(message string, defaultValue bool) (bool, error) {
	result := defaultValue
	prompt := &survey.Confirm{
		Message: message,
		Default: defaultValue,
	}
	if err := survey.AskOne(prompt, &result); err != nil {
		return false, err
	}
	return result, nil
}

// DefaultPrompter is the prompter used in production
var DefaultPrompter Prompter = &SurveyPrompter{}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create configuration file interactively",
	Long: `Prompts for configuration values and writes the config file.

This command guides you through choosing the monitored source, the
snippets to detect, matching thresholds and notification targets.`,
	RunE: runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	return RunSetupWithPrompter(DefaultPrompter, cfgFile, cmd.OutOrStdout())
}

// RunSetupWithPrompter runs the setup with a given prompter (for testing)
func RunSetupWithPrompter(prompter Prompter, configPath string, out io.Writer) error {
	if _, err := os.Stat(configPath); err == nil {
		overwrite, err := prompter.Confirm(fmt.Sprintf("%s already exists. Overwrite?", configPath), false)
		if err != nil {
			return fmt.Errorf("prompt cancelled")
		}
		if !overwrite {
			fmt.Fprintln(out, "Setup cancelled.")
			return nil
		}
	}

	fmt.Fprintln(out, "Welcome to clipwatch setup!")
	fmt.Fprintln(out)

	cfg := config.Default()

	if err := promptSource(prompter, cfg); err != nil {
		return err
	}

	if err := promptClips(prompter, cfg); err != nil {
		return err
	}

	if err := promptMatching(prompter, cfg); err != nil {
		return err
	}

	if err := promptNotify(prompter, cfg); err != nil {
		return err
	}

	if err := config.Validate(cfg); err != nil {
		return err
	}

	if dir := filepath.Dir(configPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := config.Save(cfg, configPath); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Configuration saved to %s\n", configPath)
	return nil
}

func promptSource(prompter Prompter, cfg *config.Config) error {
	source, err := prompter.Input("Video file or stream URL to watch?", "")
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if source == "" {
		return fmt.Errorf("source is required")
	}
	cfg.Source = source
	return nil
}

func promptClips(prompter Prompter, cfg *config.Config) error {
	cfg.Clips = nil
	for {
		clip, err := prompter.Input("Snippet video, image or keyframe directory (empty to finish)?", "")
		if err != nil {
			return fmt.Errorf("prompt cancelled")
		}
		if clip == "" {
			break
		}
		cfg.Clips = append(cfg.Clips, clip)
	}
	if len(cfg.Clips) == 0 {
		return fmt.Errorf("at least one clip is required")
	}
	return nil
}

func promptMatching(prompter Prompter, cfg *config.Config) error {
	threshold, err := promptInt(prompter, "Max Hamming distance counted as a match?", cfg.Matching.MatchThreshold)
	if err != nil {
		return err
	}
	cfg.Matching.MatchThreshold = threshold

	window, err := promptFloat(prompter, "Max seconds between keyframe matches?", cfg.Matching.TimeWindow)
	if err != nil {
		return err
	}
	cfg.Matching.TimeWindow = window

	cooldown, err := promptFloat(prompter, "Seconds before the same clip may be reported again?", cfg.DetectionCooldown)
	if err != nil {
		return err
	}
	cfg.DetectionCooldown = cooldown

	method, err := prompter.Input("Hash method (phash, average, marr, radial)?", cfg.Matching.HashMethod)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if method != "" {
		cfg.Matching.HashMethod = method
	}
	return nil
}

func promptNotify(prompter Prompter, cfg *config.Config) error {
	url, err := prompter.Input("Webhook URL for detection events (empty to skip)?", "")
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	cfg.Notify.URL = url

	useAMQP, err := prompter.Confirm("Publish detection events to RabbitMQ?", false)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	cfg.Notify.UseAMQP = useAMQP
	if useAMQP {
		amqpURL, err := prompter.Input("  AMQP URL?", cfg.Notify.AMQP.URL)
		if err != nil {
			return fmt.Errorf("prompt cancelled")
		}
		if amqpURL != "" {
			cfg.Notify.AMQP.URL = amqpURL
		}
	}

	store, err := prompter.Input("SQLite file for detection history (empty to skip)?", "")
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	cfg.Store.Path = store
	return nil
}

func promptInt(prompter Prompter, message string, def int) (int, error) {
	raw, err := prompter.Input(message, strconv.Itoa(def))
	if err != nil {
		return 0, fmt.Errorf("prompt cancelled")
	}
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%q is not a whole number", raw)
	}
	return n, nil
}

func promptFloat(prompter Prompter, message string, def float64) (float64, error) {
	raw, err := prompter.Input(message, strconv.FormatFloat(def, 'f', -1, 64))
	if err != nil {
		return 0, fmt.Errorf("prompt cancelled")
	}
	if raw == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", raw)
	}
	return f, nil
}
