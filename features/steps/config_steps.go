//go:build integration

package steps

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"clipwatch/cmd"
	"clipwatch/infrastructure/config"

	"github.com/cucumber/godog"
)

type configContext struct {
	tempDir    string
	configPath string
	output     *bytes.Buffer
	err        error
}

var SharedConfigContext = &configContext{}

func InitializeConfigScenario(ctx *godog.ScenarioContext) {
	testCtx := SharedConfigContext

	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		tempDir, err := os.MkdirTemp("", "config-test-*")
		if err != nil {
			return c, err
		}
		testCtx.tempDir = tempDir
		testCtx.configPath = filepath.Join(tempDir, "clipwatch.yaml")
		testCtx.output = &bytes.Buffer{}
		testCtx.err = nil
		return c, nil
	})

	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if testCtx.tempDir != "" {
			os.RemoveAll(testCtx.tempDir)
		}
		testCtx.tempDir = ""
		return c, nil
	})

	ctx.Step(`^a config file exists with source "([^"]*)" and clips "([^"]*)"$`, testCtx.aConfigFileExists)
	ctx.Step(`^I run config clips add "([^"]*)"$`, testCtx.iRunConfigClipsAdd)
	ctx.Step(`^I run config clips list$`, testCtx.iRunConfigClipsList)
	ctx.Step(`^I run config clips remove "([^"]*)"$`, testCtx.iRunConfigClipsRemove)
	ctx.Step(`^I run config source set "([^"]*)"$`, testCtx.iRunConfigSourceSet)
	ctx.Step(`^the command should succeed$`, testCtx.theCommandShouldSucceed)
	ctx.Step(`^the command should fail with "([^"]*)"$`, testCtx.theCommandShouldFailWith)
	ctx.Step(`^the output should contain "([^"]*)"$`, testCtx.theOutputShouldContain)
	ctx.Step(`^the config should contain clips "([^"]*)"$`, testCtx.theConfigShouldContainClips)
	ctx.Step(`^the config should have source "([^"]*)"$`, testCtx.theConfigShouldHaveSource)
	ctx.Step(`^the config should have match threshold (\d+)$`, testCtx.theConfigShouldHaveMatchThreshold)
}

func (c *configContext) aConfigFileExists(source, clips string) error {
	cfg := config.Default()
	cfg.Source = source
	cfg.Clips = splitClips(clips)
	return config.Save(cfg, c.configPath)
}

func (c *configContext) load() (*config.Config, error) {
	return config.Load(c.configPath)
}

func (c *configContext) iRunConfigClipsAdd(path string) error {
	cfg, err := c.load()
	if err != nil {
		return err
	}
	c.err = cmd.RunConfigClipsAddWithDependencies(cfg, c.configPath, []string{path}, c.output)
	return nil
}

func (c *configContext) iRunConfigClipsList() error {
	cfg, err := c.load()
	if err != nil {
		return err
	}
	c.err = cmd.RunConfigClipsListWithDependencies(cfg, c.configPath, c.output)
	return nil
}

func (c *configContext) iRunConfigClipsRemove(path string) error {
	cfg, err := c.load()
	if err != nil {
		return err
	}
	c.err = cmd.RunConfigClipsRemoveWithDependencies(cfg, c.configPath, path, c.output)
	return nil
}

func (c *configContext) iRunConfigSourceSet(source string) error {
	cfg, err := c.load()
	if err != nil {
		return err
	}
	c.err = cmd.RunConfigSourceSetWithDependencies(cfg, c.configPath, source, c.output)
	return nil
}

func (c *configContext) theCommandShouldSucceed() error {
	if c.err != nil {
		return fmt.Errorf("expected success, got error: %w", c.err)
	}
	return nil
}

func (c *configContext) theCommandShouldFailWith(expected string) error {
	if c.err == nil {
		return fmt.Errorf("expected error containing %q, got success", expected)
	}
	if !strings.Contains(c.err.Error(), expected) {
		return fmt.Errorf("expected error containing %q, got %q", expected, c.err.Error())
	}
	return nil
}

func (c *configContext) theOutputShouldContain(expected string) error {
	if !strings.Contains(c.output.String(), expected) {
		return fmt.Errorf("expected output to contain %q, got %q", expected, c.output.String())
	}
	return nil
}

func splitClips(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func (c *configContext) theConfigShouldContainClips(expected string) error {
	cfg, err := c.load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if got := strings.Join(cfg.Clips, ","); got != expected {
		return fmt.Errorf("expected clips %q, got %q", expected, got)
	}
	return nil
}

func (c *configContext) theConfigShouldHaveSource(expected string) error {
	cfg, err := c.load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Source != expected {
		return fmt.Errorf("expected source %q, got %q", expected, cfg.Source)
	}
	return nil
}

func (c *configContext) theConfigShouldHaveMatchThreshold(expected int) error {
	cfg, err := c.load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Matching.MatchThreshold != expected {
		return fmt.Errorf("expected match threshold %d, got %d", expected, cfg.Matching.MatchThreshold)
	}
	return nil
}
