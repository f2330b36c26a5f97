package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Errors for config management
var (
	ErrClipNotFound  = errors.New("clip not found")
	ErrDuplicateClip = errors.New("clip already registered")
)

// ConfigManager provides CRUD operations for the registered clip list
type ConfigManager struct {
	config     *Config
	configPath string
}

// NewConfigManager creates a new config manager
func NewConfigManager(cfg *Config, configPath string) *ConfigManager {
	return &ConfigManager{
		config:     cfg,
		configPath: configPath,
	}
}

// AddClip registers a snippet path
func (m *ConfigManager) AddClip(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("clip path is required")
	}

	for _, existing := range m.config.Clips {
		if samePath(existing, path) {
			return fmt.Errorf("%w: %q", ErrDuplicateClip, path)
		}
	}

	m.config.Clips = append(m.config.Clips, path)
	return Save(m.config, m.configPath)
}

// ListClips returns the registered snippet paths in order
func (m *ConfigManager) ListClips() []string {
	out := make([]string, len(m.config.Clips))
	copy(out, m.config.Clips)
	return out
}

// RemoveClip unregisters a snippet path
func (m *ConfigManager) RemoveClip(path string) error {
	path = strings.TrimSpace(path)
	for i, existing := range m.config.Clips {
		if samePath(existing, path) {
			m.config.Clips = append(m.config.Clips[:i], m.config.Clips[i+1:]...)
			return Save(m.config, m.configPath)
		}
	}
	return fmt.Errorf("%w: %q", ErrClipNotFound, path)
}

// SetSource updates the monitored source
func (m *ConfigManager) SetSource(source string) error {
	source = strings.TrimSpace(source)
	if source == "" {
		return fmt.Errorf("source is required")
	}
	m.config.Source = source
	return Save(m.config, m.configPath)
}

func samePath(a, b string) bool {
	return filepath.Clean(a) == filepath.Clean(b)
}
