// Package config loads workspace configuration from packsmith.yml, with
// environment overrides and sensible defaults for a bare workspace.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the packsmith workspace configuration.
type Config struct {
	Workspace WorkspaceConfig `mapstructure:"workspace"`
	Save      SaveConfig      `mapstructure:"save"`
	Watch     WatchConfig     `mapstructure:"watch"`
}

// WorkspaceConfig locates the resource library and package manifests.
type WorkspaceConfig struct {
	Library  string `mapstructure:"library"`
	Packages string `mapstructure:"packages"`
}

// SaveConfig tunes the debounced save scheduler.
type SaveConfig struct {
	DebounceMS int `mapstructure:"debounce_ms"`
}

// WatchConfig tunes the library watcher.
type WatchConfig struct {
	DebounceMS int `mapstructure:"debounce_ms"`
}

// SaveDebounce returns the save debounce as a duration.
func (c *Config) SaveDebounce() time.Duration {
	return time.Duration(c.Save.DebounceMS) * time.Millisecond
}

// WatchDebounce returns the watch debounce as a duration.
func (c *Config) WatchDebounce() time.Duration {
	return time.Duration(c.Watch.DebounceMS) * time.Millisecond
}

// Load loads the configuration from packsmith.yml or packsmith.yaml in the
// current directory, falling back to defaults when no file exists.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("workspace.library", "library")
	v.SetDefault("workspace.packages", "packages")
	v.SetDefault("save.debounce_ms", 500)
	v.SetDefault("watch.debounce_ms", 200)

	v.SetConfigName("packsmith")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PACKSMITH")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// InWorkspace checks whether the current directory looks like a packsmith
// workspace.
func InWorkspace() bool {
	if _, err := os.Stat("packsmith.yml"); err == nil {
		return true
	}
	if _, err := os.Stat("packsmith.yaml"); err == nil {
		return true
	}
	return false
}

// FindWorkspaceRoot walks upward looking for packsmith.yml.
func FindWorkspaceRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "packsmith.yml")); err == nil {
			return dir, nil
		}
		if _, err := os.Stat(filepath.Join(dir, "packsmith.yaml")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not in a packsmith workspace (no packsmith.yml found)")
		}
		dir = parent
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Workspace.Library == "" {
		return fmt.Errorf("workspace.library must not be empty")
	}
	if cfg.Workspace.Packages == "" {
		return fmt.Errorf("workspace.packages must not be empty")
	}
	if cfg.Workspace.Library == cfg.Workspace.Packages {
		return fmt.Errorf("workspace.library and workspace.packages must differ, both are %q", cfg.Workspace.Library)
	}
	if cfg.Save.DebounceMS < 0 {
		return fmt.Errorf("save.debounce_ms must not be negative, got: %d", cfg.Save.DebounceMS)
	}
	if cfg.Watch.DebounceMS < 0 {
		return fmt.Errorf("watch.debounce_ms must not be negative, got: %d", cfg.Watch.DebounceMS)
	}
	return nil
}
