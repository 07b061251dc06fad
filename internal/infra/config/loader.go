// Package config loads appforge.config.json with env-var overrides.
// Priority: config file > environment > defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	appconfig "github.com/appforge-dev/appforge/internal/app/config"
)

// ConfigFileName is the config file looked up from the project root upward
const ConfigFileName = "appforge.config.json"

// FindConfigPath walks up from startDir looking for the config file.
// Returns "" when no config file exists anywhere up the tree.
func FindConfigPath(startDir string) string {
	current := startDir
	for {
		candidate := filepath.Join(current, ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(current)
		if parent == current {
			return ""
		}
		current = parent
	}
}

// Load reads configuration with the documented precedence. A missing file is
// not an error; env overrides and defaults still apply. A present but
// malformed file is an error so a typo does not silently fall back.
func Load(configPath string) (*appconfig.Config, error) {
	cfg := appconfig.Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", configPath, err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", configPath, err)
		}
	}

	applyEnv(cfg)

	if cfg.AI.Model == "" {
		cfg.AI.Model = "gemini-2.0-flash"
	}
	if cfg.Pipeline.TargetFramework == "" {
		cfg.Pipeline.TargetFramework = "expo"
	}

	return cfg, nil
}

func applyEnv(cfg *appconfig.Config) {
	if v := os.Getenv("APPFORGE_GENERATOR"); v != "" {
		cfg.AI.Provider = v
	}
	if v := os.Getenv("APPFORGE_GEMINI_API_KEY"); v != "" {
		cfg.AI.GeminiAPIKey = v
	}
	if v := os.Getenv("APPFORGE_MODEL"); v != "" {
		cfg.AI.Model = v
	}
	if v := os.Getenv("APPFORGE_SENTRY_DSN"); v != "" {
		cfg.Monitoring.Sentry.DSN = v
		cfg.Monitoring.Sentry.Enabled = true
	}
	if v := os.Getenv("APPFORGE_POSTHOG_API_KEY"); v != "" {
		cfg.Monitoring.PostHog.APIKey = v
		cfg.Monitoring.PostHog.Enabled = true
	}
}

// WriteDefault writes a default config file for `appforge init`.
// Fails if the file already exists.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config already exists: %s", path)
	}
	data, err := json.MarshalIndent(appconfig.Default(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal default config: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
