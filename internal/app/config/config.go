// Package config defines the application configuration consumed by the
// pipeline and CLI layers. Loading is an infrastructure concern; see
// internal/infra/config.
package config

// AIConfig configures the text-generation service
type AIConfig struct {
	Provider     string `json:"provider"`     // "gemini" or "mock"; empty picks by API key presence
	GeminiAPIKey string `json:"geminiApiKey"` //
	Model        string `json:"model"`        // default "gemini-2.0-flash"
}

// StitchConfig configures the UI design generator integration
type StitchConfig struct {
	ProjectID       string `json:"projectId"`
	CredentialsPath string `json:"credentialsPath"`
}

// SupabaseConfig configures the backend target
type SupabaseConfig struct {
	ProjectURL     string `json:"projectUrl"`
	ServiceRoleKey string `json:"serviceRoleKey"`
}

// SentryConfig configures error-tracking wiring for generated apps
type SentryConfig struct {
	DSN     string `json:"dsn"`
	Enabled bool   `json:"enabled"`
}

// PostHogConfig configures analytics wiring for generated apps
type PostHogConfig struct {
	APIKey  string `json:"apiKey"`
	Enabled bool   `json:"enabled"`
}

// MonitoringConfig groups the optional monitoring integrations
type MonitoringConfig struct {
	Sentry  SentryConfig  `json:"sentry"`
	PostHog PostHogConfig `json:"posthog"`
}

// PipelineConfig controls pipeline behavior
type PipelineConfig struct {
	RequireUIApproval bool   `json:"requireUIApproval"`
	TargetFramework   string `json:"targetFramework"` // "expo" or "react-native"
	AutoGenerateRLS   bool   `json:"autoGenerateRLS"`
}

// Config is the full application configuration
type Config struct {
	AI         AIConfig         `json:"ai"`
	Stitch     StitchConfig     `json:"stitch"`
	Supabase   SupabaseConfig   `json:"supabase"`
	Monitoring MonitoringConfig `json:"monitoring"`
	Pipeline   PipelineConfig   `json:"pipeline"`
}

// Default returns the configuration used when no file and no env overrides exist
func Default() *Config {
	return &Config{
		AI: AIConfig{
			Model: "gemini-2.0-flash",
		},
		Pipeline: PipelineConfig{
			RequireUIApproval: false,
			TargetFramework:   "expo",
			AutoGenerateRLS:   true,
		},
	}
}

// MonitoringEnabled reports whether at least one monitoring integration is on.
// The monitoring stage is omitted entirely when this is false.
func (c *Config) MonitoringEnabled() bool {
	return c.Monitoring.Sentry.Enabled || c.Monitoring.PostHog.Enabled
}
