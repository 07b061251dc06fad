package generation

import (
	"fmt"

	"github.com/appforge-dev/appforge/internal/app/config"
)

// NewGenerator creates a Generator from configuration.
// Supported providers: gemini, mock. An empty provider picks gemini when an
// API key is configured and the mock otherwise, so `appforge build` works
// out of the box.
func NewGenerator(cfg *config.Config) (Generator, error) {
	provider := cfg.AI.Provider
	if provider == "" {
		if cfg.AI.GeminiAPIKey != "" {
			provider = "gemini"
		} else {
			provider = "mock"
		}
	}

	switch provider {
	case "gemini":
		if cfg.AI.GeminiAPIKey == "" {
			return nil, fmt.Errorf("gemini API key not configured (set ai.geminiApiKey or APPFORGE_GEMINI_API_KEY)")
		}
		return NewGeminiGateway(cfg.AI.GeminiAPIKey), nil
	case "mock":
		return NewMockGateway(), nil
	default:
		return nil, fmt.Errorf("unknown generator provider: %s (supported: gemini, mock)", provider)
	}
}
