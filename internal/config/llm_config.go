package config

import (
	"fmt"
	"time"
)

// Supported AI providers.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// AIConfig holds configuration for the optional AI capability
type AIConfig struct {
	Provider    string        `mapstructure:"provider" yaml:"provider"`
	APIKey      string        `mapstructure:"api_key" yaml:"api_key,omitempty"`
	Model       string        `mapstructure:"model" yaml:"model"`       // e.g., "gpt-4o-mini"
	BaseURL     string        `mapstructure:"base_url" yaml:"base_url"` // Optional, for custom endpoints
	Temperature float64       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// Enabled reports whether an AI provider can be constructed.
func (c AIConfig) Enabled() bool {
	return c.APIKey != ""
}

// ModelOrDefault returns the configured model or the provider's default one.
func (c AIConfig) ModelOrDefault() string {
	if c.Model != "" {
		return c.Model
	}
	switch c.Provider {
	case ProviderGemini:
		return "gemini-2.5-flash"
	default:
		return "gpt-4o-mini"
	}
}

// Validate checks the AI section. An empty key disables the capability and is valid.
func (c AIConfig) Validate() error {
	switch c.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("unsupported ai.provider %q", c.Provider)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("ai.temperature must be between 0 and 2, got %v", c.Temperature)
	}
	if c.Enabled() && c.MaxTokens <= 0 {
		return fmt.Errorf("ai.max_tokens must be positive")
	}
	return nil
}
