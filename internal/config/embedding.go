package config

import (
	"fmt"
	"os"
	"time"
)

// EmbeddingConfig selects the provider used for semantic duplicate checks.
// Provider "none" disables the semantic tier.
type EmbeddingConfig struct {
	Provider   string        `mapstructure:"provider"` // ollama, jina, none
	Model      string        `mapstructure:"model"`
	APIKey     string        `mapstructure:"api_key"`
	APIKeyEnv  string        `mapstructure:"api_key_env"` // env var holding the API key
	BaseURL    string        `mapstructure:"base_url"`
	Dimensions int           `mapstructure:"dimensions"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// Enabled reports whether a provider is configured.
func (c *EmbeddingConfig) Enabled() bool {
	return c.Provider != "" && c.Provider != "none"
}

// ResolveEnvVars loads APIKey from APIKeyEnv when not set directly.
func (c *EmbeddingConfig) ResolveEnvVars() {
	if c.APIKeyEnv != "" && c.APIKey == "" {
		c.APIKey = os.Getenv(c.APIKeyEnv)
	}
}

// Validate checks the provider-specific required fields.
func (c *EmbeddingConfig) Validate() error {
	if !c.Enabled() {
		return nil
	}
	switch c.Provider {
	case "ollama", "jina":
	default:
		return fmt.Errorf("embedding: unknown provider %q", c.Provider)
	}
	if c.Model == "" {
		return fmt.Errorf("embedding %q: model is required", c.Provider)
	}
	if c.Dimensions <= 0 {
		return fmt.Errorf("embedding %q: dimensions must be positive", c.Provider)
	}
	return nil
}
