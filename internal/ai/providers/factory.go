package providers

import (
	"fmt"

	"github.com/opshawk/opshawk/internal/config"
)

// NewProvider builds the configured provider client.
func NewProvider(cfg config.AIConfig) (Provider, error) {
	switch cfg.Provider {
	case config.ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("anthropic provider requires an API key")
		}
		return NewAnthropicClient(cfg.AnthropicAPIKey, cfg.Model, cfg.RequestTimeout()), nil
	case config.ProviderOllama:
		return NewOllamaClient(cfg.Model, cfg.OllamaBaseURL, cfg.RequestTimeout())
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}
