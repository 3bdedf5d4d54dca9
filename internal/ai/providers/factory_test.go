package providers

import (
	"testing"

	"github.com/opshawk/opshawk/internal/config"
)

func TestNewProviderAnthropic(t *testing.T) {
	p, err := NewProvider(config.AIConfig{
		Provider:        config.ProviderAnthropic,
		Model:           "claude-sonnet-4-20250514",
		AnthropicAPIKey: "sk-test",
	})
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	if p.Name() != "anthropic" {
		t.Errorf("name = %q", p.Name())
	}
}

func TestNewProviderAnthropicRequiresKey(t *testing.T) {
	if _, err := NewProvider(config.AIConfig{Provider: config.ProviderAnthropic}); err == nil {
		t.Fatal("expected error for missing API key")
	}
}

func TestNewProviderOllama(t *testing.T) {
	p, err := NewProvider(config.AIConfig{
		Provider: config.ProviderOllama,
		Model:    "qwen2.5:14b",
	})
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	if p.Name() != "ollama" {
		t.Errorf("name = %q", p.Name())
	}
}

func TestNewProviderUnknown(t *testing.T) {
	if _, err := NewProvider(config.AIConfig{Provider: "gpt4all"}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
