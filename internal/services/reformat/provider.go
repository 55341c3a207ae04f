package reformat

import (
	"fmt"
	"strings"
	"time"
)

// Supported provider names.
const (
	ProviderGemini     = "gemini"
	ProviderAnthropic  = "anthropic"
	ProviderOpenRouter = "openrouter"
	ProviderOllama     = "ollama"
)

// DefaultModel returns the model used when none is configured.
func DefaultModel(provider string) string {
	switch provider {
	case ProviderAnthropic:
		return "claude-sonnet-4-5"
	case ProviderOpenRouter:
		return "google/gemini-2.5-flash"
	case ProviderOllama:
		return "llama3.1"
	default:
		return "gemini-2.5-flash"
	}
}

// ProviderConfig holds the credentials and endpoints for every provider.
// Only the fields of the selected provider are read.
type ProviderConfig struct {
	GeminiAPIKey     string
	AnthropicAPIKey  string
	OpenRouterAPIKey string
	OllamaHost       string
	HTTPTimeout      time.Duration
}

// NewProvider builds the named provider. Clients are created lazily on the
// first call, so a missing key only fails the first reformat request.
func NewProvider(name string, cfg ProviderConfig) (Provider, error) {
	switch strings.ToLower(name) {
	case "", ProviderGemini:
		return NewGemini(cfg.GeminiAPIKey), nil
	case ProviderAnthropic, "claude":
		return NewAnthropic(cfg.AnthropicAPIKey), nil
	case ProviderOpenRouter:
		return NewOpenRouter(cfg.OpenRouterAPIKey, cfg.HTTPTimeout), nil
	case ProviderOllama:
		return NewOllama(cfg.OllamaHost), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q (want gemini, anthropic, openrouter or ollama)", name)
	}
}
