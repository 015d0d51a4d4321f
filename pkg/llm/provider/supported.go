package provider

import (
	"fmt"
	"strings"

	"github.com/crosstalkco/crosstalk/pkg/llm/provider/anthropic"
	"github.com/crosstalkco/crosstalk/pkg/llm/provider/ollama"
	"github.com/crosstalkco/crosstalk/pkg/llm/provider/openai"
)

// Supported provider type constants
const (
	Anthropic = "anthropic"
	OpenAI    = "openai"
	Ollama    = "ollama"
)

var (
	_ Completer = (*openai.Client)(nil)
	_ Completer = (*anthropic.Client)(nil)
	_ Completer = (*ollama.Client)(nil)
)

// SupportedProviders returns the list of all supported provider type names.
func SupportedProviders() []string {
	return []string{Anthropic, OpenAI, Ollama}
}

// New creates a Completer for the given config. An empty provider selects
// OpenAI, matching the wire format most local gateways speak.
// Returns an error if the provider type is not recognized or a required
// credential is missing.
func New(cfg Config) (Completer, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	switch strings.ToLower(cfg.Provider) {
	case OpenAI, "":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("api key required for %s provider", OpenAI)
		}
		return openai.New(cfg.APIKey, cfg.BaseURL, timeout), nil
	case Anthropic:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("api key required for %s provider", Anthropic)
		}
		return anthropic.New(cfg.APIKey, cfg.BaseURL, timeout), nil
	case Ollama:
		return ollama.New(cfg.BaseURL, timeout), nil
	default:
		return nil, fmt.Errorf("unknown provider type: %q (supported: %v)", cfg.Provider, SupportedProviders())
	}
}
