package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/crosstalkco/crosstalk/pkg/llm"
)

// DefaultTimeout bounds a single completion round trip when the config does
// not say otherwise.
const DefaultTimeout = 60 * time.Second

const probeMaxTokens = 10

// Completer executes chat completions against a single backend.
// Implementations make exactly one HTTP round trip per call: no retries, no
// caching. Failures come back as errors for the caller to interpret.
type Completer interface {
	// Name returns the canonical provider name (e.g., "anthropic", "openai", "ollama")
	Name() string

	// Complete sends the request and normalizes the backend's response.
	Complete(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error)
}

// Config holds everything needed to construct a Completer.
type Config struct {
	Provider string        // "openai", "anthropic", or "ollama"
	APIKey   string        // bearer credential; unused by ollama
	BaseURL  string        // override base URL; empty selects the provider default
	Timeout  time.Duration // per-request bound; zero selects DefaultTimeout
}

// Probe sends a minimal one-message completion to verify the backend is
// reachable and the credential works.
func Probe(ctx context.Context, c Completer, model string) error {
	maxTokens := probeMaxTokens
	req := &llm.ChatRequest{
		Model:     model,
		Messages:  []llm.Message{llm.NewTextMessage(llm.RoleUser, "Hello")},
		MaxTokens: &maxTokens,
	}
	if _, err := c.Complete(ctx, req); err != nil {
		return fmt.Errorf("probe %s: %w", c.Name(), err)
	}
	return nil
}
