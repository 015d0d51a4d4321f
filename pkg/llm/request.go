package llm

// ChatRequest represents a provider-agnostic chat completion request.
// This is the internal representation; each provider marshals it into its
// own wire format before the call goes out.
type ChatRequest struct {
	// Model name (e.g., "gpt-4.1-mini", "claude-haiku-4-5", "llama3.2")
	Model string `json:"model"`

	// Conversation messages
	Messages []Message `json:"messages"`

	// Whether to stream the response
	Stream *bool `json:"stream,omitempty"`

	// Generation parameters (unified across providers)
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}
