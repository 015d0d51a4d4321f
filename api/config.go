// Package api provides an HTTP API server for driving and inspecting
// conversations.
package api

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8081")
	ListenAddr string

	// TemplatePath is the resolved system prompt template path handed to
	// new conversations. Empty selects the built-in template.
	TemplatePath string
}
