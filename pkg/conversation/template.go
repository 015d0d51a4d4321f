package conversation

import (
	"log/slog"
	"os"
	"strings"

	"github.com/crosstalkco/crosstalk/pkg/logger"
)

// DefaultTemplate is the system prompt template used when no template file
// exists. The {topic} placeholder is replaced with the conversation topic.
const DefaultTemplate = `You are having a conversation with another AI assistant about: {topic}

Guidelines:
- Keep responses conversational and natural (2-4 sentences typically)
- Build on what the other assistant has said
- Feel free to ask questions, agree, disagree, or introduce new perspectives
- Stay on topic but allow the conversation to evolve naturally
- Be respectful and constructive in your dialogue`

// FallbackTemplate is the minimal template used when a template file exists
// but cannot be read.
const FallbackTemplate = `You are having a conversation with another AI assistant about: {topic}`

const (
	startPromptTemplate = "Please start a conversation about: {topic}. Share your initial thoughts on this topic in 2-4 sentences."
	continuePrompt      = "Please continue the conversation."
)

// LoadTemplate reads a system prompt template from path. A missing file
// yields DefaultTemplate so a fresh setup works without one. A file that
// exists but cannot be read yields FallbackTemplate and logs a warning.
func LoadTemplate(path string, log *slog.Logger) string {
	if log == nil {
		log = logger.Nop()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultTemplate
		}

		log.Warn("reading system prompt template", "path", path, "error", err)

		return FallbackTemplate
	}

	return strings.TrimSpace(string(data))
}

// renderTemplate substitutes the conversation topic into a template.
func renderTemplate(template, topic string) string {
	return strings.ReplaceAll(template, "{topic}", topic)
}
