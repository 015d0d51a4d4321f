// Package export renders finished conversations as JSON or Markdown
// documents. Projections are pure: they read a Document and produce bytes,
// with no effect on the conversation itself.
package export

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/crosstalkco/crosstalk/pkg/llm"
)

// ParticipantInfo describes one side of the conversation for export.
type ParticipantInfo struct {
	Model    string `json:"model"`
	Nickname string `json:"nickname"`
	Persona  string `json:"persona,omitempty"`
}

// Entry is one transcript message enriched with presentation metadata.
type Entry struct {
	Turn      int        `json:"turn"`
	Speaker   string     `json:"speaker"`
	Nickname  string     `json:"nickname"`
	Content   string     `json:"content"`
	Timestamp time.Time  `json:"timestamp,omitzero"`
	Elapsed   float64    `json:"response_time_seconds,omitempty"`
	Usage     *llm.Usage `json:"usage,omitempty"`
}

// Document is the complete exportable view of a conversation.
type Document struct {
	GeneratedAt time.Time       `json:"generated_at"`
	Topic       string          `json:"topic"`
	Temperature float64         `json:"temperature"`
	MaxTurns    int             `json:"max_turns"`
	ModelA      ParticipantInfo `json:"model_a"`
	ModelB      ParticipantInfo `json:"model_b"`
	Entries     []Entry         `json:"conversation"`
}

// Statistics summarizes a finished conversation.
type Statistics struct {
	TotalTurns     int
	CountA         int
	CountB         int
	AvgResponseSec float64
}

// Stats computes summary statistics over the exported entries. The average
// response time only counts entries that carry a measured elapsed time.
func Stats(entries []Entry) Statistics {
	var s Statistics
	s.TotalTurns = len(entries)

	var total float64
	var timed int
	for _, e := range entries {
		switch e.Speaker {
		case "A":
			s.CountA++
		case "B":
			s.CountB++
		}
		if e.Elapsed > 0 {
			total += e.Elapsed
			timed++
		}
	}
	if timed > 0 {
		s.AvgResponseSec = total / float64(timed)
	}

	return s
}

// JSON renders the document as two-space indented JSON.
func JSON(doc *Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}

	return data, nil
}

// Markdown renders the document as a human-readable transcript.
func Markdown(doc *Document) string {
	var b strings.Builder

	b.WriteString("# LLM Conversation Transcript\n\n")
	fmt.Fprintf(&b, "**Generated:** %s\n", doc.GeneratedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "**Topic:** %s\n\n", doc.Topic)

	b.WriteString("## Configuration\n\n")
	fmt.Fprintf(&b, "- **Model A:** %s (%s)\n", doc.ModelA.Model, doc.ModelA.Nickname)
	fmt.Fprintf(&b, "- **Model B:** %s (%s)\n", doc.ModelB.Model, doc.ModelB.Nickname)
	if doc.ModelA.Persona != "" {
		fmt.Fprintf(&b, "- **Persona A:** %s\n", doc.ModelA.Persona)
	}
	if doc.ModelB.Persona != "" {
		fmt.Fprintf(&b, "- **Persona B:** %s\n", doc.ModelB.Persona)
	}
	fmt.Fprintf(&b, "- **Temperature:** %g\n", doc.Temperature)
	fmt.Fprintf(&b, "- **Max Turns:** %d\n\n", doc.MaxTurns)

	b.WriteString("---\n\n## Conversation\n\n")

	for _, entry := range doc.Entries {
		fmt.Fprintf(&b, "### Turn %d: %s\n\n", entry.Turn, entry.Nickname)
		fmt.Fprintf(&b, "%s\n\n---\n\n", entry.Content)
	}

	stats := Stats(doc.Entries)
	b.WriteString("## Statistics\n\n")
	fmt.Fprintf(&b, "- **Total Turns:** %d\n", stats.TotalTurns)
	fmt.Fprintf(&b, "- **%s Messages:** %d\n", doc.ModelA.Nickname, stats.CountA)
	fmt.Fprintf(&b, "- **%s Messages:** %d\n", doc.ModelB.Nickname, stats.CountB)
	if stats.AvgResponseSec > 0 {
		fmt.Fprintf(&b, "- **Average Response Time:** %.2fs\n", stats.AvgResponseSec)
	}

	return b.String()
}

// Filename builds a timestamped export file name, e.g.
// conversation_20260102_150405.json.
func Filename(prefix, ext string, t time.Time) string {
	return fmt.Sprintf("%s_%s.%s", prefix, t.Format("20060102_150405"), ext)
}
