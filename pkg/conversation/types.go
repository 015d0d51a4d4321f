package conversation

import (
	"context"
	"time"

	"github.com/crosstalkco/crosstalk/pkg/llm"
)

// Speaker identifies one of the two conversation positions.
type Speaker string

const (
	SpeakerA Speaker = "A"
	SpeakerB Speaker = "B"
)

// SpeakerFor returns the speaker for a 1-based turn number. Odd turns belong
// to A, even turns to B.
func SpeakerFor(turn int) Speaker {
	if turn%2 == 1 {
		return SpeakerA
	}
	return SpeakerB
}

// Other returns the opposite speaker.
func (s Speaker) Other() Speaker {
	if s == SpeakerA {
		return SpeakerB
	}
	return SpeakerA
}

// Completer produces a single chat completion per call. One request, one
// response, no retries.
type Completer interface {
	Name() string
	Complete(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error)
}

// Participant is one side of the conversation.
type Participant struct {
	Speaker   Speaker
	Name      string
	Model     string
	Persona   string
	Completer Completer
}

// Message is one completed entry in the shared transcript.
type Message struct {
	Turn    int     `json:"turn"`
	Speaker Speaker `json:"speaker"`
	Content string  `json:"content"`
}

// TurnResult reports the outcome of a single turn attempt. Failures are
// carried as data so the driving loop can decide how to proceed.
type TurnResult struct {
	Turn       int           `json:"turn"`
	Speaker    Speaker       `json:"speaker"`
	Content    string        `json:"content,omitempty"`
	Err        string        `json:"error,omitempty"`
	StopReason string        `json:"stop_reason,omitempty"`
	Usage      *llm.Usage    `json:"usage,omitempty"`
	Elapsed    time.Duration `json:"-"`
	Timestamp  time.Time     `json:"timestamp"`
}

// Failed reports whether the turn produced an error instead of content.
func (r TurnResult) Failed() bool {
	return r.Err != ""
}
