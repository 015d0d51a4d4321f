// Package conversation orchestrates a turn-based dialogue between two LLM
// participants. A manager owns the shared transcript and builds each
// participant's view of it, flipping roles so every model sees its own past
// replies as assistant messages and its counterpart's as user messages.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/crosstalkco/crosstalk/pkg/eventstream"
	"github.com/crosstalkco/crosstalk/pkg/eventstream/nop"
	"github.com/crosstalkco/crosstalk/pkg/llm"
	"github.com/crosstalkco/crosstalk/pkg/logger"
	"github.com/crosstalkco/crosstalk/pkg/utils"
)

// Config holds everything needed to run a conversation.
type Config struct {
	Topic        string
	Temperature  float64
	TemplatePath string

	A Participant
	B Participant

	Logger    *slog.Logger
	Publisher eventstream.Publisher
}

// Manager drives one conversation between two participants. The caller owns
// the turn counter and advances it; the manager owns the transcript.
//
// Transcript access is safe for concurrent use. Turns themselves must be
// serialized by the caller, since a turn reads the transcript before its
// provider call and appends after it.
type Manager struct {
	id          string
	topic       string
	temperature float64
	template    string
	a           Participant
	b           Participant
	log         *slog.Logger
	publisher   eventstream.Publisher

	mu         sync.RWMutex
	transcript []Message
}

// New creates a conversation manager from cfg.
func New(cfg Config) (*Manager, error) {
	if cfg.Topic == "" {
		return nil, errors.New("conversation topic is required")
	}
	if cfg.A.Completer == nil {
		return nil, errors.New("participant A requires a completer")
	}
	if cfg.A.Model == "" {
		return nil, errors.New("participant A requires a model")
	}
	if cfg.B.Completer == nil {
		return nil, errors.New("participant B requires a completer")
	}
	if cfg.B.Model == "" {
		return nil, errors.New("participant B requires a model")
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}

	publisher := cfg.Publisher
	if publisher == nil {
		publisher = nop.NewPublisher()
	}

	a := cfg.A
	a.Speaker = SpeakerA
	if a.Name == "" {
		a.Name = string(SpeakerA)
	}

	b := cfg.B
	b.Speaker = SpeakerB
	if b.Name == "" {
		b.Name = string(SpeakerB)
	}

	return &Manager{
		id:          uuid.NewString(),
		topic:       cfg.Topic,
		temperature: cfg.Temperature,
		template:    LoadTemplate(cfg.TemplatePath, log),
		a:           a,
		b:           b,
		log:         log,
		publisher:   publisher,
	}, nil
}

// ID returns the conversation's unique identifier. It is assigned at
// creation and survives Reset.
func (m *Manager) ID() string {
	return m.id
}

// Topic returns the conversation topic.
func (m *Manager) Topic() string {
	return m.topic
}

// Participant returns the configured participant for a speaker.
func (m *Manager) Participant(s Speaker) Participant {
	if s == SpeakerA {
		return m.a
	}

	return m.b
}

// NextTurn runs one conversation turn. Odd turns speak as A, even turns as
// B. On success the reply is appended to the transcript; on failure the
// transcript is left untouched and the error is reported on the result.
func (m *Manager) NextTurn(ctx context.Context, turn int) TurnResult {
	if turn < 1 {
		return TurnResult{
			Turn:      turn,
			Err:       fmt.Sprintf("turn number must be at least 1, got %d", turn),
			Timestamp: time.Now().UTC(),
		}
	}

	speaker := SpeakerFor(turn)
	p := m.Participant(speaker)

	m.mu.RLock()
	messages := m.buildMessages(speaker)
	m.mu.RUnlock()

	req := &llm.ChatRequest{
		Model:       p.Model,
		Messages:    messages,
		Temperature: &m.temperature,
	}

	m.log.Debug("requesting turn",
		"conversation", m.id,
		"turn", turn,
		"speaker", speaker,
		"provider", p.Completer.Name(),
		"model", p.Model,
		"messages", len(messages),
	)

	started := time.Now()
	resp, err := p.Completer.Complete(ctx, req)
	elapsed := time.Since(started)

	result := TurnResult{
		Turn:      turn,
		Speaker:   speaker,
		Elapsed:   elapsed,
		Timestamp: time.Now().UTC(),
	}

	if err != nil {
		result.Err = err.Error()

		m.log.Warn("turn failed",
			"conversation", m.id,
			"turn", turn,
			"speaker", speaker,
			"error", err,
		)

		return result
	}

	content := resp.Message.GetText()
	result.Content = content
	result.StopReason = resp.StopReason
	result.Usage = resp.Usage

	m.mu.Lock()
	m.transcript = append(m.transcript, Message{Turn: turn, Speaker: speaker, Content: content})
	m.mu.Unlock()

	m.log.Debug("turn completed",
		"conversation", m.id,
		"turn", turn,
		"speaker", speaker,
		"elapsed", elapsed,
		"preview", utils.Truncate(content, 60),
	)

	m.publishTurn(ctx, p, result)

	return result
}

// buildMessages assembles the provider-facing view of the conversation for
// the given speaker. The speaker's own transcript entries become assistant
// messages and the other participant's become user messages, so each model
// sees the dialogue from its own seat.
//
// Callers must hold m.mu for reading.
func (m *Manager) buildMessages(speaker Speaker) []llm.Message {
	p := m.Participant(speaker)

	system := p.Persona + "\n\n" + renderTemplate(m.template, m.topic)
	messages := []llm.Message{llm.NewTextMessage(llm.RoleSystem, system)}

	if len(m.transcript) == 0 && speaker == SpeakerA {
		messages = append(messages, llm.NewTextMessage(llm.RoleUser, renderTemplate(startPromptTemplate, m.topic)))
	} else {
		for _, entry := range m.transcript {
			role := llm.RoleUser
			if entry.Speaker == speaker {
				role = llm.RoleAssistant
			}

			messages = append(messages, llm.NewTextMessage(role, entry.Content))
		}
	}

	// A view that ends on the speaker's own reply gets an explicit nudge,
	// otherwise the model has nothing to respond to.
	if len(messages) > 1 && messages[len(messages)-1].Role == llm.RoleAssistant {
		messages = append(messages, llm.NewTextMessage(llm.RoleUser, continuePrompt))
	}

	return messages
}

// publishTurn emits a turn completed event. Publish failures are logged,
// not returned.
func (m *Manager) publishTurn(ctx context.Context, p Participant, result TurnResult) {
	event := &eventstream.TurnCompletedEvent{
		SchemaVersion:  eventstream.SchemaVersionV1,
		EventType:      eventstream.EventTypeTurnCompleted,
		EventID:        uuid.NewString(),
		EmittedAt:      time.Now().UTC(),
		ConversationID: m.id,
		Topic:          m.topic,
		Turn: eventstream.TurnMeta{
			Number:    result.Turn,
			Speaker:   string(result.Speaker),
			Nickname:  p.Name,
			Provider:  p.Completer.Name(),
			Model:     p.Model,
			Content:   result.Content,
			ElapsedMS: result.Elapsed.Milliseconds(),
		},
	}
	if result.Usage != nil {
		event.Turn.Usage = eventstream.TurnUsage{
			PromptTokens:     result.Usage.PromptTokens,
			CompletionTokens: result.Usage.CompletionTokens,
			TotalTokens:      result.Usage.TotalTokens,
		}
	}

	if err := m.publisher.PublishTurn(ctx, event); err != nil {
		m.log.Warn("publishing turn event",
			"conversation", m.id,
			"turn", result.Turn,
			"error", err,
		)
	}
}

// Transcript returns a copy of the completed turns so far.
func (m *Manager) Transcript() []Message {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Message, len(m.transcript))
	copy(out, m.transcript)

	return out
}

// Len returns the number of completed turns.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.transcript)
}

// Reset clears the transcript. The conversation ID is unchanged.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.transcript = nil
}
