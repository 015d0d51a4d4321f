package eventstream

import "time"

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeTurnCompleted is emitted after a conversation turn completes.
	EventTypeTurnCompleted = "crosstalk.turn.completed"
)

// TurnCompletedEvent is a transport-neutral event payload for a completed
// conversation turn.
type TurnCompletedEvent struct {
	SchemaVersion  int       `json:"schema_version"`
	EventType      string    `json:"event_type"`
	EventID        string    `json:"event_id"`
	EmittedAt      time.Time `json:"emitted_at"`
	ConversationID string    `json:"conversation_id"`
	Topic          string    `json:"topic,omitempty"`
	Turn           TurnMeta  `json:"turn"`
}

// TurnMeta captures the completed turn itself.
type TurnMeta struct {
	Number    int       `json:"number"`
	Speaker   string    `json:"speaker"`
	Nickname  string    `json:"nickname,omitempty"`
	Provider  string    `json:"provider,omitempty"`
	Model     string    `json:"model,omitempty"`
	Content   string    `json:"content"`
	ElapsedMS int64     `json:"elapsed_ms"`
	Usage     TurnUsage `json:"usage"`
}

// TurnUsage carries token counts for the turn's completion.
type TurnUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
