// Package archive persists completed conversations for later inspection.
//
// Archives are write-at-completion sinks. The orchestrator never reads
// from one; records come back only through the CLI and the HTTP API.
package archive

import (
	"context"
	"encoding/json"
	"time"
)

// Record is one archived conversation.
type Record struct {
	// ID is the conversation ID the record was archived under.
	ID string `json:"id"`

	Topic  string `json:"topic"`
	ModelA string `json:"model_a"`
	ModelB string `json:"model_b"`

	// Turns is the number of entries in the transcript at archive time.
	Turns int `json:"turns"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Transcript holds the conversation entries as marshaled JSON.
	Transcript json.RawMessage `json:"transcript,omitempty"`
}

// Driver defines the interface for persisting and retrieving archived
// conversations in a storage backend.
type Driver interface {
	// Save stores a record. Saving the same conversation ID again
	// replaces the earlier record.
	Save(ctx context.Context, record *Record) error

	// Get retrieves a record by conversation ID.
	Get(ctx context.Context, id string) (*Record, error)

	// List returns all records, most recently finished first.
	List(ctx context.Context) ([]*Record, error)

	// Close closes the store and releases any resources.
	Close() error
}
