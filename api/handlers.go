package api

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/crosstalkco/crosstalk/pkg/archive"
	"github.com/crosstalkco/crosstalk/pkg/conversation"
	"github.com/crosstalkco/crosstalk/pkg/llm"
)

// CreateConversationRequest optionally overrides the configured topic,
// turn budget, and temperature for one conversation.
type CreateConversationRequest struct {
	Topic    string `json:"topic,omitempty"`
	MaxTurns int    `json:"max_turns,omitempty"`
	// Temperature is a pointer so an explicit 0 survives decoding.
	Temperature *float64 `json:"temperature,omitempty"`
}

// ConversationSummary describes one active conversation.
type ConversationSummary struct {
	ID          string    `json:"id"`
	Topic       string    `json:"topic"`
	Turns       int       `json:"turns"`
	MaxTurns    int       `json:"max_turns"`
	Temperature float64   `json:"temperature"`
	Done        bool      `json:"done"`
	CreatedAt   time.Time `json:"created_at"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleCreateConversation handles POST /api/conversations.
func (s *Server) handleCreateConversation(c *fiber.Ctx) error {
	var req CreateConversationRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "invalid request body"})
		}
	}

	topic := s.appConfig.Conversation.Topic
	if req.Topic != "" {
		topic = req.Topic
	}

	maxTurns := s.appConfig.Conversation.MaxTurns
	if req.MaxTurns != 0 {
		maxTurns = req.MaxTurns
	}

	temperature := s.appConfig.Conversation.Temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}

	if topic == "" {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "conversation.topic is required"})
	}
	if maxTurns < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "conversation.max_turns must be at least 1"})
	}
	if temperature < 0 || temperature > 2 {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "conversation.temperature must be between 0 and 2"})
	}

	completerA, err := s.newCompleter(s.appConfig.ModelA)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "model A: " + err.Error()})
	}

	completerB, err := s.newCompleter(s.appConfig.ModelB)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "model B: " + err.Error()})
	}

	manager, err := conversation.New(conversation.Config{
		Topic:        topic,
		Temperature:  temperature,
		TemplatePath: s.config.TemplatePath,
		A: conversation.Participant{
			Name:      s.appConfig.ModelA.Nickname,
			Model:     s.appConfig.ModelA.Model,
			Persona:   s.appConfig.ModelA.Persona,
			Completer: completerA,
		},
		B: conversation.Participant{
			Name:      s.appConfig.ModelB.Nickname,
			Model:     s.appConfig.ModelB.Model,
			Persona:   s.appConfig.ModelB.Persona,
			Completer: completerB,
		},
		Logger:    s.log,
		Publisher: s.publisher,
	})
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: err.Error()})
	}

	sess := &session{
		manager:     manager,
		maxTurns:    maxTurns,
		temperature: temperature,
		createdAt:   time.Now().UTC(),
	}
	s.sessions.add(sess)

	s.log.Info("conversation created",
		"conversation", manager.ID(),
		"topic", topic,
		"max_turns", maxTurns,
	)

	return c.Status(fiber.StatusCreated).JSON(sess.summary())
}

// handleListConversations handles GET /api/conversations.
func (s *Server) handleListConversations(c *fiber.Ctx) error {
	sessions := s.sessions.list()

	summaries := make([]ConversationSummary, 0, len(sessions))
	for _, sess := range sessions {
		summaries = append(summaries, sess.summary())
	}

	return c.JSON(map[string]any{
		"count":         len(summaries),
		"conversations": summaries,
	})
}

// handleGetConversation handles GET /api/conversations/:id.
func (s *Server) handleGetConversation(c *fiber.Ctx) error {
	sess, ok := s.sessions.get(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(llm.ErrorResponse{Error: "conversation not found"})
	}

	return c.JSON(sess.summary())
}

// handleRunTurn handles POST /api/conversations/:id/turns. The next turn
// number is derived from the transcript, so clients drive the
// conversation forward without tracking a counter themselves.
func (s *Server) handleRunTurn(c *fiber.Ctx) error {
	sess, ok := s.sessions.get(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(llm.ErrorResponse{Error: "conversation not found"})
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	turn := sess.manager.Len() + 1
	if turn > sess.maxTurns {
		return c.Status(fiber.StatusConflict).JSON(llm.ErrorResponse{Error: "conversation is complete"})
	}

	result := sess.manager.NextTurn(c.Context(), turn)
	if result.Failed() {
		return c.Status(fiber.StatusBadGateway).JSON(result)
	}

	return c.JSON(result)
}

// handleGetTranscript handles GET /api/conversations/:id/transcript.
func (s *Server) handleGetTranscript(c *fiber.Ctx) error {
	sess, ok := s.sessions.get(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(llm.ErrorResponse{Error: "conversation not found"})
	}

	messages := sess.manager.Transcript()

	return c.JSON(map[string]any{
		"conversation_id": sess.manager.ID(),
		"count":           len(messages),
		"messages":        messages,
	})
}

// handleResetConversation handles POST /api/conversations/:id/reset.
func (s *Server) handleResetConversation(c *fiber.Ctx) error {
	sess, ok := s.sessions.get(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(llm.ErrorResponse{Error: "conversation not found"})
	}

	sess.mu.Lock()
	sess.manager.Reset()
	sess.mu.Unlock()

	return c.JSON(sess.summary())
}

// handleDeleteConversation handles DELETE /api/conversations/:id.
// When an archive is configured the conversation is archived first; an
// archive failure keeps the session alive so the transcript is not lost.
func (s *Server) handleDeleteConversation(c *fiber.Ctx) error {
	id := c.Params("id")

	sess, ok := s.sessions.get(id)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(llm.ErrorResponse{Error: "conversation not found"})
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if s.archive != nil {
		record, err := archiveRecord(sess)
		if err == nil {
			err = s.archive.Save(c.Context(), record)
		}
		if err != nil {
			s.log.Warn("archiving conversation",
				"conversation", id,
				"error", err,
			)
			return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to archive conversation"})
		}
	}

	s.sessions.remove(id)

	return c.SendStatus(fiber.StatusNoContent)
}

// handleListArchive handles GET /api/archive. Transcripts are omitted
// from listings; fetch a record by ID for the full conversation.
func (s *Server) handleListArchive(c *fiber.Ctx) error {
	if s.archive == nil {
		return c.Status(fiber.StatusNotImplemented).JSON(llm.ErrorResponse{Error: "no archive configured"})
	}

	records, err := s.archive.List(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to list archive"})
	}

	summaries := make([]*archive.Record, 0, len(records))
	for _, record := range records {
		trimmed := *record
		trimmed.Transcript = nil
		summaries = append(summaries, &trimmed)
	}

	return c.JSON(map[string]any{
		"count":   len(summaries),
		"records": summaries,
	})
}

// handleGetArchived handles GET /api/archive/:id.
func (s *Server) handleGetArchived(c *fiber.Ctx) error {
	if s.archive == nil {
		return c.Status(fiber.StatusNotImplemented).JSON(llm.ErrorResponse{Error: "no archive configured"})
	}

	record, err := s.archive.Get(c.Context(), c.Params("id"))
	if err != nil {
		var notFound archive.NotFoundError
		if errors.As(err, &notFound) {
			return c.Status(fiber.StatusNotFound).JSON(llm.ErrorResponse{Error: "conversation not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to get record"})
	}

	return c.JSON(record)
}

// archiveRecord snapshots a session into an archive record.
// Callers must hold sess.mu so the transcript and turn count agree.
func archiveRecord(sess *session) (*archive.Record, error) {
	m := sess.manager

	entries := m.Transcript()
	transcript, err := json.Marshal(entries)
	if err != nil {
		return nil, err
	}

	return &archive.Record{
		ID:         m.ID(),
		Topic:      m.Topic(),
		ModelA:     m.Participant(conversation.SpeakerA).Model,
		ModelB:     m.Participant(conversation.SpeakerB).Model,
		Turns:      len(entries),
		StartedAt:  sess.createdAt,
		FinishedAt: time.Now().UTC(),
		Transcript: transcript,
	}, nil
}
