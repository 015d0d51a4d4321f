package api

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/crosstalkco/crosstalk/pkg/archive"
	"github.com/crosstalkco/crosstalk/pkg/config"
	"github.com/crosstalkco/crosstalk/pkg/conversation"
	"github.com/crosstalkco/crosstalk/pkg/eventstream"
	"github.com/crosstalkco/crosstalk/pkg/llm/provider"
)

// Server is the API server for creating conversations and driving them
// turn by turn.
type Server struct {
	config    Config
	appConfig *config.Config
	sessions  *sessionStore
	archive   archive.Driver
	publisher eventstream.Publisher
	log       *slog.Logger
	app       *fiber.App

	// newCompleter builds the provider client for one side. Tests swap
	// it for a stub so turns never leave the process.
	newCompleter func(mc config.ModelConfig) (conversation.Completer, error)
}

// NewServer creates a new API server. The archive driver may be nil when
// no archive is configured; the publisher may be nil to discard events.
// API keys are expected to be resolved into appConfig before the server
// is constructed.
func NewServer(cfg Config, appConfig *config.Config, archiveDriver archive.Driver, publisher eventstream.Publisher, log *slog.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config:    cfg,
		appConfig: appConfig,
		sessions:  newSessionStore(),
		archive:   archiveDriver,
		publisher: publisher,
		log:       log,
		app:       app,
	}

	s.newCompleter = func(mc config.ModelConfig) (conversation.Completer, error) {
		return provider.New(provider.Config{
			Provider: mc.Provider,
			APIKey:   mc.APIKey,
			BaseURL:  mc.BaseURL,
		})
	}

	app.Get("/api/ping", s.handlePing)
	app.Post("/api/conversations", s.handleCreateConversation)
	app.Get("/api/conversations", s.handleListConversations)
	app.Get("/api/conversations/:id", s.handleGetConversation)
	app.Post("/api/conversations/:id/turns", s.handleRunTurn)
	app.Get("/api/conversations/:id/transcript", s.handleGetTranscript)
	app.Post("/api/conversations/:id/reset", s.handleResetConversation)
	app.Delete("/api/conversations/:id", s.handleDeleteConversation)
	app.Get("/api/archive", s.handleListArchive)
	app.Get("/api/archive/:id", s.handleGetArchived)

	return s
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.log.Info("starting API server",
		"listen", s.config.ListenAddr,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
