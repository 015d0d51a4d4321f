// Package servecmder provides the serve command for running the HTTP API
// server.
package servecmder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/crosstalkco/crosstalk/api"
	"github.com/crosstalkco/crosstalk/pkg/archive"
	"github.com/crosstalkco/crosstalk/pkg/archive/inmemory"
	"github.com/crosstalkco/crosstalk/pkg/archive/libsql"
	"github.com/crosstalkco/crosstalk/pkg/archive/postgres"
	"github.com/crosstalkco/crosstalk/pkg/archive/sqlite"
	"github.com/crosstalkco/crosstalk/pkg/config"
	"github.com/crosstalkco/crosstalk/pkg/credentials"
	"github.com/crosstalkco/crosstalk/pkg/dotdir"
	"github.com/crosstalkco/crosstalk/pkg/eventstream"
	"github.com/crosstalkco/crosstalk/pkg/eventstream/async"
	"github.com/crosstalkco/crosstalk/pkg/eventstream/kafka"
	"github.com/crosstalkco/crosstalk/pkg/logger"
)

// serveFlags defines the flags the serve command registers, keyed by the
// shared registry constants so names and descriptions cannot drift across
// commands.
var serveFlags = config.FlagSet{
	config.FlagAPIListen:       {Name: "api-listen", Shorthand: "l", ViperKey: "api.listen", Description: "Address for the API server to listen on"},
	config.FlagArchiveDriver:   {Name: "archive-driver", ViperKey: "archive.driver", Description: "Archive backend (memory, sqlite, libsql, postgres)"},
	config.FlagArchiveDSN:      {Name: "archive-dsn", ViperKey: "archive.dsn", Description: "Archive connection string or file path"},
	config.FlagEventsPublisher: {Name: "events-publisher", ViperKey: "events.publisher", Description: "Turn event publisher (none, kafka)"},
	config.FlagEventsBrokers:   {Name: "events-brokers", ViperKey: "events.brokers", Description: "Kafka broker addresses"},
	config.FlagEventsTopic:     {Name: "events-topic", ViperKey: "events.topic", Description: "Kafka topic for turn events"},
}

type serveCommander struct {
	configDir       string
	listen          string
	archiveDriver   string
	archiveDSN      string
	eventsPublisher string
	eventsBrokers   []string
	eventsTopic     string
	debug           bool

	cfg *config.Config
	log *slog.Logger
}

const serveLongDesc string = `Run the HTTP API server.

The server drives conversations over REST:
  POST   /api/conversations                     Create a session
  GET    /api/conversations                     List active sessions
  GET    /api/conversations/:id                 Session detail
  POST   /api/conversations/:id/turns           Drive the next turn
  GET    /api/conversations/:id/transcript      Full transcript
  POST   /api/conversations/:id/reset           Clear a session's transcript
  DELETE /api/conversations/:id                 End and archive a session
  GET    /api/archive                           List archived conversations
  GET    /api/archive/:id                       Fetch an archived conversation

Sessions live in memory; DELETE writes the finished conversation to the
configured archive. With --events-publisher kafka, every completed turn is
also published to the configured topic.

Examples:
  crosstalk serve
  crosstalk serve --api-listen :9090
  crosstalk serve --archive-driver sqlite
  crosstalk serve --events-publisher kafka --events-brokers broker-1:9092`

const serveShortDesc string = "Run the HTTP API server"

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			cmder.configDir = configDir

			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, serveFlags, []string{
				config.FlagAPIListen,
				config.FlagArchiveDriver,
				config.FlagArchiveDSN,
				config.FlagEventsPublisher,
				config.FlagEventsBrokers,
				config.FlagEventsTopic,
			})

			cmder.cfg = config.FromViper(v)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, serveFlags, config.FlagAPIListen, &cmder.listen)
	config.AddStringFlag(cmd, serveFlags, config.FlagArchiveDriver, &cmder.archiveDriver)
	config.AddStringFlag(cmd, serveFlags, config.FlagArchiveDSN, &cmder.archiveDSN)
	config.AddStringFlag(cmd, serveFlags, config.FlagEventsPublisher, &cmder.eventsPublisher)
	config.AddStringSliceFlag(cmd, serveFlags, config.FlagEventsBrokers, &cmder.eventsBrokers)
	config.AddStringFlag(cmd, serveFlags, config.FlagEventsTopic, &cmder.eventsTopic)

	return cmd
}

func (c *serveCommander) run() error {
	c.log = logger.New(
		logger.WithDebug(c.debug),
		logger.WithPretty(true),
	)

	if problems := c.cfg.Validate(); len(problems) > 0 {
		for _, p := range problems {
			c.log.Error("invalid configuration", "problem", p)
		}
		return fmt.Errorf("configuration has %d problem(s)", len(problems))
	}

	if err := c.resolveCredentials(); err != nil {
		return err
	}

	driver, err := c.newArchiveDriver()
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	if driver != nil {
		defer func() {
			if err := driver.Close(); err != nil {
				c.log.Warn("closing archive", "error", err)
			}
		}()
		c.log.Info("archive enabled", "driver", c.cfg.Archive.Driver)
	}

	pub, err := c.newPublisher()
	if err != nil {
		return fmt.Errorf("creating event publisher: %w", err)
	}
	if pub != nil {
		defer func() {
			if err := pub.Close(); err != nil {
				c.log.Warn("closing event publisher", "error", err)
			}
		}()
		c.log.Info("turn events enabled", "publisher", c.cfg.Events.Publisher, "topic", c.cfg.Events.Topic)
	}

	templatePath, err := c.templatePath()
	if err != nil {
		return err
	}

	server := api.NewServer(api.Config{
		ListenAddr:   c.cfg.API.Listen,
		TemplatePath: templatePath,
	}, c.cfg, driver, pub, c.log)

	c.log.Info("starting api server", "api_addr", c.cfg.API.Listen)

	errChan := make(chan error, 1)

	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.log.Info("received signal, shutting down", "signal", sig.String())
		return server.Shutdown()
	}
}

// resolveCredentials fills in API keys for both sides. Explicit config
// values win, then stored credentials, then provider environment variables.
func (c *serveCommander) resolveCredentials() error {
	creds, err := credentials.NewManager(c.configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	keyA, err := creds.Resolve(c.cfg.ModelA.Provider, c.cfg.ModelA.APIKey)
	if err != nil {
		return fmt.Errorf("resolving model A credentials: %w", err)
	}
	c.cfg.ModelA.APIKey = keyA

	keyB, err := creds.Resolve(c.cfg.ModelB.Provider, c.cfg.ModelB.APIKey)
	if err != nil {
		return fmt.Errorf("resolving model B credentials: %w", err)
	}
	c.cfg.ModelB.APIKey = keyB

	if keyA == "" && credentials.IsSupportedProvider(c.cfg.ModelA.Provider) {
		return missingKeyError("model A", c.cfg.ModelA.Provider)
	}
	if keyB == "" && credentials.IsSupportedProvider(c.cfg.ModelB.Provider) {
		return missingKeyError("model B", c.cfg.ModelB.Provider)
	}

	return nil
}

func missingKeyError(side, providerName string) error {
	return fmt.Errorf("no API key for %s (%s): run 'crosstalk auth %s' or set %s",
		side, providerName, providerName, credentials.EnvVarForProvider(providerName))
}

// newPublisher builds the turn event publisher from config. A nil publisher
// with a nil error means events are disabled.
func (c *serveCommander) newPublisher() (eventstream.Publisher, error) {
	switch c.cfg.Events.Publisher {
	case "", "none":
		return nil, nil
	case "kafka":
		kp, err := kafka.NewPublisher(kafka.Config{
			Brokers: c.cfg.Events.Brokers,
			Topic:   c.cfg.Events.Topic,
		})
		if err != nil {
			return nil, err
		}

		// Deliver off the request path so a slow broker never blocks a
		// turn response.
		return async.NewPublisher(async.Config{Inner: kp, Logger: c.log})
	default:
		return nil, fmt.Errorf("unknown events publisher: %q", c.cfg.Events.Publisher)
	}
}

// templatePath resolves the system prompt template location. Relative paths
// are anchored at the .crosstalk/ directory; a missing file falls back to
// the built-in template.
func (c *serveCommander) templatePath() (string, error) {
	file := c.cfg.Conversation.SystemPromptFile
	if file == "" || filepath.IsAbs(file) {
		return file, nil
	}

	target, err := dotdir.NewManager().Target(c.configDir)
	if err != nil {
		return "", fmt.Errorf("resolving config dir: %w", err)
	}

	return filepath.Join(target, file), nil
}

// newArchiveDriver opens the configured archive backend. Unlike a one-shot
// run, the server can usefully archive into process memory, so "memory" gets
// a real driver here. A nil driver disables the archive endpoints.
func (c *serveCommander) newArchiveDriver() (archive.Driver, error) {
	switch c.cfg.Archive.Driver {
	case "":
		return nil, nil
	case "memory":
		return inmemory.NewDriver(), nil
	case "sqlite":
		path := c.cfg.Archive.DSN
		if path == "" {
			target, err := dotdir.NewManager().Target(c.configDir)
			if err != nil {
				return nil, fmt.Errorf("resolving config dir: %w", err)
			}
			path = filepath.Join(target, "archive.db")
		}
		return sqlite.NewDriver(path)
	case "libsql":
		if c.cfg.Archive.DSN == "" {
			return nil, errors.New("archive.dsn is required for the libsql driver")
		}
		return libsql.NewDriver(c.cfg.Archive.DSN)
	case "postgres":
		if c.cfg.Archive.DSN == "" {
			return nil, errors.New("archive.dsn is required for the postgres driver")
		}
		return postgres.NewDriver(context.Background(), c.cfg.Archive.DSN)
	default:
		return nil, fmt.Errorf("unknown archive driver: %q", c.cfg.Archive.Driver)
	}
}
