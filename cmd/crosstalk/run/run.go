// Package runcmder provides the run command for driving a two-model
// conversation in the terminal.
package runcmder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/crosstalkco/crosstalk/pkg/archive"
	"github.com/crosstalkco/crosstalk/pkg/archive/libsql"
	"github.com/crosstalkco/crosstalk/pkg/archive/postgres"
	"github.com/crosstalkco/crosstalk/pkg/archive/sqlite"
	"github.com/crosstalkco/crosstalk/pkg/cliui"
	"github.com/crosstalkco/crosstalk/pkg/config"
	"github.com/crosstalkco/crosstalk/pkg/conversation"
	"github.com/crosstalkco/crosstalk/pkg/credentials"
	"github.com/crosstalkco/crosstalk/pkg/dotdir"
	"github.com/crosstalkco/crosstalk/pkg/eventstream"
	"github.com/crosstalkco/crosstalk/pkg/eventstream/async"
	"github.com/crosstalkco/crosstalk/pkg/eventstream/kafka"
	"github.com/crosstalkco/crosstalk/pkg/export"
	"github.com/crosstalkco/crosstalk/pkg/llm/provider"
	"github.com/crosstalkco/crosstalk/pkg/logger"
)

const (
	exportJSON     = "json"
	exportMarkdown = "markdown"
	exportBoth     = "both"
)

// runFlags defines the flags the run command registers, keyed by the shared
// registry constants so names and descriptions cannot drift across commands.
var runFlags = config.FlagSet{
	config.FlagTopic:       {Name: "topic", Shorthand: "t", ViperKey: "conversation.topic", Description: "Conversation topic"},
	config.FlagMaxTurns:    {Name: "max-turns", Shorthand: "n", ViperKey: "conversation.max_turns", Description: "Number of turns to run"},
	config.FlagTemperature: {Name: "temperature", ViperKey: "conversation.temperature", Description: "Sampling temperature for both models"},
	config.FlagTurnDelay:   {Name: "turn-delay", ViperKey: "conversation.turn_delay", Description: "Pause between turns in seconds"},
	config.FlagModelA:      {Name: "model-a", ViperKey: "model_a.model", Description: "Model for participant A"},
	config.FlagModelB:      {Name: "model-b", ViperKey: "model_b.model", Description: "Model for participant B"},
}

type runCommander struct {
	configDir    string
	topic        string
	maxTurns     int
	temperature  float64
	turnDelay    float64
	modelA       string
	modelB       string
	exportFormat string
	outDir       string
	sameModel    bool
	debug        bool

	cfg *config.Config
	log *slog.Logger
}

const runLongDesc string = `Run a conversation between the two configured models.

Turns alternate between model A and model B until the turn budget is reached
or a provider call fails. Each reply is rendered as it arrives; on completion
the transcript can be exported as JSON or Markdown and is saved to the
configured archive.

API keys are resolved from config, stored credentials ("crosstalk auth"), or
the provider's environment variable, in that order.

Examples:
  crosstalk run
  crosstalk run --topic "The ethics of terraforming Mars"
  crosstalk run --max-turns 6 --temperature 1.2
  crosstalk run --same-model --export markdown
  crosstalk run --export both --out ./transcripts`

const runShortDesc string = "Run a conversation between the two configured models"

func NewRunCmd() *cobra.Command {
	cmder := &runCommander{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: runShortDesc,
		Long:  runLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			cmder.configDir = configDir

			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, runFlags, []string{
				config.FlagTopic,
				config.FlagMaxTurns,
				config.FlagTemperature,
				config.FlagTurnDelay,
				config.FlagModelA,
				config.FlagModelB,
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

	config.AddStringFlag(cmd, runFlags, config.FlagTopic, &cmder.topic)
	config.AddIntFlag(cmd, runFlags, config.FlagMaxTurns, &cmder.maxTurns)
	config.AddFloat64Flag(cmd, runFlags, config.FlagTemperature, &cmder.temperature)
	config.AddFloat64Flag(cmd, runFlags, config.FlagTurnDelay, &cmder.turnDelay)
	config.AddStringFlag(cmd, runFlags, config.FlagModelA, &cmder.modelA)
	config.AddStringFlag(cmd, runFlags, config.FlagModelB, &cmder.modelB)

	cmd.Flags().StringVarP(&cmder.exportFormat, "export", "e", "", "Export the transcript on completion (json, markdown, both)")
	cmd.Flags().StringVarP(&cmder.outDir, "out", "o", ".", "Directory to write exported transcripts to")
	cmd.Flags().BoolVar(&cmder.sameModel, "same-model", false, "Run model A against itself (B keeps its nickname and persona)")

	return cmd
}

func (c *runCommander) run() error {
	// Logs go to stderr; stdout belongs to the conversation.
	c.log = logger.New(
		logger.WithDebug(c.debug),
		logger.WithPretty(true),
		logger.WithWriter(os.Stderr),
	)

	switch c.exportFormat {
	case "", exportJSON, exportMarkdown, exportBoth:
	default:
		return fmt.Errorf("invalid export format %q (available: json, markdown, both)", c.exportFormat)
	}

	if problems := c.cfg.Validate(); len(problems) > 0 {
		fmt.Printf("\n  %s Invalid configuration:\n", cliui.FailMark)
		for _, p := range problems {
			fmt.Printf("      %s\n", cliui.DimStyle.Render(p))
		}
		fmt.Println()
		return fmt.Errorf("configuration has %d problem(s)", len(problems))
	}

	if c.sameModel {
		c.cfg.UseSameModel()
	}

	if err := c.resolveCredentials(); err != nil {
		return err
	}

	completerA, err := provider.New(provider.Config{
		Provider: c.cfg.ModelA.Provider,
		APIKey:   c.cfg.ModelA.APIKey,
		BaseURL:  c.cfg.ModelA.BaseURL,
	})
	if err != nil {
		return fmt.Errorf("creating model A provider: %w", err)
	}

	completerB, err := provider.New(provider.Config{
		Provider: c.cfg.ModelB.Provider,
		APIKey:   c.cfg.ModelB.APIKey,
		BaseURL:  c.cfg.ModelB.BaseURL,
	})
	if err != nil {
		return fmt.Errorf("creating model B provider: %w", err)
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
	}

	templatePath, err := c.templatePath()
	if err != nil {
		return err
	}

	manager, err := conversation.New(conversation.Config{
		Topic:        c.cfg.Conversation.Topic,
		Temperature:  c.cfg.Conversation.Temperature,
		TemplatePath: templatePath,
		A: conversation.Participant{
			Name:      c.cfg.ModelA.Nickname,
			Model:     c.cfg.ModelA.Model,
			Persona:   c.cfg.ModelA.Persona,
			Completer: completerA,
		},
		B: conversation.Participant{
			Name:      c.cfg.ModelB.Nickname,
			Model:     c.cfg.ModelB.Model,
			Persona:   c.cfg.ModelB.Persona,
			Completer: completerB,
		},
		Logger:    c.log,
		Publisher: pub,
	})
	if err != nil {
		return fmt.Errorf("creating conversation: %w", err)
	}

	c.printHeader()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startedAt := time.Now().UTC()
	results := c.loop(ctx, manager)

	doc := c.document(manager, results)
	c.printSummary(doc)

	if err := c.exportDocument(doc); err != nil {
		return err
	}

	c.archiveConversation(manager, startedAt)

	return nil
}

// resolveCredentials fills in API keys for both sides. Explicit config
// values win, then stored credentials, then provider environment variables.
func (c *runCommander) resolveCredentials() error {
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

// missingKeyError explains how to supply a credential for a provider.
func missingKeyError(side, providerName string) error {
	return fmt.Errorf("no API key for %s (%s): run 'crosstalk auth %s' or set %s",
		side, providerName, providerName, credentials.EnvVarForProvider(providerName))
}

// newPublisher builds the turn event publisher from config. A nil publisher
// with a nil error means events are disabled.
func (c *runCommander) newPublisher() (eventstream.Publisher, error) {
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

		// Deliver off the turn loop so a slow broker never stalls rendering.
		return async.NewPublisher(async.Config{Inner: kp, Logger: c.log})
	default:
		return nil, fmt.Errorf("unknown events publisher: %q", c.cfg.Events.Publisher)
	}
}

// templatePath resolves the system prompt template location. Relative paths
// are anchored at the .crosstalk/ directory; a missing file falls back to
// the built-in template.
func (c *runCommander) templatePath() (string, error) {
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

func (c *runCommander) printHeader() {
	fmt.Printf("\n  %s %s\n", cliui.KeyStyle.Render("Topic:"), cliui.ValueStyle.Render(c.cfg.Conversation.Topic))
	fmt.Printf("  %s %s\n",
		cliui.SpeakerAStyle.Render(c.cfg.ModelA.Nickname),
		cliui.DimStyle.Render(c.cfg.ModelA.Provider+"/"+c.cfg.ModelA.Model),
	)
	fmt.Printf("  %s %s\n",
		cliui.SpeakerBStyle.Render(c.cfg.ModelB.Nickname),
		cliui.DimStyle.Render(c.cfg.ModelB.Provider+"/"+c.cfg.ModelB.Model),
	)
	fmt.Printf("  %s %d turns · temperature %g\n",
		cliui.KeyStyle.Render("Budget:"),
		c.cfg.Conversation.MaxTurns,
		c.cfg.Conversation.Temperature,
	)
}

// loop drives turns until the budget is exhausted, a provider fails, or the
// user interrupts. Interrupts are honored between turns; the in-flight call
// is never cut short.
func (c *runCommander) loop(ctx context.Context, manager *conversation.Manager) []conversation.TurnResult {
	maxTurns := c.cfg.Conversation.MaxTurns
	delay := time.Duration(c.cfg.Conversation.TurnDelay * float64(time.Second))
	isTTY := term.IsTerminal(int(os.Stdout.Fd()))

	results := make([]conversation.TurnResult, 0, maxTurns)

	for turn := 1; turn <= maxTurns; turn++ {
		if ctx.Err() != nil {
			fmt.Printf("\n  %s Interrupted after %d turn(s).\n", cliui.WarnStyle.Render("!"), manager.Len())
			break
		}

		p := manager.Participant(conversation.SpeakerFor(turn))

		var result conversation.TurnResult
		if isTTY {
			msg := fmt.Sprintf("%s is thinking... (turn %d/%d)", p.Name, turn, maxTurns)
			_ = cliui.Step(os.Stdout, msg, func() error {
				result = manager.NextTurn(context.Background(), turn)
				if result.Failed() {
					return errors.New(result.Err)
				}
				return nil
			})
		} else {
			result = manager.NextTurn(context.Background(), turn)
		}

		if result.Failed() {
			fmt.Printf("\n  %s Turn %d (%s) failed: %s\n", cliui.FailMark, turn, p.Name, result.Err)
			fmt.Printf("  %s\n", cliui.DimStyle.Render("Stopping. The transcript up to this point is kept."))
			break
		}

		results = append(results, result)
		c.printTurn(p, result, isTTY)

		if turn < maxTurns && delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
			}
		}
	}

	return results
}

// printTurn renders one completed turn. Markdown rendering is reserved for
// interactive terminals; piped output stays plain.
func (c *runCommander) printTurn(p conversation.Participant, result conversation.TurnResult, isTTY bool) {
	style := cliui.SpeakerAStyle
	if result.Speaker == conversation.SpeakerB {
		style = cliui.SpeakerBStyle
	}

	meta := fmt.Sprintf("turn %d · %s · %s", result.Turn, p.Model, cliui.FormatDuration(result.Elapsed))
	fmt.Printf("\n%s %s\n", style.Render(p.Name), cliui.DimStyle.Render(meta))

	if isTTY {
		if rendered, err := cliui.RenderMarkdown(result.Content); err == nil {
			fmt.Print(rendered)
			return
		}
	}

	fmt.Printf("%s\n", result.Content)
}

// document assembles the exportable view of the finished conversation.
func (c *runCommander) document(manager *conversation.Manager, results []conversation.TurnResult) *export.Document {
	entries := make([]export.Entry, 0, len(results))
	for _, r := range results {
		p := manager.Participant(r.Speaker)
		entries = append(entries, export.Entry{
			Turn:      r.Turn,
			Speaker:   string(r.Speaker),
			Nickname:  p.Name,
			Content:   r.Content,
			Timestamp: r.Timestamp,
			Elapsed:   r.Elapsed.Seconds(),
			Usage:     r.Usage,
		})
	}

	return &export.Document{
		GeneratedAt: time.Now().UTC(),
		Topic:       c.cfg.Conversation.Topic,
		Temperature: c.cfg.Conversation.Temperature,
		MaxTurns:    c.cfg.Conversation.MaxTurns,
		ModelA: export.ParticipantInfo{
			Model:    c.cfg.ModelA.Model,
			Nickname: c.cfg.ModelA.Nickname,
			Persona:  c.cfg.ModelA.Persona,
		},
		ModelB: export.ParticipantInfo{
			Model:    c.cfg.ModelB.Model,
			Nickname: c.cfg.ModelB.Nickname,
			Persona:  c.cfg.ModelB.Persona,
		},
		Entries: entries,
	}
}

func (c *runCommander) printSummary(doc *export.Document) {
	stats := export.Stats(doc.Entries)

	fmt.Printf("\n  %s\n\n", cliui.HeaderStyle.Render("Conversation finished"))
	fmt.Printf("  %s %d\n", cliui.KeyStyle.Render("Turns:"), stats.TotalTurns)
	fmt.Printf("  %s %d\n", cliui.KeyStyle.Render(doc.ModelA.Nickname+":"), stats.CountA)
	fmt.Printf("  %s %d\n", cliui.KeyStyle.Render(doc.ModelB.Nickname+":"), stats.CountB)
	if stats.AvgResponseSec > 0 {
		fmt.Printf("  %s %.2fs\n", cliui.KeyStyle.Render("Avg response:"), stats.AvgResponseSec)
	}
	fmt.Println()
}

// exportDocument writes the transcript files requested via --export.
func (c *runCommander) exportDocument(doc *export.Document) error {
	if c.exportFormat == "" {
		return nil
	}

	if err := os.MkdirAll(c.outDir, 0o755); err != nil {
		return fmt.Errorf("creating export directory: %w", err)
	}

	now := time.Now()

	if c.exportFormat == exportJSON || c.exportFormat == exportBoth {
		data, err := export.JSON(doc)
		if err != nil {
			return err
		}
		if err := c.writeExport(export.Filename("conversation", "json", now), data); err != nil {
			return err
		}
	}

	if c.exportFormat == exportMarkdown || c.exportFormat == exportBoth {
		data := []byte(export.Markdown(doc))
		if err := c.writeExport(export.Filename("conversation", "md", now), data); err != nil {
			return err
		}
	}

	return nil
}

func (c *runCommander) writeExport(name string, data []byte) error {
	path := filepath.Join(c.outDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}

	fmt.Printf("  %s Exported %s\n", cliui.SuccessMark, cliui.ValueStyle.Render(path))
	return nil
}

// archiveConversation saves the finished conversation through the configured
// archive driver. Archive trouble is logged but never fails the run; the
// transcript was already shown and exported.
func (c *runCommander) archiveConversation(manager *conversation.Manager, startedAt time.Time) {
	if manager.Len() == 0 {
		return
	}

	ctx := context.Background()

	driver, err := c.newArchiveDriver(ctx)
	if err != nil {
		c.log.Warn("opening archive", "error", err)
		return
	}
	if driver == nil {
		return
	}
	defer driver.Close()

	entries := manager.Transcript()
	transcript, err := json.Marshal(entries)
	if err != nil {
		c.log.Warn("encoding transcript", "error", err)
		return
	}

	record := &archive.Record{
		ID:         manager.ID(),
		Topic:      c.cfg.Conversation.Topic,
		ModelA:     c.cfg.ModelA.Model,
		ModelB:     c.cfg.ModelB.Model,
		Turns:      len(entries),
		StartedAt:  startedAt,
		FinishedAt: time.Now().UTC(),
		Transcript: transcript,
	}

	if err := driver.Save(ctx, record); err != nil {
		c.log.Warn("archiving conversation", "error", err)
		return
	}

	fmt.Printf("  %s Archived %s\n", cliui.SuccessMark, cliui.DimStyle.Render(manager.ID()))
}

// newArchiveDriver opens the configured archive backend. A nil driver with a
// nil error means archiving is disabled; an in-process memory archive cannot
// outlive the run, so it counts as disabled here too.
func (c *runCommander) newArchiveDriver(ctx context.Context) (archive.Driver, error) {
	switch c.cfg.Archive.Driver {
	case "", "memory":
		return nil, nil
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
		return postgres.NewDriver(ctx, c.cfg.Archive.DSN)
	default:
		return nil, fmt.Errorf("unknown archive driver: %q", c.cfg.Archive.Driver)
	}
}
