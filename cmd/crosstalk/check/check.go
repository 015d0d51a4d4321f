// Package checkcmder provides the check command for validating
// configuration and probing both model endpoints.
package checkcmder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/crosstalkco/crosstalk/pkg/cliui"
	"github.com/crosstalkco/crosstalk/pkg/config"
	"github.com/crosstalkco/crosstalk/pkg/credentials"
	"github.com/crosstalkco/crosstalk/pkg/llm/provider"
	"github.com/crosstalkco/crosstalk/pkg/logger"
	"github.com/crosstalkco/crosstalk/pkg/worker"
)

const checkLongDesc string = `Validate the configuration and probe both model endpoints.

Checks that the config parses and passes validation, that an API key can be
resolved for each provider, and that each configured model answers a minimal
completion request. The two probes run concurrently.

Examples:
  crosstalk check
  crosstalk check --config-dir ./custom/.crosstalk`

const checkShortDesc string = "Validate config and probe both model endpoints"

type checkCommander struct {
	configDir string
	debug     bool

	cfg *config.Config
	log *slog.Logger
}

// probeResult captures the outcome of one model probe.
type probeResult struct {
	elapsed time.Duration
	err     error
}

func NewCheckCmd() *cobra.Command {
	cmder := &checkCommander{}

	cmd := &cobra.Command{
		Use:   "check",
		Short: checkShortDesc,
		Long:  checkLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			cmder.configDir = configDir

			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

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

	return cmd
}

func (c *checkCommander) run() error {
	c.log = logger.New(
		logger.WithDebug(c.debug),
		logger.WithPretty(true),
		logger.WithWriter(os.Stderr),
	)

	if problems := c.cfg.Validate(); len(problems) > 0 {
		fmt.Printf("\n  %s Invalid configuration:\n", cliui.FailMark)
		for _, p := range problems {
			fmt.Printf("      %s\n", cliui.DimStyle.Render(p))
		}
		fmt.Println()
		return fmt.Errorf("configuration has %d problem(s)", len(problems))
	}

	fmt.Printf("\n  %s Configuration valid\n", cliui.SuccessMark)

	if err := c.resolveCredentials(); err != nil {
		return err
	}

	resA, resB := c.probeBoth()

	fmt.Println()
	c.printProbe(cliui.SpeakerAStyle, c.cfg.ModelA, resA)
	c.printProbe(cliui.SpeakerBStyle, c.cfg.ModelB, resB)
	fmt.Println()

	if resA.err != nil || resB.err != nil {
		return errors.New("one or more probes failed")
	}

	return nil
}

// probeBoth runs both model probes concurrently on a small worker pool.
// Close drains the queue and joins the workers, so the results are safe to
// read once it returns.
func (c *checkCommander) probeBoth() (probeResult, probeResult) {
	pool, err := worker.NewPool(&worker.Config{
		NumWorkers: 2,
		QueueSize:  2,
		Logger:     c.log,
	})
	if err != nil {
		return probeResult{err: err}, probeResult{err: err}
	}

	var resA, resB probeResult
	pool.Submit(func() { resA = c.probe(c.cfg.ModelA) })
	pool.Submit(func() { resB = c.probe(c.cfg.ModelB) })
	pool.Close()

	return resA, resB
}

func (c *checkCommander) probe(mc config.ModelConfig) probeResult {
	start := time.Now()

	completer, err := provider.New(provider.Config{
		Provider: mc.Provider,
		APIKey:   mc.APIKey,
		BaseURL:  mc.BaseURL,
	})
	if err != nil {
		return probeResult{err: err}
	}

	if err := provider.Probe(context.Background(), completer, mc.Model); err != nil {
		return probeResult{elapsed: time.Since(start), err: err}
	}

	return probeResult{elapsed: time.Since(start)}
}

func (c *checkCommander) printProbe(style lipgloss.Style, mc config.ModelConfig, res probeResult) {
	label := fmt.Sprintf("%s %s",
		style.Render(mc.Nickname),
		cliui.DimStyle.Render(mc.Provider+"/"+mc.Model),
	)

	if res.err != nil {
		fmt.Printf("  %s %s %s\n", cliui.FailMark, label, res.err)
		return
	}

	fmt.Printf("  %s %s %s\n", cliui.SuccessMark, label, cliui.DimStyle.Render(cliui.FormatDuration(res.elapsed)))
}

// resolveCredentials fills in API keys for both sides. Explicit config
// values win, then stored credentials, then provider environment variables.
func (c *checkCommander) resolveCredentials() error {
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
