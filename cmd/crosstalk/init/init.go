// Package initcmder provides the init command for initializing a local
// .crosstalk directory in the current working directory.
package initcmder

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/crosstalkco/crosstalk/pkg/cliui"
	"github.com/crosstalkco/crosstalk/pkg/config"
	"github.com/crosstalkco/crosstalk/pkg/conversation"
)

const (
	dirName        = ".crosstalk"
	configFileName = "config.toml"
	promptFileName = "system_prompt.txt"

	remoteFetchTimeout = 30 * time.Second

	// remoteConfigLimit caps how much of a remote config body is read.
	remoteConfigLimit = 1 << 20
)

const initLongDesc string = `Initialize a new .crosstalk/ directory in the current working directory.

Creates a local .crosstalk/ directory that takes precedence over the default
~/.crosstalk/ directory for configuration, credentials, the system prompt
template, and the conversation archive.

The directory is seeded with a config.toml and a system_prompt.txt template.
An existing config.toml is left alone unless --preset is given, which
overwrites it with the preset's values. An existing system_prompt.txt is
never touched.

Presets: openai, anthropic, ollama, or an http(s):// URL serving a
config.toml to share one setup across machines.

Examples:
  crosstalk init
  crosstalk init --preset anthropic
  crosstalk init --preset https://example.com/shared/config.toml`

const initShortDesc string = "Initialize a local .crosstalk/ directory"

type initCommander struct {
	preset string
}

func NewInitCmd() *cobra.Command {
	cmder := &initCommander{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return cmder.run()
		},
	}

	cmd.Flags().StringVar(&cmder.preset, "preset", "", "Provider preset (openai, anthropic, ollama) or URL for the initial config")

	return cmd
}

func (c *initCommander) run() error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dirName)

	info, err := os.Stat(dir)
	if err == nil && info.IsDir() {
		fmt.Printf("Already initialized: %s\n", dir)
	} else {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating .crosstalk directory: %w", err)
		}
		fmt.Printf("Initialized .crosstalk directory: %s\n", dir)
	}

	if err := c.writeConfig(dir); err != nil {
		return err
	}

	if err := writePromptTemplate(dir); err != nil {
		return err
	}

	printNextSteps()
	return nil
}

// writeConfig seeds config.toml. An existing file is kept unless --preset
// asks for a re-init with new values.
func (c *initCommander) writeConfig(dir string) error {
	path := filepath.Join(dir, configFileName)

	_, err := os.Stat(path)
	exists := err == nil

	if exists && c.preset == "" {
		fmt.Printf("  %s %s\n", cliui.KeyStyle.Render("Config:"), cliui.DimStyle.Render(path+" (kept)"))
		return nil
	}

	cfg, err := c.presetConfig()
	if err != nil {
		return err
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("opening config dir: %w", err)
	}

	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}

	fmt.Printf("  %s Wrote %s\n", cliui.SuccessMark, cliui.ValueStyle.Render(path))
	return nil
}

// presetConfig resolves the --preset flag into a Config. Provider names map
// to built-in presets; http(s) URLs are fetched and parsed as TOML.
func (c *initCommander) presetConfig() (*config.Config, error) {
	if c.preset == "" {
		return config.NewDefaultConfig(), nil
	}

	if strings.HasPrefix(c.preset, "http://") || strings.HasPrefix(c.preset, "https://") {
		return fetchRemoteConfig(c.preset)
	}

	return config.PresetConfig(c.preset)
}

func fetchRemoteConfig(url string) (*config.Config, error) {
	client := &http.Client{Timeout: remoteFetchTimeout}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching remote config: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, remoteConfigLimit))
	if err != nil {
		return nil, fmt.Errorf("reading remote config: %w", err)
	}

	return config.ParseConfigTOML(data)
}

// writePromptTemplate seeds system_prompt.txt with the built-in template so
// users have a file to edit. An existing file is never overwritten.
func writePromptTemplate(dir string) error {
	path := filepath.Join(dir, promptFileName)

	if _, err := os.Stat(path); err == nil {
		return nil
	}

	if err := os.WriteFile(path, []byte(conversation.DefaultTemplate+"\n"), 0o644); err != nil {
		return fmt.Errorf("writing system prompt template: %w", err)
	}

	fmt.Printf("  %s Wrote %s\n", cliui.SuccessMark, cliui.ValueStyle.Render(path))
	return nil
}

func printNextSteps() {
	fmt.Println()
	fmt.Printf("  %s\n", cliui.HeaderStyle.Render("Next steps"))
	fmt.Printf("    %s\n", cliui.DimStyle.Render("crosstalk auth openai    store an API key"))
	fmt.Printf("    %s\n", cliui.DimStyle.Render("crosstalk run            start a conversation"))
	fmt.Println()
}
