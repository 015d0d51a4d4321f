package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/crosstalkco/crosstalk/pkg/dotdir"
)

const (
	configFile = "config.toml"

	// v0 is the alpha version of the config
	v0 = 0

	// CurrentV is the currently supported version, points to v0
	CurrentV = v0
)

type Configer struct {
	ddm        *dotdir.Manager
	targetPath string
}

func NewConfiger(override string) (*Configer, error) {
	cfger := &Configer{}

	cfger.ddm = dotdir.NewManager()
	target, err := cfger.ddm.Target(override)
	if err != nil {
		return nil, err
	}

	// If no .crosstalk/ directory was resolved, targetPath stays empty;
	// LoadConfig will return defaults and SaveConfig will error clearly.
	if target == "" {
		return cfger, nil
	}

	path := filepath.Join(target, configFile)
	_, err = os.Stat(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Always set targetPath when the directory exists so SaveConfig
	// can create or overwrite the file.
	cfger.targetPath = path

	return cfger, nil
}

// ValidConfigKeys returns the sorted list of all supported configuration key names.
func ValidConfigKeys() []string {
	keys := make([]string, 0, len(configKeys))
	for k := range configKeys {
		keys = append(keys, k)
	}

	// Return in a stable, logical order matching the TOML section layout.
	ordered := []string{
		"model_a.provider",
		"model_a.model",
		"model_a.nickname",
		"model_a.persona",
		"model_a.base_url",
		"model_b.provider",
		"model_b.model",
		"model_b.nickname",
		"model_b.persona",
		"model_b.base_url",
		"conversation.topic",
		"conversation.max_turns",
		"conversation.temperature",
		"conversation.turn_delay",
		"conversation.system_prompt_file",
		"archive.driver",
		"archive.dsn",
		"events.publisher",
		"events.brokers",
		"events.topic",
		"api.listen",
	}

	// Sanity: only return keys that actually exist in the map.
	result := make([]string, 0, len(ordered))
	for _, k := range ordered {
		if _, ok := configKeys[k]; ok {
			result = append(result, k)
		}
	}

	// Append any keys in the map that we missed in the ordered list.
	seen := make(map[string]bool, len(result))
	for _, k := range result {
		seen[k] = true
	}
	for _, k := range keys {
		if !seen[k] {
			result = append(result, k)
		}
	}

	return result
}

// IsValidConfigKey returns true if the given key is a supported configuration key.
func IsValidConfigKey(key string) bool {
	_, ok := configKeys[key]
	return ok
}

func (c *Configer) GetTarget() string {
	return c.targetPath
}

// LoadConfig loads the configuration from config.toml in the target
// .crosstalk/ directory. If the file does not exist, returns DefaultConfig()
// so callers always receive a fully-populated Config with sane defaults.
// Fields explicitly set in the file override the defaults.
func (c *Configer) LoadConfig() (*Config, error) {
	if c.targetPath == "" {
		return NewDefaultConfig(), nil
	}

	data, err := os.ReadFile(c.targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewDefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg, err := ParseConfigTOML(data)
	if err != nil {
		return nil, err
	}

	// Merge in defaults: fill in any zero-value fields from the loaded config
	applyDefaults(cfg)

	return cfg, nil
}

// applyDefaults fills zero-value fields in cfg with values from DefaultConfig().
func applyDefaults(cfg *Config) {
	defaults := NewDefaultConfig()

	if cfg.Version == 0 {
		cfg.Version = defaults.Version
	}

	if cfg.ModelA.Provider == "" {
		cfg.ModelA.Provider = defaults.ModelA.Provider
	}
	if cfg.ModelA.Model == "" {
		cfg.ModelA.Model = defaults.ModelA.Model
	}
	if cfg.ModelA.Nickname == "" {
		cfg.ModelA.Nickname = defaults.ModelA.Nickname
	}
	if cfg.ModelA.Persona == "" {
		cfg.ModelA.Persona = defaults.ModelA.Persona
	}

	if cfg.ModelB.Provider == "" {
		cfg.ModelB.Provider = defaults.ModelB.Provider
	}
	if cfg.ModelB.Model == "" {
		cfg.ModelB.Model = defaults.ModelB.Model
	}
	if cfg.ModelB.Nickname == "" {
		cfg.ModelB.Nickname = defaults.ModelB.Nickname
	}
	if cfg.ModelB.Persona == "" {
		cfg.ModelB.Persona = defaults.ModelB.Persona
	}

	if cfg.Conversation.Topic == "" {
		cfg.Conversation.Topic = defaults.Conversation.Topic
	}
	if cfg.Conversation.MaxTurns == 0 {
		cfg.Conversation.MaxTurns = defaults.Conversation.MaxTurns
	}
	if cfg.Conversation.Temperature == 0 {
		cfg.Conversation.Temperature = defaults.Conversation.Temperature
	}
	if cfg.Conversation.TurnDelay == 0 {
		cfg.Conversation.TurnDelay = defaults.Conversation.TurnDelay
	}
	if cfg.Conversation.SystemPromptFile == "" {
		cfg.Conversation.SystemPromptFile = defaults.Conversation.SystemPromptFile
	}

	if cfg.Archive.Driver == "" {
		cfg.Archive.Driver = defaults.Archive.Driver
	}

	if cfg.Events.Publisher == "" {
		cfg.Events.Publisher = defaults.Events.Publisher
	}
	if len(cfg.Events.Brokers) == 0 {
		cfg.Events.Brokers = defaults.Events.Brokers
	}
	if cfg.Events.Topic == "" {
		cfg.Events.Topic = defaults.Events.Topic
	}

	if cfg.API.Listen == "" {
		cfg.API.Listen = defaults.API.Listen
	}
}

// SaveConfig persists the configuration to config.toml in the target
// .crosstalk/ directory.
func (c *Configer) SaveConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("cannot save nil config")
	}

	if c.targetPath == "" {
		return errors.New("cannot save empty target path")
	}

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(c.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// SetConfigValue loads the config, sets the given key to the given value, and saves it.
// Returns an error if the key is not a valid config key.
func (c *Configer) SetConfigValue(key string, value string) error {
	info, ok := configKeys[key]
	if !ok {
		return fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return err
	}

	if err := info.set(cfg, value); err != nil {
		return err
	}

	return c.SaveConfig(cfg)
}

// GetConfigValue loads the config and returns the string representation of the given key.
// Returns an error if the key is not a valid config key.
func (c *Configer) GetConfigValue(key string) (string, error) {
	info, ok := configKeys[key]
	if !ok {
		return "", fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return "", err
	}

	return info.get(cfg), nil
}

// Validate checks cfg for values that cannot drive a conversation. It
// returns every problem found rather than stopping at the first, so the CLI
// can report them all at once. API key presence is checked separately after
// credential resolution.
func (c *Config) Validate() []string {
	var problems []string

	if c.ModelA.Model == "" {
		problems = append(problems, "model_a.model is required")
	}
	if c.ModelB.Model == "" {
		problems = append(problems, "model_b.model is required")
	}
	if c.Conversation.Topic == "" {
		problems = append(problems, "conversation.topic is required")
	}
	if c.Conversation.MaxTurns < 1 {
		problems = append(problems, "conversation.max_turns must be at least 1")
	}
	if c.Conversation.Temperature < 0 || c.Conversation.Temperature > 2 {
		problems = append(problems, "conversation.temperature must be between 0 and 2")
	}
	if c.Conversation.TurnDelay < 0 {
		problems = append(problems, "conversation.turn_delay cannot be negative")
	}

	switch c.Archive.Driver {
	case "", "memory", "sqlite", "libsql", "postgres":
	default:
		problems = append(problems, fmt.Sprintf("unknown archive.driver: %q (available: memory, sqlite, libsql, postgres)", c.Archive.Driver))
	}

	switch c.Events.Publisher {
	case "", "none":
	case "kafka":
		if len(c.Events.Brokers) == 0 {
			problems = append(problems, "events.brokers is required when events.publisher is kafka")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown events.publisher: %q (available: none, kafka)", c.Events.Publisher))
	}

	return problems
}

// UseSameModel copies model A's provider, model, endpoint, and key onto
// model B. B keeps its own nickname and persona so the two sides stay
// distinguishable in transcripts.
func (c *Config) UseSameModel() {
	c.ModelB.Provider = c.ModelA.Provider
	c.ModelB.Model = c.ModelA.Model
	c.ModelB.BaseURL = c.ModelA.BaseURL
	c.ModelB.APIKey = c.ModelA.APIKey
}

// PresetConfig returns a Config with sane defaults for the named provider preset.
// Supported presets: "openai", "anthropic", "ollama".
// Returns an error if the preset name is not recognized.
func PresetConfig(name string) (*Config, error) {
	base := NewDefaultConfig()

	switch strings.ToLower(name) {
	case "openai":
		return base, nil

	case "anthropic":
		base.ModelA.Provider = "anthropic"
		base.ModelA.Model = "claude-sonnet-4-5"
		base.ModelB.Provider = "anthropic"
		base.ModelB.Model = "claude-haiku-4-5"
		return base, nil

	case "ollama":
		base.ModelA.Provider = "ollama"
		base.ModelA.Model = "llama3.2"
		base.ModelA.BaseURL = "http://localhost:11434"
		base.ModelB.Provider = "ollama"
		base.ModelB.Model = "qwen2.5"
		base.ModelB.BaseURL = "http://localhost:11434"
		return base, nil

	default:
		return nil, fmt.Errorf("unknown preset: %q (available: openai, anthropic, ollama)", name)
	}
}

// ValidPresetNames returns the list of recognized preset names.
func ValidPresetNames() []string {
	return []string{"openai", "anthropic", "ollama"}
}

// ParseConfigTOML parses raw TOML bytes into a Config.
// Returns an error if the version field is present and not equal to CurrentV.
func ParseConfigTOML(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config TOML: %w", err)
	}

	if cfg.Version != 0 && cfg.Version != CurrentV {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}

	return cfg, nil
}
