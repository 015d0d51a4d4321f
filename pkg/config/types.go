package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Config represents the persistent crosstalk configuration stored as
// config.toml in the .crosstalk/ directory. The TOML layout uses sections
// for logical grouping.
type Config struct {
	Version      int                `toml:"version"`
	ModelA       ModelConfig        `toml:"model_a"`
	ModelB       ModelConfig        `toml:"model_b"`
	Conversation ConversationConfig `toml:"conversation"`
	Archive      ArchiveConfig      `toml:"archive"`
	Events       EventsConfig       `toml:"events"`
	API          APIConfig          `toml:"api"`
}

// ModelConfig describes one of the two conversation participants.
type ModelConfig struct {
	Provider string `toml:"provider,omitempty"`
	Model    string `toml:"model,omitempty"`
	Nickname string `toml:"nickname,omitempty"`
	Persona  string `toml:"persona,omitempty"`
	BaseURL  string `toml:"base_url,omitempty"`

	// APIKey set here overrides stored credentials and environment
	// variables. Normally keys live in credentials.toml instead.
	APIKey string `toml:"api_key,omitempty"`
}

// ConversationConfig holds settings for the conversation loop itself.
type ConversationConfig struct {
	Topic            string  `toml:"topic,omitempty"`
	MaxTurns         int     `toml:"max_turns,omitempty"`
	Temperature      float64 `toml:"temperature,omitempty"`
	TurnDelay        float64 `toml:"turn_delay,omitempty"`
	SystemPromptFile string  `toml:"system_prompt_file,omitempty"`
}

// ArchiveConfig holds settings for the conversation archive.
type ArchiveConfig struct {
	Driver string `toml:"driver,omitempty"`
	DSN    string `toml:"dsn,omitempty"`
}

// EventsConfig holds turn event publishing settings.
type EventsConfig struct {
	Publisher string   `toml:"publisher,omitempty"`
	Brokers   []string `toml:"brokers,omitempty"`
	Topic     string   `toml:"topic,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure. API keys are
// deliberately absent; credentials are managed by "crosstalk auth".
var configKeys = map[string]configKeyInfo{
	"model_a.provider": {
		get: func(c *Config) string { return c.ModelA.Provider },
		set: func(c *Config, v string) error { c.ModelA.Provider = v; return nil },
	},
	"model_a.model": {
		get: func(c *Config) string { return c.ModelA.Model },
		set: func(c *Config, v string) error { c.ModelA.Model = v; return nil },
	},
	"model_a.nickname": {
		get: func(c *Config) string { return c.ModelA.Nickname },
		set: func(c *Config, v string) error { c.ModelA.Nickname = v; return nil },
	},
	"model_a.persona": {
		get: func(c *Config) string { return c.ModelA.Persona },
		set: func(c *Config, v string) error { c.ModelA.Persona = v; return nil },
	},
	"model_a.base_url": {
		get: func(c *Config) string { return c.ModelA.BaseURL },
		set: func(c *Config, v string) error { c.ModelA.BaseURL = v; return nil },
	},
	"model_b.provider": {
		get: func(c *Config) string { return c.ModelB.Provider },
		set: func(c *Config, v string) error { c.ModelB.Provider = v; return nil },
	},
	"model_b.model": {
		get: func(c *Config) string { return c.ModelB.Model },
		set: func(c *Config, v string) error { c.ModelB.Model = v; return nil },
	},
	"model_b.nickname": {
		get: func(c *Config) string { return c.ModelB.Nickname },
		set: func(c *Config, v string) error { c.ModelB.Nickname = v; return nil },
	},
	"model_b.persona": {
		get: func(c *Config) string { return c.ModelB.Persona },
		set: func(c *Config, v string) error { c.ModelB.Persona = v; return nil },
	},
	"model_b.base_url": {
		get: func(c *Config) string { return c.ModelB.BaseURL },
		set: func(c *Config, v string) error { c.ModelB.BaseURL = v; return nil },
	},
	"conversation.topic": {
		get: func(c *Config) string { return c.Conversation.Topic },
		set: func(c *Config, v string) error { c.Conversation.Topic = v; return nil },
	},
	"conversation.max_turns": {
		get: func(c *Config) string {
			if c.Conversation.MaxTurns == 0 {
				return ""
			}
			return strconv.Itoa(c.Conversation.MaxTurns)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for conversation.max_turns: %w", err)
			}
			c.Conversation.MaxTurns = n
			return nil
		},
	},
	"conversation.temperature": {
		get: func(c *Config) string {
			return strconv.FormatFloat(c.Conversation.Temperature, 'g', -1, 64)
		},
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for conversation.temperature: %w", err)
			}
			c.Conversation.Temperature = f
			return nil
		},
	},
	"conversation.turn_delay": {
		get: func(c *Config) string {
			return strconv.FormatFloat(c.Conversation.TurnDelay, 'g', -1, 64)
		},
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for conversation.turn_delay: %w", err)
			}
			c.Conversation.TurnDelay = f
			return nil
		},
	},
	"conversation.system_prompt_file": {
		get: func(c *Config) string { return c.Conversation.SystemPromptFile },
		set: func(c *Config, v string) error { c.Conversation.SystemPromptFile = v; return nil },
	},
	"archive.driver": {
		get: func(c *Config) string { return c.Archive.Driver },
		set: func(c *Config, v string) error { c.Archive.Driver = v; return nil },
	},
	"archive.dsn": {
		get: func(c *Config) string { return c.Archive.DSN },
		set: func(c *Config, v string) error { c.Archive.DSN = v; return nil },
	},
	"events.publisher": {
		get: func(c *Config) string { return c.Events.Publisher },
		set: func(c *Config, v string) error { c.Events.Publisher = v; return nil },
	},
	"events.brokers": {
		get: func(c *Config) string { return strings.Join(c.Events.Brokers, ",") },
		set: func(c *Config, v string) error {
			if v == "" {
				c.Events.Brokers = nil
				return nil
			}
			parts := strings.Split(v, ",")
			brokers := make([]string, 0, len(parts))
			for _, p := range parts {
				if trimmed := strings.TrimSpace(p); trimmed != "" {
					brokers = append(brokers, trimmed)
				}
			}
			c.Events.Brokers = brokers
			return nil
		},
	},
	"events.topic": {
		get: func(c *Config) string { return c.Events.Topic },
		set: func(c *Config, v string) error { c.Events.Topic = v; return nil },
	},
	"api.listen": {
		get: func(c *Config) string { return c.API.Listen },
		set: func(c *Config, v string) error { c.API.Listen = v; return nil },
	},
}
