package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/crosstalkco/crosstalk/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the CROSSTALK_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (CROSSTALK_CONVERSATION_TOPIC, CROSSTALK_MODEL_A_MODEL, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: CROSSTALK_MODEL_A_MODEL, CROSSTALK_API_LISTEN, etc.
	v.SetEnvPrefix("CROSSTALK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// FromViper materializes a Config from the resolved viper chain. Call it
// after BindRegisteredFlags so flag overrides are visible.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Version: v.GetInt("version"),
		ModelA: ModelConfig{
			Provider: v.GetString("model_a.provider"),
			Model:    v.GetString("model_a.model"),
			Nickname: v.GetString("model_a.nickname"),
			Persona:  v.GetString("model_a.persona"),
			BaseURL:  v.GetString("model_a.base_url"),
			APIKey:   v.GetString("model_a.api_key"),
		},
		ModelB: ModelConfig{
			Provider: v.GetString("model_b.provider"),
			Model:    v.GetString("model_b.model"),
			Nickname: v.GetString("model_b.nickname"),
			Persona:  v.GetString("model_b.persona"),
			BaseURL:  v.GetString("model_b.base_url"),
			APIKey:   v.GetString("model_b.api_key"),
		},
		Conversation: ConversationConfig{
			Topic:            v.GetString("conversation.topic"),
			MaxTurns:         v.GetInt("conversation.max_turns"),
			Temperature:      v.GetFloat64("conversation.temperature"),
			TurnDelay:        v.GetFloat64("conversation.turn_delay"),
			SystemPromptFile: v.GetString("conversation.system_prompt_file"),
		},
		Archive: ArchiveConfig{
			Driver: v.GetString("archive.driver"),
			DSN:    v.GetString("archive.dsn"),
		},
		Events: EventsConfig{
			Publisher: v.GetString("events.publisher"),
			Brokers:   v.GetStringSlice("events.brokers"),
			Topic:     v.GetString("events.topic"),
		},
		API: APIConfig{
			Listen: v.GetString("api.listen"),
		},
	}
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Models
	v.SetDefault("model_a.provider", d.ModelA.Provider)
	v.SetDefault("model_a.model", d.ModelA.Model)
	v.SetDefault("model_a.nickname", d.ModelA.Nickname)
	v.SetDefault("model_a.persona", d.ModelA.Persona)
	v.SetDefault("model_a.base_url", d.ModelA.BaseURL)
	v.SetDefault("model_b.provider", d.ModelB.Provider)
	v.SetDefault("model_b.model", d.ModelB.Model)
	v.SetDefault("model_b.nickname", d.ModelB.Nickname)
	v.SetDefault("model_b.persona", d.ModelB.Persona)
	v.SetDefault("model_b.base_url", d.ModelB.BaseURL)

	// Conversation
	v.SetDefault("conversation.topic", d.Conversation.Topic)
	v.SetDefault("conversation.max_turns", d.Conversation.MaxTurns)
	v.SetDefault("conversation.temperature", d.Conversation.Temperature)
	v.SetDefault("conversation.turn_delay", d.Conversation.TurnDelay)
	v.SetDefault("conversation.system_prompt_file", d.Conversation.SystemPromptFile)

	// Archive
	v.SetDefault("archive.driver", d.Archive.Driver)
	v.SetDefault("archive.dsn", d.Archive.DSN)

	// Events
	v.SetDefault("events.publisher", d.Events.Publisher)
	v.SetDefault("events.brokers", d.Events.Brokers)
	v.SetDefault("events.topic", d.Events.Topic)

	// API
	v.SetDefault("api.listen", d.API.Listen)
}
