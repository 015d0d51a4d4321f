package config

const (
	defaultProviderA = "openai"
	defaultModelA    = "gpt-4.1-mini"
	defaultNicknameA = "Alice"
	defaultPersonaA  = "You are a thoughtful and analytical assistant who enjoys exploring ideas in depth."

	defaultProviderB = "openai"
	defaultModelB    = "gpt-4.1-nano"
	defaultNicknameB = "Bob"
	defaultPersonaB  = "You are a creative and curious assistant who likes to ask questions and challenge assumptions."

	defaultTopic            = "The impact of artificial intelligence on society"
	defaultMaxTurns         = 10
	defaultTemperature      = 0.7
	defaultTurnDelay        = 1.0
	defaultSystemPromptFile = "system_prompt.txt"

	defaultArchiveDriver = "sqlite"

	defaultEventsPublisher = "none"
	defaultEventsTopic     = "crosstalk.turns"

	defaultAPIListen = ":8081"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		ModelA: ModelConfig{
			Provider: defaultProviderA,
			Model:    defaultModelA,
			Nickname: defaultNicknameA,
			Persona:  defaultPersonaA,
		},
		ModelB: ModelConfig{
			Provider: defaultProviderB,
			Model:    defaultModelB,
			Nickname: defaultNicknameB,
			Persona:  defaultPersonaB,
		},
		Conversation: ConversationConfig{
			Topic:            defaultTopic,
			MaxTurns:         defaultMaxTurns,
			Temperature:      defaultTemperature,
			TurnDelay:        defaultTurnDelay,
			SystemPromptFile: defaultSystemPromptFile,
		},
		Archive: ArchiveConfig{
			Driver: defaultArchiveDriver,
		},
		Events: EventsConfig{
			Publisher: defaultEventsPublisher,
			Brokers:   []string{"localhost:9092"},
			Topic:     defaultEventsTopic,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
	}
}
