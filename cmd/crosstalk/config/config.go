// Package configcmder provides the config command for managing persistent
// crosstalk configuration stored in the .crosstalk/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent crosstalk configuration.

Configuration is stored as config.toml in the .crosstalk/ directory and
provides default values for command flags. CLI flags always take precedence
over config file values.

Keys use dotted notation matching the TOML section structure:
  model_a.provider, model_a.model, model_a.nickname, model_a.persona,
  model_a.base_url, model_b.provider, model_b.model, model_b.nickname,
  model_b.persona, model_b.base_url,
  conversation.topic, conversation.max_turns, conversation.temperature,
  conversation.turn_delay, conversation.system_prompt_file,
  archive.driver, archive.dsn,
  events.publisher, events.brokers, events.topic,
  api.listen

Use subcommands to get, set, or list configuration values:
  crosstalk config set <key> <value>    Set a configuration value
  crosstalk config get <key>            Get a configuration value
  crosstalk config list                 List all configuration values

Examples:
  crosstalk config set model_a.provider anthropic
  crosstalk config set conversation.max_turns 6
  crosstalk config get conversation.topic
  crosstalk config list`

const configShortDesc string = "Manage persistent crosstalk configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
