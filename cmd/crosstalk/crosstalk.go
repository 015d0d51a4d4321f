// Package crosstalkcmder
package crosstalkcmder

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	authcmder "github.com/crosstalkco/crosstalk/cmd/crosstalk/auth"
	checkcmder "github.com/crosstalkco/crosstalk/cmd/crosstalk/check"
	configcmder "github.com/crosstalkco/crosstalk/cmd/crosstalk/config"
	initcmder "github.com/crosstalkco/crosstalk/cmd/crosstalk/init"
	runcmder "github.com/crosstalkco/crosstalk/cmd/crosstalk/run"
	servecmder "github.com/crosstalkco/crosstalk/cmd/crosstalk/serve"
	versioncmder "github.com/crosstalkco/crosstalk/cmd/version"
)

const crosstalkLongDesc string = `Crosstalk runs turn-based conversations between two LLMs.

Drive conversations using:
  crosstalk run        Run a conversation in the terminal
  crosstalk serve      Run the HTTP API server
  crosstalk check      Validate config and probe both model endpoints`

const crosstalkShortDesc string = "Crosstalk - Two-model conversations"

func NewCrosstalkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crosstalk",
		Short: crosstalkShortDesc,
		Long:  crosstalkLongDesc,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			// A .env in the working directory can supply provider keys.
			_ = godotenv.Load()
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .crosstalk/ config directory")

	// Add subcommands
	cmd.AddCommand(runcmder.NewRunCmd())
	cmd.AddCommand(checkcmder.NewCheckCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
