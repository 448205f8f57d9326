// Package glassboxcmder wires the glassbox root command and its subcommands.
package glassboxcmder

import (
	"github.com/spf13/cobra"

	attendcmder "github.com/papercomputeco/glassbox/cmd/glassbox/attend"
	configcmder "github.com/papercomputeco/glassbox/cmd/glassbox/config"
	generatecmder "github.com/papercomputeco/glassbox/cmd/glassbox/generate"
	initcmder "github.com/papercomputeco/glassbox/cmd/glassbox/init"
	servecmder "github.com/papercomputeco/glassbox/cmd/glassbox/serve"
	tokenscmder "github.com/papercomputeco/glassbox/cmd/glassbox/tokens"
	versioncmder "github.com/papercomputeco/glassbox/cmd/version"
)

const glassboxLongDesc string = `Glassbox shows what a language model pays attention to.

Run the server and inspect prompts using:
  glassbox init               Create a local .glassbox/ directory
  glassbox serve              Run the API server
  glassbox attend <prompt>    Stream a generation shaded by prompt attribution
  glassbox generate <prompt>  Generate a complete answer
  glassbox tokens <prompt>    Show how a prompt splits into tokens`

const glassboxShortDesc string = "Glassbox - LLM attention explorer"

func NewGlassboxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "glassbox",
		Short:         glassboxShortDesc,
		Long:          glassboxLongDesc,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .glassbox/ config directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(attendcmder.NewAttendCmd())
	cmd.AddCommand(generatecmder.NewGenerateCmd())
	cmd.AddCommand(tokenscmder.NewTokensCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
