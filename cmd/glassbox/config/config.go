// Package configcmder provides the config command for managing persistent
// glassbox configuration stored in the .glassbox/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent glassbox configuration.

Configuration is stored as config.toml in the .glassbox/ directory and provides
default values for command flags. CLI flags and GLASSBOX_ environment
variables always take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  server.listen, server.allow_origins,
  provider.type, provider.target, provider.model, provider.api_key,
  provider.context_window,
  embedding.provider, embedding.target, embedding.model,
  client.target, log.debug

Use subcommands to get, set, or list configuration values:
  glassbox config set <key> <value>    Set a configuration value
  glassbox config get <key>            Get a configuration value
  glassbox config list                 List all configuration values

Examples:
  glassbox config set provider.type openai
  glassbox config set provider.model gpt-4o-mini
  glassbox config get provider.type
  glassbox config list`

const configShortDesc string = "Manage persistent glassbox configuration"

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
