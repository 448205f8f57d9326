// Package generatecmder provides the generate command.
package generatecmder

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/papercomputeco/glassbox/api"
	apiclient "github.com/papercomputeco/glassbox/api/client"
	"github.com/papercomputeco/glassbox/pkg/cliui"
	"github.com/papercomputeco/glassbox/pkg/config"
	"github.com/papercomputeco/glassbox/pkg/logger"
)

type generateCommander struct {
	server string
	raw    bool
	debug  bool
	out    io.Writer
	errOut io.Writer
	v      *viper.Viper
}

const generateLongDesc string = `Generate a complete answer with a running glassbox server.

When stdout is a terminal the answer is rendered as markdown. Use --raw to
print the model's text unchanged.

Examples:
  glassbox generate "Write a haiku about latency"
  glassbox generate "List three sorting algorithms" --raw > answer.md`

const generateShortDesc string = "Generate a complete answer"

func NewGenerateCmd() *cobra.Command {
	cmder := &generateCommander{}

	cmd := &cobra.Command{
		Use:   "generate <prompt>",
		Short: generateShortDesc,
		Long:  generateLongDesc,
		Args:  cobra.ExactArgs(1),

		SilenceUsage: true,

		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, []string{config.FlagServer, config.FlagDebug})
			cmder.v = v
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.server = cmder.v.GetString("client.target")
			cmder.debug = cmder.v.GetBool("log.debug")
			cmder.out = cmd.OutOrStdout()
			cmder.errOut = cmd.ErrOrStderr()
			return cmder.run(cmd.Context(), args[0])
		},
	}

	var server string
	config.AddStringFlag(cmd, config.Flags, config.FlagServer, &server)
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print the answer without markdown rendering")

	return cmd
}

func (c *generateCommander) run(ctx context.Context, prompt string) error {
	log := logger.NewCLILogger(c.errOut, c.debug, logger.WithPrefix("generate"))

	client, err := apiclient.New(c.server, nil)
	if err != nil {
		return err
	}

	var resp *api.GenerateResponse
	err = cliui.Step(c.errOut, "Generating", func() error {
		var err error
		resp, err = client.Generate(ctx, prompt)
		return err
	})
	if err != nil {
		return err
	}

	if resp.Usage != nil {
		log.Debug("usage",
			"prompt_tokens", resp.Usage.PromptTokens,
			"completion_tokens", resp.Usage.CompletionTokens,
		)
	}

	text := resp.Text
	if !c.raw && isTerminal(c.out) {
		rendered, err := cliui.RenderMarkdown(text)
		if err != nil {
			log.Warn("markdown rendering failed, printing raw text", "err", err)
		} else {
			text = rendered
		}
	}

	_, err = fmt.Fprintln(c.out, text)
	return err
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
