// Package tokenscmder provides the tokens command.
package tokenscmder

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/glassbox/api"
	apiclient "github.com/papercomputeco/glassbox/api/client"
	"github.com/papercomputeco/glassbox/pkg/cliui"
	"github.com/papercomputeco/glassbox/pkg/config"
	"github.com/papercomputeco/glassbox/pkg/tokenizer"
)

var chipStyles = []lipgloss.Style{
	lipgloss.NewStyle().Background(lipgloss.Color("24")).Foreground(lipgloss.Color("255")),
	lipgloss.NewStyle().Background(lipgloss.Color("60")).Foreground(lipgloss.Color("255")),
	lipgloss.NewStyle().Background(lipgloss.Color("29")).Foreground(lipgloss.Color("255")),
}

var punctStyle = lipgloss.NewStyle().Background(lipgloss.Color("94")).Foreground(lipgloss.Color("255"))

type tokensCommander struct {
	server string
	out    io.Writer
	v      *viper.Viper
}

const tokensLongDesc string = `Show how a prompt splits into tokens.

Prints each word and punctuation token as a coloured chip, followed by the
model provider's own token count for the prompt.

Examples:
  glassbox tokens "The quick brown fox, jumping."`

const tokensShortDesc string = "Show how a prompt splits into tokens"

func NewTokensCmd() *cobra.Command {
	cmder := &tokensCommander{}

	cmd := &cobra.Command{
		Use:   "tokens <prompt>",
		Short: tokensShortDesc,
		Long:  tokensLongDesc,
		Args:  cobra.ExactArgs(1),

		SilenceUsage: true,

		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, []string{config.FlagServer})
			cmder.v = v
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.server = cmder.v.GetString("client.target")
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd.Context(), args[0])
		},
	}

	var server string
	config.AddStringFlag(cmd, config.Flags, config.FlagServer, &server)

	return cmd
}

func (c *tokensCommander) run(ctx context.Context, prompt string) error {
	client, err := apiclient.New(c.server, nil)
	if err != nil {
		return err
	}

	resp, err := client.Tokens(ctx, prompt)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "\n  %s\n\n", Chips(resp.Tokens))
	fmt.Fprintf(c.out, "  %s %s  %s %s\n\n",
		cliui.KeyStyle.Render("chips:"),
		cliui.ValueStyle.Render(fmt.Sprint(countChips(resp))),
		cliui.KeyStyle.Render("model tokens:"),
		cliui.ValueStyle.Render(fmt.Sprint(resp.TokenCount)),
	)
	return nil
}

// Chips renders the tokens as alternating coloured chips. Whitespace is
// kept as-is between them.
func Chips(tokens []tokenizer.Token) string {
	var b strings.Builder
	n := 0
	for _, t := range tokens {
		switch t.Kind {
		case tokenizer.KindSpace:
			b.WriteString(t.Text)
		case tokenizer.KindPunct:
			b.WriteString(punctStyle.Render(t.Text))
		default:
			b.WriteString(chipStyles[n%len(chipStyles)].Render(t.Text))
			n++
		}
	}
	return b.String()
}

func countChips(resp *api.TokensResponse) int {
	n := 0
	for _, t := range resp.Tokens {
		if t.Kind != tokenizer.KindSpace {
			n++
		}
	}
	return n
}
