// Package attendcmder provides the attend command, which streams a
// generation and shades every word by how strongly it relates to the prompt.
package attendcmder

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	apiclient "github.com/papercomputeco/glassbox/api/client"
	"github.com/papercomputeco/glassbox/pkg/attention"
	"github.com/papercomputeco/glassbox/pkg/cliui"
	"github.com/papercomputeco/glassbox/pkg/config"
	"github.com/papercomputeco/glassbox/pkg/logger"
)

// TokenWeight is the attribution a prompt token received over a whole
// generation.
type TokenWeight struct {
	Token  string
	Weight float64
}

type attendCommander struct {
	server string
	top    int
	debug  bool
	color  bool
	out    io.Writer
	v      *viper.Viper
}

const attendLongDesc string = `Stream a generation from a running glassbox server.

Each word is printed as it arrives, shaded by its strongest prompt token:
darker words relate to nothing in the prompt, hotter words echo it. A summary
of the most attended prompt tokens follows the generation.

Examples:
  glassbox attend "Explain why the sky is blue"
  glassbox attend "Summarise the plot of Hamlet" --server http://gpu-box:8000 --top 10`

const attendShortDesc string = "Stream a generation shaded by prompt attribution"

func NewAttendCmd() *cobra.Command {
	cmder := &attendCommander{}

	cmd := &cobra.Command{
		Use:   "attend <prompt>",
		Short: attendShortDesc,
		Long:  attendLongDesc,
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
			cmder.color = isTerminal(cmder.out)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			return cmder.run(ctx, args[0])
		},
	}

	var server string
	config.AddStringFlag(cmd, config.Flags, config.FlagServer, &server)
	cmd.Flags().IntVarP(&cmder.top, "top", "k", 5, "Number of prompt tokens to list in the summary")

	return cmd
}

func (c *attendCommander) run(ctx context.Context, prompt string) error {
	log := logger.NewCLILogger(nil, c.debug, logger.WithPrefix("attend"))

	client, err := apiclient.New(c.server, nil)
	if err != nil {
		return err
	}

	log.Debug("streaming", "server", c.server)

	var (
		tokens []string
		totals []float64
		words  int
	)
	err = client.Attend(ctx, prompt, func(a attention.Attribution) error {
		if totals == nil {
			tokens = a.Tokens
			totals = make([]float64, len(a.Tokens))
		}
		for i, s := range a.Scores {
			if i < len(totals) {
				totals[i] += s
			}
		}
		words++

		_, err := fmt.Fprint(c.out, c.shade(a))
		return err
	})
	fmt.Fprintln(c.out)
	if err != nil {
		return err
	}

	log.Debug("stream complete", "words", words)
	c.summary(TopTokens(tokens, totals, c.top))
	return nil
}

// shade renders the word on the heat ramp by its strongest score.
func (c *attendCommander) shade(a attention.Attribution) string {
	if !c.color {
		return a.Word
	}
	peak := 0.0
	if len(a.Scores) > 0 {
		peak = slices.Max(a.Scores)
	}
	// Keep the delimiter outside the band so spaces stay unshaded.
	word := strings.TrimRight(a.Word, " ")
	return cliui.Heat(word, peak) + a.Word[len(word):]
}

func (c *attendCommander) summary(top []TokenWeight) {
	if len(top) == 0 {
		return
	}
	fmt.Fprintf(c.out, "\n  %s\n", cliui.KeyStyle.Render("Most attended prompt tokens"))
	for _, tw := range top {
		fmt.Fprintf(c.out, "  %-16s %s\n",
			cliui.ValueStyle.Render(tw.Token),
			cliui.DimStyle.Render(fmt.Sprintf("%.2f", tw.Weight)),
		)
	}
	fmt.Fprintln(c.out)
}

// TopTokens returns the n tokens with the largest accumulated weight,
// heaviest first. Ties keep prompt order. Tokens with no weight are left out.
func TopTokens(tokens []string, totals []float64, n int) []TokenWeight {
	out := make([]TokenWeight, 0, len(tokens))
	for i, t := range tokens {
		if i < len(totals) && totals[i] > 0 {
			out = append(out, TokenWeight{Token: t, Weight: totals[i]})
		}
	}
	slices.SortStableFunc(out, func(a, b TokenWeight) int {
		switch {
		case a.Weight > b.Weight:
			return -1
		case a.Weight < b.Weight:
			return 1
		default:
			return 0
		}
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
