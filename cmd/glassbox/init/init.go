// Package initcmder provides the init command for initializing a local
// .glassbox directory, optionally seeded with a provider preset.
package initcmder

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/glassbox/pkg/cliui"
	"github.com/papercomputeco/glassbox/pkg/config"
)

const (
	dirName    = ".glassbox"
	configFile = "config.toml"
)

const initLongDesc string = `Initialize a new .glassbox/ directory in the current working directory.

Creates a local .glassbox/ directory that takes precedence over the default
~/.glassbox/ directory. With --preset, a config.toml pointing at that
provider family is written as well; an existing config.toml is only
replaced with --force.

Presets:
  ollama    local Ollama for generation and embeddings (the defaults)
  openai    OpenAI chat completions and embeddings

Examples:
  glassbox init
  glassbox init --preset openai`

const initShortDesc string = "Initialize a local .glassbox/ directory"

type initCommander struct {
	preset string
	force  bool
}

func NewInitCmd() *cobra.Command {
	cmder := &initCommander{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, _ := cmd.Flags().GetString("config-dir")
			if dir == "" {
				cwd, err := os.Getwd()
				if err != nil {
					return fmt.Errorf("getting current directory: %w", err)
				}
				dir = filepath.Join(cwd, dirName)
			}
			return cmder.run(cmd.OutOrStdout(), dir)
		},
	}

	cmd.Flags().StringVar(&cmder.preset, "preset", "",
		fmt.Sprintf("Write a config.toml for a provider (%s)", strings.Join(config.ValidPresetNames(), ", ")))
	cmd.Flags().BoolVar(&cmder.force, "force", false, "Overwrite an existing config.toml")
	_ = cmd.RegisterFlagCompletionFunc("preset", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return config.ValidPresetNames(), cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func (c *initCommander) run(w io.Writer, dir string) error {
	var cfg *config.Config
	if c.preset != "" {
		var err error
		cfg, err = config.PresetConfig(c.preset)
		if err != nil {
			return err
		}
	}

	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		fmt.Fprintf(w, "Already initialized: %s\n", dir)
	} else {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating .glassbox directory: %w", err)
		}
		fmt.Fprintf(w, "Initialized .glassbox directory: %s\n", dir)
	}

	if cfg == nil {
		return nil
	}

	path := filepath.Join(dir, configFile)
	if _, err := os.Stat(path); err == nil && !c.force {
		return fmt.Errorf("%s already exists, use --force to replace it", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checking config: %w", err)
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}

	fmt.Fprintf(w, "  %s Wrote %s preset to %s\n",
		cliui.SuccessMark,
		cliui.KeyStyle.Render(strings.ToLower(c.preset)),
		cliui.DimStyle.Render(path),
	)
	return nil
}
