// Package servecmder provides the serve command that runs the glassbox API server.
package servecmder

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/papercomputeco/glassbox/api"
	"github.com/papercomputeco/glassbox/pkg/config"
	"github.com/papercomputeco/glassbox/pkg/embeddings"
	embeddingutils "github.com/papercomputeco/glassbox/pkg/embeddings/utils"
	"github.com/papercomputeco/glassbox/pkg/llm/provider"
	"github.com/papercomputeco/glassbox/pkg/logger"
	"github.com/papercomputeco/glassbox/pkg/metrics"
)

type serveCommander struct {
	flags struct {
		listen            string
		allowOrigins      string
		providerType      string
		target            string
		model             string
		apiKey            string
		contextWindow     uint
		embeddingProvider string
		embeddingTarget   string
		embeddingModel    string
	}

	v      *viper.Viper
	level  zap.AtomicLevel
	logger *zap.Logger
}

// serveFlags are bound to viper so flag > env > config file > default.
var serveFlags = []string{
	config.FlagListen,
	config.FlagAllowOrigins,
	config.FlagProvider,
	config.FlagTarget,
	config.FlagModel,
	config.FlagAPIKey,
	config.FlagContextWindow,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagDebug,
}

const serveLongDesc string = `Run the glassbox API server.

The server generates text with the configured model provider and serves the
attention stream, tokenization, chat context gauge, temperature lab, fact
check and embedding star map endpoints, plus /metrics and /mcp.

Supported provider types: ollama, openai

Changes to log.debug in the config file apply while the server runs. Other
settings take effect on restart.`

const serveShortDesc string = "Run the glassbox API server"

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, serveFlags)
			cmder.v = v

			return nil
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagListen, &cmder.flags.listen)
	config.AddStringFlag(cmd, config.Flags, config.FlagAllowOrigins, &cmder.flags.allowOrigins)
	config.AddStringFlag(cmd, config.Flags, config.FlagProvider, &cmder.flags.providerType)
	config.AddStringFlag(cmd, config.Flags, config.FlagTarget, &cmder.flags.target)
	config.AddStringFlag(cmd, config.Flags, config.FlagModel, &cmder.flags.model)
	config.AddStringFlag(cmd, config.Flags, config.FlagAPIKey, &cmder.flags.apiKey)
	config.AddUintFlag(cmd, config.Flags, config.FlagContextWindow, &cmder.flags.contextWindow)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingProv, &cmder.flags.embeddingProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingTgt, &cmder.flags.embeddingTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingModel, &cmder.flags.embeddingModel)

	return cmd
}

func (c *serveCommander) run() error {
	c.level = logger.NewLevel(c.v.GetBool("log.debug"))
	c.logger = logger.NewLeveledLogger(c.level)
	defer func() { _ = c.logger.Sync() }()

	client, err := provider.New(provider.Config{
		Type:    c.v.GetString("provider.type"),
		BaseURL: c.v.GetString("provider.target"),
		Model:   c.v.GetString("provider.model"),
		APIKey:  c.v.GetString("provider.api_key"),
	})
	if err != nil {
		return fmt.Errorf("creating provider: %w", err)
	}

	embedder, err := c.newEmbedder()
	if err != nil {
		return err
	}
	if embedder != nil {
		defer embedder.Close()
	}

	server, err := api.NewServer(api.Config{
		ListenAddr:    c.v.GetString("server.listen"),
		AllowOrigins:  c.v.GetString("server.allow_origins"),
		ContextWindow: c.v.GetInt("provider.context_window"),
		Client:        client,
		Embedder:      embedder,
		Metrics:       metrics.NewCollector(),
	}, c.logger)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	if config.WatchDebug(c.v, c.onConfigChange) {
		c.logger.Debug("watching config file", zap.String("file", c.v.ConfigFileUsed()))
	}

	c.logger.Info("model provider",
		zap.String("provider", client.Name()),
		zap.String("target", c.v.GetString("provider.target")),
		zap.String("model", c.v.GetString("provider.model")),
	)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		return server.Shutdown()
	}
}

// newEmbedder returns nil when no embedding provider is configured; the
// server then answers /api/embedding with 503.
func (c *serveCommander) newEmbedder() (embeddings.Embedder, error) {
	providerType := c.v.GetString("embedding.provider")
	if providerType == "" {
		c.logger.Warn("no embedding provider configured, /api/embedding is disabled")
		return nil, nil
	}

	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: providerType,
		TargetURL:    c.v.GetString("embedding.target"),
		Model:        c.v.GetString("embedding.model"),
		APIKey:       c.v.GetString("provider.api_key"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	c.logger.Info("embedding provider",
		zap.String("provider", providerType),
		zap.String("model", c.v.GetString("embedding.model")),
	)
	return embedder, nil
}

func (c *serveCommander) onConfigChange(debug bool, e fsnotify.Event) {
	logger.SetDebug(c.level, debug)
	c.logger.Info("config file changed",
		zap.String("file", e.Name),
		zap.Bool("debug", debug),
	)
	c.logger.Warn("settings other than log.debug take effect after restart")
}
