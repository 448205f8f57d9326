package api

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/papercomputeco/glassbox/api/mcp"
	"github.com/papercomputeco/glassbox/pkg/attention"
	"github.com/papercomputeco/glassbox/pkg/contextwindow"
	"github.com/papercomputeco/glassbox/pkg/factcheck"
	"github.com/papercomputeco/glassbox/pkg/llm"
	"github.com/papercomputeco/glassbox/pkg/projection"
	"github.com/papercomputeco/glassbox/pkg/sampling"
)

// Server is the glassbox API server. Every collaborator is built once here
// and shared by all requests; none of them hold per-request state.
type Server struct {
	config    Config
	logger    *zap.Logger
	app       *fiber.App
	attention *attention.Controller
	gauge     *contextwindow.Gauge
	lab       *sampling.Lab
	checker   *factcheck.Checker
	projector *projection.Projector

	// streams is the parent of every attention stream context. Shutdown
	// cancels it.
	streams    context.Context
	endStreams context.CancelFunc
}

// NewServer creates a new API server.
func NewServer(config Config, logger *zap.Logger) (*Server, error) {
	if config.Client == nil {
		return nil, errors.New("llm client is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	s := &Server{
		config:    config,
		logger:    logger,
		app:       app,
		attention: attention.New(config.Client, attention.WithLogger(logger)),
		gauge:     contextwindow.NewGauge(config.Client, config.ContextWindow),
		lab:       sampling.NewLab(config.Client, logger),
		checker:   factcheck.NewChecker(config.Client, logger),
	}
	if s.config.KeepAlive <= 0 {
		s.config.KeepAlive = DefaultKeepAlive
	}
	s.streams, s.endStreams = context.WithCancel(context.Background())
	if config.Embedder != nil {
		s.projector = projection.NewProjector(config.Embedder)
	}

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	if config.AllowOrigins != "" {
		app.Use(cors.New(cors.Config{
			AllowOrigins: config.AllowOrigins,
			AllowMethods: "GET,POST,OPTIONS",
			AllowHeaders: "Content-Type",
		}))
	}
	if config.Metrics != nil {
		app.Use(s.observe)
		app.Get("/metrics", adaptor.HTTPHandler(config.Metrics.Handler()))
	}

	app.Get("/", s.handleRoot)
	app.Get("/ping", s.handlePing)

	api := app.Group("/api")
	api.Post("/generate", s.handleGenerate)
	api.Post("/tokens", s.handleTokens)
	api.Post("/attention-stream", s.handleAttentionStream)
	api.Post("/chat", s.handleChat)
	api.Post("/temperature-lab", s.handleTemperatureLab)
	api.Post("/factcheck", s.handleFactCheck)
	api.Post("/embedding", s.handleEmbedding)

	if !config.DisableMCP {
		mcpServer, err := mcp.NewServer(mcp.Config{
			Client:        config.Client,
			ContextWindow: s.gauge.Window(),
			Logger:        logger,
		})
		if err != nil {
			return nil, err
		}
		app.All("/mcp", adaptor.HTTPHandler(mcpServer.Handler()))
	}

	return s, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		zap.String("listen", s.config.ListenAddr),
		zap.String("provider", s.config.Client.Name()),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown cancels open attention streams and gracefully shuts down the
// API server.
func (s *Server) Shutdown() error {
	s.endStreams()
	return s.app.Shutdown()
}

// observe records the route, status and latency of every request.
func (s *Server) observe(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	if err != nil {
		status = fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}
	}
	s.config.Metrics.ObserveRequest(c.Route().Path, status, time.Since(start))

	return err
}

// errorHandler renders errors that escape a handler as llm.ErrorResponse.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(llm.ErrorResponse{Error: err.Error()})
}
