package api

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/glassbox/pkg/contextwindow"
	"github.com/papercomputeco/glassbox/pkg/embeddings"
	"github.com/papercomputeco/glassbox/pkg/llm"
	"github.com/papercomputeco/glassbox/pkg/tokenizer"
)

// handleRoot reports that the server is up.
func (s *Server) handleRoot(c *fiber.Ctx) error {
	return c.JSON(StatusResponse{Status: "running"})
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleGenerate runs the prompt to completion.
func (s *Server) handleGenerate(c *fiber.Ctx) error {
	var req PromptRequest
	if err := decode(c, &req); err != nil {
		return badRequest(c, err)
	}

	resp, err := s.config.Client.Generate(c.Context(), llm.NewPromptRequest(req.Prompt))
	if err != nil {
		return s.failure(c, "generate", err)
	}

	return c.JSON(GenerateResponse{Text: resp.Text(), Usage: resp.Usage})
}

// handleTokens returns the visual tokenization alongside the provider's
// own token count.
func (s *Server) handleTokens(c *fiber.Ctx) error {
	var req PromptRequest
	if err := decode(c, &req); err != nil {
		return badRequest(c, err)
	}

	count, err := s.config.Client.CountTokens(c.Context(), req.Prompt)
	if err != nil {
		return s.failure(c, "count tokens", err)
	}

	return c.JSON(TokensResponse{
		Tokens:     tokenizer.Tokenize(req.Prompt),
		TokenCount: count,
	})
}

// handleChat answers caller-supplied history and reports context usage.
func (s *Server) handleChat(c *fiber.Ctx) error {
	var req ChatRequest
	if err := decode(c, &req); err != nil {
		return badRequest(c, err)
	}

	reply, err := s.gauge.Chat(c.Context(), req.Messages)
	if err != nil {
		return s.failure(c, "chat", err)
	}

	return c.JSON(reply)
}

// handleTemperatureLab samples the prompt at each lab temperature.
func (s *Server) handleTemperatureLab(c *fiber.Ctx) error {
	var req PromptRequest
	if err := decode(c, &req); err != nil {
		return badRequest(c, err)
	}

	results, err := s.lab.Run(c.Context(), req.Prompt)
	if err != nil {
		return s.failure(c, "temperature lab", err)
	}

	return c.JSON(TemperatureLabResponse{Results: results})
}

// handleFactCheck verifies the claims made in a previous answer.
func (s *Server) handleFactCheck(c *fiber.Ctx) error {
	var req FactCheckRequest
	if err := decode(c, &req); err != nil {
		return badRequest(c, err)
	}

	claims, err := s.checker.Check(c.Context(), req.ResponseText)
	if err != nil {
		return s.failure(c, "factcheck", err)
	}

	return c.JSON(FactCheckResponse{Claims: claims})
}

// handleEmbedding places the prompt on the anchor star map.
func (s *Server) handleEmbedding(c *fiber.Ctx) error {
	if s.projector == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(llm.ErrorResponse{Error: "embeddings are not configured"})
	}

	var req PromptRequest
	if err := decode(c, &req); err != nil {
		return badRequest(c, err)
	}

	starMap, err := s.projector.Project(c.Context(), req.Prompt)
	if err != nil {
		return s.failure(c, "embedding", err)
	}

	return c.JSON(starMap)
}

// decode unmarshals the JSON body into v. An empty body leaves v at its
// zero value.
func decode(c *fiber.Ctx, v any) error {
	body := c.Body()
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, v)
}

func badRequest(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "invalid request body: " + err.Error()})
}

// failure logs err and maps it to a status: 400 for caller mistakes, 502
// for upstream model or embedding failures, 500 otherwise.
func (s *Server) failure(c *fiber.Ctx, op string, err error) error {
	status := statusFor(err)
	s.logger.Error("request failed",
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("request_id", c.GetRespHeader(fiber.HeaderXRequestID)),
		zap.Error(err),
	)
	return c.Status(status).JSON(llm.ErrorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, contextwindow.ErrNoMessages):
		return fiber.StatusBadRequest
	case errors.Is(err, llm.ErrUpstream),
		errors.Is(err, llm.ErrEmptyResponse),
		errors.Is(err, llm.ErrNoJSON),
		errors.Is(err, embeddings.ErrEmbedding):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}
