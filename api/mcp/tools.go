package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/papercomputeco/glassbox/pkg/attribution"
	"github.com/papercomputeco/glassbox/pkg/contextwindow"
	"github.com/papercomputeco/glassbox/pkg/tokenizer"
)

var (
	tokenizeToolName    = "tokenize"
	tokenizeDescription = "Split a prompt into word, punctuation and whitespace tokens the way the glassbox attention view does."

	attributeToolName    = "attribute"
	attributeDescription = "Score how strongly a generated word relates to each token of a prompt, using character trigram overlap. Scores sum to 1 unless the word relates to no token."

	countTokensToolName    = "count_tokens"
	countTokensDescription = "Count the model tokens in a text and report how much of the configured context window it fills."
)

// TokenizeInput represents the input arguments for the tokenize tool.
type TokenizeInput struct {
	Prompt string `json:"prompt" jsonschema:"the text to tokenize"`
}

// TokenizeOutput represents the output of the tokenize tool.
type TokenizeOutput struct {
	Tokens []tokenizer.Token `json:"tokens"`
	Count  int               `json:"count"`
}

// AttributeInput represents the input arguments for the attribute tool.
type AttributeInput struct {
	Word   string `json:"word" jsonschema:"the generated word to score"`
	Prompt string `json:"prompt" jsonschema:"the prompt the word is scored against"`
}

// AttributeOutput represents the output of the attribute tool. Scores is
// parallel to Tokens.
type AttributeOutput struct {
	Word   string    `json:"word"`
	Tokens []string  `json:"tokens"`
	Scores []float64 `json:"scores"`
}

// CountTokensInput represents the input arguments for the count_tokens tool.
type CountTokensInput struct {
	Text string `json:"text" jsonschema:"the text to count"`
}

// CountTokensOutput represents the output of the count_tokens tool.
type CountTokensOutput struct {
	TokenCount    int     `json:"token_count"`
	ContextWindow int     `json:"context_window"`
	PercentUsed   float64 `json:"percent_used"`
}

func (s *Server) handleTokenize(_ context.Context, _ *mcp.CallToolRequest, input TokenizeInput) (*mcp.CallToolResult, TokenizeOutput, error) {
	tokens := tokenizer.Tokenize(input.Prompt)
	output := TokenizeOutput{Tokens: tokens, Count: len(tokens)}

	s.config.Logger.Debug("MCP tokenize request", zap.Int("tokens", output.Count))

	return textResult(s.config.Logger, output)
}

func (s *Server) handleAttribute(_ context.Context, _ *mcp.CallToolRequest, input AttributeInput) (*mcp.CallToolResult, AttributeOutput, error) {
	tokens := tokenizer.PromptTokens(input.Prompt)
	output := AttributeOutput{
		Word:   input.Word,
		Tokens: tokens,
		Scores: attribution.Score(strings.TrimSpace(input.Word), tokens),
	}

	s.config.Logger.Debug("MCP attribute request",
		zap.String("word", input.Word),
		zap.Int("tokens", len(tokens)),
	)

	return textResult(s.config.Logger, output)
}

func (s *Server) handleCountTokens(ctx context.Context, _ *mcp.CallToolRequest, input CountTokensInput) (*mcp.CallToolResult, CountTokensOutput, error) {
	n, err := s.config.Client.CountTokens(ctx, input.Text)
	if err != nil {
		s.config.Logger.Error("MCP count_tokens failed", zap.Error(err))
		return nil, CountTokensOutput{}, fmt.Errorf("counting tokens: %w", err)
	}

	output := CountTokensOutput{
		TokenCount:    n,
		ContextWindow: s.config.ContextWindow,
		PercentUsed:   contextwindow.Percent(n, s.config.ContextWindow),
	}

	s.config.Logger.Debug("MCP count_tokens request", zap.Int("tokens", n))

	return textResult(s.config.Logger, output)
}

// textResult serializes output as JSON for the text field too.
// Per MCP spec: tools returning structured content should also return
// serialized JSON in a TextContent block for backwards compatibility.
func textResult[T any](logger *zap.Logger, output T) (*mcp.CallToolResult, T, error) {
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		logger.Error("failed to marshal tool output", zap.Error(err))
		var zero T
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Failed to serialize results: %v", err)},
			},
		}, zero, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}
