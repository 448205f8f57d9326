// Package contextwindow runs a chat turn and reports how much of the model's
// context window the conversation now occupies.
package contextwindow

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/papercomputeco/glassbox/pkg/llm"
)

// DefaultWindow is used when no context window size is configured.
const DefaultWindow = 8192

// ErrNoMessages is returned for an empty conversation.
var ErrNoMessages = errors.New("conversation has no messages")

// Reply is the model's answer plus the context gauge reading.
type Reply struct {
	Response      string  `json:"response"`
	TotalTokens   int     `json:"total_tokens"`
	PercentUsed   float64 `json:"percent_used"`
	ContextWindow int     `json:"context_window"`
}

// Gauge sends caller-supplied history to the model. It keeps no history of
// its own between calls.
type Gauge struct {
	client llm.Client
	window int
}

// NewGauge creates a Gauge for a model with the given window, in tokens.
func NewGauge(client llm.Client, window int) *Gauge {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Gauge{client: client, window: window}
}

// Window returns the configured context window size.
func (g *Gauge) Window() int {
	return g.window
}

// Chat answers the last message of history. Roles are normalised, so
// "model" and "assistant" are interchangeable.
func (g *Gauge) Chat(ctx context.Context, history []llm.Message) (*Reply, error) {
	if len(history) == 0 {
		return nil, ErrNoMessages
	}

	messages := make([]llm.Message, len(history))
	for i, m := range history {
		messages[i] = llm.NewTextMessage(m.Role, m.Content)
	}

	resp, err := g.client.Generate(ctx, &llm.ChatRequest{Messages: messages})
	if err != nil {
		return nil, err
	}

	total, err := g.totalTokens(ctx, messages, resp)
	if err != nil {
		return nil, err
	}

	return &Reply{
		Response:      resp.Text(),
		TotalTokens:   total,
		PercentUsed:   Percent(total, g.window),
		ContextWindow: g.window,
	}, nil
}

// totalTokens prefers the provider's usage report and counts the transcript
// when none was returned.
func (g *Gauge) totalTokens(ctx context.Context, messages []llm.Message, resp *llm.ChatResponse) (int, error) {
	if resp.Usage != nil && resp.Usage.TotalTokens > 0 {
		return resp.Usage.TotalTokens, nil
	}

	var transcript strings.Builder
	for _, m := range messages {
		transcript.WriteString(m.Content)
		transcript.WriteString("\n")
	}
	transcript.WriteString(resp.Text())

	n, err := g.client.CountTokens(ctx, transcript.String())
	if err != nil {
		return 0, fmt.Errorf("counting tokens: %w", err)
	}
	return n, nil
}

// Percent returns used as a percentage of window rounded to one decimal.
func Percent(used, window int) float64 {
	if window <= 0 {
		return 0
	}
	return math.Round(1000*float64(used)/float64(window)) / 10
}
