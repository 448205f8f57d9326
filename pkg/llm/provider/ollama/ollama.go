// Package ollama is the llm.Client for Ollama's chat API.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"

	"github.com/papercomputeco/glassbox/pkg/llm"
)

const (
	// DefaultBaseURL is the default Ollama API URL.
	DefaultBaseURL = "http://localhost:11434"

	// DefaultModel is used when neither the config nor the request names one.
	DefaultModel = "llama3.2"

	chatPath = "/api/chat"
)

// Config holds configuration for the Ollama client.
type Config struct {
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// Client talks to an Ollama server. One-shot calls go through the official
// api.Client; streaming reads the NDJSON body directly so chunks can be
// pulled one at a time.
type Client struct {
	api        *api.Client
	base       *url.URL
	model      string
	httpClient *http.Client
}

// New creates an Ollama client.
func New(cfg Config) (*Client, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing ollama url %q: %w", baseURL, err)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		api:        api.NewClient(base, httpClient),
		base:       base,
		model:      model,
		httpClient: httpClient,
	}, nil
}

func (c *Client) Name() string {
	return "ollama"
}

// Generate runs a non-streamed chat completion.
func (c *Client) Generate(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	chatReq := c.toChatRequest(req, false)

	var final api.ChatResponse
	err := c.api.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
		final = resp
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", llm.ErrUpstream, err)
	}

	return &llm.ChatResponse{
		Model:      final.Model,
		CreatedAt:  final.CreatedAt,
		Message:    llm.NewTextMessage(llm.RoleAssistant, final.Message.Content),
		StopReason: final.DoneReason,
		Usage:      usage(final.Metrics),
	}, nil
}

// Stream starts a streamed chat completion.
func (c *Client) Stream(ctx context.Context, req *llm.ChatRequest) (llm.Stream, error) {
	body, err := json.Marshal(c.toChatRequest(req, true))
	if err != nil {
		return nil, fmt.Errorf("marshaling ollama request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base.JoinPath(chatPath).String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating ollama request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/x-ndjson")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", llm.ErrUpstream, err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: ollama returned status %d: %s", llm.ErrUpstream, resp.StatusCode, bytes.TrimSpace(msg))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	return &stream{body: resp.Body, scanner: scanner}, nil
}

// CountTokens asks Ollama to evaluate text as a raw prompt and reports the
// prompt evaluation count. Generation is capped at a single token.
func (c *Client) CountTokens(ctx context.Context, text string) (int, error) {
	stream := false
	req := &api.GenerateRequest{
		Model:   c.model,
		Prompt:  text,
		Raw:     true,
		Stream:  &stream,
		Options: map[string]any{"num_predict": 1},
	}

	count := 0
	err := c.api.Generate(ctx, req, func(resp api.GenerateResponse) error {
		count = resp.PromptEvalCount
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %w", llm.ErrUpstream, err)
	}
	return count, nil
}

func (c *Client) toChatRequest(req *llm.ChatRequest, streaming bool) *api.ChatRequest {
	model := req.Model
	if model == "" {
		model = c.model
	}

	messages := make([]api.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, api.Message{Role: m.Role, Content: m.Content})
	}

	options := map[string]any{}
	if req.Temperature != nil {
		options["temperature"] = *req.Temperature
	}
	if req.MaxTokens != nil {
		options["num_predict"] = *req.MaxTokens
	}

	out := &api.ChatRequest{
		Model:    model,
		Messages: messages,
		Stream:   &streaming,
		Options:  options,
	}
	if req.JSON {
		out.Format = json.RawMessage(`"json"`)
	}
	return out
}

func usage(m api.Metrics) *llm.Usage {
	if m.PromptEvalCount == 0 && m.EvalCount == 0 {
		return nil
	}
	return &llm.Usage{
		PromptTokens:     m.PromptEvalCount,
		CompletionTokens: m.EvalCount,
		TotalTokens:      m.PromptEvalCount + m.EvalCount,
	}
}

// streamLine is one NDJSON line of a streamed chat. Ollama reports mid-stream
// failures as a line carrying only an error field.
type streamLine struct {
	api.ChatResponse
	Error string `json:"error,omitempty"`
}

type stream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	done    bool
	closed  bool
}

func (s *stream) Next() (*llm.StreamChunk, error) {
	if s.done || s.closed {
		return nil, nil
	}

	for s.scanner.Scan() {
		line := s.scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		var sl streamLine
		if err := json.Unmarshal(line, &sl); err != nil {
			// Unparseable lines carry no text for us.
			continue
		}
		if sl.Error != "" {
			return nil, fmt.Errorf("%w: %s", llm.ErrUpstream, sl.Error)
		}

		chunk := &llm.StreamChunk{
			Model: sl.Model,
			Text:  sl.Message.Content,
			Done:  sl.Done,
		}
		if sl.Done {
			s.done = true
			chunk.StopReason = sl.DoneReason
			chunk.Usage = usage(sl.Metrics)
		}
		return chunk, nil
	}

	if err := s.scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: reading ollama stream: %w", llm.ErrUpstream, err)
	}
	s.done = true
	return nil, nil
}

func (s *stream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.body.Close()
}
