// Package openai is the llm.Client for OpenAI-compatible Chat Completions
// APIs (OpenAI, vLLM, llama.cpp server, LM Studio).
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/glassbox/pkg/llm"
	"github.com/papercomputeco/glassbox/pkg/sse"
)

const (
	// DefaultBaseURL is the OpenAI API root.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultModel is used when neither the config nor the request names one.
	DefaultModel = "gpt-4o-mini"

	completionsPath = "/chat/completions"
)

// Config holds configuration for the OpenAI client.
type Config struct {
	BaseURL    string
	Model      string
	APIKey     string
	HTTPClient *http.Client
}

// Client talks to a Chat Completions endpoint.
type Client struct {
	endpoint   string
	model      string
	apiKey     string
	httpClient *http.Client
}

// New creates an OpenAI-compatible client.
func New(cfg Config) (*Client, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("invalid openai url %q: missing scheme", baseURL)
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
		endpoint:   strings.TrimRight(baseURL, "/") + completionsPath,
		model:      model,
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
	}, nil
}

func (c *Client) Name() string {
	return "openai"
}

// Generate runs a non-streamed chat completion.
func (c *Client) Generate(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	resp, err := c.do(ctx, c.toChatRequest(req, false))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decoding openai response: %w", llm.ErrUpstream, err)
	}
	if len(out.Choices) == 0 {
		return nil, llm.ErrEmptyResponse
	}

	choice := out.Choices[0]
	result := &llm.ChatResponse{
		Model:      out.Model,
		Message:    llm.NewTextMessage(llm.RoleAssistant, choice.Message.Content),
		StopReason: choice.FinishReason,
		Usage:      toUsage(out.Usage),
	}
	if out.Created > 0 {
		result.CreatedAt = time.Unix(out.Created, 0)
	}
	return result, nil
}

// Stream starts a streamed chat completion.
func (c *Client) Stream(ctx context.Context, req *llm.ChatRequest) (llm.Stream, error) {
	resp, err := c.do(ctx, c.toChatRequest(req, true))
	if err != nil {
		return nil, err
	}
	return &stream{body: resp.Body, reader: sse.NewReader(resp.Body)}, nil
}

// CountTokens sends text as a single user message capped at one completion
// token and reports the prompt token usage.
func (c *Client) CountTokens(ctx context.Context, text string) (int, error) {
	one := 1
	req := llm.NewPromptRequest(text)
	req.MaxTokens = &one

	resp, err := c.Generate(ctx, req)
	if err != nil {
		return 0, err
	}
	if resp.Usage == nil {
		return 0, fmt.Errorf("%w: no usage reported", llm.ErrUpstream)
	}
	return resp.Usage.PromptTokens, nil
}

func (c *Client) do(ctx context.Context, body *chatRequest) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling openai request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating openai request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if body.Stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", llm.ErrUpstream, err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := string(bytes.TrimSpace(raw))
		var eb errorBody
		if json.Unmarshal(raw, &eb) == nil && eb.Error != nil {
			msg = eb.Error.Message
		}
		return nil, fmt.Errorf("%w: openai returned status %d: %s", llm.ErrUpstream, resp.StatusCode, msg)
	}
	return resp, nil
}

func (c *Client) toChatRequest(req *llm.ChatRequest, streaming bool) *chatRequest {
	model := req.Model
	if model == "" {
		model = c.model
	}

	messages := make([]chatMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, chatMessage{Role: m.Role, Content: m.Content})
	}

	out := &chatRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Stream:      streaming,
	}
	if streaming {
		out.StreamOptions = &streamOptions{IncludeUsage: true}
	}
	if req.JSON {
		out.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	return out
}

func toUsage(u *chatUsage) *llm.Usage {
	if u == nil {
		return nil
	}
	return &llm.Usage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
	}
}

type stream struct {
	body   io.ReadCloser
	reader *sse.Reader
	done   bool
	closed bool
}

func (s *stream) Next() (*llm.StreamChunk, error) {
	for !s.done && !s.closed {
		ev, err := s.reader.Next()
		if err != nil {
			return nil, fmt.Errorf("%w: reading openai stream: %w", llm.ErrUpstream, err)
		}
		if ev == nil || ev.IsDone() {
			s.done = true
			break
		}

		var eb errorBody
		if json.Unmarshal([]byte(ev.Data), &eb) == nil && eb.Error != nil {
			return nil, fmt.Errorf("%w: %s", llm.ErrUpstream, eb.Error.Message)
		}

		var chunk chatChunk
		if err := json.Unmarshal([]byte(ev.Data), &chunk); err != nil {
			continue
		}

		out := &llm.StreamChunk{
			Model: chunk.Model,
			Usage: toUsage(chunk.Usage),
		}
		if len(chunk.Choices) > 0 {
			out.Text = chunk.Choices[0].Delta.Content
			if fr := chunk.Choices[0].FinishReason; fr != nil {
				out.StopReason = *fr
			}
		}
		return out, nil
	}
	return nil, nil
}

func (s *stream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.body.Close()
}
