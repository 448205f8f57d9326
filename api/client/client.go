// Package apiclient calls a running glassbox API server. It backs the CLI
// commands that talk to "glassbox serve".
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/papercomputeco/glassbox/api"
	"github.com/papercomputeco/glassbox/pkg/attention"
	"github.com/papercomputeco/glassbox/pkg/sse"
)

// Client talks to one glassbox server.
type Client struct {
	target     string
	httpClient *http.Client
}

// New returns a Client for the server at target, e.g. "http://localhost:8000".
// A nil httpClient selects http.DefaultClient.
func New(target string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid server URL %q: scheme and host are required", target)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{target: target, httpClient: httpClient}, nil
}

// Generate calls POST /api/generate.
func (c *Client) Generate(ctx context.Context, prompt string) (*api.GenerateResponse, error) {
	var out api.GenerateResponse
	if err := c.postJSON(ctx, "/api/generate", api.PromptRequest{Prompt: prompt}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Tokens calls POST /api/tokens.
func (c *Client) Tokens(ctx context.Context, prompt string) (*api.TokensResponse, error) {
	var out api.TokensResponse
	if err := c.postJSON(ctx, "/api/tokens", api.PromptRequest{Prompt: prompt}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Attend calls POST /api/attention-stream and hands every attribution to fn
// as it arrives. It returns once the [DONE] sentinel is read. A stream that
// ends without the sentinel is an error. An error from fn stops reading.
func (c *Client) Attend(ctx context.Context, prompt string, fn func(attention.Attribution) error) error {
	resp, err := c.post(ctx, "/api/attention-stream", api.PromptRequest{Prompt: prompt})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	for ev, err := range sse.NewReader(resp.Body).Events() {
		if err != nil {
			return fmt.Errorf("reading attention stream: %w", err)
		}
		if ev.IsDone() {
			return nil
		}

		var a attention.Attribution
		if err := json.Unmarshal([]byte(ev.Data), &a); err != nil {
			return fmt.Errorf("decoding attention event: %w", err)
		}
		if err := fn(a); err != nil {
			return err
		}
	}
	return fmt.Errorf("attention stream ended without %s", sse.DoneSentinel)
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	resp, err := c.post(ctx, path, in)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse %s response: %w", path, err)
	}
	return nil
}

// post sends in as JSON and returns the response once its status is 200.
func (c *Client) post(ctx context.Context, path string, in any) (*http.Response, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.target+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to glassbox at %s: %w", c.target, err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(resp.Body)

		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(msg, &apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("%s failed (HTTP %d): %s", path, resp.StatusCode, apiErr.Error)
		}
		return nil, fmt.Errorf("%s failed (HTTP %d): %s", path, resp.StatusCode, bytes.TrimSpace(msg))
	}

	return resp, nil
}
