// Package ollama implements embeddings.Embedder on Ollama's /api/embed.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/papercomputeco/glassbox/pkg/embeddings"
)

const (
	// DefaultEmbeddingModel is the default model used for embeddings.
	DefaultEmbeddingModel = "nomic-embed-text"

	// DefaultBaseURL is the default Ollama API URL.
	DefaultBaseURL = "http://localhost:11434"
)

// Embedder embeds text with a single Ollama model. Every vector it returns
// has the length of the first one; a model swapped underneath is reported
// rather than silently mixing spaces.
type Embedder struct {
	client    *api.Client
	model     string
	keepAlive *api.Duration

	mu   sync.Mutex
	dims int
}

type EmbedderConfig struct {
	// BaseURL defaults to DefaultBaseURL.
	BaseURL string

	// Model defaults to DefaultEmbeddingModel.
	Model string

	// KeepAlive controls how long Ollama keeps the model loaded after a
	// request. Zero leaves the server default.
	KeepAlive time.Duration
}

func NewEmbedder(cfg EmbedderConfig) (*Embedder, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing ollama url %q: %w", baseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid ollama url %q", baseURL)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultEmbeddingModel
	}

	e := &Embedder{
		client: api.NewClient(base, &http.Client{Timeout: 120 * time.Second}),
		model:  model,
	}
	if cfg.KeepAlive > 0 {
		e.keepAlive = &api.Duration{Duration: cfg.KeepAlive}
	}
	return e, nil
}

// Embed returns the embedding of text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.Embed(ctx, &api.EmbedRequest{
		Model:     e.model,
		Input:     text,
		KeepAlive: e.keepAlive,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", embeddings.ErrEmbedding, e.model, err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0]) == 0 {
		return nil, fmt.Errorf("%w: %s: no embeddings returned", embeddings.ErrEmbedding, e.model)
	}

	vec := resp.Embeddings[0]

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dims == 0 {
		e.dims = len(vec)
	} else if len(vec) != e.dims {
		return nil, fmt.Errorf("%w: %s returned %d dimensions, expected %d",
			embeddings.ErrEmbedding, e.model, len(vec), e.dims)
	}
	return vec, nil
}

// Dimensions is the vector length seen so far, or 0 before the first Embed.
func (e *Embedder) Dimensions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dims
}

func (e *Embedder) Close() error {
	return nil
}

var _ embeddings.Embedder = (*Embedder)(nil)
