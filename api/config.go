// Package api provides the glassbox HTTP server: generation, tokenization,
// the streaming attribution view and the analysis overlays built on them.
package api

import (
	"time"

	"github.com/papercomputeco/glassbox/pkg/embeddings"
	"github.com/papercomputeco/glassbox/pkg/llm"
	"github.com/papercomputeco/glassbox/pkg/metrics"
)

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8000")
	ListenAddr string

	// AllowOrigins is the comma separated CORS origin list. Empty disables CORS.
	AllowOrigins string

	// ContextWindow is the model context size used by the chat gauge.
	ContextWindow int

	// Client generates text. Required.
	Client llm.Client

	// Embedder backs the embedding star map. Optional; without it
	// /api/embedding answers 503.
	Embedder embeddings.Embedder

	// Metrics receives request and stream observations. Optional.
	Metrics *metrics.Collector

	// DisableMCP leaves /mcp unmounted.
	DisableMCP bool

	// KeepAlive is the interval between SSE comment frames on an idle
	// attention stream. Zero means DefaultKeepAlive.
	KeepAlive time.Duration
}

// DefaultKeepAlive is the attention stream keep-alive interval.
const DefaultKeepAlive = 15 * time.Second
