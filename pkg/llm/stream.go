package llm

// StreamChunk is one increment of a streaming generation, in arrival order.
// Chunks carry no guarantee of word alignment; a chunk may carry no text at
// all (keep-alives, role headers, usage trailers).
type StreamChunk struct {
	// Model that generated the chunk
	Model string `json:"model,omitempty"`

	// Text increment; empty when the chunk carries no content.
	Text string `json:"text,omitempty"`

	// Whether this is the final chunk
	Done bool `json:"done,omitempty"`

	// Stop reason (only present on final chunk)
	StopReason string `json:"stop_reason,omitempty"`

	// Usage metrics (typically only present on final chunk)
	Usage *Usage `json:"usage,omitempty"`
}

// HasText reports whether the chunk carries a text increment.
func (c *StreamChunk) HasText() bool {
	return c != nil && c.Text != ""
}

// Stream is a forward-only, non-restartable sequence of chunks pulled from
// an upstream provider.
//
// Next blocks until the next chunk is available and returns nil, nil once the
// upstream is exhausted. Close releases the upstream connection; it may be
// called at any point, including mid-stream, and is safe to call twice.
type Stream interface {
	Next() (*StreamChunk, error)
	Close() error
}
