package llm

import "context"

// Client is the upstream text generation capability. Implementations are
// constructed once at process start and shared by all requests.
type Client interface {
	// Name returns the provider name (e.g. "ollama", "openai").
	Name() string

	// Generate runs a request to completion.
	Generate(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// Stream starts a streaming generation. Cancelling ctx or closing the
	// returned Stream aborts the upstream call.
	Stream(ctx context.Context, req *ChatRequest) (Stream, error)

	// CountTokens returns the provider's token count for text.
	CountTokens(ctx context.Context, text string) (int, error)
}
