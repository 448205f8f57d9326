package llm

import "time"

// ChatResponse is a provider-agnostic, complete (non-streamed) response.
type ChatResponse struct {
	// Model that generated the response
	Model string `json:"model"`

	// Response timestamp
	CreatedAt time.Time `json:"created_at,omitzero"`

	// The assistant's response message
	Message Message `json:"message"`

	// Stop reason (e.g., "stop", "length")
	StopReason string `json:"stop_reason,omitempty"`

	// Token usage
	Usage *Usage `json:"usage,omitempty"`
}

// Text returns the response message content.
func (r *ChatResponse) Text() string {
	if r == nil {
		return ""
	}
	return r.Message.Content
}

// Usage contains token counts reported by the provider.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ErrorResponse is the JSON body returned by the HTTP API on failures.
type ErrorResponse struct {
	Error string `json:"error"`
}
