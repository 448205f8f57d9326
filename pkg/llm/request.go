package llm

// ChatRequest is a provider-agnostic generation request.
type ChatRequest struct {
	// Model overrides the client's configured model when set.
	Model string `json:"model,omitempty"`

	// Conversation messages, oldest first.
	Messages []Message `json:"messages"`

	// Generation parameters
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`

	// JSON asks the provider to constrain output to a JSON document.
	JSON bool `json:"json,omitempty"`
}

// NewPromptRequest builds a single-turn request from a user prompt.
func NewPromptRequest(prompt string) *ChatRequest {
	return &ChatRequest{
		Messages: []Message{NewTextMessage(RoleUser, prompt)},
	}
}

// WithTemperature sets the sampling temperature and returns r.
func (r *ChatRequest) WithTemperature(t float64) *ChatRequest {
	r.Temperature = &t
	return r
}
