package api

import (
	"github.com/papercomputeco/glassbox/pkg/factcheck"
	"github.com/papercomputeco/glassbox/pkg/llm"
	"github.com/papercomputeco/glassbox/pkg/sampling"
	"github.com/papercomputeco/glassbox/pkg/tokenizer"
)

// PromptRequest is the body of every prompt-driven endpoint. A missing
// prompt is the empty string.
type PromptRequest struct {
	Prompt string `json:"prompt"`
}

// GenerateResponse is returned by POST /api/generate.
type GenerateResponse struct {
	Text  string     `json:"text"`
	Usage *llm.Usage `json:"usage,omitempty"`
}

// TokensResponse is returned by POST /api/tokens.
type TokensResponse struct {
	Tokens     []tokenizer.Token `json:"tokens"`
	TokenCount int               `json:"token_count"`
}

// ChatRequest is the body of POST /api/chat. The caller owns the history.
type ChatRequest struct {
	Messages []llm.Message `json:"messages"`
}

// TemperatureLabResponse is returned by POST /api/temperature-lab.
type TemperatureLabResponse struct {
	Results []sampling.Result `json:"results"`
}

// FactCheckRequest is the body of POST /api/factcheck.
type FactCheckRequest struct {
	ResponseText string `json:"response_text"`
}

// FactCheckResponse is returned by POST /api/factcheck.
type FactCheckResponse struct {
	Claims []factcheck.Claim `json:"claims"`
}

// StatusResponse is returned by GET /.
type StatusResponse struct {
	Status string `json:"status"`
}
