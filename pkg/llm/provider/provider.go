// Package provider builds llm.Client implementations for the supported
// upstream model providers.
package provider

import (
	"fmt"
	"net/http"
	"time"

	"github.com/papercomputeco/glassbox/pkg/llm"
	"github.com/papercomputeco/glassbox/pkg/llm/provider/ollama"
	"github.com/papercomputeco/glassbox/pkg/llm/provider/openai"
)

// Supported provider type constants
const (
	Ollama = "ollama"
	OpenAI = "openai"
)

// DefaultTimeout bounds a single upstream HTTP exchange, including the full
// duration of a streamed generation.
const DefaultTimeout = 5 * time.Minute

// SupportedProviders returns the list of all supported provider type names.
func SupportedProviders() []string {
	return []string{Ollama, OpenAI}
}

// Config selects and configures an upstream provider.
type Config struct {
	// Type is one of SupportedProviders.
	Type string

	// BaseURL is the provider's API root. Empty selects the provider default.
	BaseURL string

	// Model used when a request does not name one.
	Model string

	// APIKey is sent as a bearer token where the provider requires one.
	APIKey string

	// HTTPClient overrides the default client.
	HTTPClient *http.Client
}

// New creates a Client for the configured provider type.
// Returns an error if the provider type is not recognized.
func New(cfg Config) (llm.Client, error) {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}

	switch cfg.Type {
	case Ollama:
		return ollama.New(ollama.Config{
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			HTTPClient: httpClient,
		})
	case OpenAI:
		return openai.New(openai.Config{
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			APIKey:     cfg.APIKey,
			HTTPClient: httpClient,
		})
	default:
		return nil, fmt.Errorf("unknown provider type: %q (supported: %v)", cfg.Type, SupportedProviders())
	}
}
