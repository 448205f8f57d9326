// Package embeddingutils builds an embeddings.Embedder from configuration.
package embeddingutils

import (
	"fmt"
	"strings"

	"github.com/papercomputeco/glassbox/pkg/embeddings"
	"github.com/papercomputeco/glassbox/pkg/embeddings/ollama"
	"github.com/papercomputeco/glassbox/pkg/embeddings/openai"
)

type NewEmbedderOpts struct {
	ProviderType string
	TargetURL    string
	Model        string

	// APIKey is sent to providers that authenticate; ollama ignores it.
	APIKey string
}

// SupportedProviders lists the embedding provider names NewEmbedder accepts.
func SupportedProviders() []string {
	return []string{"ollama", "openai"}
}

func NewEmbedder(o *NewEmbedderOpts) (embeddings.Embedder, error) {
	switch strings.ToLower(o.ProviderType) {
	case "ollama":
		return ollama.NewEmbedder(ollama.EmbedderConfig{
			BaseURL: o.TargetURL,
			Model:   o.Model,
		})
	case "openai":
		return openai.NewEmbedder(openai.EmbedderConfig{
			BaseURL: o.TargetURL,
			Model:   o.Model,
			APIKey:  o.APIKey,
		})
	default:
		return nil, fmt.Errorf("unsupported embedding provider %q (supported: %s)",
			o.ProviderType, strings.Join(SupportedProviders(), ", "))
	}
}
