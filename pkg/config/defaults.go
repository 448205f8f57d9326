package config

const (
	defaultListen       = ":8000"
	defaultAllowOrigins = "http://localhost:5173"

	defaultProvider      = "ollama"
	defaultTarget        = "http://localhost:11434"
	defaultModel         = "llama3.2"
	defaultContextWindow = 8192

	defaultEmbeddingModel = "nomic-embed-text"

	defaultClientTarget = "http://localhost:8000"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Server: ServerConfig{
			Listen:       defaultListen,
			AllowOrigins: defaultAllowOrigins,
		},
		Provider: ProviderConfig{
			Type:          defaultProvider,
			Target:        defaultTarget,
			Model:         defaultModel,
			ContextWindow: defaultContextWindow,
		},
		Embedding: EmbeddingConfig{
			Provider: defaultProvider,
			Target:   defaultTarget,
			Model:    defaultEmbeddingModel,
		},
		Client: ClientConfig{
			Target: defaultClientTarget,
		},
	}
}
