package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent glassbox configuration stored as
// config.toml in the .glassbox/ directory. The TOML layout uses sections for
// logical grouping.
type Config struct {
	Version   int             `toml:"version"`
	Server    ServerConfig    `toml:"server"`
	Provider  ProviderConfig  `toml:"provider"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Client    ClientConfig    `toml:"client"`
	Log       LogConfig       `toml:"log"`
}

// ServerConfig holds API server settings.
type ServerConfig struct {
	Listen       string `toml:"listen,omitempty"`
	AllowOrigins string `toml:"allow_origins,omitempty"`
}

// ProviderConfig selects the upstream text generation model.
type ProviderConfig struct {
	Type          string `toml:"type,omitempty"`
	Target        string `toml:"target,omitempty"`
	Model         string `toml:"model,omitempty"`
	APIKey        string `toml:"api_key,omitempty"`
	ContextWindow uint   `toml:"context_window,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`
	Model    string `toml:"model,omitempty"`
}

// ClientConfig holds settings for CLI commands that connect to a running
// server (e.g. glassbox attend, glassbox tokens). Values are full URLs.
type ClientConfig struct {
	Target string `toml:"target,omitempty"`
}

// LogConfig holds logging settings. Debug is applied live by a running
// server when the file changes.
type LogConfig struct {
	Debug bool `toml:"debug,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"server.listen": {
		get: func(c *Config) string { return c.Server.Listen },
		set: func(c *Config, v string) error { c.Server.Listen = v; return nil },
	},
	"server.allow_origins": {
		get: func(c *Config) string { return c.Server.AllowOrigins },
		set: func(c *Config, v string) error { c.Server.AllowOrigins = v; return nil },
	},
	"provider.type": {
		get: func(c *Config) string { return c.Provider.Type },
		set: func(c *Config, v string) error { c.Provider.Type = v; return nil },
	},
	"provider.target": {
		get: func(c *Config) string { return c.Provider.Target },
		set: func(c *Config, v string) error { c.Provider.Target = v; return nil },
	},
	"provider.model": {
		get: func(c *Config) string { return c.Provider.Model },
		set: func(c *Config, v string) error { c.Provider.Model = v; return nil },
	},
	"provider.api_key": {
		get: func(c *Config) string { return c.Provider.APIKey },
		set: func(c *Config, v string) error { c.Provider.APIKey = v; return nil },
	},
	"provider.context_window": {
		get: func(c *Config) string {
			if c.Provider.ContextWindow == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Provider.ContextWindow), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for provider.context_window: %w", err)
			}
			c.Provider.ContextWindow = uint(n)
			return nil
		},
	},
	"embedding.provider": {
		get: func(c *Config) string { return c.Embedding.Provider },
		set: func(c *Config, v string) error { c.Embedding.Provider = v; return nil },
	},
	"embedding.target": {
		get: func(c *Config) string { return c.Embedding.Target },
		set: func(c *Config, v string) error { c.Embedding.Target = v; return nil },
	},
	"embedding.model": {
		get: func(c *Config) string { return c.Embedding.Model },
		set: func(c *Config, v string) error { c.Embedding.Model = v; return nil },
	},
	"client.target": {
		get: func(c *Config) string { return c.Client.Target },
		set: func(c *Config, v string) error { c.Client.Target = v; return nil },
	},
	"log.debug": {
		get: func(c *Config) string { return strconv.FormatBool(c.Log.Debug) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for log.debug: %w", err)
			}
			c.Log.Debug = b
			return nil
		},
	},
}
