package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/glassbox/pkg/config"
)

var _ = Describe("Configer config", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "config-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("LoadConfig", func() {
		It("returns default config when no config file exists", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg).To(Equal(config.NewDefaultConfig()))
		})

		It("loads a valid config file and fills the gaps with defaults", func() {
			data := `version = 0

[provider]
type = "openai"
model = "gpt-4o"
context_window = 128000

[log]
debug = true
`
			err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)
			Expect(err).NotTo(HaveOccurred())

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Provider.Type).To(Equal("openai"))
			Expect(cfg.Provider.Model).To(Equal("gpt-4o"))
			Expect(cfg.Provider.ContextWindow).To(Equal(uint(128000)))
			Expect(cfg.Log.Debug).To(BeTrue())

			defaults := config.NewDefaultConfig()
			Expect(cfg.Provider.Target).To(Equal(defaults.Provider.Target))
			Expect(cfg.Server.Listen).To(Equal(defaults.Server.Listen))
			Expect(cfg.Embedding.Model).To(Equal(defaults.Embedding.Model))
		})

		It("returns error for malformed TOML", func() {
			err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("[provider\ntype = "), 0o600)
			Expect(err).NotTo(HaveOccurred())

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = c.LoadConfig()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("parsing config TOML"))
		})

		It("returns error for unsupported config version", func() {
			err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("version = 7\n"), 0o600)
			Expect(err).NotTo(HaveOccurred())

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = c.LoadConfig()
			Expect(err).To(MatchError(ContainSubstring("unsupported config version 7")))
		})
	})

	Describe("SaveConfig", func() {
		It("persists config to disk", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg := config.NewDefaultConfig()
			cfg.Provider.Model = "mistral"
			Expect(c.SaveConfig(cfg)).To(Succeed())

			data, err := os.ReadFile(filepath.Join(tmpDir, "config.toml"))
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring(`model = "mistral"`))
			Expect(string(data)).To(ContainSubstring("[provider]"))
		})

		It("returns error for nil config", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(c.SaveConfig(nil)).To(MatchError("cannot save nil config"))
		})
	})

	Describe("SetConfigValue", func() {
		It("sets a string config key", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(c.SetConfigValue("provider.model", "qwen2.5")).To(Succeed())

			val, err := c.GetConfigValue("provider.model")
			Expect(err).NotTo(HaveOccurred())
			Expect(val).To(Equal("qwen2.5"))
		})

		It("sets a uint config key", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(c.SetConfigValue("provider.context_window", "32768")).To(Succeed())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Provider.ContextWindow).To(Equal(uint(32768)))
		})

		It("sets a bool config key", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(c.SetConfigValue("log.debug", "true")).To(Succeed())

			val, err := c.GetConfigValue("log.debug")
			Expect(err).NotTo(HaveOccurred())
			Expect(val).To(Equal("true"))
		})

		It("returns error for unknown key", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(c.SetConfigValue("proxy.upstream", "x")).To(MatchError(ContainSubstring("unknown config key")))
		})

		It("returns error for invalid uint value", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			err = c.SetConfigValue("provider.context_window", "lots")
			Expect(err).To(MatchError(ContainSubstring("invalid value for provider.context_window")))
		})

		It("preserves existing values when setting a new key", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(c.SetConfigValue("provider.type", "openai")).To(Succeed())
			Expect(c.SetConfigValue("server.listen", ":9000")).To(Succeed())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Provider.Type).To(Equal("openai"))
			Expect(cfg.Server.Listen).To(Equal(":9000"))
		})
	})

	Describe("GetConfigValue", func() {
		It("returns default value when no config file exists", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			val, err := c.GetConfigValue("client.target")
			Expect(err).NotTo(HaveOccurred())
			Expect(val).To(Equal("http://localhost:8000"))
		})

		It("returns empty string for key with no default", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			val, err := c.GetConfigValue("provider.api_key")
			Expect(err).NotTo(HaveOccurred())
			Expect(val).To(BeEmpty())
		})

		It("returns error for unknown key", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = c.GetConfigValue("nope")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("round-trip", func() {
		It("saves and loads config correctly with all fields", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			original := &config.Config{
				Version: config.CurrentV,
				Server:  config.ServerConfig{Listen: ":9001", AllowOrigins: "https://glassbox.example"},
				Provider: config.ProviderConfig{
					Type:          "openai",
					Target:        "https://api.openai.com/v1",
					Model:         "gpt-4o-mini",
					APIKey:        "sk-test",
					ContextWindow: 128000,
				},
				Embedding: config.EmbeddingConfig{Provider: "ollama", Target: "http://gpu:11434", Model: "mxbai-embed-large"},
				Client:    config.ClientConfig{Target: "http://gpu:9001"},
				Log:       config.LogConfig{Debug: true},
			}
			Expect(c.SaveConfig(original)).To(Succeed())

			loaded, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(original))
		})
	})
})

var _ = Describe("ValidConfigKeys", func() {
	It("returns every key in section order", func() {
		keys := config.ValidConfigKeys()
		Expect(keys).To(HaveLen(12))
		Expect(keys[0]).To(Equal("server.listen"))
		Expect(keys[len(keys)-1]).To(Equal("log.debug"))
		for _, k := range keys {
			Expect(config.IsValidConfigKey(k)).To(BeTrue())
		}
	})

	It("rejects unknown keys", func() {
		Expect(config.IsValidConfigKey("proxy.listen")).To(BeFalse())
		Expect(config.IsValidConfigKey("")).To(BeFalse())
	})
})

var _ = Describe("PresetConfig", func() {
	It("returns the ollama defaults", func() {
		cfg, err := config.PresetConfig("ollama")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg).To(Equal(config.NewDefaultConfig()))
	})

	It("returns the openai preset for generation and embeddings", func() {
		cfg, err := config.PresetConfig("OpenAI")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Provider.Type).To(Equal("openai"))
		Expect(cfg.Provider.Target).To(Equal("https://api.openai.com/v1"))
		Expect(cfg.Provider.ContextWindow).To(Equal(uint(128000)))
		Expect(cfg.Embedding.Provider).To(Equal("openai"))
		Expect(cfg.Embedding.Model).To(Equal("text-embedding-3-small"))
	})

	It("returns error for unknown preset", func() {
		_, err := config.PresetConfig("gemini")
		Expect(err).To(MatchError(ContainSubstring("available: ollama, openai")))
	})
})

var _ = Describe("ParseConfigTOML", func() {
	It("returns empty config for empty input", func() {
		cfg, err := config.ParseConfigTOML(nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(*cfg).To(Equal(config.Config{}))
	})

	It("parses sections", func() {
		cfg, err := config.ParseConfigTOML([]byte("[server]\nlisten = \":1234\"\n"))
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Server.Listen).To(Equal(":1234"))
	})
})
