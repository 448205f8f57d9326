package servecmder

import (
	"github.com/fsnotify/fsnotify"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/papercomputeco/glassbox/pkg/embeddings/ollama"
	"github.com/papercomputeco/glassbox/pkg/embeddings/openai"
	"github.com/papercomputeco/glassbox/pkg/logger"
)

var _ = Describe("NewServeCmd", func() {
	It("registers the provider and embedding flags", func() {
		cmd := NewServeCmd()
		for _, name := range []string{
			"listen", "allow-origins", "provider", "target", "model", "api-key",
			"context-window", "embedding-provider", "embedding-target", "embedding-model",
		} {
			Expect(cmd.Flags().Lookup(name)).NotTo(BeNil(), name)
		}
		Expect(cmd.Flags().Lookup("target").Shorthand).To(Equal("t"))
	})

	It("takes no positional arguments", func() {
		cmd := NewServeCmd()
		Expect(cmd.Args(cmd, []string{"extra"})).To(HaveOccurred())
	})
})

var _ = Describe("serveCommander", func() {
	var cmder *serveCommander

	BeforeEach(func() {
		cmder = &serveCommander{v: viper.New(), logger: logger.Nop()}
	})

	Describe("newEmbedder", func() {
		It("returns nil without an embedding provider", func() {
			e, err := cmder.newEmbedder()
			Expect(err).NotTo(HaveOccurred())
			Expect(e).To(BeNil())
		})

		It("builds the configured provider", func() {
			cmder.v.Set("embedding.provider", "ollama")
			e, err := cmder.newEmbedder()
			Expect(err).NotTo(HaveOccurred())
			Expect(e).To(BeAssignableToTypeOf(&ollama.Embedder{}))

			cmder.v.Set("embedding.provider", "openai")
			cmder.v.Set("embedding.target", "https://api.openai.com/v1")
			e, err = cmder.newEmbedder()
			Expect(err).NotTo(HaveOccurred())
			Expect(e).To(BeAssignableToTypeOf(&openai.Embedder{}))
		})

		It("rejects an unknown provider", func() {
			cmder.v.Set("embedding.provider", "nope")
			_, err := cmder.newEmbedder()
			Expect(err).To(MatchError(ContainSubstring("creating embedder")))
		})
	})

	Describe("onConfigChange", func() {
		It("flips the log level", func() {
			cmder.level = logger.NewLevel(false)
			cmder.onConfigChange(true, fsnotify.Event{Name: "config.toml", Op: fsnotify.Write})
			Expect(cmder.level.Level()).To(Equal(zapcore.DebugLevel))

			cmder.onConfigChange(false, fsnotify.Event{Name: "config.toml", Op: fsnotify.Write})
			Expect(cmder.level.Level()).To(Equal(zapcore.InfoLevel))
		})
	})
})
