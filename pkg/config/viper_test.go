package config_test

import (
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/glassbox/pkg/config"
)

var _ = Describe("InitViper", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "viper-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("returns viper with defaults when no config file exists", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		defaults := config.NewDefaultConfig()
		Expect(v.GetString("server.listen")).To(Equal(defaults.Server.Listen))
		Expect(v.GetString("provider.type")).To(Equal(defaults.Provider.Type))
		Expect(v.GetUint("provider.context_window")).To(Equal(defaults.Provider.ContextWindow))
		Expect(v.GetString("embedding.model")).To(Equal(defaults.Embedding.Model))
		Expect(v.GetBool("log.debug")).To(BeFalse())
	})

	It("reads config file values over defaults", func() {
		data := "[provider]\nmodel = \"phi3\"\n"
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		Expect(v.GetString("provider.model")).To(Equal("phi3"))
		Expect(v.GetString("provider.target")).To(Equal(config.NewDefaultConfig().Provider.Target))
	})

	It("env vars take precedence over config file values", func() {
		data := "[provider]\nmodel = \"phi3\"\n"
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())

		os.Setenv("GLASSBOX_PROVIDER_MODEL", "gemma2")
		defer os.Unsetenv("GLASSBOX_PROVIDER_MODEL")

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		Expect(v.GetString("provider.model")).To(Equal("gemma2"))
	})
})

var _ = Describe("WatchDebug", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "watch-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("does nothing without a config file", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		Expect(config.WatchDebug(v, func(bool, fsnotify.Event) {})).To(BeFalse())
	})

	It("reports the new debug value when the file changes", func() {
		path := filepath.Join(tmpDir, "config.toml")
		Expect(os.WriteFile(path, []byte("[log]\ndebug = false\n"), 0o600)).To(Succeed())

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		seen := make(chan bool, 4)
		Expect(config.WatchDebug(v, func(debug bool, _ fsnotify.Event) {
			seen <- debug
		})).To(BeTrue())

		Expect(os.WriteFile(path, []byte("[log]\ndebug = true\n"), 0o600)).To(Succeed())
		Eventually(seen, 5*time.Second).Should(Receive(BeTrue()))
	})
})
