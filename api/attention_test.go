package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/glassbox/pkg/attention"
	"github.com/papercomputeco/glassbox/pkg/llm"
	"github.com/papercomputeco/glassbox/pkg/logger"
	"github.com/papercomputeco/glassbox/pkg/metrics"
	"github.com/papercomputeco/glassbox/pkg/sse"
	testutils "github.com/papercomputeco/glassbox/pkg/utils/test"
)

// readFrames parses an SSE body into attribution frames and reports
// whether the sentinel was the final frame.
func readFrames(body io.Reader) ([]attention.Attribution, bool) {
	r := sse.NewReader(body)
	var frames []attention.Attribution
	done := false
	for {
		ev, err := r.Next()
		ExpectWithOffset(1, err).NotTo(HaveOccurred())
		if ev == nil {
			return frames, done
		}
		ExpectWithOffset(1, done).To(BeFalse(), "event after [DONE]")
		if ev.IsDone() {
			done = true
			continue
		}
		var a attention.Attribution
		ExpectWithOffset(1, json.Unmarshal([]byte(ev.Data), &a)).To(Succeed())
		frames = append(frames, a)
	}
}

var _ = Describe("POST /api/attention-stream", func() {
	var (
		client  *testutils.MockClient
		collect *metrics.Collector
		server  *Server
	)

	BeforeEach(func() {
		client = testutils.NewMockClient()
		collect = metrics.NewCollector()

		var err error
		server, err = NewServer(Config{Client: client, Metrics: collect, DisableMCP: true}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
	})

	scrape := func() string {
		resp, err := server.app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
		Expect(err).NotTo(HaveOccurred())
		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		return string(body)
	}

	It("streams one frame per word and ends with [DONE]", func() {
		client.Chunks = []llm.StreamChunk{{Text: "Hel"}, {Text: "lo wor"}, {Text: "ld"}}

		resp, err := server.app.Test(postJSON("/api/attention-stream", `{"prompt":"Say hello, world"}`), -1)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(resp.Header.Get("Content-Type")).To(Equal("text/event-stream"))
		Expect(resp.Header.Get("X-Request-Id")).NotTo(BeEmpty())

		frames, done := readFrames(resp.Body)
		Expect(done).To(BeTrue())
		Expect(frames).To(HaveLen(2))
		Expect(frames[0].Word).To(Equal("Hello "))
		Expect(frames[1].Word).To(Equal("world"))
		for _, f := range frames {
			Expect(f.Tokens).To(Equal([]string{"Say", "hello", ",", "world"}))
			Expect(f.Scores).To(HaveLen(4))
		}
		Expect(frames[1].Scores[3]).To(Equal(1.0))

		Expect(scrape()).To(And(
			ContainSubstring(`glassbox_attention_streams_total{outcome="completed"} 1`),
			ContainSubstring("glassbox_attention_words_total 2"),
		))
	})

	It("sends only [DONE] for an empty generation", func() {
		resp, err := server.app.Test(postJSON("/api/attention-stream", `{"prompt":"anything"}`), -1)
		Expect(err).NotTo(HaveOccurred())

		frames, done := readFrames(resp.Body)
		Expect(frames).To(BeEmpty())
		Expect(done).To(BeTrue())
	})

	It("ends a failed upstream with the words so far and [DONE]", func() {
		client.Chunks = []llm.StreamChunk{{Text: "one "}, {Text: "two "}}
		client.FailAfter = 1
		client.NextErr = errors.New("connection reset")

		resp, err := server.app.Test(postJSON("/api/attention-stream", `{"prompt":"count"}`), -1)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		frames, done := readFrames(resp.Body)
		Expect(done).To(BeTrue())
		Expect(frames).To(HaveLen(1))
		Expect(frames[0].Word).To(Equal("one "))

		Expect(scrape()).To(ContainSubstring(`glassbox_attention_streams_total{outcome="upstream_error"} 1`))
	})

	It("still ends with [DONE] when the stream cannot be opened", func() {
		client.StreamErr = errors.New("dial tcp: refused")

		resp, err := server.app.Test(postJSON("/api/attention-stream", `{"prompt":"x"}`), -1)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		frames, done := readFrames(resp.Body)
		Expect(frames).To(BeEmpty())
		Expect(done).To(BeTrue())
	})

	It("rejects a malformed body before streaming", func() {
		resp, err := server.app.Test(postJSON("/api/attention-stream", `["prompt"]`))
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		Expect(client.Streams).To(BeEmpty())
	})

	It("closes the upstream once the stream ends", func() {
		client.Chunks = []llm.StreamChunk{{Text: "done"}}

		resp, err := server.app.Test(postJSON("/api/attention-stream", `{"prompt":"x"}`), -1)
		Expect(err).NotTo(HaveOccurred())
		_, _ = io.ReadAll(resp.Body)

		Expect(client.LastStream().Closed()).To(BeTrue())
	})

	Context("when the client goes away", func() {
		// run drives one stream over a pipe the test reads from directly.
		run := func(prompt string) (*io.PipeReader, <-chan struct{}) {
			pr, pw := io.Pipe()
			ctx, cancel := context.WithCancel(server.streams)
			done := make(chan struct{})
			go func() {
				defer close(done)
				server.streamAttention(ctx, cancel, prompt, pw, logger.Nop())
			}()
			return pr, done
		}

		It("closes the upstream when the reader leaves after the first frame", func() {
			client.Chunks = []llm.StreamChunk{{Text: "one "}, {Text: "two "}, {Text: "three "}, {Text: "four "}}

			pr, done := run("count")
			ev, err := sse.NewReader(pr).Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Data).To(ContainSubstring(`"word":"one "`))
			Expect(pr.Close()).To(Succeed())

			Eventually(done).Should(BeClosed())
			Expect(client.LastStream().Closed()).To(BeTrue())
			Expect(client.LastStream().Pulled()).To(BeNumerically("<", len(client.Chunks)))
			Expect(scrape()).To(And(
				ContainSubstring(`glassbox_attention_streams_total{outcome="canceled"} 1`),
				ContainSubstring("glassbox_attention_words_total 1"),
			))
		})

		It("notices a departed reader while the upstream is stalled", func() {
			client.Chunks = []llm.StreamChunk{{Text: "one "}, {Text: "two"}}
			client.Stall = true
			server.config.KeepAlive = 10 * time.Millisecond

			pr, done := run("count")
			ev, err := sse.NewReader(pr).Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Data).To(ContainSubstring(`"word":"one "`))
			Expect(pr.Close()).To(Succeed())

			Eventually(done).Should(BeClosed())
			Expect(client.LastStream().Closed()).To(BeTrue())
			Expect(scrape()).To(ContainSubstring(`glassbox_attention_streams_total{outcome="canceled"} 1`))
		})

		It("sends keep-alive comments while the upstream is stalled", func() {
			client.Chunks = []llm.StreamChunk{{Text: "one "}}
			client.Stall = true
			server.config.KeepAlive = 10 * time.Millisecond

			pr, done := run("count")
			buf := make([]byte, 256)
			seen := ""
			Eventually(func() string {
				n, err := pr.Read(buf)
				Expect(err).NotTo(HaveOccurred())
				seen += string(buf[:n])
				return seen
			}).Should(ContainSubstring(": keep-alive\n\n"))

			Expect(pr.Close()).To(Succeed())
			Eventually(done).Should(BeClosed())
		})

		It("ends open streams with [DONE] on shutdown", func() {
			client.Chunks = []llm.StreamChunk{{Text: "one "}, {Text: "two"}}
			client.Stall = true

			pr, done := run("count")
			r := sse.NewReader(pr)
			ev, err := r.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Data).To(ContainSubstring(`"word":"one "`))

			_ = server.Shutdown()

			frames, finished := readFrames(pr)
			Expect(frames).To(BeEmpty())
			Expect(finished).To(BeTrue())
			Eventually(done).Should(BeClosed())
			Expect(client.LastStream().Closed()).To(BeTrue())
			Expect(scrape()).To(ContainSubstring(`glassbox_attention_streams_total{outcome="canceled"} 1`))
		})

		It("stops the upstream when an HTTP client hangs up", func() {
			client.Chunks = []llm.StreamChunk{{Text: "one "}, {Text: "two"}}
			client.Stall = true
			server.config.KeepAlive = 10 * time.Millisecond

			ln, err := net.Listen("tcp", "127.0.0.1:0")
			Expect(err).NotTo(HaveOccurred())
			go func() { _ = server.app.Listener(ln) }()
			DeferCleanup(server.Shutdown)

			resp, err := http.Post("http://"+ln.Addr().String()+"/api/attention-stream",
				"application/json", strings.NewReader(`{"prompt":"count"}`))
			Expect(err).NotTo(HaveOccurred())

			ev, err := sse.NewReader(resp.Body).Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Data).To(ContainSubstring(`"word":"one "`))
			Expect(resp.Body.Close()).To(Succeed())

			Eventually(func() bool {
				return client.LastStream().Closed()
			}).WithTimeout(5 * time.Second).Should(BeTrue())
		})
	})
})
