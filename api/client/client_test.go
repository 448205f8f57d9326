package apiclient_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apiclient "github.com/papercomputeco/glassbox/api/client"
	"github.com/papercomputeco/glassbox/pkg/attention"
)

var _ = Describe("Client", func() {
	var (
		handler http.HandlerFunc
		srv     *httptest.Server
		client  *apiclient.Client
	)

	BeforeEach(func() {
		srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handler(w, r)
		}))

		var err error
		client, err = apiclient.New(srv.URL, nil)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		srv.Close()
	})

	Describe("New", func() {
		It("rejects a target without a scheme", func() {
			_, err := apiclient.New("localhost:8000", nil)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Generate", func() {
		It("posts the prompt and decodes the answer", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				defer GinkgoRecover()
				Expect(r.URL.Path).To(Equal("/api/generate"))
				body, _ := io.ReadAll(r.Body)
				Expect(string(body)).To(Equal(`{"prompt":"hi"}`))
				fmt.Fprint(w, `{"text":"hello","usage":{"prompt_tokens":1,"completion_tokens":1,"total_tokens":2}}`)
			}

			out, err := client.Generate(context.Background(), "hi")
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Text).To(Equal("hello"))
			Expect(out.Usage.TotalTokens).To(Equal(2))
		})

		It("surfaces the server's error message", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
				fmt.Fprint(w, `{"error":"upstream request failed"}`)
			}

			_, err := client.Generate(context.Background(), "hi")
			Expect(err).To(MatchError(ContainSubstring("HTTP 502): upstream request failed")))
		})
	})

	Describe("Tokens", func() {
		It("decodes tokens and count", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, `{"tokens":[{"text":"hi","kind":"word"}],"token_count":3}`)
			}

			out, err := client.Tokens(context.Background(), "hi")
			Expect(err).NotTo(HaveOccurred())
			Expect(out.TokenCount).To(Equal(3))
			Expect(out.Tokens[0].Text).To(Equal("hi"))
		})
	})

	Describe("Attend", func() {
		It("delivers every frame until [DONE]", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "text/event-stream")
				fmt.Fprint(w, "data: {\"word\":\"Hi \",\"scores\":[1],\"tokens\":[\"Hi\"]}\n\n")
				fmt.Fprint(w, "data: {\"word\":\"there\",\"scores\":[0],\"tokens\":[\"Hi\"]}\n\n")
				fmt.Fprint(w, "data: [DONE]\n\n")
			}

			var words []string
			err := client.Attend(context.Background(), "Hi", func(a attention.Attribution) error {
				words = append(words, a.Word)
				return nil
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(words).To(Equal([]string{"Hi ", "there"}))
		})

		It("reports a stream that ends without [DONE]", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, "data: {\"word\":\"Hi\",\"scores\":[],\"tokens\":[]}\n\n")
			}

			err := client.Attend(context.Background(), "", func(attention.Attribution) error { return nil })
			Expect(err).To(MatchError(ContainSubstring("ended without [DONE]")))
		})

		It("stops when the callback fails", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, "data: {\"word\":\"a \"}\n\ndata: {\"word\":\"b\"}\n\ndata: [DONE]\n\n")
			}
			stop := errors.New("stop")

			calls := 0
			err := client.Attend(context.Background(), "", func(attention.Attribution) error {
				calls++
				return stop
			})
			Expect(err).To(MatchError(stop))
			Expect(calls).To(Equal(1))
		})
	})
})
