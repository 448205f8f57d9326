package contextwindow_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/glassbox/pkg/contextwindow"
	"github.com/papercomputeco/glassbox/pkg/llm"
	testutils "github.com/papercomputeco/glassbox/pkg/utils/test"
)

var _ = Describe("Percent", func() {
	DescribeTable("rounds to one decimal",
		func(used, window int, want float64) {
			Expect(contextwindow.Percent(used, window)).To(Equal(want))
		},
		Entry("empty", 0, 8192, 0.0),
		Entry("half", 4096, 8192, 50.0),
		Entry("rounding", 1, 3, 33.3),
		Entry("over budget", 10000, 8192, 122.1),
		Entry("no window", 10, 0, 0.0),
	)
})

var _ = Describe("Gauge", func() {
	var client *testutils.MockClient

	BeforeEach(func() {
		client = testutils.NewMockClient()
		client.Response = "Hello there"
	})

	It("rejects an empty conversation", func() {
		_, err := contextwindow.NewGauge(client, 100).Chat(context.Background(), nil)
		Expect(err).To(MatchError(contextwindow.ErrNoMessages))
	})

	It("reports provider usage against the window", func() {
		reply, err := contextwindow.NewGauge(client, 100).Chat(context.Background(), []llm.Message{
			{Role: "user", Content: "hi"},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(reply.Response).To(Equal("Hello there"))
		Expect(reply.TotalTokens).To(Equal(15))
		Expect(reply.PercentUsed).To(Equal(15.0))
		Expect(reply.ContextWindow).To(Equal(100))
	})

	It("normalises model roles to assistant", func() {
		_, err := contextwindow.NewGauge(client, 0).Chat(context.Background(), []llm.Message{
			{Role: "user", Content: "hi"},
			{Role: "model", Content: "hello"},
			{Role: "user", Content: "again"},
		})
		Expect(err).NotTo(HaveOccurred())
		sent := client.Requests[0].Messages
		Expect(sent[1].Role).To(Equal(llm.RoleAssistant))
	})

	It("counts the transcript when no usage is reported", func() {
		client.GenerateFunc = func(context.Context, *llm.ChatRequest) (*llm.ChatResponse, error) {
			return &llm.ChatResponse{Message: llm.NewTextMessage(llm.RoleAssistant, "three word answer")}, nil
		}
		reply, err := contextwindow.NewGauge(client, 0).Chat(context.Background(), []llm.Message{
			{Role: "user", Content: "two words"},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(reply.TotalTokens).To(Equal(5))
		Expect(reply.ContextWindow).To(Equal(contextwindow.DefaultWindow))
	})

	It("propagates generation failures", func() {
		client.GenerateErr = llm.ErrUpstream
		_, err := contextwindow.NewGauge(client, 0).Chat(context.Background(), []llm.Message{{Role: "user", Content: "x"}})
		Expect(errors.Is(err, llm.ErrUpstream)).To(BeTrue())
	})
})
