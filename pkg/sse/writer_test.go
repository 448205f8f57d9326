package sse

import (
	"bufio"
	"bytes"
	"errors"
	"math"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed pipe") }

var _ = Describe("Writer", func() {
	var buf *bytes.Buffer

	BeforeEach(func() {
		buf = &bytes.Buffer{}
	})

	It("frames a payload as a data event", func() {
		Expect(NewWriter(buf).WriteData("hello")).To(Succeed())
		Expect(buf.String()).To(Equal("data: hello\n\n"))
	})

	It("splits multi-line payloads across data lines", func() {
		Expect(NewWriter(buf).WriteData("a\nb")).To(Succeed())
		Expect(buf.String()).To(Equal("data: a\ndata: b\n\n"))
	})

	It("frames JSON and the sentinel", func() {
		w := NewWriter(buf)
		Expect(w.WriteJSON(map[string]any{"word": "hi "})).To(Succeed())
		Expect(w.WriteDone()).To(Succeed())
		Expect(buf.String()).To(Equal("data: {\"word\":\"hi \"}\n\ndata: [DONE]\n\n"))
	})

	It("writes nothing when marshaling fails", func() {
		err := NewWriter(buf).WriteJSON(math.NaN())
		Expect(err).To(HaveOccurred())
		Expect(buf.Len()).To(BeZero())
	})

	It("flushes buffered writers after each event", func() {
		bw := bufio.NewWriter(buf)
		Expect(NewWriter(bw).WriteData("now")).To(Succeed())
		Expect(buf.String()).To(Equal("data: now\n\n"))
	})

	It("returns write errors", func() {
		Expect(NewWriter(failingWriter{}).WriteDone()).To(MatchError("closed pipe"))
	})

	It("writes comments that readers skip", func() {
		w := NewWriter(buf)
		Expect(w.WriteComment("keep-alive")).To(Succeed())
		Expect(w.WriteData("after")).To(Succeed())
		Expect(buf.String()).To(HavePrefix(": keep-alive\n\n"))

		ev, err := NewReader(strings.NewReader(buf.String())).Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.Data).To(Equal("after"))
	})

	It("returns comment write errors", func() {
		Expect(NewWriter(failingWriter{}).WriteComment("keep-alive")).To(MatchError("closed pipe"))
	})

	It("round-trips payloads with leading and trailing newlines", func() {
		w := NewWriter(buf)
		Expect(w.WriteData("\nhello")).To(Succeed())
		Expect(w.WriteData("bye\n")).To(Succeed())

		r := NewReader(strings.NewReader(buf.String()))
		ev, err := r.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.Data).To(Equal("\nhello"))

		ev, err = r.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.Data).To(Equal("bye\n"))
	})

	It("round-trips through the Reader", func() {
		w := NewWriter(buf)
		Expect(w.WriteData("line one\nline two")).To(Succeed())
		Expect(w.WriteDone()).To(Succeed())

		r := NewReader(strings.NewReader(buf.String()))
		ev, err := r.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.Data).To(Equal("line one\nline two"))

		ev, err = r.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.IsDone()).To(BeTrue())
	})
})
