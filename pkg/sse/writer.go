package sse

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Flusher is implemented by writers that buffer, such as bufio.Writer.
type Flusher interface {
	Flush() error
}

// Writer frames payloads as SSE "data:" events. Each event is assembled in
// full before a single Write call, so a failed marshal never leaves a
// partial frame on the wire.
type Writer struct {
	w io.Writer
}

// NewWriter returns a Writer framing events onto w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteData writes payload as one event. Embedded newlines are split across
// multiple data lines as the SSE format requires.
func (w *Writer) WriteData(payload string) error {
	var buf bytes.Buffer
	for _, line := range strings.Split(payload, "\n") {
		buf.WriteString("data: ")
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')

	return w.write(buf.Bytes())
}

// WriteComment writes a comment line. Readers ignore it, so it serves as a
// keep-alive that surfaces a closed connection as a write error.
func (w *Writer) WriteComment(text string) error {
	return w.write([]byte(": " + text + "\n\n"))
}

func (w *Writer) write(frame []byte) error {
	if _, err := w.w.Write(frame); err != nil {
		return err
	}
	if f, ok := w.w.(Flusher); ok {
		return f.Flush()
	}
	return nil
}

// WriteJSON marshals v and writes it as one event.
func (w *Writer) WriteJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	return w.WriteData(string(data))
}

// WriteDone writes the end-of-stream sentinel event.
func (w *Writer) WriteDone() error {
	return w.WriteData(DoneSentinel)
}
