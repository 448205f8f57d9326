// Package reassembler turns arbitrarily chunked generated text into whole
// words, using the ASCII space as the only delimiter.
package reassembler

import "strings"

// Delimiter separates words in the generated text.
const Delimiter = " "

// Reassembler buffers the unterminated tail of a text stream. A Reassembler
// is owned by a single stream and is not safe for concurrent use.
type Reassembler struct {
	buf strings.Builder
}

// New returns an empty Reassembler.
func New() *Reassembler {
	return &Reassembler{}
}

// Feed appends chunk to the buffer and returns every word completed by it,
// in arrival order. Each completed word carries the trailing Delimiter.
// Parts that are empty after trimming whitespace, such as those produced by
// consecutive delimiters, are dropped.
func (r *Reassembler) Feed(chunk string) []string {
	if chunk == "" {
		return nil
	}

	r.buf.WriteString(chunk)
	if !strings.Contains(chunk, Delimiter) {
		return nil
	}

	parts := strings.Split(r.buf.String(), Delimiter)
	rest := parts[len(parts)-1]
	r.buf.Reset()
	r.buf.WriteString(rest)

	var words []string
	for _, part := range parts[:len(parts)-1] {
		if strings.TrimSpace(part) == "" {
			continue
		}
		words = append(words, part+Delimiter)
	}
	return words
}

// Flush returns the buffered remainder exactly as received, without a
// trailing Delimiter, and empties the buffer. ok is false when nothing was
// buffered.
func (r *Reassembler) Flush() (word string, ok bool) {
	if r.buf.Len() == 0 {
		return "", false
	}
	word = r.buf.String()
	r.buf.Reset()
	return word, true
}

// Buffered reports how many bytes are waiting for a delimiter.
func (r *Reassembler) Buffered() int {
	return r.buf.Len()
}
