package sse

import (
	"bufio"
	"bytes"
	"io"
	"iter"
	"strconv"
	"strings"
)

const (
	initialLineBuffer = 64 * 1024

	// MaxLineSize bounds a single line. Provider frames carrying a whole
	// completion fit comfortably.
	MaxLineSize = 1024 * 1024
)

// Reader pulls events from an SSE byte stream one at a time. Lines may end
// in "\n", "\r\n" or a bare "\r".
type Reader struct {
	scanner *bufio.Scanner

	current Event
	pending bool
	hasData bool
}

// NewReader returns a Reader that parses SSE events from src.
func NewReader(src io.Reader) *Reader {
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, initialLineBuffer), MaxLineSize)
	scanner.Split(scanLines)

	return &Reader{scanner: scanner}
}

// Next returns the next event, blocking until a blank line completes one.
// It returns nil, nil once the source is exhausted. A final event without a
// trailing blank line is still delivered.
func (r *Reader) Next() (*Event, error) {
	for r.scanner.Scan() {
		line := r.scanner.Text()

		switch {
		case line == "":
			if r.pending {
				return r.take(), nil
			}
		case line[0] == ':':
			// comment
		default:
			r.field(line)
		}
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	if r.pending {
		return r.take(), nil
	}
	return nil, nil
}

// Events ranges over the remaining events. Iteration stops after the first
// error, which is yielded with a nil event.
func (r *Reader) Events() iter.Seq2[*Event, error] {
	return func(yield func(*Event, error) bool) {
		for {
			ev, err := r.Next()
			if err != nil {
				yield(nil, err)
				return
			}
			if ev == nil || !yield(ev, nil) {
				return
			}
		}
	}
}

// field folds one "name:value" line into the pending event. A single space
// after the colon is dropped.
func (r *Reader) field(line string) {
	name, value, _ := strings.Cut(line, ":")
	value = strings.TrimPrefix(value, " ")

	switch name {
	case "data":
		if r.hasData {
			r.current.Data += "\n"
		}
		r.current.Data += value
		r.hasData = true
	case "event":
		r.current.Type = value
	case "id":
		r.current.ID = value
	case "retry":
		ms, err := strconv.Atoi(value)
		if err != nil || ms < 0 {
			return
		}
		r.current.Retry = ms
	default:
		return
	}
	r.pending = true
}

func (r *Reader) take() *Event {
	ev := r.current
	r.current = Event{}
	r.pending = false
	r.hasData = false
	return &ev
}

// scanLines is bufio.ScanLines extended to treat a lone '\r' as a line end.
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\n' {
			return i + 1, data[:i], nil
		}
		// '\r': swallow a following '\n', but wait for more input when the
		// '\r' is the last byte we have.
		if i+1 < len(data) {
			if data[i+1] == '\n' {
				return i + 2, data[:i], nil
			}
			return i + 1, data[:i], nil
		}
		if atEOF {
			return i + 1, data[:i], nil
		}
		return 0, nil, nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
