// Package sse reads and writes Server-Sent Events.
//
// Reader parses events from an upstream byte stream (an OpenAI-compatible
// provider, or the glassbox API itself when consumed by the CLI). Writer
// frames payloads for a downstream client, one complete event per write.
//
// See the SSE specification:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

// DoneSentinel is the data payload that marks the end of a stream. It is
// distinguishable from JSON payloads by convention.
const DoneSentinel = "[DONE]"

// Event represents a single parsed SSE event, delimited by a blank line
// in the byte stream.
type Event struct {
	// Type is the SSE event type from the "event:" field.
	// An empty string means the default "message" type per the SSE spec.
	Type string

	// Data is the concatenated contents of all "data:" lines for this event,
	// joined with "\n".
	Data string

	// ID is the last event ID from the "id:" field, if present.
	ID string

	// Retry is the reconnection delay in milliseconds from the "retry:"
	// field, or 0 when absent or malformed.
	Retry int
}

// IsDone reports whether the event carries the end-of-stream sentinel.
func (e *Event) IsDone() bool {
	return e != nil && e.Data == DoneSentinel
}
