package llm

import "errors"

var (
	// ErrUpstream wraps failures talking to the upstream provider.
	ErrUpstream = errors.New("upstream provider error")

	// ErrEmptyResponse is returned when the provider produced no content.
	ErrEmptyResponse = errors.New("empty response from provider")

	// ErrNoJSON is returned when no JSON document can be found in model output.
	ErrNoJSON = errors.New("no JSON found in model output")
)
