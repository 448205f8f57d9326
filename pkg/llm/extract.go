package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSON decodes the first JSON object or array found in model output
// into v. Models often wrap JSON in markdown fences or add prose around it;
// both are tolerated.
func ExtractJSON(text string, v any) error {
	trimmed := strings.TrimSpace(stripFences(text))
	if trimmed == "" {
		return ErrNoJSON
	}

	if err := json.Unmarshal([]byte(trimmed), v); err == nil {
		return nil
	}

	var lastErr error
	for i, r := range trimmed {
		if r != '{' && r != '[' {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(trimmed[i:]))
		if err := dec.Decode(v); err != nil {
			lastErr = err
			continue
		}
		return nil
	}

	if lastErr != nil {
		return fmt.Errorf("%w: %v", ErrNoJSON, lastErr)
	}
	return ErrNoJSON
}

// stripFences removes a surrounding ``` or ```json markdown fence.
func stripFences(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	if end := strings.LastIndex(s, "```"); end >= 0 {
		s = s[:end]
	}
	return s
}
