package extract

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoJSONObject is returned when no balanced top-level JSON object can be
// located in a model response.
var ErrNoJSONObject = errors.New("no json object in model response")

// ParseModelResponse turns an arbitrary model response into a parsed JSON
// object. It tolerates code fences, surrounding prose and trailing garbage;
// failure is a returned error, never a panic.
func ParseModelResponse(raw string) (map[string]any, error) {
	stripped := StripCodeFence(raw)

	var payload map[string]any
	if err := json.Unmarshal([]byte(stripped), &payload); err == nil {
		return payload, nil
	}

	block, ok := ExtractJSONObject(stripped)
	if !ok {
		return nil, ErrNoJSONObject
	}
	if err := json.Unmarshal([]byte(block), &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// StripCodeFence removes a single surrounding three-backtick fence, optionally
// tagged "json".
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSpace(s)
	// Only a fence that terminates the string closes the block; interior
	// backticks belong to the content.
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSuffix(s, "```")
	}
	return strings.TrimSpace(s)
}

// ExtractJSONObject scans for the first balanced top-level {...} span. The
// depth counter is string-literal-aware: braces inside quoted values, and
// escaped quotes inside them, do not perturb depth.
func ExtractJSONObject(s string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					return s[start : i+1], true
				}
			}
		}
	}
	return "", false
}
