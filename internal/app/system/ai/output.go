package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrBadOutput is returned when structured model output cannot be decoded.
var ErrBadOutput = errors.New("ai: model output is not valid JSON")

// DecodeJSON unmarshals model output into v. Markdown code fences and any
// prose around the outermost JSON value are ignored.
func DecodeJSON(text string, v any) error {
	body := extractJSON(text)
	if body == "" {
		return ErrBadOutput
	}
	if err := json.Unmarshal([]byte(body), v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadOutput, err)
	}
	return nil
}

func extractJSON(text string) string {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}
	start := strings.IndexAny(s, "[{")
	if start < 0 {
		return ""
	}
	closer := byte('}')
	if s[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(s, closer)
	if end < start {
		return ""
	}
	return s[start : end+1]
}
