package pattern

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fencedJSON = regexp.MustCompile("(?s)```(?:json|JSON)[ \t]*\\r?\\n?(.*?)```")

// Extract turns raw model text into a decoded JSON value. It tries, in
// order, a strict decode of the whole text, every ```json fenced block, and
// every balanced {...} or [...] span in document order. The boolean is false
// when nothing decodes; Extract never calls out and is safe to repeat.
func Extract(raw string) (any, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, false
	}
	if v, ok := decode(trimmed); ok {
		return v, true
	}
	for _, m := range fencedJSON.FindAllStringSubmatch(raw, -1) {
		if v, ok := decode(strings.TrimSpace(m[1])); ok {
			return v, true
		}
	}
	for i := 0; i < len(raw); i++ {
		if raw[i] != '{' && raw[i] != '[' {
			continue
		}
		end := matchingClose(raw, i)
		if end < 0 {
			continue
		}
		if v, ok := decode(raw[i : end+1]); ok {
			return v, true
		}
	}
	return nil, false
}

// ExtractObject is Extract restricted to JSON objects.
func ExtractObject(raw string) (map[string]any, bool) {
	v, ok := Extract(raw)
	if !ok {
		return nil, false
	}
	obj, ok := v.(map[string]any)
	return obj, ok
}

// Convert re-decodes a generic JSON value into out.
func Convert(value any, out any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func decode(text string) (any, bool) {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, false
	}
	return v, true
}

// matchingClose returns the index closing the bracket opened at start,
// skipping brackets inside JSON strings, or -1.
func matchingClose(s string, start int) int {
	var stack []byte
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return -1
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i
			}
		}
	}
	return -1
}
