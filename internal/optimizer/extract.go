package optimizer

import (
	"errors"
	"strings"
)

// ErrNoJSON is returned by ExtractJSON when the text holds no brace-delimited span.
var ErrNoJSON = errors.New("no JSON object found in response")

// ExtractJSON returns the span from the first '{' to the last '}' of text. It is a
// best-effort match for model output that wraps JSON in prose or code fences; the
// span is not checked for well-formedness.
func ExtractJSON(text string) (string, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return "", ErrNoJSON
	}
	return text[start : end+1], nil
}
