package generation

import (
	"fmt"
	"regexp"
	"strings"
)

var fencedBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// ExtractJSON locates the first top-level JSON value in free-form generated
// text. Models wrap payloads in fenced code blocks or surround them with
// prose; fenced content wins when present, otherwise the first '{' or '['
// is matched to its balanced close by depth. Returns an error when no
// balanced JSON region exists.
func ExtractJSON(text string) (string, error) {
	if m := fencedBlockRe.FindStringSubmatch(text); m != nil {
		candidate := strings.TrimSpace(m[1])
		if candidate != "" {
			return candidate, nil
		}
	}

	start := -1
	for i, c := range text {
		if c == '{' || c == '[' {
			start = i
			break
		}
	}
	if start == -1 {
		return "", fmt.Errorf("no JSON value found in response")
	}

	open := text[start]
	closer := byte('}')
	if open == '[' {
		closer = ']'
	}

	depth := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case open:
			depth++
		case closer:
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}

	return "", fmt.Errorf("unbalanced JSON value in response (no matching %q)", string(closer))
}

// Truncate shortens raw response text for error messages
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
