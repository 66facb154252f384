package analysis

import (
	"regexp"
	"strings"
)

var (
	leadingFence  = regexp.MustCompile("(?i)^\\s*```(?:json)?[ \\t]*\\r?\\n?")
	trailingFence = regexp.MustCompile("\\s*```\\s*$")
)

// Normalize strips markdown fences and stray backticks around a model response.
// It never fails; the worst case is the trimmed input.
func Normalize(raw string) string {
	s := leadingFence.ReplaceAllString(raw, "")
	s = trailingFence.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "`")
	s = strings.TrimRight(s, "`")
	return strings.TrimSpace(s)
}
