package analysis

import (
	"regexp"
	"strings"
)

// greedy on purpose: first '{' to last '}'
var objectSpan = regexp.MustCompile(`(?s)\{.*\}`)

func looksLikeObject(s string) bool {
	return strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}")
}

// ExtractObject isolates the outermost {...} span of s. It assumes the model
// emitted a single top-level object and tolerates prose around it.
func ExtractObject(s string) (string, error) {
	if looksLikeObject(s) {
		return s, nil
	}
	if m := objectSpan.FindString(s); m != "" {
		return m, nil
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1], nil
	}
	return "", &Error{Kind: KindBoundaryNotFound}
}
