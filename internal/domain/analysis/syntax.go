package analysis

import (
	"regexp"
	"strings"
)

var trailingComma = regexp.MustCompile(`,(\s*[}\]])`)

var smartQuotes = strings.NewReplacer(
	"\u201c", `"`,
	"\u201d", `"`,
	"\u201e", `"`,
	"\u201f", `"`,
	"\u2033", `"`,
	"\u2018", "'",
	"\u2019", "'",
	"\u201a", "'",
	"\u201b", "'",
	"\u2032", "'",
)

// RepairSyntax applies textual fixes for common near-miss JSON: byte order
// marks, raw control characters, smart quotes and trailing commas. It works on
// text, not on a syntax tree, so the result may still fail to parse.
func RepairSyntax(s string) string {
	s = strings.TrimPrefix(s, "\uFEFF")
	s = stripControl(s)
	s = smartQuotes.Replace(s)
	return trailingComma.ReplaceAllString(s, "$1")
}

// stripControl drops control characters JSON does not allow unescaped.
// Whitespace the decoder accepts between tokens is kept.
func stripControl(s string) string {
	if strings.IndexFunc(s, isDisallowedControl) < 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if !isDisallowedControl(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isDisallowedControl(r rune) bool {
	if r == '\t' || r == '\n' || r == '\r' {
		return false
	}
	return r < 0x20 || r == 0x7f
}
