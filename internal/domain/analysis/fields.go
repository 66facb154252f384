package analysis

import (
	"fmt"
	"strings"
)

// RepairFields trims every string in rec and forces KeyTokens to exactly
// KeyTokenCount entries: blanks are dropped, extras beyond the first seven are
// discarded, and gaps are filled from fallback by position (fallback[i] fills
// index i), then by a synthesized "token N". It never fails and does not
// modify rec.
func RepairFields(rec Record, fallback []string) Record {
	out := Record{
		Title:  strings.TrimSpace(rec.Title),
		Style:  strings.TrimSpace(rec.Style),
		Prompt: strings.TrimSpace(rec.Prompt),
	}
	for _, name := range listFields {
		*out.list(name) = trimAll(*rec.list(name))
	}
	out.KeyTokens = fitKeyTokens(out.KeyTokens, fallback)
	return out
}

func trimAll(items []string) []string {
	out := make([]string, len(items))
	for i, s := range items {
		out[i] = strings.TrimSpace(s)
	}
	return out
}

func fitKeyTokens(tokens, fallback []string) []string {
	out := make([]string, 0, KeyTokenCount)
	for _, t := range tokens {
		if t == "" {
			continue
		}
		if len(out) == KeyTokenCount {
			break
		}
		out = append(out, t)
	}
	for i := len(out); i < KeyTokenCount; i++ {
		var pad string
		if i < len(fallback) {
			pad = strings.TrimSpace(fallback[i])
		}
		if pad == "" {
			pad = fmt.Sprintf("token %d", i+1)
		}
		out = append(out, pad)
	}
	return out
}
