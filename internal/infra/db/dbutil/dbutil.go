// Package dbutil holds the row encoding shared by the SQL repositories.
package dbutil

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bryanwahyu/remix-lens/internal/domain/analysis"
)

// StringOrDash returns "-" when the input is empty/whitespace
func StringOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// EncodeRecord serializes a finished record for the record_json column.
func EncodeRecord(r analysis.Record) (string, error) {
	if err := r.Validate(); err != nil {
		return "", fmt.Errorf("refusing to store invalid record: %w", err)
	}
	b, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeRecord parses a stored record and re-checks its invariants.
func DecodeRecord(s string) (analysis.Record, error) {
	var r analysis.Record
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		return analysis.Record{}, fmt.Errorf("decode stored record: %w", err)
	}
	if err := r.Validate(); err != nil {
		return analysis.Record{}, fmt.Errorf("stored record is invalid: %w", err)
	}
	return r, nil
}

// DetailsJSON ensures details is a JSON document; anything else is wrapped as {"raw": ...}.
func DetailsJSON(details string) string {
	if strings.TrimSpace(details) == "" {
		return "{}"
	}
	var js any
	if json.Unmarshal([]byte(details), &js) != nil {
		b, _ := json.Marshal(map[string]string{"raw": details})
		return string(b)
	}
	return details
}

// Limit clamps list limits to [1, 100] with a default of 20.
func Limit(n int) int {
	if n <= 0 {
		return 20
	}
	if n > 100 {
		return 100
	}
	return n
}
