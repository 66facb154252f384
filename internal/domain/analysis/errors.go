package analysis

import (
	"fmt"
	"strings"
)

// Kind tags a pipeline failure.
type Kind string

const (
	KindBoundaryNotFound Kind = "boundary_not_found"
	KindSyntax           Kind = "syntax_error"
	KindExtractionFailed Kind = "extraction_failed"
	KindMissingFields    Kind = "missing_fields"
	KindInvalidFieldType Kind = "invalid_field_type"
	KindEmptyField       Kind = "empty_field"
)

const (
	kindString      = "string"
	kindStringArray = "array of strings"
)

// Error is the single error type returned by the pipeline. Only the fields
// relevant to Kind are populated.
type Error struct {
	Kind Kind

	// MissingFields
	Missing []string

	// InvalidFieldType, EmptyField
	Field    string
	Expected string

	// SyntaxError
	Message string
	Offset  int64
	Snippet string

	// ExtractionFailed
	OriginalLen     int
	OriginalPreview string
	CleanedPreview  string
	Cause           error
}

// Sentinels for errors.Is. They compare by Kind only.
var (
	ErrBoundaryNotFound = &Error{Kind: KindBoundaryNotFound}
	ErrSyntax           = &Error{Kind: KindSyntax}
	ErrExtractionFailed = &Error{Kind: KindExtractionFailed}
	ErrMissingFields    = &Error{Kind: KindMissingFields}
	ErrInvalidFieldType = &Error{Kind: KindInvalidFieldType}
	ErrEmptyField       = &Error{Kind: KindEmptyField}
)

func (e *Error) Error() string {
	switch e.Kind {
	case KindBoundaryNotFound:
		return "analysis: no JSON object found in model output"
	case KindSyntax:
		if e.Offset > 0 {
			return fmt.Sprintf("analysis: invalid JSON at offset %d: %s", e.Offset, e.Message)
		}
		return "analysis: invalid JSON: " + e.Message
	case KindExtractionFailed:
		if e.Cause != nil {
			return fmt.Sprintf("analysis: extraction failed (%d bytes): %v", e.OriginalLen, e.Cause)
		}
		return fmt.Sprintf("analysis: extraction failed (%d bytes)", e.OriginalLen)
	case KindMissingFields:
		return "analysis: missing fields: " + strings.Join(e.Missing, ", ")
	case KindInvalidFieldType:
		return fmt.Sprintf("analysis: field %q must be %s", e.Field, e.Expected)
	case KindEmptyField:
		return fmt.Sprintf("analysis: field %q is empty", e.Field)
	}
	return "analysis: " + string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches any *Error with the same Kind, so the package sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Details returns the diagnostic fields of e as a flat map suitable for JSON
// responses and structured logs. The full payload is never included.
func (e *Error) Details() map[string]any {
	d := map[string]any{}
	switch e.Kind {
	case KindMissingFields:
		d["fields"] = append([]string(nil), e.Missing...)
	case KindInvalidFieldType:
		d["field"] = e.Field
		d["expected"] = e.Expected
	case KindEmptyField:
		d["field"] = e.Field
	case KindSyntax:
		d["message"] = e.Message
		d["snippet"] = e.Snippet
		if e.Offset > 0 {
			d["offset"] = e.Offset
		}
	case KindExtractionFailed:
		d["original_length"] = e.OriginalLen
		d["original_preview"] = e.OriginalPreview
		d["cleaned_preview"] = e.CleanedPreview
		if c, ok := e.Cause.(*Error); ok {
			d["cause"] = string(c.Kind)
			if c.Message != "" {
				d["cause_message"] = c.Message
			}
		}
	}
	return d
}

func missingFields(names []string) *Error {
	return &Error{Kind: KindMissingFields, Missing: names}
}

func invalidFieldType(field, expected string) *Error {
	return &Error{Kind: KindInvalidFieldType, Field: field, Expected: expected}
}

func emptyField(field string) *Error {
	return &Error{Kind: KindEmptyField, Field: field}
}

// Preview bounds s to limit runes, marking truncation with "...".
func Preview(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i] + "..."
		}
		n++
	}
	return s
}
