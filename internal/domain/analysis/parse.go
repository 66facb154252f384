package analysis

import (
	"encoding/json"
	"errors"
	"io"
	"strings"
)

// ParseObject decodes s as a single JSON object. Numbers are kept as
// json.Number so type checks see exactly what the model sent.
func ParseObject(s string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, syntaxError(s, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &Error{
			Kind:    KindSyntax,
			Message: "unexpected data after top-level value",
			Offset:  dec.InputOffset(),
			Snippet: Preview(s, defaultPreviewLimit),
		}
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, &Error{
			Kind:    KindSyntax,
			Message: "top-level value is not an object",
			Snippet: Preview(s, defaultPreviewLimit),
		}
	}
	return obj, nil
}

func syntaxError(s string, err error) *Error {
	e := &Error{Kind: KindSyntax, Message: err.Error(), Snippet: Preview(s, defaultPreviewLimit)}
	var se *json.SyntaxError
	if errors.As(err, &se) {
		e.Offset = se.Offset
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		e.Message = "unexpected end of JSON input"
	}
	return e
}
