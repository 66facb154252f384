package analysis

import "strings"

// Validate checks a parsed object for the required fields and their primitive
// types. It reports every missing field at once, then the first list field of
// the wrong shape, then the first bad scalar. The returned record is typed but
// not yet repaired.
func Validate(obj map[string]any) (Record, error) {
	var missing []string
	for _, name := range RequiredFields {
		if _, ok := obj[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return Record{}, missingFields(missing)
	}

	var rec Record
	for _, name := range listFields {
		items, err := stringList(name, obj[name])
		if err != nil {
			return Record{}, err
		}
		*rec.list(name) = items
	}
	for _, name := range scalarFields {
		s, ok := obj[name].(string)
		if !ok {
			return Record{}, invalidFieldType(name, kindString)
		}
		if strings.TrimSpace(s) == "" {
			return Record{}, emptyField(name)
		}
		*rec.scalar(name) = s
	}
	return rec, nil
}

func stringList(name string, v any) ([]string, error) {
	raw, ok := v.([]any)
	if !ok {
		return nil, invalidFieldType(name, kindStringArray)
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			return nil, invalidFieldType(name, kindStringArray)
		}
		out = append(out, s)
	}
	return out, nil
}
