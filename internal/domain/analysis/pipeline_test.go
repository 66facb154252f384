package analysis

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
)

const validJSON = `{
  "title": "Harbor at Dusk",
  "style": "impressionist oil",
  "prompt": "a quiet harbor at dusk, loose brushwork",
  "keyTokens": ["harbor", "dusk", "boats", "reflections", "warm light", "brushwork", "calm"],
  "creativeRemixes": ["cyberpunk harbor", "harbor in snow", "harbor as watercolor"],
  "outpaintingPrompts": ["extend the pier", "reveal the town", "open sky above"],
  "animationPrompts": ["boats rocking", "lights flicker on", "gulls crossing"],
  "musicPrompts": ["soft accordion", "ambient waves", "slow piano"],
  "dialoguePrompts": ["a fisherman speaks", "two lovers part", "a child asks"],
  "storyPrompts": ["the last boat home", "a storm rolls in", "the lighthouse keeper"]
}`

func validRecord() Record {
	return Record{
		Title:              "Harbor at Dusk",
		Style:              "impressionist oil",
		Prompt:             "a quiet harbor at dusk, loose brushwork",
		KeyTokens:          []string{"harbor", "dusk", "boats", "reflections", "warm light", "brushwork", "calm"},
		CreativeRemixes:    []string{"cyberpunk harbor", "harbor in snow", "harbor as watercolor"},
		OutpaintingPrompts: []string{"extend the pier", "reveal the town", "open sky above"},
		AnimationPrompts:   []string{"boats rocking", "lights flicker on", "gulls crossing"},
		MusicPrompts:       []string{"soft accordion", "ambient waves", "slow piano"},
		DialoguePrompts:    []string{"a fisherman speaks", "two lovers part", "a child asks"},
		StoryPrompts:       []string{"the last boat home", "a storm rolls in", "the lighthouse keeper"},
	}
}

// withField rewrites one field of validJSON.
func withField(t *testing.T, name string, value any) string {
	t.Helper()
	var obj map[string]any
	if err := json.Unmarshal([]byte(validJSON), &obj); err != nil {
		t.Fatalf("fixture: %v", err)
	}
	obj[name] = value
	b, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("fixture: %v", err)
	}
	return string(b)
}

func withoutField(t *testing.T, names ...string) string {
	t.Helper()
	var obj map[string]any
	if err := json.Unmarshal([]byte(validJSON), &obj); err != nil {
		t.Fatalf("fixture: %v", err)
	}
	for _, n := range names {
		delete(obj, n)
	}
	b, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("fixture: %v", err)
	}
	return string(b)
}

func TestExtract_Tolerance(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		strategy Strategy
	}{
		{"plain", validJSON, StrategyDirect},
		{"json fence with newline", "```json\n" + validJSON + "\n```", StrategyDirect},
		{"json fence without newline", "```json" + validJSON + "```", StrategyDirect},
		{"upper case tag", "```JSON\n" + validJSON + "\n```\n", StrategyDirect},
		{"bare fence", "```\n" + validJSON + "\n```", StrategyDirect},
		{"stray backticks", "`" + validJSON + "``", StrategyDirect},
		{"surrounding whitespace", "\n\n  " + validJSON + "  \t\n", StrategyDirect},
		{"leading prose", "Here is the analysis you asked for:\n" + validJSON, StrategyCleaned},
		{"trailing prose", validJSON + "\nLet me know if you need more.", StrategyCleaned},
		{"prose inside fence", "```json\nSure! " + validJSON + " Enjoy.\n```", StrategyCleaned},
		{"trailing commas", strings.Replace(strings.Replace(validJSON, `"calm"]`, `"calm",]`, 1), `"the lighthouse keeper"]`+"\n}", `"the lighthouse keeper"],`+"\n}", 1), StrategyCleaned},
		{"smart quotes", strings.Replace(validJSON, `"title"`, "\u201ctitle\u201d", 1), StrategyCleaned},
		{"byte order mark", "\uFEFF" + validJSON, StrategyCleaned},
	}

	want := validRecord()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := New(Options{}).RunDetailed(tt.input)
			if err != nil {
				t.Fatalf("RunDetailed() error = %v", err)
			}
			if !reflect.DeepEqual(out.Record, want) {
				t.Errorf("RunDetailed() record = %+v, want %+v", out.Record, want)
			}
			if out.Strategy != tt.strategy {
				t.Errorf("RunDetailed() strategy = %q, want %q", out.Strategy, tt.strategy)
			}
		})
	}
}

func TestExtract_RoundTripTrimsOnly(t *testing.T) {
	padded := withField(t, "title", "  Harbor at Dusk \n")
	padded = strings.Replace(padded, `"boats"`, `"  boats\t"`, 1)

	got, err := Extract(padded)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if !reflect.DeepEqual(got, validRecord()) {
		t.Errorf("Extract() = %+v, want %+v", got, validRecord())
	}

	b, err := json.Marshal(got)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(b, &keys); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(keys) != len(RequiredFields) {
		t.Errorf("serialized record has %d fields, want %d", len(keys), len(RequiredFields))
	}
}

func TestExtract_KeyTokensRepair(t *testing.T) {
	tests := []struct {
		name   string
		tokens []any
		want   []string
	}{
		{
			name:   "over length keeps first seven",
			tokens: []any{"t1", "t2", "t3", "t4", "t5", "t6", "t7", "t8", "t9", "t10"},
			want:   []string{"t1", "t2", "t3", "t4", "t5", "t6", "t7"},
		},
		{
			name:   "under length pads in fixed order",
			tokens: []any{"a", "b", "c"},
			want:   []string{"a", "b", "c", "creative essence", "design elements", "aesthetic tone", "artistic vision"},
		},
		{
			name:   "empty list is fully padded",
			tokens: []any{},
			want:   DefaultFallbackTokens,
		},
		{
			name:   "blank entries are dropped before padding",
			tokens: []any{" a ", "   ", "b"},
			want:   []string{"a", "b", "artistic mood", "creative essence", "design elements", "aesthetic tone", "artistic vision"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Extract(withField(t, FieldKeyTokens, tt.tokens))
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if !reflect.DeepEqual(got.KeyTokens, tt.want) {
				t.Errorf("KeyTokens = %q, want %q", got.KeyTokens, tt.want)
			}
		})
	}
}

func TestExtract_OtherListsKeepLength(t *testing.T) {
	got, err := Extract(withField(t, FieldMusicPrompts, []any{" one ", "two", "three", "four", ""}))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	want := []string{"one", "two", "three", "four", ""}
	if !reflect.DeepEqual(got.MusicPrompts, want) {
		t.Errorf("MusicPrompts = %q, want %q", got.MusicPrompts, want)
	}

	got, err = Extract(withField(t, FieldStoryPrompts, []any{}))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got.StoryPrompts == nil || len(got.StoryPrompts) != 0 {
		t.Errorf("StoryPrompts = %#v, want empty non-nil slice", got.StoryPrompts)
	}
}

func TestExtract_ValidationErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		sentinel error
		check    func(t *testing.T, e *Error)
	}{
		{
			name:     "missing style",
			input:    withoutField(t, FieldStyle),
			sentinel: ErrMissingFields,
			check: func(t *testing.T, e *Error) {
				if !reflect.DeepEqual(e.Missing, []string{FieldStyle}) {
					t.Errorf("Missing = %q, want [style]", e.Missing)
				}
			},
		},
		{
			name:     "all missing fields reported",
			input:    withoutField(t, FieldStoryPrompts, FieldTitle, FieldKeyTokens),
			sentinel: ErrMissingFields,
			check: func(t *testing.T, e *Error) {
				want := []string{FieldTitle, FieldKeyTokens, FieldStoryPrompts}
				if !reflect.DeepEqual(e.Missing, want) {
					t.Errorf("Missing = %q, want %q", e.Missing, want)
				}
			},
		},
		{
			name:     "empty title",
			input:    withField(t, FieldTitle, ""),
			sentinel: ErrEmptyField,
			check: func(t *testing.T, e *Error) {
				if e.Field != FieldTitle {
					t.Errorf("Field = %q, want title", e.Field)
				}
			},
		},
		{
			name:     "whitespace title",
			input:    withField(t, FieldTitle, " \t\n "),
			sentinel: ErrEmptyField,
		},
		{
			name:     "scalar where list required",
			input:    withField(t, FieldCreativeRemixes, "one remix"),
			sentinel: ErrInvalidFieldType,
			check: func(t *testing.T, e *Error) {
				if e.Field != FieldCreativeRemixes || e.Expected != "array of strings" {
					t.Errorf("got field %q expected %q", e.Field, e.Expected)
				}
			},
		},
		{
			name:     "null list",
			input:    withField(t, FieldAnimationPrompts, nil),
			sentinel: ErrInvalidFieldType,
		},
		{
			name:     "number inside list",
			input:    withField(t, FieldKeyTokens, []any{"a", 3}),
			sentinel: ErrInvalidFieldType,
		},
		{
			name:     "list where string required",
			input:    withField(t, FieldPrompt, []any{"a"}),
			sentinel: ErrInvalidFieldType,
			check: func(t *testing.T, e *Error) {
				if e.Field != FieldPrompt || e.Expected != "string" {
					t.Errorf("got field %q expected %q", e.Field, e.Expected)
				}
			},
		},
		{
			name:     "list checked before scalars",
			input:    withField(t, FieldMusicPrompts, 7),
			sentinel: ErrInvalidFieldType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Extract(tt.input)
			if err == nil {
				t.Fatalf("Extract() = %+v, want error", got)
			}
			if !errors.Is(err, tt.sentinel) {
				t.Fatalf("Extract() error = %v, want %v", err, tt.sentinel)
			}
			var e *Error
			if !errors.As(err, &e) {
				t.Fatalf("error %T is not *Error", err)
			}
			if tt.check != nil {
				tt.check(t, e)
			}
		})
	}
}

func TestExtract_Unrecoverable(t *testing.T) {
	tests := []struct {
		name  string
		input string
		cause error
	}{
		{"pure prose", "I'm sorry, I can't describe this image.", ErrBoundaryNotFound},
		{"empty", "", ErrBoundaryNotFound},
		{"only fences", "```json\n```", ErrBoundaryNotFound},
		{"reversed braces", "} nothing here {", ErrBoundaryNotFound},
		{"broken object", `{"title": "x", "style": }`, ErrSyntax},
		{"truncated object", "```json\n" + validJSON[:200] + "}", ErrSyntax},
		{"two top-level objects", `{"a": 1}, {"b": 2}`, ErrSyntax},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Extract(tt.input)
			if err == nil {
				t.Fatalf("Extract() = %+v, want error", got)
			}
			if !errors.Is(err, ErrExtractionFailed) {
				t.Errorf("error = %v, want extraction_failed", err)
			}
			if !errors.Is(err, tt.cause) {
				t.Errorf("error = %v, want cause %v", err, tt.cause)
			}
			var e *Error
			if !errors.As(err, &e) {
				t.Fatalf("error %T is not *Error", err)
			}
			if e.OriginalLen != len(tt.input) {
				t.Errorf("OriginalLen = %d, want %d", e.OriginalLen, len(tt.input))
			}
		})
	}
}

func TestExtract_PreviewsAreBounded(t *testing.T) {
	raw := "{" + strings.Repeat(`"filler": "x", `, 400) + `"broken": }`
	p := New(Options{PreviewLimit: 50})

	_, err := p.Run(raw)
	var e *Error
	if !errors.As(err, &e) || e.Kind != KindExtractionFailed {
		t.Fatalf("Run() error = %v, want extraction_failed", err)
	}
	for name, s := range map[string]string{"original": e.OriginalPreview, "cleaned": e.CleanedPreview} {
		if n := len([]rune(s)); n > 53 {
			t.Errorf("%s preview has %d runes, want <= 53", name, n)
		}
	}
	if e.OriginalLen != len(raw) {
		t.Errorf("OriginalLen = %d, want %d", e.OriginalLen, len(raw))
	}
	if _, ok := e.Details()["cause"]; !ok {
		t.Errorf("Details() missing cause: %v", e.Details())
	}
}

func TestExtract_DeepRepair(t *testing.T) {
	// single quotes and an unquoted key are beyond the textual repairs
	raw := strings.Replace(validJSON, `"title": "Harbor at Dusk"`, `title: 'Harbor at Dusk'`, 1)

	if _, err := New(Options{}).Run(raw); !errors.Is(err, ErrExtractionFailed) {
		t.Fatalf("Run() without deep repair error = %v, want extraction_failed", err)
	}

	out, err := New(Options{DeepRepair: true}).RunDetailed(raw)
	if err != nil {
		t.Fatalf("RunDetailed() with deep repair error = %v", err)
	}
	if out.Strategy != StrategyDeepRepair {
		t.Errorf("Strategy = %q, want %q", out.Strategy, StrategyDeepRepair)
	}
	if !reflect.DeepEqual(out.Record, validRecord()) {
		t.Errorf("Record = %+v, want %+v", out.Record, validRecord())
	}
}

func TestExtract_CustomFallbackTokens(t *testing.T) {
	p := New(Options{FallbackTokens: []string{"x0", "x1", "x2", "x3"}})
	got, err := p.Run(withField(t, FieldKeyTokens, []any{"a", "b"}))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	want := []string{"a", "b", "x2", "x3", "token 5", "token 6", "token 7"}
	if !reflect.DeepEqual(got.KeyTokens, want) {
		t.Errorf("KeyTokens = %q, want %q", got.KeyTokens, want)
	}
}

func TestExtract_Idempotent(t *testing.T) {
	inputs := []string{
		"```json\n" + validJSON + "\n```",
		withField(t, FieldKeyTokens, []any{"a"}),
		withoutField(t, FieldStyle, FieldPrompt),
		"no json here",
	}
	for _, in := range inputs {
		r1, err1 := Extract(in)
		r2, err2 := Extract(in)
		if !reflect.DeepEqual(r1, r2) {
			t.Errorf("records differ for %q", Preview(in, 40))
		}
		if (err1 == nil) != (err2 == nil) || (err1 != nil && err1.Error() != err2.Error()) {
			t.Errorf("errors differ for %q: %v vs %v", Preview(in, 40), err1, err2)
		}
	}
}

func TestExtract_DoesNotShareSlices(t *testing.T) {
	p := New(Options{})
	r1, err := p.Run(validJSON)
	if err != nil {
		t.Fatal(err)
	}
	r1.KeyTokens[0] = "mutated"
	r2, err := p.Run(validJSON)
	if err != nil {
		t.Fatal(err)
	}
	if r2.KeyTokens[0] != "harbor" {
		t.Errorf("second run saw mutation: %q", r2.KeyTokens[0])
	}
}
