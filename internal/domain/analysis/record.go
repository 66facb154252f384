package analysis

import "strings"

// KeyTokenCount is the exact number of entries a finished record carries in KeyTokens.
const KeyTokenCount = 7

// Field names as they appear in the model output.
const (
	FieldTitle              = "title"
	FieldStyle              = "style"
	FieldPrompt             = "prompt"
	FieldKeyTokens          = "keyTokens"
	FieldCreativeRemixes    = "creativeRemixes"
	FieldOutpaintingPrompts = "outpaintingPrompts"
	FieldAnimationPrompts   = "animationPrompts"
	FieldMusicPrompts       = "musicPrompts"
	FieldDialoguePrompts    = "dialoguePrompts"
	FieldStoryPrompts       = "storyPrompts"
)

// RequiredFields lists every field a model response must carry, in reporting order.
var RequiredFields = []string{
	FieldTitle,
	FieldStyle,
	FieldPrompt,
	FieldKeyTokens,
	FieldCreativeRemixes,
	FieldOutpaintingPrompts,
	FieldAnimationPrompts,
	FieldMusicPrompts,
	FieldDialoguePrompts,
	FieldStoryPrompts,
}

var (
	scalarFields = []string{FieldTitle, FieldStyle, FieldPrompt}
	listFields   = []string{
		FieldKeyTokens,
		FieldCreativeRemixes,
		FieldOutpaintingPrompts,
		FieldAnimationPrompts,
		FieldMusicPrompts,
		FieldDialoguePrompts,
		FieldStoryPrompts,
	}
)

// DefaultFallbackTokens pads an under-length KeyTokens list. Index i fills position i.
var DefaultFallbackTokens = []string{
	"visual style",
	"color palette",
	"artistic mood",
	"creative essence",
	"design elements",
	"aesthetic tone",
	"artistic vision",
}

// Record is the validated, repaired media-analysis result.
type Record struct {
	Title              string   `json:"title"`
	Style              string   `json:"style"`
	Prompt             string   `json:"prompt"`
	KeyTokens          []string `json:"keyTokens"`
	CreativeRemixes    []string `json:"creativeRemixes"`
	OutpaintingPrompts []string `json:"outpaintingPrompts"`
	AnimationPrompts   []string `json:"animationPrompts"`
	MusicPrompts       []string `json:"musicPrompts"`
	DialoguePrompts    []string `json:"dialoguePrompts"`
	StoryPrompts       []string `json:"storyPrompts"`
}

func (r *Record) scalar(name string) *string {
	switch name {
	case FieldTitle:
		return &r.Title
	case FieldStyle:
		return &r.Style
	case FieldPrompt:
		return &r.Prompt
	}
	return nil
}

func (r *Record) list(name string) *[]string {
	switch name {
	case FieldKeyTokens:
		return &r.KeyTokens
	case FieldCreativeRemixes:
		return &r.CreativeRemixes
	case FieldOutpaintingPrompts:
		return &r.OutpaintingPrompts
	case FieldAnimationPrompts:
		return &r.AnimationPrompts
	case FieldMusicPrompts:
		return &r.MusicPrompts
	case FieldDialoguePrompts:
		return &r.DialoguePrompts
	case FieldStoryPrompts:
		return &r.StoryPrompts
	}
	return nil
}

// Validate reports whether r satisfies the invariants of a finished record.
// Records loaded back from storage are checked with it.
func (r Record) Validate() error {
	for _, name := range scalarFields {
		v := *r.scalar(name)
		if strings.TrimSpace(v) == "" {
			return emptyField(name)
		}
		if v != strings.TrimSpace(v) {
			return invalidFieldType(name, "trimmed string")
		}
	}
	for _, name := range listFields {
		items := *r.list(name)
		if items == nil {
			return invalidFieldType(name, kindStringArray)
		}
		for _, item := range items {
			if name == FieldKeyTokens && item == "" {
				return emptyField(name)
			}
			if item != strings.TrimSpace(item) {
				return invalidFieldType(name, "array of trimmed strings")
			}
		}
	}
	if len(r.KeyTokens) != KeyTokenCount {
		return invalidFieldType(FieldKeyTokens, "array of 7 strings")
	}
	return nil
}

// Clone returns a deep copy so callers can't alias the slices of a returned record.
func (r Record) Clone() Record {
	out := r
	for _, name := range listFields {
		src := *r.list(name)
		if src == nil {
			continue
		}
		dst := make([]string, len(src))
		copy(dst, src)
		*out.list(name) = dst
	}
	return out
}
