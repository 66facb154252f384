// Package offline is a stand-in model used when no API key is configured. It
// answers the way real models often do: a fenced JSON block with a trailing
// comma, so the full repair path runs in local development.
package offline

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"strings"
)

type Client struct{}

func NewClient() *Client { return &Client{} }

type suggestion struct {
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

func (c *Client) Describe(ctx context.Context, mediaURL string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	subject := subjectOf(mediaURL)
	s := suggestion{
		Title:  capitalize(subject),
		Style:  "digital illustration",
		Prompt: fmt.Sprintf("a detailed digital illustration of %s, soft light", subject),
		KeyTokens: []string{
			subject, "soft light", "digital", "detailed", "centered composition",
		},
		CreativeRemixes:    []string{subject + " as pixel art", subject + " in ukiyo-e", subject + " in neon noir"},
		OutpaintingPrompts: []string{"widen the scene left", "reveal the sky", "extend the ground"},
		AnimationPrompts:   []string{"slow camera push", "light flickers", "gentle parallax"},
		MusicPrompts:       []string{"lo-fi beat", "ambient pads", "solo piano"},
		DialoguePrompts:    []string{"a narrator introduces " + subject, "a curious passerby asks", "a quiet reply"},
		StoryPrompts:       []string{"the origin of " + subject, "a day in the life", "an unexpected visitor"},
	}
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal suggestion: %w", err)
	}
	body := strings.Replace(string(b), "\n  ]\n}", ",\n  ]\n}", 1)
	return "```json\n" + body + "\n```", nil
}

// subjectOf derives a readable subject from the media file name.
func subjectOf(mediaURL string) string {
	p := mediaURL
	if u, err := url.Parse(mediaURL); err == nil && u.Path != "" {
		p = u.Path
	}
	name := strings.TrimSuffix(path.Base(p), path.Ext(p))
	name = strings.NewReplacer("-", " ", "_", " ").Replace(name)
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == "/" {
		return "untitled image"
	}
	return name
}

func capitalize(s string) string {
	r := []rune(s)
	return strings.ToUpper(string(r[:1])) + string(r[1:])
}
