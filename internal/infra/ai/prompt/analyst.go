package prompt

import (
	"fmt"
	"strings"

	"github.com/bryanwahyu/remix-lens/internal/domain/analysis"
)

// GetSystemPrompt provides strict directions and schema for JSON output.
func GetSystemPrompt() string {
	return `You are a visual art director. Look at the image and produce one valid JSON object only (no markdown, no commentary). Do not include code fences.

Requirements:
- Output must be a single JSON object with exactly the fields below.
- "title", "style" and "prompt" are non-empty strings. "prompt" is a text-to-image prompt that recreates the image.
- "keyTokens" has exactly 7 short strings naming the defining visual traits.
- Every other field is an array of exactly 3 strings.
- Use straight double quotes and no trailing commas.

Schema (example with empty values):
{
  "title": "<string>",
  "style": "<string>",
  "prompt": "<string>",
  "keyTokens": ["<string>", "<string>", "<string>", "<string>", "<string>", "<string>", "<string>"],
  "creativeRemixes": ["<string>", "<string>", "<string>"],
  "outpaintingPrompts": ["<string>", "<string>", "<string>"],
  "animationPrompts": ["<string>", "<string>", "<string>"],
  "musicPrompts": ["<string>", "<string>", "<string>"],
  "dialoguePrompts": ["<string>", "<string>", "<string>"],
  "storyPrompts": ["<string>", "<string>", "<string>"]
}`
}

// GetUserPrompt builds the text part of the user message sent with the image.
func GetUserPrompt(mediaURL string) string {
	return fmt.Sprintf("Analyze the attached image and respond with the JSON per schema. Fields: %s. Image URL: %s",
		strings.Join(analysis.RequiredFields, ", "), mediaURL)
}
