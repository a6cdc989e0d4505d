package editor

import (
	"fmt"
	"strings"
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	MsgOptionsReady  = "Here are 2 options for your modification:"
	MsgSuggestFailed = "Error calling Llama3"

	wildcard = "*"
)

// Regions, categories and example requests offered by the chat box.
var (
	Regions        = []string{"Highlighted sections", "Measures x-y", "All"}
	Categories     = []string{"Melody", "Rhythm", "Harmony", "Style"}
	MelodyExamples = []string{
		"Make the melody more cheerful",
		"Raise the pitch by one octave",
		"Make the melody smoother",
	}
)

type ChatMessage struct {
	Role    string    `json:"role"`
	Text    string    `json:"text"`
	Created time.Time `json:"created_at"`
}

// ComposePrompt builds the structured chat request; empty parts become "*".
func ComposePrompt(region, category, example, input string) string {
	or := func(s string) string {
		if strings.TrimSpace(s) == "" {
			return wildcard
		}
		return s
	}
	return fmt.Sprintf("Modify %s %s, %s, %s", or(region), or(category), or(example), input)
}
