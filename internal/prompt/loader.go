package prompt

import (
	"strings"

	"github.com/Little6thingys/lyric-mind/pkg/embedded"
)

type Loader struct{}

func NewPromptLoader() *Loader {
	return &Loader{}
}

// GetSystemPrompt loads the suggestion instructions
func (l *Loader) GetSystemPrompt() (string, error) {
	return strings.TrimSpace(string(embedded.SystemPromptTxt)), nil
}

// GetFewShotExamples loads the worked examples shown to the model
func (l *Loader) GetFewShotExamples() (string, error) {
	return strings.TrimSpace(string(embedded.FewShotExamplesTxt)), nil
}
