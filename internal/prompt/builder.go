package prompt

import (
	"fmt"
	"strings"
)

const actionsPlaceholder = "{{ACTIONS}}"

// GlobalInfo describes the whole score to the model.
type GlobalInfo struct {
	Key           string
	TimeSignature string
	Tempo         float64
}

func (g GlobalInfo) String() string {
	return fmt.Sprintf("key=%s, time=%s, tempo=%g", g.Key, g.TimeSignature, g.Tempo)
}

// Builder builds prompts for the suggestion planner
type Builder struct {
	loader  *Loader
	actions []string
}

// NewPromptBuilder creates a builder that offers the given action names.
func NewPromptBuilder(actions []string) *Builder {
	return &Builder{loader: NewPromptLoader(), actions: actions}
}

// BuildSystemPrompt returns the instructions with the action list filled in
// and the worked examples appended.
func (b *Builder) BuildSystemPrompt() (string, error) {
	system, err := b.loader.GetSystemPrompt()
	if err != nil {
		return "", err
	}
	examples, err := b.loader.GetFewShotExamples()
	if err != nil {
		return "", err
	}

	quoted := make([]string, len(b.actions))
	for i, a := range b.actions {
		quoted[i] = "'" + a + "'"
	}
	system = strings.ReplaceAll(system, actionsPlaceholder, "["+strings.Join(quoted, ", ")+"]")

	return system + "\n\n" + examples, nil
}

// BuildUserPrompt assembles the concrete inputs for one request.
func (b *Builder) BuildUserPrompt(instruction string, info GlobalInfo, snippet string) string {
	var sb strings.Builder
	sb.WriteString("Instruction: ")
	sb.WriteString(strings.TrimSpace(instruction))
	sb.WriteString("\nApply every modification the instruction asks for; partial plans are rejected.")
	sb.WriteString("\nGlobal info: ")
	sb.WriteString(info.String())
	sb.WriteString("\nMusicXML snippet:\n")
	sb.WriteString(strings.TrimSpace(snippet))
	sb.WriteString("\n\nReminder: every \"action\" value, secondary ones included, must be one of the allowed names.")
	sb.WriteString("\n# END OF INPUT - OUTPUT JSON ONLY\n")
	return sb.String()
}
