package transform

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/Little6thingys/lyric-mind/internal/score"
)

// Action names a score transformation a plan may request.
const (
	ActionTranspose        = "transpose"
	ActionChangeTempo      = "change_tempo"
	ActionAdjustRhythm     = "adjust_rhythm"
	ActionModifyDynamics   = "modify_dynamics"
	ActionAddArticulation  = "add_articulation"
	ActionChangeMode       = "change_mode"
	ActionAddChordTone     = "add_chord_tone"
	ActionRepeatSegment    = "repeat_segment"
	ActionAddSeventhChords = "add_seventh_chords"
)

// Actions lists every supported action in the order they are offered to the model.
var Actions = []string{
	ActionTranspose,
	ActionChangeTempo,
	ActionAdjustRhythm,
	ActionModifyDynamics,
	ActionAddArticulation,
	ActionChangeMode,
	ActionAddChordTone,
	ActionRepeatSegment,
	ActionAddSeventhChords,
}

// Params carries action-specific arguments as decoded from JSON.
type Params map[string]any

// Step is a single action with its arguments.
type Step struct {
	Action string `json:"action"`
	Params Params `json:"params,omitempty"`
}

// Target narrows a plan to a set of measures.
type Target struct {
	Measures []int    `json:"measures,omitempty"`
	Voices   []string `json:"voices,omitempty"`
	Staves   []int    `json:"staves,omitempty"`
}

// Plan is one candidate modification: a main action plus follow-ups.
type Plan struct {
	ID               string  `json:"id"`
	Target           Target  `json:"target"`
	Action           string  `json:"action"`
	Params           Params  `json:"params,omitempty"`
	SecondaryActions []Step  `json:"secondary_actions,omitempty"`
	Preview          *string `json:"musicxml_preview,omitempty"`
	Error            *string `json:"error,omitempty"`
}

type actionFunc func(doc *score.Document, p Params)

var registry = map[string]actionFunc{
	ActionTranspose:        Transpose,
	ActionChangeTempo:      ChangeTempo,
	ActionAdjustRhythm:     AdjustRhythm,
	ActionModifyDynamics:   ModifyDynamics,
	ActionAddArticulation:  AddArticulation,
	ActionChangeMode:       ChangeMode,
	ActionAddChordTone:     AddChordTone,
	ActionRepeatSegment:    RepeatSegment,
	ActionAddSeventhChords: AddSeventhChords,
}

// Normalize folds the spellings models tend to produce for an action name
// ("Change Tempo", "change-tempo") into its registry form, "change_tempo".
func Normalize(action string) string {
	action = strings.ToLower(strings.ReplaceAll(action, "-", " "))
	return strings.Join(strings.Fields(action), "_")
}

// Known reports whether action is supported.
func Known(action string) bool {
	_, ok := registry[Normalize(action)]
	return ok
}

// Apply runs the plan's main action and then its secondary actions on a copy
// of doc. Unknown action names are skipped. The copy is retitled with title.
func Apply(doc *score.Document, plan Plan, title string) (*score.Document, error) {
	if plan.Action == "" {
		return nil, fmt.Errorf("plan has no action")
	}
	out := doc.Clone()
	if out == nil {
		return nil, fmt.Errorf("failed to copy score")
	}
	if title != "" {
		out.SetTitle(title)
	}

	steps := append([]Step{{Action: plan.Action, Params: plan.Params}}, plan.SecondaryActions...)
	for _, step := range steps {
		fn, ok := registry[Normalize(step.Action)]
		if !ok {
			log.Printf("⚠️  Skipping unknown action %q", step.Action)
			continue
		}
		fn(out, step.Params)
	}
	return out, nil
}

// Number reads a numeric parameter, accepting JSON numbers and numeric
// strings such as "+1".
func (p Params) Number(key string, fallback float64) float64 {
	v, ok := p[key]
	if !ok || v == nil {
		return fallback
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return fallback
		}
		return f
	default:
		return fallback
	}
}

// FirstNumber returns the first present key among keys.
func (p Params) FirstNumber(fallback float64, keys ...string) float64 {
	for _, k := range keys {
		if _, ok := p[k]; ok {
			return p.Number(k, fallback)
		}
	}
	return fallback
}

// String reads a string parameter; a list yields its first string element.
func (p Params) String(key, fallback string) string {
	switch v := p[key].(type) {
	case string:
		if v != "" {
			return v
		}
	case []any:
		for _, it := range v {
			if s, ok := it.(string); ok && s != "" {
				return s
			}
		}
	}
	return fallback
}
