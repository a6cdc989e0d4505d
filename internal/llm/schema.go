package llm

// GetSuggestionSchema returns the JSON schema for suggestion plans. A reply
// holds either two candidate plans or a clarifying question; params stay
// open because each action takes its own arguments.
func GetSuggestionSchema(actions []string) *OutputSchema {
	step := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"action": map[string]any{"type": "string", "enum": actions},
			"params": map[string]any{"type": "object"},
		},
		"required": []string{"action"},
	}

	candidate := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"id": map[string]any{"type": "string"},
			"target": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"measures": map[string]any{"type": "array", "items": map[string]any{"type": "integer"}},
					"voices":   map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					"staves":   map[string]any{"type": "array", "items": map[string]any{"type": "integer"}},
				},
			},
			"action":            map[string]any{"type": "string", "enum": actions},
			"params":            map[string]any{"type": "object"},
			"secondary_actions": map[string]any{"type": "array", "items": step},
			"error":             map[string]any{"type": "string"},
		},
		"required": []string{"id", "action", "params"},
	}

	return &OutputSchema{
		Name:        "score_modification_plans",
		Description: "Two candidate score modification plans, or a clarifying question",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"candidates": map[string]any{"type": "array", "items": candidate},
				"clarify":    map[string]any{"type": "string"},
			},
		},
	}
}
