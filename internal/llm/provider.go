package llm

import (
	"context"
)

// Provider defines the interface for LLM providers.
// Providers that support structured output MUST enforce OutputSchema so the
// suggestion planner can decode the reply.
type Provider interface {
	// Generate sends the conversation and returns the raw model output
	Generate(ctx context.Context, request *GenerationRequest) (*GenerationResponse, error)

	// Name returns the provider name (e.g., "openai", "gemini")
	Name() string
}

// GenerationRequest contains all parameters needed for one completion
type GenerationRequest struct {
	Model        string
	SystemPrompt string
	InputArray   []map[string]any
	Temperature  float64
	// Structured output schema; nil asks for plain JSON
	OutputSchema *OutputSchema
}

// OutputSchema defines the expected JSON output structure
type OutputSchema struct {
	Name        string
	Description string
	Schema      map[string]any // JSON Schema object
}

// Usage is the token accounting reported by a provider.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
	TotalTokens  int64 `json:"total_tokens"`
}

// AsMap converts usage into the shape the observability layer records.
func (u Usage) AsMap() map[string]interface{} {
	return map[string]interface{}{
		"input_tokens":  u.InputTokens,
		"output_tokens": u.OutputTokens,
		"total_tokens":  u.TotalTokens,
	}
}

// GenerationResponse contains the result from the LLM
type GenerationResponse struct {
	RawOutput string `json:"-"` // Raw text output, markdown fences stripped
	Usage     Usage  `json:"usage"`
	Model     string `json:"model"`
}

// Message builds one InputArray entry.
func Message(role, content string) map[string]any {
	return map[string]any{"role": role, "content": content}
}
