package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsageAsMap(t *testing.T) {
	m := Usage{InputTokens: 3, OutputTokens: 2, TotalTokens: 5}.AsMap()
	assert.Equal(t, int64(3), m["input_tokens"])
	assert.Equal(t, int64(2), m["output_tokens"])
	assert.Equal(t, int64(5), m["total_tokens"])
}

func TestMessage(t *testing.T) {
	assert.Equal(t, map[string]any{"role": "user", "content": "hi"}, Message("user", "hi"))
}

func TestProviderFactory(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		factory  *ProviderFactory
		model    string
		provider string
		wantName string
		wantErr  bool
	}{
		{"llama by name", NewProviderFactory("", "http://localhost:11434/v1", ""), "", "llama", "openai", false},
		{"llama without base url", NewProviderFactory("key", "", ""), "", "llama", "", true},
		{"llama inferred from model", NewProviderFactory("", "http://localhost:8000/v1", ""), "llama3", "", "openai", false},
		{"openai default", NewProviderFactory("key", "", ""), "gpt-4o-mini", "", "openai", false},
		{"openai missing key", NewProviderFactory("", "", ""), "gpt-4o-mini", "", "", true},
		{"gemini missing key", NewProviderFactory("key", "", ""), "gemini-2.5-flash", "", "", true},
		{"unknown provider", NewProviderFactory("key", "", ""), "", "claude", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := tt.factory.GetProvider(ctx, tt.model, tt.provider)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, p.Name())
		})
	}
}
