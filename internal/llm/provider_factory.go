package llm

import (
	"context"
	"fmt"
	"strings"
)

// Provider names accepted by the factory
const (
	ProviderOpenAI = "openai"
	ProviderLlama  = "llama"
	ProviderGemini = "gemini"
)

// ProviderFactory creates providers based on model name or explicit provider choice
type ProviderFactory struct {
	openaiAPIKey  string
	openaiBaseURL string
	geminiAPIKey  string
}

// NewProviderFactory creates a new provider factory. baseURL points the
// OpenAI client at an OpenAI-compatible server, empty for api.openai.com.
func NewProviderFactory(openaiAPIKey, baseURL, geminiAPIKey string) *ProviderFactory {
	return &ProviderFactory{
		openaiAPIKey:  openaiAPIKey,
		openaiBaseURL: baseURL,
		geminiAPIKey:  geminiAPIKey,
	}
}

// GetProvider returns the appropriate provider for the given model/provider name
func (f *ProviderFactory) GetProvider(ctx context.Context, model, providerName string) (Provider, error) {
	if providerName != "" {
		return f.getProviderByName(ctx, providerName)
	}
	return f.getProviderByModel(ctx, model)
}

// getProviderByName creates a provider by explicit name
func (f *ProviderFactory) getProviderByName(ctx context.Context, providerName string) (Provider, error) {
	switch strings.ToLower(providerName) {
	case ProviderOpenAI:
		if f.openaiAPIKey == "" && f.openaiBaseURL == "" {
			return nil, fmt.Errorf("openai API key not configured")
		}
		return NewOpenAIProvider(f.openaiAPIKey, f.openaiBaseURL), nil

	case ProviderLlama:
		// Self-hosted servers usually ignore the key
		if f.openaiBaseURL == "" {
			return nil, fmt.Errorf("llama base URL not configured")
		}
		return NewOpenAIProvider(f.openaiAPIKey, f.openaiBaseURL), nil

	case ProviderGemini:
		if f.geminiAPIKey == "" {
			return nil, fmt.Errorf("gemini API key not configured")
		}
		return NewGeminiProvider(ctx, f.geminiAPIKey)

	default:
		return nil, fmt.Errorf("unknown provider: %s (allowed: openai, llama, gemini)", providerName)
	}
}

// getProviderByModel infers provider from model name
func (f *ProviderFactory) getProviderByModel(ctx context.Context, model string) (Provider, error) {
	modelLower := strings.ToLower(model)

	switch {
	case strings.HasPrefix(modelLower, "gemini"):
		return f.getProviderByName(ctx, ProviderGemini)
	case strings.Contains(modelLower, "llama"):
		return f.getProviderByName(ctx, ProviderLlama)
	default:
		// Default to OpenAI for unknown models
		return f.getProviderByName(ctx, ProviderOpenAI)
	}
}
