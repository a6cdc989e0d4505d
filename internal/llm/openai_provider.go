package llm

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

const (
	// Role constants
	userRole      = "user"
	developerRole = "developer"
	systemRole    = "system"
	assistantRole = "assistant"

	// Provider name
	providerNameOpenAI = "openai"
)

// OpenAIProvider implements the Provider interface on the Chat Completions
// API. Any OpenAI-compatible server works, which is how Llama 3 is reached
// (Ollama, vLLM, Groq, Together).
type OpenAIProvider struct {
	client  *openai.Client
	baseURL string
}

// NewOpenAIProvider creates a provider. An empty baseURL means api.openai.com.
func NewOpenAIProvider(apiKey, baseURL string) *OpenAIProvider {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)
	return &OpenAIProvider{
		client:  &client,
		baseURL: baseURL,
	}
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return providerNameOpenAI
}

// Generate runs one chat completion and returns its text
func (p *OpenAIProvider) Generate(ctx context.Context, request *GenerationRequest) (*GenerationResponse, error) {
	startTime := time.Now()
	log.Printf("🎵 OPENAI GENERATION REQUEST STARTED (Model: %s)", request.Model)

	// Start Sentry transaction
	transaction := sentry.StartTransaction(ctx, "openai.generate")
	defer transaction.Finish()

	transaction.SetTag("model", request.Model)
	transaction.SetTag("provider", providerNameOpenAI)
	transaction.SetTag("structured", fmt.Sprintf("%t", request.OutputSchema != nil))

	params := p.buildRequestParams(request)

	span := transaction.StartChild("openai.api_call")
	resp, err := p.client.Chat.Completions.New(ctx, params)
	apiDuration := time.Since(startTime)
	span.Finish()

	if err != nil {
		log.Printf("❌ OPENAI REQUEST FAILED after %v: %v", apiDuration, err)
		transaction.SetTag("success", "false")
		sentry.CaptureException(err)
		return nil, fmt.Errorf("openai request failed: %w", err)
	}

	log.Printf("⏱️  OPENAI API CALL COMPLETED in %v", apiDuration)

	if len(resp.Choices) == 0 {
		transaction.SetTag("success", "false")
		return nil, fmt.Errorf("openai response did not include any choices")
	}

	textOutput := cleanOutput(resp.Choices[0].Message.Content)
	if textOutput == "" {
		transaction.SetTag("success", "false")
		return nil, fmt.Errorf("openai response did not include any output text")
	}

	usage := Usage{
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}
	logUsageStats(usage)
	log.Printf("✅ OPENAI GENERATION COMPLETED in %v (output: %d chars)", time.Since(startTime), len(textOutput))

	transaction.SetTag("success", "true")
	return &GenerationResponse{
		RawOutput: textOutput,
		Usage:     usage,
		Model:     resp.Model,
	}, nil
}

// buildRequestParams converts a GenerationRequest into chat completion params
func (p *OpenAIProvider) buildRequestParams(request *GenerationRequest) openai.ChatCompletionNewParams {
	messages := []openai.ChatCompletionMessageParamUnion{}
	if request.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(request.SystemPrompt))
	}

	for _, item := range request.InputArray {
		role, hasRole := item["role"].(string)
		content, hasContent := item["content"].(string)
		if !hasRole || !hasContent {
			log.Printf("⚠️  Skipping invalid input item (missing role or content): %v", item)
			continue
		}

		switch role {
		case developerRole, systemRole:
			messages = append(messages, openai.SystemMessage(content))
		case assistantRole:
			messages = append(messages, openai.AssistantMessage(content))
		default:
			messages = append(messages, openai.UserMessage(content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(request.Model),
		Messages: messages,
	}
	if request.Temperature > 0 {
		params.Temperature = openai.Float(request.Temperature)
	}

	if request.OutputSchema != nil {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        request.OutputSchema.Name,
					Description: openai.String(request.OutputSchema.Description),
					Schema:      request.OutputSchema.Schema,
					Strict:      openai.Bool(false),
				},
			},
		}
	} else {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	return params
}

// cleanOutput strips markdown code fences some models wrap JSON in
func cleanOutput(text string) string {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	if cleaned != strings.TrimSpace(text) {
		log.Printf("🧹 Stripped markdown code blocks from output: %d -> %d chars", len(text), len(cleaned))
	}
	return cleaned
}

// logUsageStats logs token usage statistics
func logUsageStats(usage Usage) {
	log.Printf("📊 USAGE: input=%d, output=%d, total=%d",
		usage.InputTokens, usage.OutputTokens, usage.TotalTokens)
}
