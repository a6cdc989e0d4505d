package llm

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/getsentry/sentry-go"
	"google.golang.org/genai"
)

const (
	providerNameGemini = "gemini"
	mimeTypeJSON       = "application/json"
	geminiUserRole     = "user"
	geminiModelRole    = "model"
)

// GeminiProvider implements the Provider interface using Google's Gemini API
type GeminiProvider struct {
	client *genai.Client
}

// NewGeminiProvider creates a new Gemini provider
func NewGeminiProvider(ctx context.Context, apiKey string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiProvider{
		client: client,
	}, nil
}

// Name returns the provider name
func (p *GeminiProvider) Name() string {
	return providerNameGemini
}

// Generate implements non-streaming generation using Gemini's API
func (p *GeminiProvider) Generate(ctx context.Context, request *GenerationRequest) (*GenerationResponse, error) {
	startTime := time.Now()
	log.Printf("🎵 GEMINI GENERATION REQUEST STARTED (Model: %s)", request.Model)

	transaction := sentry.StartTransaction(ctx, "gemini.generate")
	defer transaction.Finish()

	transaction.SetTag("model", request.Model)
	transaction.SetTag("provider", providerNameGemini)

	contents := p.buildGeminiContents(request.InputArray)
	if len(contents) == 0 {
		transaction.SetTag("success", "false")
		return nil, fmt.Errorf("gemini request has no usable input")
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: mimeTypeJSON,
	}
	if request.SystemPrompt != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: request.SystemPrompt}},
		}
	}
	if request.Temperature > 0 {
		temp := float32(request.Temperature)
		config.Temperature = &temp
	}
	if request.OutputSchema != nil {
		config.ResponseSchema = convertSchemaToGemini(request.OutputSchema.Schema)
	}

	span := transaction.StartChild("gemini.api_call")
	apiStartTime := time.Now()
	result, err := p.client.Models.GenerateContent(ctx, request.Model, contents, config)
	apiDuration := time.Since(apiStartTime)
	span.Finish()

	if err != nil {
		log.Printf("❌ GEMINI REQUEST FAILED after %v: %v", apiDuration, err)
		transaction.SetTag("success", "false")
		sentry.CaptureException(err)
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}

	log.Printf("⏱️  GEMINI API CALL COMPLETED in %v", apiDuration)

	response, err := p.processGeminiResponse(result, request.Model)
	if err != nil {
		transaction.SetTag("success", "false")
		return nil, err
	}

	log.Printf("✅ GEMINI GENERATION COMPLETED in %v", time.Since(startTime))
	transaction.SetTag("success", "true")
	return response, nil
}

// buildGeminiContents converts our input array to Gemini Content format
func (p *GeminiProvider) buildGeminiContents(inputArray []map[string]any) []*genai.Content {
	var contents []*genai.Content

	for _, item := range inputArray {
		role, hasRole := item["role"].(string)
		content, hasContent := item["content"].(string)

		if !hasRole || !hasContent {
			log.Printf("⚠️  Skipping invalid input item (missing role or content): %v", item)
			continue
		}

		// Gemini only knows "user" and "model"; system turns go as user
		geminiRole := geminiUserRole
		if role == assistantRole {
			geminiRole = geminiModelRole
		}

		contents = append(contents, &genai.Content{
			Role:  geminiRole,
			Parts: []*genai.Part{{Text: content}},
		})
	}

	return contents
}

// convertSchemaToGemini maps a JSON Schema object onto genai.Schema. Keys
// Gemini has no equivalent for are dropped.
func convertSchemaToGemini(schema map[string]any) *genai.Schema {
	if schema == nil {
		return nil
	}
	out := &genai.Schema{}

	switch schema["type"] {
	case "object":
		out.Type = genai.TypeObject
	case "array":
		out.Type = genai.TypeArray
	case "string":
		out.Type = genai.TypeString
	case "integer":
		out.Type = genai.TypeInteger
	case "number":
		out.Type = genai.TypeNumber
	case "boolean":
		out.Type = genai.TypeBoolean
	}

	if desc, ok := schema["description"].(string); ok {
		out.Description = desc
	}
	if props, ok := schema["properties"].(map[string]any); ok {
		out.Properties = make(map[string]*genai.Schema, len(props))
		for name, raw := range props {
			if sub, ok := raw.(map[string]any); ok {
				out.Properties[name] = convertSchemaToGemini(sub)
			}
		}
	}
	if items, ok := schema["items"].(map[string]any); ok {
		out.Items = convertSchemaToGemini(items)
	}
	if required, ok := schema["required"].([]string); ok {
		out.Required = required
	}
	if enum, ok := schema["enum"].([]string); ok {
		out.Enum = enum
	}
	return out
}

// processGeminiResponse converts a Gemini response to our GenerationResponse
func (p *GeminiProvider) processGeminiResponse(result *genai.GenerateContentResponse, model string) (*GenerationResponse, error) {
	if result == nil || len(result.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates in Gemini response")
	}

	candidate := result.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return nil, fmt.Errorf("no parts in Gemini response")
	}

	textOutput := cleanOutput(candidate.Content.Parts[0].Text)
	log.Printf("📥 GEMINI RESPONSE: output_length=%d", len(textOutput))
	if textOutput == "" {
		return nil, fmt.Errorf("gemini response did not include any output text")
	}

	var usage Usage
	if result.UsageMetadata != nil {
		usage = Usage{
			InputTokens:  int64(result.UsageMetadata.PromptTokenCount),
			OutputTokens: int64(result.UsageMetadata.CandidatesTokenCount),
			TotalTokens:  int64(result.UsageMetadata.TotalTokenCount),
		}
		logUsageStats(usage)
	}

	return &GenerationResponse{
		RawOutput: textOutput,
		Usage:     usage,
		Model:     model,
	}, nil
}
