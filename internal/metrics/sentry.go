package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
)

const successStatusCodeThreshold = http.StatusBadRequest

// SentryMetrics records metrics as Sentry spans on the request transaction
type SentryMetrics struct{}

func NewSentryMetrics() *SentryMetrics {
	return &SentryMetrics{}
}

// RecordAPIRequest records API request metrics
func (m *SentryMetrics) RecordAPIRequest(ctx context.Context, endpoint string, statusCode int, duration time.Duration) {
	span := sentry.StartSpan(ctx, "api.request")
	defer span.Finish()

	span.SetTag("endpoint", endpoint)
	span.SetTag("status_code", fmt.Sprintf("%d", statusCode))
	span.SetTag("success", fmt.Sprintf("%t", statusCode < successStatusCodeThreshold))
	span.SetData("duration_ms", duration.Milliseconds())

	if statusCode < successStatusCodeThreshold {
		span.Status = sentry.SpanStatusOK
	} else {
		span.Status = sentry.SpanStatusInternalError
	}
	span.Description = fmt.Sprintf("API Request: %s", endpoint)
}

// RecordTokenUsage tags the enclosing transaction with token counts
func (m *SentryMetrics) RecordTokenUsage(ctx context.Context, model string, inputTokens, outputTokens, totalTokens int64) {
	if transaction := sentry.TransactionFromContext(ctx); transaction != nil {
		transaction.SetTag("llm.model", model)
		transaction.SetData("llm.input_tokens", inputTokens)
		transaction.SetData("llm.output_tokens", outputTokens)
		transaction.SetData("llm.total_tokens", totalTokens)
	}

	span := sentry.StartSpan(ctx, "llm.token_usage")
	defer span.Finish()

	span.SetTag("model", model)
	span.SetData("input_tokens", inputTokens)
	span.SetData("output_tokens", outputTokens)
	span.SetData("total_tokens", totalTokens)
	span.Status = sentry.SpanStatusOK
	span.Description = fmt.Sprintf("Token Usage: %s", model)
}

// RecordSuggestion records one suggestion round trip
func (m *SentryMetrics) RecordSuggestion(ctx context.Context, suggester string, duration time.Duration, success bool) {
	span := sentry.StartSpan(ctx, "suggestion.request")
	defer span.Finish()

	span.SetTag("suggester", suggester)
	span.SetTag("success", fmt.Sprintf("%t", success))
	span.SetData("duration_ms", duration.Milliseconds())

	if success {
		span.Status = sentry.SpanStatusOK
	} else {
		span.Status = sentry.SpanStatusInternalError
	}
	span.Description = fmt.Sprintf("Suggestion: %s", suggester)
}
