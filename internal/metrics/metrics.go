package metrics

import (
	"context"
	"time"
)

// Recorder receives service metrics. Implementations must not block the
// caller.
type Recorder interface {
	RecordAPIRequest(ctx context.Context, endpoint string, statusCode int, duration time.Duration)
	RecordTokenUsage(ctx context.Context, model string, inputTokens, outputTokens, totalTokens int64)
	RecordSuggestion(ctx context.Context, suggester string, duration time.Duration, success bool)
}

// Multi fans every record out to each recorder.
type Multi []Recorder

func (m Multi) RecordAPIRequest(ctx context.Context, endpoint string, statusCode int, duration time.Duration) {
	for _, r := range m {
		r.RecordAPIRequest(ctx, endpoint, statusCode, duration)
	}
}

func (m Multi) RecordTokenUsage(ctx context.Context, model string, inputTokens, outputTokens, totalTokens int64) {
	for _, r := range m {
		r.RecordTokenUsage(ctx, model, inputTokens, outputTokens, totalTokens)
	}
}

func (m Multi) RecordSuggestion(ctx context.Context, suggester string, duration time.Duration, success bool) {
	for _, r := range m {
		r.RecordSuggestion(ctx, suggester, duration, success)
	}
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordAPIRequest(context.Context, string, int, time.Duration) {}
func (Nop) RecordTokenUsage(context.Context, string, int64, int64, int64) {}
func (Nop) RecordSuggestion(context.Context, string, time.Duration, bool) {}
