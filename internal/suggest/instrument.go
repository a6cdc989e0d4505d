package suggest

import (
	"context"
	"time"

	"github.com/Little6thingys/lyric-mind/internal/metrics"
)

// Instrumented records duration and outcome of every suggestion.
type Instrumented struct {
	next    Suggester
	metrics metrics.Recorder
}

func Instrument(next Suggester, recorder metrics.Recorder) *Instrumented {
	return &Instrumented{next: next, metrics: recorder}
}

func (s *Instrumented) Name() string {
	return s.next.Name()
}

func (s *Instrumented) Suggest(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := s.next.Suggest(ctx, req)
	s.metrics.RecordSuggestion(ctx, s.next.Name(), time.Since(start), err == nil)
	return resp, err
}
