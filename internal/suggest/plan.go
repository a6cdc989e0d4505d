package suggest

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"

	"github.com/Little6thingys/lyric-mind/internal/llm"
	"github.com/Little6thingys/lyric-mind/internal/logger"
	"github.com/Little6thingys/lyric-mind/internal/metrics"
	"github.com/Little6thingys/lyric-mind/internal/observability"
	"github.com/Little6thingys/lyric-mind/internal/prompt"
	"github.com/Little6thingys/lyric-mind/internal/score"
	"github.com/Little6thingys/lyric-mind/internal/score/transform"
)

// Error kinds reported by the planner.
const (
	KindInvalidScore ftag.Kind = "invalid_score"
	KindUpstream     ftag.Kind = "upstream"
)

const (
	defaultRangeStart = 1
	defaultRangeEnd   = 8

	optionTitleFormat = "Modified Melody - Option %d"
)

var measureRange = regexp.MustCompile(`(?i)measures?\s+(\d+)\s*[-–]\s*(\d+)`)

// MeasureRange reads "measures 3-6" out of a prompt. Without a range it
// returns 1..8.
func MeasureRange(text string) (start, end int) {
	m := measureRange.FindStringSubmatch(text)
	if m == nil {
		return defaultRangeStart, defaultRangeEnd
	}
	start, _ = strconv.Atoi(m[1])
	end, _ = strconv.Atoi(m[2])
	if start > end {
		start, end = end, start
	}
	return start, end
}

// GlobalInfo summarizes key, meter and tempo of a score.
func GlobalInfo(doc *score.Document) prompt.GlobalInfo {
	fifths, mode := doc.KeyFifths()
	tonic := score.KeyName(fifths)
	if mode == "minor" {
		// relative minor sits three fifths clockwise
		tonic = score.KeyName(fifths + 3)
	}
	beats, beatType := doc.TimeSignature()
	return prompt.GlobalInfo{
		Key:           tonic + " " + mode,
		TimeSignature: fmt.Sprintf("%d/%d", beats, beatType),
		Tempo:         doc.Tempo(),
	}
}

// reply is the JSON object the model answers with.
type reply struct {
	Candidates []transform.Plan `json:"candidates"`
	Clarify    string           `json:"clarify"`
}

// ExtractCandidates decodes the model output. A clarify reply yields no
// candidates and the question.
func ExtractCandidates(raw string) ([]transform.Plan, string, error) {
	var r reply
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return nil, "", fmt.Errorf("model output is not JSON: %w", err)
	}
	if len(r.Candidates) > 0 {
		return r.Candidates, "", nil
	}
	return nil, r.Clarify, nil
}

// PlanSuggester asks an LLM for two modification plans and applies each to
// the score with the transform actions.
type PlanSuggester struct {
	provider   llm.Provider
	model      string
	structured bool
	builder    *prompt.Builder
	tracer     *observability.LangfuseClient
	metrics    metrics.Recorder
}

func NewPlanSuggester(provider llm.Provider, model string, structured bool) *PlanSuggester {
	return &PlanSuggester{
		provider:   provider,
		model:      model,
		structured: structured,
		builder:    prompt.NewPromptBuilder(transform.Actions),
		tracer:     observability.GetClient(),
		metrics:    metrics.Nop{},
	}
}

// WithMetrics reports token usage of every call to r.
func (s *PlanSuggester) WithMetrics(r metrics.Recorder) *PlanSuggester {
	s.metrics = r
	return s
}

func (s *PlanSuggester) Name() string {
	return "llm:" + s.provider.Name()
}

func (s *PlanSuggester) Suggest(ctx context.Context, req Request) (*Response, error) {
	startTime := time.Now()

	doc, err := score.Parse(score.FixSteps(req.XML))
	if err != nil {
		return nil, fault.Wrap(err, ftag.With(KindInvalidScore), fmsg.WithDesc("parse score", "The score is not valid MusicXML"))
	}

	start, end := MeasureRange(req.Prompt)
	snippet := doc.Snippet(start, end)
	if snippet == nil {
		return nil, fault.New("failed to cut snippet", ftag.With(KindInvalidScore), fmsg.WithDesc("snippet", "The score could not be prepared"))
	}
	info := GlobalInfo(doc)

	system, err := s.builder.BuildSystemPrompt()
	if err != nil {
		return nil, fault.Wrap(err, ftag.With(KindUpstream))
	}
	input := []map[string]any{
		llm.Message("user", s.builder.BuildUserPrompt(req.Prompt, info, snippet.String())),
	}
	genReq := &llm.GenerationRequest{
		Model:        s.model,
		SystemPrompt: system,
		InputArray:   input,
	}
	if s.structured {
		genReq.OutputSchema = llm.GetSuggestionSchema(transform.Actions)
	}

	trace := s.tracer.StartTrace(ctx, "suggest", map[string]interface{}{
		"provider":      s.provider.Name(),
		"measure_start": start,
		"measure_end":   end,
	})
	defer trace.Finish()
	gen := trace.Generation("plan", nil)
	defer gen.Finish()

	resp, err := s.provider.Generate(ctx, genReq)
	if err != nil {
		gen.SetLevel("ERROR")
		return nil, fault.Wrap(err, ftag.With(KindUpstream), fmsg.WithDesc("generate", "The language model did not answer"))
	}
	gen.LogResponse(s.model, input, resp)
	logger.LogGenerationRequest(ctx, s.model, time.Since(startTime), resp.Usage.AsMap(), logger.Fields{
		"provider": s.provider.Name(),
	})
	s.metrics.RecordTokenUsage(ctx, s.model, resp.Usage.InputTokens, resp.Usage.OutputTokens, resp.Usage.TotalTokens)

	candidates, clarify, err := ExtractCandidates(resp.RawOutput)
	if err != nil {
		return nil, fault.Wrap(err, ftag.With(KindUpstream), fmsg.WithDesc("decode plan", "The language model answered with invalid JSON"))
	}
	if clarify != "" {
		logger.Info("Model asked for clarification", logger.Fields{"clarify": clarify})
	}

	options := make([]string, 0, OptionCount)
	for i, plan := range candidates {
		if i == OptionCount {
			break
		}
		options = append(options, s.applyPlan(doc, plan, i+1))
	}

	return &Response{Options: normalize(options), Clarify: clarify}, nil
}

// applyPlan returns the modified score text, "" when the plan cannot apply.
func (s *PlanSuggester) applyPlan(doc *score.Document, plan transform.Plan, n int) string {
	out, err := transform.Apply(doc, plan, fmt.Sprintf(optionTitleFormat, n))
	if err != nil {
		logger.Warn("Failed to apply plan", logger.Fields{"option": n, "error": err.Error()})
		return ""
	}
	return out.String()
}
