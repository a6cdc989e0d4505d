package suggest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Southclaws/fault/ftag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Little6thingys/lyric-mind/internal/llm"
	"github.com/Little6thingys/lyric-mind/internal/metrics"
	"github.com/Little6thingys/lyric-mind/internal/score"
)

// MockProvider is a test implementation of llm.Provider
type MockProvider struct {
	name         string
	generateFunc func(ctx context.Context, request *llm.GenerationRequest) (*llm.GenerationResponse, error)
	requests     []*llm.GenerationRequest
}

func (m *MockProvider) Name() string {
	return m.name
}

func (m *MockProvider) Generate(ctx context.Context, request *llm.GenerationRequest) (*llm.GenerationResponse, error) {
	m.requests = append(m.requests, request)
	if m.generateFunc != nil {
		return m.generateFunc(ctx, request)
	}
	return &llm.GenerationResponse{}, nil
}

func replyWith(raw string) func(context.Context, *llm.GenerationRequest) (*llm.GenerationResponse, error) {
	return func(context.Context, *llm.GenerationRequest) (*llm.GenerationResponse, error) {
		return &llm.GenerationResponse{RawOutput: raw, Usage: llm.Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}}, nil
	}
}

func melodyXML(t *testing.T) string {
	t.Helper()
	doc := score.Blank(score.DefaultBlankOptions())
	doc.MeasureByNumber(1).Notes = []*score.Note{
		{Pitch: score.DefaultPitch.Element(), Duration: 1, Type: score.TypeQuarter},
	}
	return doc.String()
}

func TestStubSuggester(t *testing.T) {
	s := NewStubSuggester()
	xml := "<work-title>Untitled</work-title><work-title>Untitled</work-title>"

	resp, err := s.Suggest(context.Background(), Request{Prompt: "anything", XML: xml})
	require.NoError(t, err)
	require.Len(t, resp.Options, OptionCount)
	assert.Equal(t, "<work-title>Option 1</work-title><work-title>Untitled</work-title>", resp.Options[0])
	assert.Equal(t, "<work-title>Option 2</work-title><work-title>Untitled</work-title>", resp.Options[1])

	resp, err = s.Suggest(context.Background(), Request{XML: "<score/>"})
	require.NoError(t, err)
	assert.Equal(t, []string{"<score/>", "<score/>"}, resp.Options)
}

func TestClient(t *testing.T) {
	var got Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(Response{Options: []string{"A", "B"}})
	}))
	defer server.Close()

	c := NewClient(server.URL, nil)
	resp, err := c.Suggest(context.Background(), Request{Prompt: "p", XML: "x"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, resp.Options)
	assert.Equal(t, Request{Prompt: "p", XML: "x"}, got)
	assert.Equal(t, "remote", c.Name())
}

func TestClientErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
		}},
		{"wrong option count", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"options":["only one"]}`))
		}},
		{"not json", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`<html>`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			_, err := NewClient(server.URL, nil).Suggest(context.Background(), Request{})
			assert.Error(t, err)
		})
	}

	_, err := NewClient("http://127.0.0.1:0/api/llama3", nil).Suggest(context.Background(), Request{})
	assert.Error(t, err)
}

func TestMeasureRange(t *testing.T) {
	tests := []struct {
		prompt     string
		start, end int
	}{
		{"Transpose measures 5-8 up", 5, 8},
		{"Modify Measures 3-6 Rhythm, *, slower", 3, 6},
		{"measure 7–2 please", 2, 7},
		{"make it brighter", 1, 8},
	}
	for _, tt := range tests {
		t.Run(tt.prompt, func(t *testing.T) {
			start, end := MeasureRange(tt.prompt)
			assert.Equal(t, tt.start, start)
			assert.Equal(t, tt.end, end)
		})
	}
}

func TestGlobalInfo(t *testing.T) {
	doc := score.Blank(score.BlankOptions{KeySig: "F", TimeSig: "3/4"})
	assert.Equal(t, "key=F major, time=3/4, tempo=120", GlobalInfo(doc).String())

	doc.FirstAttributes().Key.Mode = "minor"
	doc.FirstAttributes().Key.Fifths = 0
	assert.Equal(t, "A minor", GlobalInfo(doc).Key)
}

func TestExtractCandidates(t *testing.T) {
	plans, clarify, err := ExtractCandidates(`{"candidates":[{"id":"v1","action":"transpose","params":{"semitones":2}}]}`)
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, "transpose", plans[0].Action)
	assert.Empty(t, clarify)

	plans, clarify, err = ExtractCandidates(`{"clarify":"Which measures?"}`)
	require.NoError(t, err)
	assert.Empty(t, plans)
	assert.Equal(t, "Which measures?", clarify)

	_, _, err = ExtractCandidates(`not json`)
	assert.Error(t, err)
}

func TestPlanSuggester(t *testing.T) {
	provider := &MockProvider{
		name: "mock",
		generateFunc: replyWith(`{"candidates":[
			{"id":"v1","action":"transpose","params":{"semitones":2},
			 "secondary_actions":[{"action":"change_tempo","params":{"ratio":0.5}}]},
			{"id":"v2","action":"","params":{}}
		]}`),
	}
	s := NewPlanSuggester(provider, "llama3", false)
	assert.Equal(t, "llm:mock", s.Name())

	resp, err := s.Suggest(context.Background(), Request{Prompt: "Transpose measures 2-3 up", XML: melodyXML(t)})
	require.NoError(t, err)
	require.Len(t, resp.Options, OptionCount)
	assert.Empty(t, resp.Options[1])

	opt, err := score.Parse(resp.Options[0])
	require.NoError(t, err)
	assert.Equal(t, "Modified Melody - Option 1", opt.Title())
	assert.Equal(t, 62, opt.MeasureByNumber(1).Notes[0].Pitch.MIDI())
	assert.Equal(t, 60.0, opt.Tempo())
	assert.Len(t, opt.Measures(), 8)

	require.Len(t, provider.requests, 1)
	req := provider.requests[0]
	assert.Equal(t, "llama3", req.Model)
	assert.Nil(t, req.OutputSchema)
	assert.Contains(t, req.SystemPrompt, "'add_seventh_chords'")
	user := req.InputArray[0]["content"].(string)
	assert.Contains(t, user, "Global info: key=C major, time=4/4, tempo=120")
	assert.Contains(t, user, `<measure number="2">`)
	assert.Contains(t, user, `<measure number="3">`)
	assert.NotContains(t, user, `<measure number="1">`)
	assert.NotContains(t, user, `<measure number="4">`)
}

func TestPlanSuggesterStructuredOutput(t *testing.T) {
	provider := &MockProvider{name: "mock", generateFunc: replyWith(`{"candidates":[]}`)}
	resp, err := NewPlanSuggester(provider, "gpt-4o-mini", true).Suggest(context.Background(), Request{Prompt: "x", XML: melodyXML(t)})
	require.NoError(t, err)
	assert.Equal(t, []string{"", ""}, resp.Options)
	require.NotNil(t, provider.requests[0].OutputSchema)
	assert.Equal(t, "score_modification_plans", provider.requests[0].OutputSchema.Name)
}

func TestPlanSuggesterClarify(t *testing.T) {
	provider := &MockProvider{name: "mock", generateFunc: replyWith(`{"clarify":"Heavier in texture or rhythm?"}`)}
	resp, err := NewPlanSuggester(provider, "llama3", false).Suggest(context.Background(), Request{Prompt: "Make it heavier", XML: melodyXML(t)})
	require.NoError(t, err)
	assert.Equal(t, []string{"", ""}, resp.Options)
	assert.Equal(t, "Heavier in texture or rhythm?", resp.Clarify)
}

func TestPlanSuggesterFailures(t *testing.T) {
	failing := &MockProvider{name: "mock", generateFunc: func(context.Context, *llm.GenerationRequest) (*llm.GenerationResponse, error) {
		return nil, errors.New("connection refused")
	}}
	_, err := NewPlanSuggester(failing, "llama3", false).Suggest(context.Background(), Request{Prompt: "x", XML: melodyXML(t)})
	require.Error(t, err)
	assert.Equal(t, KindUpstream, ftag.Get(err))

	garbled := &MockProvider{name: "mock", generateFunc: replyWith("I think you should")}
	_, err = NewPlanSuggester(garbled, "llama3", false).Suggest(context.Background(), Request{Prompt: "x", XML: melodyXML(t)})
	require.Error(t, err)
	assert.Equal(t, KindUpstream, ftag.Get(err))

	unused := &MockProvider{name: "mock"}
	_, err = NewPlanSuggester(unused, "llama3", false).Suggest(context.Background(), Request{Prompt: "x", XML: "not a score"})
	require.Error(t, err)
	assert.Equal(t, KindInvalidScore, ftag.Get(err))
	assert.Empty(t, unused.requests)
}

func TestFixStepsBeforeParse(t *testing.T) {
	xml := strings.Replace(melodyXML(t), "<step>C</step>", "<step>Bb</step>", 1)
	provider := &MockProvider{name: "mock", generateFunc: replyWith(`{"candidates":[{"id":"v1","action":"transpose","params":{"semitones":0}}]}`)}

	resp, err := NewPlanSuggester(provider, "llama3", false).Suggest(context.Background(), Request{Prompt: "x", XML: xml})
	require.NoError(t, err)
	opt, err := score.Parse(resp.Options[0])
	require.NoError(t, err)
	assert.Equal(t, 70, opt.MeasureByNumber(1).Notes[0].Pitch.MIDI())
}

type countingRecorder struct {
	metrics.Nop
	tokens      int64
	suggestions []bool
}

func (r *countingRecorder) RecordTokenUsage(_ context.Context, _ string, _, _, total int64) {
	r.tokens += total
}

func (r *countingRecorder) RecordSuggestion(_ context.Context, _ string, _ time.Duration, success bool) {
	r.suggestions = append(r.suggestions, success)
}

func TestInstrumentedRecordsOutcome(t *testing.T) {
	rec := &countingRecorder{}
	provider := &MockProvider{name: "mock", generateFunc: replyWith(`{"candidates":[]}`)}
	s := Instrument(NewPlanSuggester(provider, "llama3", false).WithMetrics(rec), rec)
	assert.Equal(t, "llm:mock", s.Name())

	_, err := s.Suggest(context.Background(), Request{Prompt: "x", XML: melodyXML(t)})
	require.NoError(t, err)
	_, err = s.Suggest(context.Background(), Request{Prompt: "x", XML: "broken"})
	require.Error(t, err)

	assert.Equal(t, []bool{true, false}, rec.suggestions)
	assert.Equal(t, int64(15), rec.tokens)
}
