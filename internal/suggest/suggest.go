package suggest

import (
	"context"
	"fmt"
	"strings"
)

// OptionCount is the number of options every suggestion response carries.
const OptionCount = 2

// Request is the body of POST /api/llama3.
type Request struct {
	Prompt string `json:"prompt"`
	XML    string `json:"xml"`
}

// Response always holds OptionCount full score documents. An option may be
// empty when it could not be produced. Clarify carries the model's question
// when it found the prompt ambiguous.
type Response struct {
	Options []string `json:"options"`
	Clarify string   `json:"clarify,omitempty"`
}

// Suggester produces alternative versions of a score for a prompt.
type Suggester interface {
	Suggest(ctx context.Context, req Request) (*Response, error)
	Name() string
}

const (
	titlePlaceholder = "<work-title>Untitled</work-title>"
	optionTitle      = "<work-title>Option %d</work-title>"
)

// StubSuggester performs no inference: each option is the input with the
// first untitled work-title renamed to "Option N".
type StubSuggester struct{}

func NewStubSuggester() *StubSuggester {
	return &StubSuggester{}
}

func (s *StubSuggester) Name() string {
	return "stub"
}

func (s *StubSuggester) Suggest(_ context.Context, req Request) (*Response, error) {
	out := make([]string, OptionCount)
	for i := range out {
		out[i] = strings.Replace(req.XML, titlePlaceholder, optionTitleFor(i+1), 1)
	}
	return &Response{Options: out}, nil
}

func optionTitleFor(n int) string {
	return fmt.Sprintf(optionTitle, n)
}

// normalize pads or trims options to OptionCount.
func normalize(options []string) []string {
	out := make([]string, OptionCount)
	copy(out, options)
	return out
}
