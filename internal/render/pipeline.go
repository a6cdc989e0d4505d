package render

import (
	"sync"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"

	"github.com/Little6thingys/lyric-mind/internal/logger"
	"github.com/Little6thingys/lyric-mind/internal/score"
)

// Rendering is a tagged and highlighted page plus what the editor needs to
// map pointer positions back onto it.
type Rendering struct {
	SVG      string `json:"svg"`
	Tagged   int    `json:"tagged"`
	Measures int    `json:"measures"`
	Staves   []Box  `json:"staves"`
	root     *Node
}

// Root returns the parsed tree the SVG was serialized from.
func (r *Rendering) Root() *Node {
	return r.root
}

// Truncated reports whether fewer groups were tagged than the document has
// measures.
func (r *Rendering) Truncated() bool {
	return r.Tagged < r.Measures
}

// Pipeline runs a document through an Engine and post-processes page 1.
// Engines keep loaded state, so calls are serialized.
type Pipeline struct {
	mu     sync.Mutex
	engine Engine
}

func NewPipeline(engine Engine) *Pipeline {
	return &Pipeline{engine: engine}
}

// Render loads doc, draws page 1, tags measure groups with their source
// numbers and applies the selection overlays.
func (p *Pipeline) Render(doc *score.Document, selected func(int) bool) (*Rendering, error) {
	if doc == nil {
		return nil, fault.New("no score to render", ftag.With(KindRender), fmsg.WithDesc("nil document", "There is no score to render"))
	}
	text, err := doc.Marshal()
	if err != nil {
		return nil, fault.Wrap(err, ftag.With(KindRender))
	}

	p.mu.Lock()
	if err := p.engine.LoadData(string(text), FormatMusicXML); err != nil {
		p.mu.Unlock()
		return nil, err
	}
	svg, err := p.engine.RenderToSVG(1)
	p.mu.Unlock()
	if err != nil {
		return nil, err
	}

	root, err := ParseSVG(svg)
	if err != nil {
		return nil, err
	}

	numbers := doc.MeasureNumbers()
	tagged := TagMeasures(root, numbers)
	if tagged < len(numbers) {
		logger.Warn("Rendered fewer measure groups than the score has", logger.Fields{
			"tagged":   tagged,
			"measures": measureLabel(numbers),
		})
	}
	ApplyHighlights(root, selected)

	return &Rendering{
		SVG:      root.String(),
		Tagged:   tagged,
		Measures: len(numbers),
		Staves:   StaffBoxes(root),
		root:     root,
	}, nil
}

// Highlight reapplies overlays to an already tagged page without touching
// the engine.
func (p *Pipeline) Highlight(r *Rendering, selected func(int) bool) (*Rendering, error) {
	if r == nil {
		return nil, fault.New("nothing rendered yet", ftag.With(KindRender))
	}
	root := r.root
	if root == nil {
		parsed, err := ParseSVG(r.SVG)
		if err != nil {
			return nil, err
		}
		root = parsed
	}
	ApplyHighlights(root, selected)
	out := *r
	out.SVG = root.String()
	out.root = root
	return &out, nil
}

// MIDI renders the document through the engine's sequencer output.
func (p *Pipeline) MIDI(doc *score.Document) ([]byte, error) {
	text, err := doc.Marshal()
	if err != nil {
		return nil, fault.Wrap(err, ftag.With(KindRender))
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.engine.LoadData(string(text), FormatMusicXML); err != nil {
		return nil, err
	}
	return p.engine.RenderToMIDI()
}
