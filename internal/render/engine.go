package render

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"

	"github.com/Little6thingys/lyric-mind/internal/playback"
	"github.com/Little6thingys/lyric-mind/internal/score"
)

// KindRender tags errors raised while loading or drawing a score.
const KindRender ftag.Kind = "render"

// InputFormat names the text format handed to LoadData.
type InputFormat string

const FormatMusicXML InputFormat = "musicxml"

// Options controls page geometry. Scale is a percentage applied to the
// outer width and height; drawing coordinates stay unscaled.
type Options struct {
	Scale            int  `json:"scale"`
	PageWidth        int  `json:"pageWidth"`
	PageHeight       int  `json:"pageHeight"`
	SVGBoundingBoxes bool `json:"svgBoundingBoxes"`
	AdjustPageHeight bool `json:"adjustPageHeight"`
}

func DefaultOptions() Options {
	return Options{
		Scale:            60,
		PageWidth:        1200,
		PageHeight:       2000,
		SVGBoundingBoxes: true,
		AdjustPageHeight: true,
	}
}

// Engine turns score text into vector graphics and MIDI.
type Engine interface {
	SetOptions(opts Options)
	LoadData(text string, format InputFormat) error
	RenderToSVG(page int) (string, error)
	RenderToMIDI() ([]byte, error)
}

// Layout constants in SVG user units.
const (
	// LineSpacing is the distance between adjacent staff lines.
	LineSpacing = 10
	// ReferenceMIDI sits on the middle staff line.
	ReferenceMIDI = 67

	pageMargin        = 50
	headerHeight      = 60
	systemHeight      = 140
	staffOffset       = 50
	measuresPerSystem = 4
	noteInset         = 20
	staffLines        = 5
	lineThickness     = 1
	noteheadRX        = 6
	noteheadRY        = 4.5
	stemLength        = 30
)

// StaffEngine draws one staff per system with measures laid out left to
// right. Each measure becomes a g.measure group holding a g.staff with its
// five lines and a g.layer with notes; with bounding boxes enabled the
// measure's last child is a g.bounding-box.measure covering its area, so a
// hit on the box still resolves to the enclosing measure.
type StaffEngine struct {
	opts Options
	doc  *score.Document
}

func NewStaffEngine() *StaffEngine {
	return &StaffEngine{opts: DefaultOptions()}
}

func (e *StaffEngine) SetOptions(opts Options) {
	d := DefaultOptions()
	if opts.Scale <= 0 {
		opts.Scale = d.Scale
	}
	if opts.PageWidth <= 2*pageMargin {
		opts.PageWidth = d.PageWidth
	}
	if opts.PageHeight <= headerHeight+systemHeight {
		opts.PageHeight = d.PageHeight
	}
	e.opts = opts
}

func (e *StaffEngine) LoadData(text string, format InputFormat) error {
	if format != FormatMusicXML {
		return fault.New(fmt.Sprintf("unsupported input format %q", format), ftag.With(KindRender))
	}
	doc, err := score.Parse(text)
	if err != nil {
		return fault.Wrap(err, ftag.With(KindRender), fmsg.WithDesc("load score", "The score could not be loaded"))
	}
	e.doc = doc
	return nil
}

func (e *StaffEngine) RenderToMIDI() ([]byte, error) {
	if e.doc == nil {
		return nil, fault.New("no score loaded", ftag.With(KindRender))
	}
	return playback.EncodeMIDI(e.doc)
}

func (e *StaffEngine) systemsPerPage() int {
	n := (e.opts.PageHeight - headerHeight - pageMargin) / systemHeight
	if n < 1 {
		return 1
	}
	return n
}

// PageCount returns the number of pages the loaded score occupies.
func (e *StaffEngine) PageCount() int {
	if e.doc == nil {
		return 0
	}
	systems := (len(e.doc.Measures()) + measuresPerSystem - 1) / measuresPerSystem
	if systems == 0 {
		return 1
	}
	per := e.systemsPerPage()
	if e.opts.AdjustPageHeight {
		return 1
	}
	return (systems + per - 1) / per
}

// RenderToSVG draws a 1-based page. With AdjustPageHeight the whole score
// is one page whose height fits its content.
func (e *StaffEngine) RenderToSVG(page int) (string, error) {
	if e.doc == nil {
		return "", fault.New("no score loaded", ftag.With(KindRender))
	}
	if page < 1 || page > e.PageCount() {
		return "", fault.New(fmt.Sprintf("page %d out of range", page), ftag.With(KindRender))
	}

	measures := e.doc.Measures()
	first, last := 0, len(measures)
	if !e.opts.AdjustPageHeight {
		per := e.systemsPerPage() * measuresPerSystem
		first = (page - 1) * per
		last = min(first+per, len(measures))
	}
	systems := (last - first + measuresPerSystem - 1) / measuresPerSystem

	height := e.opts.PageHeight
	if e.opts.AdjustPageHeight {
		height = headerHeight + max(systems, 1)*systemHeight + pageMargin
	}
	scale := float64(e.opts.Scale) / 100

	svg := &Node{Name: "svg"}
	svg.SetAttr("xmlns", "http://www.w3.org/2000/svg")
	svg.SetAttr("class", "definition-scale")
	svg.SetAttr("width", fmtNum(math.Round(float64(e.opts.PageWidth)*scale)))
	svg.SetAttr("height", fmtNum(math.Round(float64(height)*scale)))
	svg.SetAttr("viewBox", fmt.Sprintf("0 0 %d %d", e.opts.PageWidth, height))

	margin := element("g", "class", "page-margin")
	svg.Append(margin)
	if page == 1 {
		title := element("text", "class", "title", "x", fmtNum(float64(e.opts.PageWidth)/2), "y", "30", "text-anchor", "middle")
		title.Append(&Node{Text: e.doc.Title()})
		margin.Append(title)
	}

	divisions := e.doc.Divisions()
	capacity := e.layoutTicks()
	width := float64(e.opts.PageWidth-2*pageMargin) / measuresPerSystem

	for s := 0; s < systems; s++ {
		sys := element("g", "class", "system", "id", fmt.Sprintf("system-%d", s+1))
		margin.Append(sys)
		top := float64(headerHeight + s*systemHeight + staffOffset)

		for i := 0; i < measuresPerSystem; i++ {
			idx := first + s*measuresPerSystem + i
			if idx >= last {
				break
			}
			x := float64(pageMargin) + float64(i)*width
			m := measures[idx]
			g := e.drawMeasure(m, idx, x, top, width, divisions, capacity)
			if e.opts.SVGBoundingBoxes {
				bb := element("g", "class", "bounding-box measure", "id", fmt.Sprintf("bbox-m%d", idx+1))
				bb.Append(element("rect",
					"x", fmtNum(x), "y", fmtNum(top-LineSpacing),
					"width", fmtNum(width), "height", fmtNum(float64((staffLines+1)*LineSpacing)),
					"fill", "transparent"))
				g.Append(bb)
			}
			sys.Append(g)
		}
	}
	return svg.String(), nil
}

// layoutTicks is the horizontal capacity of a measure in quarter ticks.
func (e *StaffEngine) layoutTicks() float64 {
	beats, beatType := e.doc.TimeSignature()
	return float64(beats) * 4 / float64(beatType)
}

func (e *StaffEngine) drawMeasure(m *score.Measure, idx int, x, top, width, divisions, capacity float64) *Node {
	g := element("g", "class", "measure", "id", fmt.Sprintf("m%d", idx+1))

	staff := element("g", "class", "staff", "id", fmt.Sprintf("m%d-staff", idx+1))
	for l := 0; l < staffLines; l++ {
		y := top + float64(l*LineSpacing) - lineThickness/2.0
		staff.Append(element("rect", "class", "staff-line",
			"x", fmtNum(x), "y", fmtNum(y), "width", fmtNum(width), "height", fmtNum(lineThickness)))
	}
	staff.Append(element("rect", "class", "barline",
		"x", fmtNum(x+width-lineThickness), "y", fmtNum(top), "width", fmtNum(lineThickness),
		"height", fmtNum(float64((staffLines-1)*LineSpacing))))
	g.Append(staff)

	layer := element("g", "class", "layer")
	staff.Append(layer)

	center := top + float64((staffLines-1)*LineSpacing)/2
	filled := m.FilledTicks(divisions)
	span := math.Max(capacity, filled)
	usable := width - 2*noteInset

	j := 0
	m.Timeline(divisions, func(n *score.Note, start float64) {
		j++
		nx := x + noteInset
		if span > 0 {
			nx += start / span * usable
		}
		id := fmt.Sprintf("m%d-n%d", idx+1, j)

		if n.IsRest() {
			rest := element("g", "class", "rest", "id", id)
			rest.Append(element("rect", "x", fmtNum(nx-4), "y", fmtNum(center-5), "width", "8", "height", "10"))
			layer.Append(rest)
			return
		}

		ny := PitchY(center, n.Pitch.MIDI())
		note := element("g", "class", "note", "id", id, "data-pitch", n.Pitch.Name().String())
		note.Append(element("ellipse", "class", "notehead",
			"cx", fmtNum(nx), "cy", fmtNum(ny), "rx", fmtNum(noteheadRX), "ry", fmtNum(noteheadRY)))
		if n.Type != score.TypeWhole {
			note.Append(element("rect", "class", "stem",
				"x", fmtNum(nx+noteheadRX-lineThickness), "y", fmtNum(ny-stemLength),
				"width", fmtNum(lineThickness), "height", fmtNum(stemLength)))
		}
		layer.Append(note)
	})

	if dyn := measureDynamics(m); dyn != "" {
		text := element("text", "class", "dynam", "x", fmtNum(x+noteInset), "y", fmtNum(top+float64(staffLines*LineSpacing)+15))
		text.Append(&Node{Text: dyn})
		g.Append(text)
	}
	return g
}

// PitchY is the vertical position of a MIDI note on a staff whose middle
// line is at center: one semitone per half line spacing.
func PitchY(center float64, midi int) float64 {
	return center - float64(midi-ReferenceMIDI)*LineSpacing/2
}

func measureDynamics(m *score.Measure) string {
	var names []string
	for _, d := range m.Directions {
		for _, t := range d.Types {
			names = append(names, t.Dynamics.Names()...)
		}
	}
	for _, n := range m.Notes {
		if n.Notations != nil {
			names = append(names, n.Notations.Dynamics.Names()...)
		}
	}
	return strings.Join(names, " ")
}

func element(name string, attrs ...string) *Node {
	n := &Node{Name: name}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.SetAttr(attrs[i], attrs[i+1])
	}
	return n
}

// measureLabel is used by the pipeline when reporting a tag count mismatch.
func measureLabel(numbers []string) string {
	if len(numbers) == 0 {
		return "none"
	}
	return numbers[0] + ".." + numbers[len(numbers)-1] + " (" + strconv.Itoa(len(numbers)) + ")"
}
