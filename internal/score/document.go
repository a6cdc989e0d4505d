package score

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

const (
	defaultVersion   = "3.1"
	defaultBeats     = 4
	defaultBeatType  = 4
	defaultTempo     = 120
	defaultDivisions = 1
)

// Document is a MusicXML score-partwise tree. The elements the editor reads
// or writes are typed; every other child is kept as an Element in its place,
// so a parsed score marshals back with nothing lost.
type Document struct {
	XMLName        xml.Name        `xml:"score-partwise"`
	Version        string          `xml:"version,attr,omitempty"`
	Work           *Work           `xml:"work,omitempty"`
	Identification *Identification `xml:"identification,omitempty"`
	PartList       PartList        `xml:"part-list"`
	Parts          []*Part         `xml:"part"`
	Extra          []*Element      `xml:",any"`
}

var scoreSequence = sequence{
	"work", "movement-number", "movement-title", "identification", "defaults", "credit", "part-list", "part",
}

func (d *Document) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start = xml.StartElement{Name: xml.Name{Local: "score-partwise"}}
	if d.Version != "" {
		start.Attr = append(start.Attr, attr("version", d.Version))
	}
	var kids []child
	if d.Work != nil {
		kids = append(kids, child{name: "work", v: d.Work})
	}
	if d.Identification != nil {
		kids = append(kids, child{name: "identification", v: d.Identification})
	}
	kids = append(kids, child{name: "part-list", v: &d.PartList})
	for _, p := range d.Parts {
		kids = append(kids, child{name: "part", v: p})
	}
	return scoreSequence.encode(e, start, append(kids, extras(d.Extra)...))
}

type Work struct {
	Title string     `xml:"work-title"`
	Extra []*Element `xml:",any"`
}

var workSequence = sequence{"work-number", "work-title", "opus"}

func (w *Work) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	kids := append([]child{{name: "work-title", v: w.Title}}, extras(w.Extra)...)
	return workSequence.encode(e, xml.StartElement{Name: xml.Name{Local: "work"}}, kids)
}

type Identification struct {
	Creators []Creator  `xml:"creator"`
	Extra    []*Element `xml:",any"`
}

type Creator struct {
	Type string `xml:"type,attr,omitempty"`
	Name string `xml:",chardata"`
}

// PartList keeps part groups where they were relative to the score parts.
type PartList struct {
	ScoreParts []ScorePart
	Extra      []*Element

	// anchors[i] is the number of score parts preceding Extra[i].
	anchors []int
}

func (l *PartList) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	*l = PartList{}
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.EndElement:
			return nil
		case xml.StartElement:
			if t.Name.Local == "score-part" {
				var sp ScorePart
				if err := d.DecodeElement(&sp, &t); err != nil {
					return err
				}
				l.ScoreParts = append(l.ScoreParts, sp)
				continue
			}
			el := &Element{}
			if err := d.DecodeElement(el, &t); err != nil {
				return err
			}
			l.Extra = append(l.Extra, el)
			l.anchors = append(l.anchors, len(l.ScoreParts))
		}
	}
}

func (l *PartList) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	groups := make(map[int][]child)
	for i, el := range l.Extra {
		at := len(l.ScoreParts)
		if i < len(l.anchors) && l.anchors[i] < at {
			at = l.anchors[i]
		}
		groups[at] = append(groups[at], child{name: el.Name(), v: el})
	}
	kids := groups[0]
	for i := range l.ScoreParts {
		kids = append(kids, child{name: "score-part", v: &l.ScoreParts[i]})
		kids = append(kids, groups[i+1]...)
	}
	if err := e.EncodeToken(xml.StartElement{Name: xml.Name{Local: "part-list"}}); err != nil {
		return err
	}
	if err := encodeChildren(e, kids); err != nil {
		return err
	}
	return e.EncodeToken(xml.EndElement{Name: xml.Name{Local: "part-list"}})
}

type ScorePart struct {
	ID    string     `xml:"id,attr"`
	Name  string     `xml:"part-name"`
	Extra []*Element `xml:",any"`
}

type Part struct {
	ID       string     `xml:"id,attr"`
	Measures []*Measure `xml:"measure"`
}

type Attributes struct {
	Divisions float64    `xml:"divisions,omitempty"`
	Key       *Key       `xml:"key,omitempty"`
	Time      *Time      `xml:"time,omitempty"`
	Clef      *Clef      `xml:"clef,omitempty"`
	Extra     []*Element `xml:",any"`
}

var attributesSequence = sequence{
	"footnote", "level", "divisions", "key", "time", "staves", "part-symbol", "instruments",
	"clef", "staff-details", "transpose", "for-part", "directive", "measure-style",
}

func (a *Attributes) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	var kids []child
	if a.Divisions > 0 {
		kids = append(kids, child{name: "divisions", v: a.Divisions})
	}
	if a.Key != nil {
		kids = append(kids, child{name: "key", v: a.Key})
	}
	if a.Time != nil {
		kids = append(kids, child{name: "time", v: a.Time})
	}
	if a.Clef != nil {
		kids = append(kids, child{name: "clef", v: a.Clef})
	}
	return attributesSequence.encode(e, xml.StartElement{Name: xml.Name{Local: "attributes"}}, append(kids, extras(a.Extra)...))
}

type Key struct {
	Fifths int    `xml:"fifths"`
	Mode   string `xml:"mode,omitempty"`
}

type Time struct {
	Symbol   string `xml:"symbol,attr,omitempty"`
	Beats    string `xml:"beats"`
	BeatType string `xml:"beat-type"`
}

type Clef struct {
	Number string     `xml:"number,attr,omitempty"`
	Sign   string     `xml:"sign"`
	Line   int        `xml:"line,omitempty"`
	Extra  []*Element `xml:",any"`
}

type Direction struct {
	Placement string          `xml:"placement,attr,omitempty"`
	Attrs     []xml.Attr      `xml:",any,attr"`
	Types     []DirectionType `xml:"direction-type"`
	Sound     *Sound          `xml:"sound,omitempty"`
	Extra     []*Element      `xml:",any"`
}

var directionSequence = sequence{
	"direction-type", "offset", "footnote", "level", "voice", "staff", "sound", "listening",
}

func (d *Direction) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start = xml.StartElement{Name: xml.Name{Local: "direction"}}
	if d.Placement != "" {
		start.Attr = append(start.Attr, attr("placement", d.Placement))
	}
	start.Attr = append(start.Attr, d.Attrs...)

	var kids []child
	for i := range d.Types {
		kids = append(kids, child{name: "direction-type", v: &d.Types[i]})
	}
	if d.Sound != nil {
		kids = append(kids, child{name: "sound", v: d.Sound})
	}
	return directionSequence.encode(e, start, append(kids, extras(d.Extra)...))
}

type DirectionType struct {
	Dynamics  *Marks     `xml:"dynamics,omitempty"`
	Metronome *Metronome `xml:"metronome,omitempty"`
	Extra     []*Element `xml:",any"`
}

type Metronome struct {
	Attrs     []xml.Attr `xml:",any,attr"`
	BeatUnit  string     `xml:"beat-unit"`
	PerMinute string     `xml:"per-minute"`
}

type Sound struct {
	Tempo float64    `xml:"tempo,attr,omitempty"`
	Attrs []xml.Attr `xml:",any,attr"`
	Extra []*Element `xml:",any"`
}

// Note is a pitched note or a rest. Chord is set on the second and later
// notes of a chord; those share the start time of the preceding note.
type Note struct {
	Attrs     []xml.Attr `xml:",any,attr"`
	Chord     *Empty     `xml:"chord,omitempty"`
	Pitch     *Pitch     `xml:"pitch,omitempty"`
	Rest      *Empty     `xml:"rest,omitempty"`
	Duration  float64    `xml:"duration"`
	Type      string     `xml:"type,omitempty"`
	Notations *Notations `xml:"notations,omitempty"`
	Extra     []*Element `xml:",any"`
}

var noteSequence = sequence{
	"grace", "cue", "chord", "pitch", "unpitched", "rest", "duration", "tie", "instrument",
	"footnote", "level", "voice", "type", "dot", "accidental", "time-modification", "stem",
	"notehead", "notehead-text", "staff", "beam", "notations", "lyric", "play", "listen",
}

func (n *Note) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start = xml.StartElement{Name: xml.Name{Local: "note"}, Attr: n.Attrs}

	var kids []child
	if n.Chord != nil {
		kids = append(kids, child{name: "chord", v: n.Chord})
	}
	if n.Pitch != nil {
		kids = append(kids, child{name: "pitch", v: n.Pitch})
	}
	if n.Rest != nil {
		kids = append(kids, child{name: "rest", v: n.Rest})
	}
	kids = append(kids, child{name: "duration", v: n.Duration})
	kids = append(kids, textChild("type", n.Type)...)
	if n.Notations != nil {
		kids = append(kids, child{name: "notations", v: n.Notations})
	}
	return noteSequence.encode(e, start, append(kids, extras(n.Extra)...))
}

type Empty struct{}

type Pitch struct {
	Step   string  `xml:"step"`
	Alter  float64 `xml:"alter,omitempty"`
	Octave int     `xml:"octave"`
}

type Notations struct {
	Dynamics      *Marks     `xml:"dynamics,omitempty"`
	Articulations *Marks     `xml:"articulations,omitempty"`
	Extra         []*Element `xml:",any"`
}

// Marks is a container of marker elements such as <mf/> or <staccato/>.
type Marks struct {
	Attrs []xml.Attr `xml:",any,attr"`
	Items []Mark     `xml:",any"`
}

type Mark struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Text    string     `xml:",chardata"`
}

// NewMarks builds a container holding the named markers.
func NewMarks(names ...string) *Marks {
	m := &Marks{}
	for _, n := range names {
		m.Items = append(m.Items, Mark{XMLName: xml.Name{Local: n}})
	}
	return m
}

// Names lists the marker element names.
func (m *Marks) Names() []string {
	if m == nil {
		return nil
	}
	out := make([]string, 0, len(m.Items))
	for _, it := range m.Items {
		out = append(out, it.XMLName.Local)
	}
	return out
}

// Parse decodes MusicXML text (partwise only).
func Parse(text string) (*Document, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("empty score document")
	}
	var doc Document
	dec := xml.NewDecoder(strings.NewReader(text))
	dec.Strict = false
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse score: %w", err)
	}
	if doc.XMLName.Local != "score-partwise" {
		return nil, fmt.Errorf("unsupported score root element %q", doc.XMLName.Local)
	}
	return &doc, nil
}

// Marshal encodes the document with an XML header.
func (d *Document) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(d); err != nil {
		return nil, fmt.Errorf("failed to encode score: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// String returns the serialized document, or "" if encoding fails.
func (d *Document) String() string {
	b, err := d.Marshal()
	if err != nil {
		return ""
	}
	return string(b)
}

// Clone returns a deep copy.
func (d *Document) Clone() *Document {
	b, err := d.Marshal()
	if err != nil {
		return nil
	}
	c, err := Parse(string(b))
	if err != nil {
		return nil
	}
	return c
}

// Measures returns the measures of the first part in document order.
func (d *Document) Measures() []*Measure {
	if d == nil || len(d.Parts) == 0 {
		return nil
	}
	return d.Parts[0].Measures
}

// MeasureByNumber finds the first measure whose number attribute is n.
func (d *Document) MeasureByNumber(n int) *Measure {
	want := strconv.Itoa(n)
	for _, m := range d.Measures() {
		if strings.TrimSpace(m.Number) == want {
			return m
		}
	}
	return nil
}

// MeasureNumbers returns the number attribute of every measure in document
// order. Measures without a number are skipped.
func (d *Document) MeasureNumbers() []string {
	var out []string
	for _, m := range d.Measures() {
		if n := strings.TrimSpace(m.Number); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// Index returns the numeric measure number, or 0 when it is not an integer.
func (m *Measure) Index() int {
	n, err := strconv.Atoi(strings.TrimSpace(m.Number))
	if err != nil {
		return 0
	}
	return n
}

func (d *Document) Title() string {
	if d.Work == nil {
		return ""
	}
	return d.Work.Title
}

func (d *Document) SetTitle(title string) {
	if d.Work == nil {
		d.Work = &Work{}
	}
	d.Work.Title = title
}

// attributes returns the first attributes block of the first part that
// satisfies pick.
func (d *Document) attributes(pick func(*Attributes) bool) *Attributes {
	for _, m := range d.Measures() {
		if m.Attributes != nil && pick(m.Attributes) {
			return m.Attributes
		}
	}
	return nil
}

// TimeSignature returns the first time signature, 4/4 when there is none.
func (d *Document) TimeSignature() (beats, beatType int) {
	a := d.attributes(func(a *Attributes) bool { return a.Time != nil })
	if a == nil {
		return defaultBeats, defaultBeatType
	}
	b, errB := strconv.Atoi(strings.TrimSpace(a.Time.Beats))
	t, errT := strconv.Atoi(strings.TrimSpace(a.Time.BeatType))
	if errB != nil || errT != nil || b <= 0 || t <= 0 {
		return defaultBeats, defaultBeatType
	}
	return b, t
}

// KeyFifths returns the first key signature as fifths and mode.
func (d *Document) KeyFifths() (fifths int, mode string) {
	a := d.attributes(func(a *Attributes) bool { return a.Key != nil })
	if a == nil {
		return 0, "major"
	}
	mode = a.Key.Mode
	if mode == "" {
		mode = "major"
	}
	return a.Key.Fifths, mode
}

// Divisions returns the duration units per quarter note.
func (d *Document) Divisions() float64 {
	a := d.attributes(func(a *Attributes) bool { return a.Divisions > 0 })
	if a == nil {
		return defaultDivisions
	}
	return a.Divisions
}

// Tempo returns the first sound tempo in quarter notes per minute.
func (d *Document) Tempo() float64 {
	for _, m := range d.Measures() {
		for _, dir := range m.Directions {
			if dir.Sound != nil && dir.Sound.Tempo > 0 {
				return dir.Sound.Tempo
			}
		}
	}
	return defaultTempo
}

// FirstAttributes returns measure 1's attributes block, creating it if needed.
func (d *Document) FirstAttributes() *Attributes {
	ms := d.Measures()
	if len(ms) == 0 {
		return nil
	}
	if ms[0].Attributes == nil {
		ms[0].Attributes = &Attributes{}
	}
	return ms[0].Attributes
}

// Ticks returns the note length in quarter-note ticks.
func (n *Note) Ticks(divisions float64) float64 {
	if divisions <= 0 {
		divisions = defaultDivisions
	}
	return n.Duration / divisions
}

func (n *Note) IsRest() bool {
	return n.Rest != nil || n.Pitch == nil
}

// FilledTicks is the length of a measure in quarter-note ticks: the
// furthest point any voice reaches. Chord members are counted once.
func (m *Measure) FilledTicks(divisions float64) float64 {
	return m.Timeline(divisions, nil)
}
