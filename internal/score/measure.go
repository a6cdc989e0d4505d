package score

import (
	"encoding/xml"
	"math"
)

// Measure is one bar of a part. Attributes, Directions and Notes are the
// modelled children; anything else, such as barlines, backups or harmony,
// sits in Extra. Parsed children keep their place relative to the notes.
// Children added later go by kind: attributes first, directions before the
// notes, a note right after the note it follows, other elements last.
type Measure struct {
	Number     string
	Attrs      []xml.Attr
	Attributes *Attributes
	Directions []*Direction
	Notes      []*Note
	Extra      []*Element

	layout layout
}

// layout remembers, for every parsed child that is not a note, the note it
// followed. prev chains the notes so a child whose note was removed falls
// back to the note before.
type layout struct {
	slots []slot
	prev  map[*Note]*Note
}

type slot struct {
	item  any
	after *Note
}

const (
	elementBackup  = "backup"
	elementForward = "forward"
)

func (m *Measure) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	*m = Measure{layout: layout{prev: make(map[*Note]*Note)}}
	for _, a := range start.Attr {
		if a.Name.Space == "" && a.Name.Local == "number" {
			m.Number = a.Value
			continue
		}
		m.Attrs = append(m.Attrs, a)
	}

	var last *Note
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.EndElement:
			return nil
		case xml.StartElement:
			item, err := m.decodeChild(d, t)
			if err != nil {
				return err
			}
			if n, ok := item.(*Note); ok {
				m.layout.prev[n] = last
				last = n
				continue
			}
			m.layout.slots = append(m.layout.slots, slot{item: item, after: last})
		}
	}
}

func (m *Measure) decodeChild(d *xml.Decoder, t xml.StartElement) (any, error) {
	switch {
	case t.Name.Local == "note":
		n := &Note{}
		if err := d.DecodeElement(n, &t); err != nil {
			return nil, err
		}
		m.Notes = append(m.Notes, n)
		return n, nil

	case t.Name.Local == "attributes" && m.Attributes == nil:
		a := &Attributes{}
		if err := d.DecodeElement(a, &t); err != nil {
			return nil, err
		}
		m.Attributes = a
		return a, nil

	case t.Name.Local == "direction":
		dir := &Direction{}
		if err := d.DecodeElement(dir, &t); err != nil {
			return nil, err
		}
		m.Directions = append(m.Directions, dir)
		return dir, nil

	default:
		el := &Element{}
		if err := d.DecodeElement(el, &t); err != nil {
			return nil, err
		}
		m.Extra = append(m.Extra, el)
		return el, nil
	}
}

func (m *Measure) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start = xml.StartElement{
		Name: xml.Name{Local: "measure"},
		Attr: append([]xml.Attr{attr("number", m.Number)}, m.Attrs...),
	}
	items := m.Children()
	kids := make([]child, 0, len(items))
	for _, it := range items {
		kids = append(kids, child{name: childName(it), v: it})
	}
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	if err := encodeChildren(e, kids); err != nil {
		return err
	}
	return e.EncodeToken(start.End())
}

func childName(item any) string {
	switch v := item.(type) {
	case *Attributes:
		return "attributes"
	case *Direction:
		return "direction"
	case *Note:
		return "note"
	case *Element:
		return v.Name()
	}
	return ""
}

// Children returns the measure's children in document order.
func (m *Measure) Children() []any {
	notes := make(map[*Note]bool, len(m.Notes))
	for _, n := range m.Notes {
		notes[n] = true
	}
	present := make(map[any]bool)
	if m.Attributes != nil {
		present[m.Attributes] = true
	}
	for _, d := range m.Directions {
		present[d] = true
	}
	for _, el := range m.Extra {
		present[el] = true
	}

	placed := make(map[any]bool)
	var lead []any
	after := make(map[*Note][]any)
	for _, s := range m.layout.slots {
		if !present[s.item] || placed[s.item] {
			continue
		}
		placed[s.item] = true
		anchor := s.after
		for anchor != nil && !notes[anchor] {
			anchor = m.layout.prev[anchor]
		}
		if anchor == nil {
			lead = append(lead, s.item)
		} else {
			after[anchor] = append(after[anchor], s.item)
		}
	}

	out := make([]any, 0, len(present)+len(m.Notes))
	if m.Attributes != nil && !placed[m.Attributes] {
		out = append(out, m.Attributes)
	}
	out = append(out, lead...)
	for _, d := range m.Directions {
		if !placed[d] {
			out = append(out, d)
		}
	}
	// a note added after parsing goes straight after its predecessor, ahead
	// of whatever followed that predecessor
	var pending []any
	for _, n := range m.Notes {
		if _, parsed := m.layout.prev[n]; parsed {
			out = append(out, pending...)
			pending = after[n]
		}
		out = append(out, n)
	}
	out = append(out, pending...)
	for _, el := range m.Extra {
		if !placed[el] {
			out = append(out, el)
		}
	}
	return out
}

// Timeline calls fn for every note with its start in quarter-note ticks
// from the top of the measure, following <backup> and <forward>. It returns
// the furthest point reached.
func (m *Measure) Timeline(divisions float64, fn func(n *Note, start float64)) float64 {
	if divisions <= 0 {
		divisions = defaultDivisions
	}
	var cursor, lastStart, length float64
	for _, it := range m.Children() {
		switch v := it.(type) {
		case *Note:
			start := cursor
			if v.Chord != nil {
				start = lastStart
			} else {
				cursor += v.Ticks(divisions)
			}
			lastStart = start
			if fn != nil {
				fn(v, start)
			}
		case *Element:
			switch v.Name() {
			case elementBackup:
				cursor = math.Max(0, cursor-v.Duration()/divisions)
			case elementForward:
				cursor += v.Duration() / divisions
			}
		}
		length = math.Max(length, cursor)
	}
	return length
}

// ClearNotes removes every note along with the backups and forwards that
// positioned them.
func (m *Measure) ClearNotes() {
	m.Notes = nil
	kept := m.Extra[:0]
	for _, el := range m.Extra {
		if n := el.Name(); n == elementBackup || n == elementForward {
			continue
		}
		kept = append(kept, el)
	}
	m.Extra = kept
}

// Clone returns a deep copy.
func (m *Measure) Clone() *Measure {
	b, err := xml.Marshal(m)
	if err != nil {
		return nil
	}
	var c Measure
	if err := xml.Unmarshal(b, &c); err != nil {
		return nil
	}
	return &c
}
