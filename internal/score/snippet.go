package score

import (
	"regexp"
)

// Snippet returns a copy of d holding only measures start..end of every
// part. The range is clamped to the document. The first kept measure carries
// the score's divisions, key, time and clef so the fragment stands alone.
func (d *Document) Snippet(start, end int) *Document {
	out := d.Clone()
	if out == nil {
		return nil
	}
	ms := out.Measures()
	if len(ms) == 0 {
		return out
	}
	last := ms[len(ms)-1].Index()
	if start < 1 {
		start = 1
	}
	if end > last || end < start {
		end = last
	}

	merged := &Attributes{Divisions: d.Divisions()}
	if a := out.attributes(func(a *Attributes) bool { return a.Key != nil }); a != nil {
		merged.Key = a.Key
	}
	if a := out.attributes(func(a *Attributes) bool { return a.Time != nil }); a != nil {
		merged.Time = a.Time
	}
	if a := out.attributes(func(a *Attributes) bool { return a.Clef != nil }); a != nil {
		merged.Clef = a.Clef
	}

	for _, p := range out.Parts {
		var kept []*Measure
		for _, m := range p.Measures {
			if n := m.Index(); n >= start && n <= end {
				kept = append(kept, m)
			}
		}
		if len(kept) > 0 {
			kept[0].Attributes = merged
		}
		p.Measures = kept
	}
	return out
}

var (
	flatStep  = regexp.MustCompile(`<step>([A-G])b</step>`)
	sharpStep = regexp.MustCompile(`<step>([A-G])#</step>`)
)

// FixSteps rewrites accidentals spelled into the step element ("Bb", "F#")
// as a plain step plus alter.
func FixSteps(text string) string {
	text = flatStep.ReplaceAllString(text, "<step>$1</step><alter>-1</alter>")
	return sharpStep.ReplaceAllString(text, "<step>$1</step><alter>1</alter>")
}
