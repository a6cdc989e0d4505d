package transform

import (
	"math"
	"strconv"
	"strings"

	"github.com/Little6thingys/lyric-mind/internal/score"
)

const (
	defaultTransposeSemitones = 2
	defaultRepeatTimes        = 2
	defaultDynamic            = "mf"
	defaultInterval           = "M3"
	defaultSeventhChord       = "major seventh"
	relativeMinorShift        = 3
	maxFifths                 = 7
	tempoBeatUnit             = "quarter"
)

var dynamicLevels = []string{"pp", "p", "mp", "mf", "f", "ff"}

var intervalSemitones = map[string]int{
	"P1": 0, "m2": 1, "M2": 2, "m3": 3, "M3": 4, "P4": 5, "A4": 6, "d5": 6,
	"P5": 7, "m6": 8, "M6": 9, "d7": 9, "m7": 10, "M7": 11, "P8": 12,
}

var seventhChords = map[string][]int{
	"major seventh":           {0, 4, 7, 11},
	"minor seventh":           {0, 3, 7, 10},
	"dominant seventh":        {0, 4, 7, 10},
	"half-diminished seventh": {0, 3, 6, 10},
	"diminished seventh":      {0, 3, 6, 9},
}

func eachNote(doc *score.Document, fn func(m *score.Measure, n *score.Note)) {
	for _, part := range doc.Parts {
		for _, m := range part.Measures {
			for _, n := range m.Notes {
				fn(m, n)
			}
		}
	}
}

// Transpose shifts every pitched note by params.semitones (default 2).
func Transpose(doc *score.Document, p Params) {
	semitones := int(math.Round(p.Number("semitones", defaultTransposeSemitones)))
	eachNote(doc, func(_ *score.Measure, n *score.Note) {
		if n.Pitch != nil {
			n.Pitch.SetMIDI(n.Pitch.MIDI() + semitones)
		}
	})
}

// ChangeTempo replaces every tempo marking with base*ratio at measure 1.
func ChangeTempo(doc *score.Document, p Params) {
	ratio := p.FirstNumber(1, "ratio", "tempo_ratio")
	if ratio <= 0 {
		ratio = 1
	}
	bpm := math.Round(doc.Tempo() * ratio)

	for _, part := range doc.Parts {
		for _, m := range part.Measures {
			kept := m.Directions[:0]
			for _, d := range m.Directions {
				if isTempoDirection(d) {
					continue
				}
				kept = append(kept, d)
			}
			m.Directions = kept
		}
		if len(part.Measures) == 0 {
			continue
		}
		first := part.Measures[0]
		mark := &score.Direction{
			Placement: "above",
			Types: []score.DirectionType{{
				Metronome: &score.Metronome{
					BeatUnit:  tempoBeatUnit,
					PerMinute: strconv.Itoa(int(bpm)),
				},
			}},
			Sound: &score.Sound{Tempo: bpm},
		}
		first.Directions = append([]*score.Direction{mark}, first.Directions...)
	}
}

func isTempoDirection(d *score.Direction) bool {
	if d.Sound != nil && d.Sound.Tempo > 0 {
		return true
	}
	for _, t := range d.Types {
		if t.Metronome != nil {
			return true
		}
	}
	return false
}

// AdjustRhythm scales every note and rest duration.
func AdjustRhythm(doc *score.Document, p Params) {
	scale := p.FirstNumber(1, "scale", "rhythm_scale")
	if scale <= 0 {
		scale = 1
	}
	divisions := doc.Divisions()
	eachNote(doc, func(_ *score.Measure, n *score.Note) {
		n.Duration *= scale
		n.Type = score.TypeForTicks(n.Ticks(divisions))
	})
}

// ModifyDynamics moves each measure's dynamic up or down the pp..ff ladder
// and leaves exactly one dynamic marking at the start of the measure.
func ModifyDynamics(doc *score.Document, p Params) {
	shift := int(math.Round(p.Number("dynamics_shift", 0)))
	for _, part := range doc.Parts {
		for _, m := range part.Measures {
			base := measureDynamic(m)
			next := defaultDynamic
			if idx := indexOf(dynamicLevels, base); idx >= 0 {
				next = dynamicLevels[clampInt(idx+shift, 0, len(dynamicLevels)-1)]
			}
			stripDynamics(m)
			m.Directions = append([]*score.Direction{{
				Placement: "below",
				Types:     []score.DirectionType{{Dynamics: score.NewMarks(next)}},
			}}, m.Directions...)
		}
	}
}

func measureDynamic(m *score.Measure) string {
	for _, d := range m.Directions {
		for _, t := range d.Types {
			if names := t.Dynamics.Names(); len(names) > 0 {
				return names[0]
			}
		}
	}
	for _, n := range m.Notes {
		if n.Notations == nil {
			continue
		}
		if names := n.Notations.Dynamics.Names(); len(names) > 0 {
			return names[0]
		}
	}
	return defaultDynamic
}

func stripDynamics(m *score.Measure) {
	kept := m.Directions[:0]
	for _, d := range m.Directions {
		types := d.Types[:0]
		for _, t := range d.Types {
			if t.Dynamics != nil {
				continue
			}
			types = append(types, t)
		}
		d.Types = types
		if len(d.Types) == 0 && d.Sound == nil {
			continue
		}
		kept = append(kept, d)
	}
	m.Directions = kept
	for _, n := range m.Notes {
		if n.Notations == nil {
			continue
		}
		n.Notations.Dynamics = nil
		if n.Notations.Articulations == nil && len(n.Notations.Extra) == 0 {
			n.Notations = nil
		}
	}
}

// AddArticulation marks every pitched note staccato or accented. Other
// styles leave the score unchanged.
func AddArticulation(doc *score.Document, p Params) {
	style := p.String("style", p.String("articulations", "staccato"))
	if style != "staccato" && style != "accent" {
		return
	}
	eachNote(doc, func(_ *score.Measure, n *score.Note) {
		if n.Pitch == nil {
			return
		}
		if n.Notations == nil {
			n.Notations = &score.Notations{}
		}
		if n.Notations.Articulations == nil {
			n.Notations.Articulations = &score.Marks{}
		}
		if indexOf(n.Notations.Articulations.Names(), style) >= 0 {
			return
		}
		n.Notations.Articulations.Items = append(n.Notations.Articulations.Items, score.NewMarks(style).Items...)
	})
}

// ChangeMode switches between major and minor: notes move by a minor third
// and measure 1 receives the new key signature. params.to may name a tonic,
// e.g. "a minor".
func ChangeMode(doc *score.Document, p Params) {
	from := strings.ToLower(p.String("from", "major"))
	to := strings.ToLower(p.String("to", "major"))

	curFifths, curMode := doc.KeyFifths()
	tonicFifths := curFifths
	if curMode == "minor" {
		tonicFifths += relativeMinorShift
	}
	mode := to
	if fields := strings.Fields(to); len(fields) == 2 {
		tonic := strings.ToUpper(fields[0][:1]) + fields[0][1:]
		tonicFifths = score.KeyFifthsFor(tonic)
		mode = fields[1]
	}
	if mode != "major" && mode != "minor" {
		mode = "major"
	}

	shift := 0
	switch {
	case from == "major" && mode == "minor":
		shift = -relativeMinorShift
	case from == "minor" && mode == "major":
		shift = relativeMinorShift
	}
	if shift != 0 {
		Transpose(doc, Params{"semitones": float64(shift)})
	}

	fifths := tonicFifths
	if mode == "minor" {
		fifths -= relativeMinorShift
	}
	if attrs := doc.FirstAttributes(); attrs != nil {
		attrs.Key = &score.Key{Fifths: wrapFifths(fifths), Mode: mode}
	}
}

func wrapFifths(f int) int {
	for f > maxFifths {
		f -= 12
	}
	for f < -maxFifths {
		f += 12
	}
	return f
}

// AddChordTone stacks an interval (default M3) above every single note.
func AddChordTone(doc *score.Document, p Params) {
	semis, ok := intervalSemitones[p.String("interval", defaultInterval)]
	if !ok {
		semis = intervalSemitones[defaultInterval]
	}
	addChordTones(doc, []int{0, semis})
}

// AddSeventhChords turns every single note into a seventh chord rooted on it.
func AddSeventhChords(doc *score.Document, p Params) {
	shape, ok := seventhChords[p.String("chord_type", defaultSeventhChord)]
	if !ok {
		shape = seventhChords[defaultSeventhChord]
	}
	addChordTones(doc, shape)
}

func addChordTones(doc *score.Document, shape []int) {
	for _, part := range doc.Parts {
		for _, m := range part.Measures {
			var notes []*score.Note
			for _, n := range m.Notes {
				notes = append(notes, n)
				if n.Pitch == nil || n.Chord != nil {
					continue
				}
				root := n.Pitch.MIDI()
				for _, iv := range shape {
					if iv == 0 {
						continue
					}
					tone := &score.Note{
						Chord:    &score.Empty{},
						Pitch:    score.MIDIToPitch(root + iv).Element(),
						Duration: n.Duration,
						Type:     n.Type,
					}
					notes = append(notes, tone)
				}
			}
			m.Notes = notes
		}
	}
}

// RepeatSegment repeats each part's measures params.times times and
// renumbers them from 1.
func RepeatSegment(doc *score.Document, p Params) {
	times := int(p.Number("times", defaultRepeatTimes))
	if times < 1 {
		times = 1
	}
	for _, part := range doc.Parts {
		var out []*score.Measure
		for t := 0; t < times; t++ {
			for _, m := range part.Measures {
				c := m.Clone()
				if t > 0 {
					c.Attributes = nil
				}
				out = append(out, c)
			}
		}
		for i, m := range out {
			m.Number = strconv.Itoa(i + 1)
		}
		part.Measures = out
	}
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
