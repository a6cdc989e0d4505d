package score

import (
	"fmt"
	"math"
	"strings"
)

const (
	MinMIDI = 0
	MaxMIDI = 127

	semitonesPerOctave = 12
)

// PitchName is a chromatic pitch spelled with sharps only.
type PitchName struct {
	Step   string `json:"step"`
	Sharp  bool   `json:"sharp"`
	Octave int    `json:"octave"`
}

var chromatic = [semitonesPerOctave]PitchName{
	{Step: "C"}, {Step: "C", Sharp: true},
	{Step: "D"}, {Step: "D", Sharp: true},
	{Step: "E"},
	{Step: "F"}, {Step: "F", Sharp: true},
	{Step: "G"}, {Step: "G", Sharp: true},
	{Step: "A"}, {Step: "A", Sharp: true},
	{Step: "B"},
}

var stepSemitones = map[string]int{
	"C": 0, "D": 2, "E": 4, "F": 5, "G": 7, "A": 9, "B": 11,
}

// DefaultPitch is used when no staff is available to map a click against.
var DefaultPitch = PitchName{Step: "C", Octave: 4}

// ClampMIDI limits m to the MIDI note range.
func ClampMIDI(m int) int {
	if m < MinMIDI {
		return MinMIDI
	}
	if m > MaxMIDI {
		return MaxMIDI
	}
	return m
}

// MIDIToPitch spells a MIDI note number; MIDI 0 is C-1.
func MIDIToPitch(m int) PitchName {
	m = ClampMIDI(m)
	p := chromatic[m%semitonesPerOctave]
	p.Octave = m/semitonesPerOctave - 1
	return p
}

// PitchToMIDI converts a step, alteration and octave to a MIDI note number.
// Unknown steps map to C.
func PitchToMIDI(step string, alter float64, octave int) int {
	base := stepSemitones[strings.ToUpper(strings.TrimSpace(step))]
	return (octave+1)*semitonesPerOctave + base + int(math.Round(alter))
}

// MIDI returns the pitch's note number.
func (p PitchName) MIDI() int {
	alter := 0.0
	if p.Sharp {
		alter = 1
	}
	return PitchToMIDI(p.Step, alter, p.Octave)
}

// String renders scientific pitch notation, e.g. "C#4".
func (p PitchName) String() string {
	s := p.Step
	if p.Sharp {
		s += "#"
	}
	return fmt.Sprintf("%s%d", s, p.Octave)
}

// Element converts the name into a MusicXML pitch element.
func (p PitchName) Element() *Pitch {
	el := &Pitch{Step: p.Step, Octave: p.Octave}
	if p.Sharp {
		el.Alter = 1
	}
	return el
}

// MIDI returns the note number of a MusicXML pitch element.
func (p *Pitch) MIDI() int {
	return PitchToMIDI(p.Step, p.Alter, p.Octave)
}

// SetMIDI respells the pitch from a note number.
func (p *Pitch) SetMIDI(m int) {
	*p = *MIDIToPitch(m).Element()
}

// Name returns the sharp spelling of the pitch.
func (p *Pitch) Name() PitchName {
	return MIDIToPitch(p.MIDI())
}

// ParsePitchName reads scientific pitch notation such as "C#4", "Bb3" or
// "G-1". Flats are respelled with sharps.
func ParsePitchName(s string) (PitchName, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return PitchName{}, false
	}
	step := strings.ToUpper(s[:1])
	if _, ok := stepSemitones[step]; !ok {
		return PitchName{}, false
	}
	rest := s[1:]
	alter := 0.0
	switch {
	case strings.HasPrefix(rest, "#"):
		alter, rest = 1, rest[1:]
	case strings.HasPrefix(rest, "b"):
		alter, rest = -1, rest[1:]
	}
	var octave int
	if _, err := fmt.Sscanf(rest, "%d", &octave); err != nil || fmt.Sprint(octave) != rest {
		return PitchName{}, false
	}
	m := PitchToMIDI(step, alter, octave)
	if m < MinMIDI || m > MaxMIDI {
		return PitchName{}, false
	}
	return MIDIToPitch(m), true
}
