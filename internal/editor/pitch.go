package editor

import (
	"math"

	"github.com/Little6thingys/lyric-mind/internal/render"
	"github.com/Little6thingys/lyric-mind/internal/score"
)

// MapPitch converts a vertical SVG coordinate into a pitch. The staff whose
// vertical extent contains y is used, else the first staff. Its middle line
// is G4 and every half line spacing is one semitone.
func MapPitch(y float64, staves []render.Box) score.PitchName {
	if len(staves) == 0 {
		return score.DefaultPitch
	}
	staff := staves[0]
	for _, b := range staves {
		if b.ContainsY(y) {
			staff = b
			break
		}
	}

	center := staff.Top() + staff.H/2
	diff := int(math.Round((center - y) / (render.LineSpacing / 2.0)))
	return score.MIDIToPitch(score.ClampMIDI(render.ReferenceMIDI + diff))
}
