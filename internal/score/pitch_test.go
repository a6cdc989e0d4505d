package score

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestMIDIToPitchRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m := rapid.IntRange(MinMIDI, MaxMIDI).Draw(t, "midi")
		p := MIDIToPitch(m)
		if got := p.MIDI(); got != m {
			t.Fatalf("MIDIToPitch(%d) = %s, back to %d", m, p, got)
		}
		if got := p.Element().MIDI(); got != m {
			t.Fatalf("element of %s encodes to %d, want %d", p, got, m)
		}
	})
}

func TestMIDIToPitchClamps(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m := rapid.IntRange(-500, 500).Draw(t, "midi")
		got := MIDIToPitch(m).MIDI()
		if got < MinMIDI || got > MaxMIDI {
			t.Fatalf("MIDIToPitch(%d) escaped range: %d", m, got)
		}
	})
}

func TestMIDIToPitchTable(t *testing.T) {
	tests := []struct {
		midi int
		want string
	}{
		{0, "C-1"},
		{12, "C0"},
		{60, "C4"},
		{61, "C#4"},
		{67, "G4"},
		{69, "A4"},
		{70, "A#4"},
		{127, "G9"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, MIDIToPitch(tt.midi).String())
		})
	}
}

func TestPitchToMIDIWithFlats(t *testing.T) {
	assert.Equal(t, 70, PitchToMIDI("B", -1, 4))
	assert.Equal(t, 60, PitchToMIDI("c", 0, 4))

	p := &Pitch{Step: "E", Alter: -1, Octave: 4}
	assert.Equal(t, PitchName{Step: "D", Sharp: true, Octave: 4}, p.Name())
}

func TestDurationTable(t *testing.T) {
	assert.Equal(t, 4.0, DurationTicks(TypeWhole))
	assert.Equal(t, 2.0, DurationTicks(TypeHalf))
	assert.Equal(t, 1.0, DurationTicks(TypeQuarter))
	assert.Equal(t, 0.5, DurationTicks(TypeEighth))
	assert.Equal(t, 0.25, DurationTicks(TypeSixteenth))
	assert.Equal(t, 1.0, DurationTicks("breve"))

	assert.Equal(t, TypeSixteenth, TypeForTicks(0.25))
	assert.Equal(t, TypeQuarter, TypeForTicks(3))
	for _, typ := range []string{TypeWhole, TypeHalf, TypeQuarter, TypeEighth, TypeSixteenth} {
		assert.Equal(t, typ, TypeForTicks(DurationTicks(typ)))
	}
}
