package score

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlankDefaults(t *testing.T) {
	doc := Blank(BlankOptions{
		MeasureCount: 8,
		TimeSig:      "4/4",
		KeySig:       "C",
		Title:        "Untitled",
		Composer:     "Anonymous",
		Instrument:   "Piano",
	})

	ms := doc.Measures()
	require.Len(t, ms, 8)
	for i, m := range ms {
		assert.Equal(t, i+1, m.Index())
		assert.Empty(t, m.Notes)
		if i > 0 {
			assert.Nil(t, m.Attributes, "measure %d carries attributes", i+1)
		}
	}

	attrs := ms[0].Attributes
	require.NotNil(t, attrs)
	assert.Equal(t, 1.0, attrs.Divisions)
	assert.Equal(t, 0, attrs.Key.Fifths)
	assert.Equal(t, "4", attrs.Time.Beats)
	assert.Equal(t, "4", attrs.Time.BeatType)
	assert.Equal(t, "G", attrs.Clef.Sign)
	assert.Equal(t, 2, attrs.Clef.Line)

	assert.Equal(t, "Untitled", doc.Title())
	assert.Equal(t, "Anonymous", doc.Identification.Creators[0].Name)
	assert.Equal(t, "Piano", doc.PartList.ScoreParts[0].Name)
}

func TestBlankKeyAndTime(t *testing.T) {
	doc := Blank(BlankOptions{MeasureCount: 3, TimeSig: "6/8", KeySig: "Bb"})
	fifths, _ := doc.KeyFifths()
	assert.Equal(t, -2, fifths)

	beats, beatType := doc.TimeSignature()
	assert.Equal(t, 6, beats)
	assert.Equal(t, 8, beatType)
	assert.Equal(t, DefaultTitle, doc.Title())
}

func TestBlankFallbacks(t *testing.T) {
	doc := Blank(BlankOptions{MeasureCount: 2, TimeSig: "waltz", KeySig: "H"})
	fifths, _ := doc.KeyFifths()
	assert.Equal(t, 0, fifths)
	beats, beatType := doc.TimeSignature()
	assert.Equal(t, 4, beats)
	assert.Equal(t, 4, beatType)

	assert.Empty(t, Blank(BlankOptions{}).Measures())
}

func TestKeyNameInvertsKeyFifths(t *testing.T) {
	for name, f := range keyFifths {
		assert.Equal(t, name, KeyName(f))
	}
	assert.Equal(t, DefaultKeySig, KeyName(12))
}

func TestBlankSurvivesMarshal(t *testing.T) {
	doc := Blank(DefaultBlankOptions())
	again, err := Parse(doc.String())
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3", "4", "5", "6", "7", "8"}, again.MeasureNumbers())
}
