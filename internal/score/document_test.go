package score

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleScore = `<?xml version="1.0" encoding="UTF-8"?>
<score-partwise version="3.1">
  <work><work-title>Etude</work-title></work>
  <part-list><score-part id="P1"><part-name>Violin</part-name></score-part></part-list>
  <part id="P1">
    <measure number="1">
      <attributes>
        <divisions>2</divisions>
        <key><fifths>-1</fifths><mode>minor</mode></key>
        <time><beats>3</beats><beat-type>4</beat-type></time>
        <clef><sign>G</sign><line>2</line></clef>
      </attributes>
      <direction placement="above">
        <direction-type><metronome><beat-unit>quarter</beat-unit><per-minute>90</per-minute></metronome></direction-type>
        <sound tempo="90"/>
      </direction>
      <note><pitch><step>D</step><octave>4</octave></pitch><duration>2</duration><type>quarter</type></note>
      <note><chord/><pitch><step>F</step><octave>4</octave></pitch><duration>2</duration><type>quarter</type></note>
      <note><rest/><duration>4</duration><type>half</type></note>
    </measure>
    <measure number="2">
      <note><pitch><step>A</step><alter>1</alter><octave>4</octave></pitch><duration>6</duration><type>half</type>
        <notations><articulations><staccato/></articulations></notations></note>
    </measure>
  </part>
</score-partwise>`

func TestParseReadsGlobalAttributes(t *testing.T) {
	doc, err := Parse(sampleScore)
	require.NoError(t, err)

	assert.Equal(t, "Etude", doc.Title())
	assert.Equal(t, []string{"1", "2"}, doc.MeasureNumbers())

	beats, beatType := doc.TimeSignature()
	assert.Equal(t, 3, beats)
	assert.Equal(t, 4, beatType)

	fifths, mode := doc.KeyFifths()
	assert.Equal(t, -1, fifths)
	assert.Equal(t, "minor", mode)

	assert.Equal(t, 2.0, doc.Divisions())
	assert.Equal(t, 90.0, doc.Tempo())
}

func TestParseRejectsEmptyAndTimewise(t *testing.T) {
	_, err := Parse("   ")
	assert.Error(t, err)

	_, err = Parse(`<score-timewise version="3.1"></score-timewise>`)
	assert.Error(t, err)
}

func TestDefaultsWithoutAttributes(t *testing.T) {
	doc, err := Parse(`<score-partwise><part id="P1"><measure number="1"/></part></score-partwise>`)
	require.NoError(t, err)

	beats, beatType := doc.TimeSignature()
	assert.Equal(t, 4, beats)
	assert.Equal(t, 4, beatType)
	fifths, mode := doc.KeyFifths()
	assert.Equal(t, 0, fifths)
	assert.Equal(t, "major", mode)
	assert.Equal(t, 1.0, doc.Divisions())
	assert.Equal(t, 120.0, doc.Tempo())
}

func TestMarshalRoundTrip(t *testing.T) {
	doc, err := Parse(sampleScore)
	require.NoError(t, err)

	out, err := doc.Marshal()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "<?xml"))

	again, err := Parse(string(out))
	require.NoError(t, err)

	m2 := again.MeasureByNumber(2)
	require.NotNil(t, m2)
	require.Len(t, m2.Notes, 1)
	assert.Equal(t, []string{"staccato"}, m2.Notes[0].Notations.Articulations.Names())
	assert.Equal(t, 70, m2.Notes[0].Pitch.MIDI())

	m1 := again.MeasureByNumber(1)
	require.NotNil(t, m1)
	require.Len(t, m1.Notes, 3)
	assert.NotNil(t, m1.Notes[1].Chord)
	assert.True(t, m1.Notes[2].IsRest())
}

func TestCloneIsIndependent(t *testing.T) {
	doc, err := Parse(sampleScore)
	require.NoError(t, err)

	c := doc.Clone()
	require.NotNil(t, c)
	c.SetTitle("Changed")
	c.Measures()[0].Notes[0].Pitch.SetMIDI(60)

	assert.Equal(t, "Etude", doc.Title())
	assert.Equal(t, "D", doc.Measures()[0].Notes[0].Pitch.Step)
}

func TestFilledTicksSkipsChordMembers(t *testing.T) {
	doc, err := Parse(sampleScore)
	require.NoError(t, err)

	// quarter + chord quarter + half at divisions 2 -> 1 + 2
	assert.Equal(t, 3.0, doc.MeasureByNumber(1).FilledTicks(doc.Divisions()))
	assert.Equal(t, 3.0, doc.MeasureByNumber(2).FilledTicks(doc.Divisions()))
}

func TestMeasureByNumberMissing(t *testing.T) {
	doc := Blank(DefaultBlankOptions())
	assert.Nil(t, doc.MeasureByNumber(99))
	assert.Equal(t, 8, doc.MeasureByNumber(8).Index())
}

const twoVoiceScore = `<?xml version="1.0" encoding="UTF-8"?>
<score-partwise version="4.0">
  <movement-title>Round</movement-title>
  <work><work-number>Op. 2</work-number><work-title>Canon</work-title></work>
  <part-list>
    <part-group type="start" number="1"/>
    <score-part id="P1"><part-name>Voice</part-name><part-abbreviation>V.</part-abbreviation></score-part>
    <part-group type="stop" number="1"/>
  </part-list>
  <part id="P1">
    <measure number="1" width="320">
      <attributes>
        <divisions>2</divisions>
        <key><fifths>0</fifths></key>
        <time symbol="common"><beats>4</beats><beat-type>4</beat-type></time>
        <staves>1</staves>
        <clef><sign>G</sign><line>2</line></clef>
      </attributes>
      <note default-x="12"><pitch><step>C</step><octave>5</octave></pitch><duration>3</duration><tie type="start"/><voice>1</voice><type>quarter</type><dot/><lyric number="1"><syllabic>single</syllabic><text>la</text></lyric></note>
      <direction placement="above"><direction-type><words>dolce</words></direction-type></direction>
      <note><pitch><step>C</step><octave>5</octave></pitch><duration>1</duration><tie type="stop"/><voice>1</voice><type>eighth</type></note>
      <note><pitch><step>D</step><octave>5</octave></pitch><duration>4</duration><voice>1</voice><type>half</type></note>
      <backup><duration>8</duration></backup>
      <note><pitch><step>E</step><octave>4</octave></pitch><duration>8</duration><voice>2</voice><type>whole</type></note>
      <barline location="right"><bar-style>light-heavy</bar-style></barline>
    </measure>
  </part>
</score-partwise>`

func TestMarshalKeepsUnmodelledChildren(t *testing.T) {
	doc, err := Parse(twoVoiceScore)
	require.NoError(t, err)
	out := doc.String()

	for _, want := range []string{
		"<movement-title>Round</movement-title>",
		"<work-number>Op. 2</work-number>",
		`<part-group type="start" number="1">`,
		"<part-abbreviation>V.</part-abbreviation>",
		`<measure number="1" width="320">`,
		`<time symbol="common">`,
		"<staves>1</staves>",
		`<note default-x="12">`,
		`<tie type="start">`,
		"<voice>2</voice>",
		"<dot>",
		`<lyric number="1"><syllabic>single</syllabic><text>la</text></lyric>`,
		"<backup><duration>8</duration></backup>",
		`<barline location="right"><bar-style>light-heavy</bar-style></barline>`,
	} {
		assert.Contains(t, out, want)
	}

	// schema order inside a note and around the part list
	assert.Less(t, strings.Index(out, "<work-number>"), strings.Index(out, "<work-title>"))
	assert.Less(t, strings.Index(out, "<tie type=\"start\">"), strings.Index(out, "<voice>1</voice>"))
	assert.Less(t, strings.Index(out, "<type>quarter</type>"), strings.Index(out, "<dot>"))
	assert.Less(t, strings.Index(out, "<staves>"), strings.Index(out, "<clef>"))
	assert.Less(t, strings.Index(out, `type="start" number="1"`), strings.Index(out, "<score-part"))
	assert.Less(t, strings.Index(out, "<score-part"), strings.Index(out, `type="stop" number="1"`))

	// the mid-measure direction stays between the first and second notes
	words := strings.Index(out, "<words>dolce</words>")
	assert.Less(t, strings.Index(out, "<lyric"), words)
	assert.Less(t, words, strings.Index(out, "<type>eighth</type>"))
	assert.Less(t, strings.Index(out, "<backup>"), strings.Index(out, "<voice>2</voice>"))
	assert.Greater(t, strings.Index(out, "<barline"), strings.Index(out, "<voice>2</voice>"))

	again, err := Parse(out)
	require.NoError(t, err)
	assert.Equal(t, out, again.String())
}

func TestTimelineFollowsBackup(t *testing.T) {
	doc, err := Parse(twoVoiceScore)
	require.NoError(t, err)
	m := doc.MeasureByNumber(1)

	assert.Equal(t, 4.0, m.FilledTicks(doc.Divisions()))

	var starts []float64
	m.Timeline(doc.Divisions(), func(_ *Note, start float64) {
		starts = append(starts, start)
	})
	assert.Equal(t, []float64{0, 1.5, 2, 0}, starts)
}

func TestAddedNotesKeepTrailingChildrenLast(t *testing.T) {
	doc, err := Parse(twoVoiceScore)
	require.NoError(t, err)
	m := doc.MeasureByNumber(1)

	m.Notes = append(m.Notes, &Note{Pitch: MIDIToPitch(67).Element(), Duration: 2, Type: TypeQuarter})
	out := doc.String()
	assert.Greater(t, strings.Index(out, "<step>G</step>"), strings.Index(out, "<voice>2</voice>"))
	assert.Less(t, strings.Index(out, "<step>G</step>"), strings.Index(out, "<barline"))

	again, err := Parse(out)
	require.NoError(t, err)
	require.Len(t, again.MeasureByNumber(1).Notes, 5)
}

func TestClearNotesDropsBackups(t *testing.T) {
	doc, err := Parse(twoVoiceScore)
	require.NoError(t, err)
	m := doc.MeasureByNumber(1)
	m.ClearNotes()

	out := doc.String()
	assert.NotContains(t, out, "<note")
	assert.NotContains(t, out, "<backup>")
	assert.Contains(t, out, "<words>dolce</words>")
	assert.Contains(t, out, "<barline")
	assert.Equal(t, 0.0, m.FilledTicks(doc.Divisions()))
}

func TestMeasureCloneKeepsExtras(t *testing.T) {
	doc, err := Parse(twoVoiceScore)
	require.NoError(t, err)
	m := doc.MeasureByNumber(1)

	c := m.Clone()
	require.NotNil(t, c)
	c.Notes[0].Pitch.SetMIDI(60)
	assert.Equal(t, "C", m.Notes[0].Pitch.Step)
	assert.Equal(t, 5, m.Notes[0].Pitch.Octave)
	assert.Len(t, c.Extra, len(m.Extra))
	assert.Equal(t, 4.0, c.FilledTicks(2))
}
