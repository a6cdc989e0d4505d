package playback

import (
	"sync"
	"testing"
	"time"

	"github.com/Southclaws/fault/ftag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Little6thingys/lyric-mind/internal/score"
)

func testScore() *score.Document {
	doc := score.Blank(score.BlankOptions{MeasureCount: 2})
	m1 := doc.MeasureByNumber(1)
	m1.Directions = append(m1.Directions, &score.Direction{
		Types: []score.DirectionType{{Dynamics: score.NewMarks("f")}},
		Sound: &score.Sound{Tempo: 60},
	})
	m1.Notes = []*score.Note{
		{Pitch: score.MIDIToPitch(60).Element(), Duration: 1, Type: score.TypeQuarter},
		{Chord: &score.Empty{}, Pitch: score.MIDIToPitch(64).Element(), Duration: 1, Type: score.TypeQuarter},
		{Rest: &score.Empty{}, Duration: 1, Type: score.TypeQuarter},
		{Pitch: score.MIDIToPitch(67).Element(), Duration: 2, Type: score.TypeHalf},
	}
	doc.MeasureByNumber(2).Notes = []*score.Note{
		{Pitch: score.MIDIToPitch(61).Element(), Duration: 4, Type: score.TypeWhole},
	}
	return doc
}

func TestEncodeDecodeTiming(t *testing.T) {
	data, err := EncodeMIDI(testScore())
	require.NoError(t, err)

	tracks, err := Decode(data)
	require.NoError(t, err)
	require.Len(t, tracks, 1)

	notes := tracks[0].Notes
	require.Len(t, notes, 4)

	// 60 bpm: one quarter per second
	assert.Equal(t, "C4", notes[0].Name)
	assert.InDelta(t, 0, notes[0].Time, 1e-6)
	assert.InDelta(t, 1, notes[0].Duration, 1e-6)

	assert.Equal(t, 64, notes[1].MIDI)
	assert.InDelta(t, 0, notes[1].Time, 1e-6)

	assert.Equal(t, "G4", notes[2].Name)
	assert.InDelta(t, 2, notes[2].Time, 1e-6)
	assert.InDelta(t, 2, notes[2].Duration, 1e-6)

	assert.Equal(t, "C#4", notes[3].Name)
	assert.InDelta(t, 4, notes[3].Time, 1e-6)
	assert.InDelta(t, 4, notes[3].Duration, 1e-6)

	assert.InDelta(t, 96.0/127, notes[0].Velocity, 1e-6)
}

func TestEncodeEmptyScore(t *testing.T) {
	data, err := EncodeMIDI(score.Blank(score.DefaultBlankOptions()))
	require.NoError(t, err)

	tracks, err := Decode(data)
	require.NoError(t, err)
	assert.Empty(t, tracks)

	_, err = EncodeMIDI(nil)
	assert.Error(t, err)
}

func TestDecodeGarbage(t *testing.T) {
	_, err := Decode([]byte("not a midi file"))
	require.Error(t, err)
	assert.Equal(t, KindPlayback, ftag.Get(err))
}

type fakeTransport struct {
	calls     []string
	scheduled []time.Duration
	fns       []func(time.Duration)
}

func (f *fakeTransport) Cancel()                   { f.calls = append(f.calls, "cancel") }
func (f *fakeTransport) Stop()                     { f.calls = append(f.calls, "stop") }
func (f *fakeTransport) SetPosition(time.Duration) { f.calls = append(f.calls, "position") }
func (f *fakeTransport) Start()                    { f.calls = append(f.calls, "start") }
func (f *fakeTransport) Schedule(fn func(time.Duration), at time.Duration) {
	f.scheduled = append(f.scheduled, at)
	f.fns = append(f.fns, fn)
}

type played struct {
	note string
	dur  time.Duration
	at   time.Duration
}

type fakeSynth struct {
	mu    sync.Mutex
	notes []played
}

func (s *fakeSynth) TriggerAttackRelease(note string, dur, at time.Duration, _ float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes = append(s.notes, played{note: note, dur: dur, at: at})
}

func TestPlayerResetsBeforeScheduling(t *testing.T) {
	tr := &fakeTransport{}
	synth := &fakeSynth{}
	p := NewPlayer(tr, synth)

	n, err := p.Play(testScore())
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []string{"cancel", "stop", "position", "start"}, tr.calls)
	assert.Equal(t, []time.Duration{0, 0, 2 * time.Second, 4 * time.Second}, tr.scheduled)

	tr.fns[2](tr.scheduled[2])
	require.Len(t, synth.notes, 1)
	assert.Equal(t, played{note: "G4", dur: 2 * time.Second, at: 2 * time.Second}, synth.notes[0])
}

func TestPlayerDecodeFailureDoesNotStart(t *testing.T) {
	tr := &fakeTransport{}
	p := NewPlayer(tr, &fakeSynth{})

	_, err := p.PlayMIDI([]byte{0x00, 0x01})
	assert.Error(t, err)
	assert.Empty(t, tr.calls)
}

func TestClockTransportFiresInOrder(t *testing.T) {
	now := time.Unix(0, 0)
	tr := &ClockTransport{now: func() time.Time { return now }}

	var fired []time.Duration
	record := func(at time.Duration) { fired = append(fired, at) }
	tr.Schedule(record, 2*time.Second)
	tr.Schedule(record, 0)
	tr.Schedule(record, time.Second)

	assert.Equal(t, 0, tr.Tick(), "not started")

	tr.SetPosition(0)
	tr.Start()
	assert.Equal(t, 1, tr.Tick())

	now = now.Add(1500 * time.Millisecond)
	assert.Equal(t, 1, tr.Tick())
	assert.Equal(t, 1500*time.Millisecond, tr.Position())

	tr.Stop()
	now = now.Add(10 * time.Second)
	assert.Equal(t, 0, tr.Tick())
	assert.Equal(t, 1500*time.Millisecond, tr.Position())

	assert.Equal(t, []time.Duration{0, time.Second}, fired)
	assert.Equal(t, 1, tr.Pending())
}

func TestClockTransportCancelAndRewind(t *testing.T) {
	now := time.Unix(0, 0)
	tr := &ClockTransport{now: func() time.Time { return now }}

	count := 0
	tr.Schedule(func(time.Duration) { count++ }, time.Second)
	tr.Cancel()
	assert.Equal(t, 0, tr.Pending())

	tr.Schedule(func(time.Duration) { count++ }, time.Second)
	tr.Schedule(func(time.Duration) { count++ }, 3*time.Second)
	tr.SetPosition(2 * time.Second)
	assert.Equal(t, 1, tr.Pending())

	tr.Start()
	now = now.Add(time.Second)
	assert.Equal(t, 1, tr.Tick())
	assert.Equal(t, 1, count)
}

func TestEncodeFollowsBackup(t *testing.T) {
	doc, err := score.Parse(`<score-partwise version="4.0">
  <part-list><score-part id="P1"><part-name>Piano</part-name></score-part></part-list>
  <part id="P1">
    <measure number="1">
      <attributes><divisions>2</divisions></attributes>
      <direction><sound tempo="60"/></direction>
      <note><pitch><step>C</step><octave>5</octave></pitch><duration>4</duration><voice>1</voice><type>half</type></note>
      <note><pitch><step>D</step><octave>5</octave></pitch><duration>4</duration><voice>1</voice><type>half</type></note>
      <backup><duration>8</duration></backup>
      <note><pitch><step>E</step><octave>4</octave></pitch><duration>8</duration><voice>2</voice><type>whole</type></note>
    </measure>
    <measure number="2">
      <note><pitch><step>F</step><octave>4</octave></pitch><duration>8</duration><type>whole</type></note>
    </measure>
  </part>
</score-partwise>`)
	require.NoError(t, err)

	data, err := EncodeMIDI(doc)
	require.NoError(t, err)
	tracks, err := Decode(data)
	require.NoError(t, err)
	require.Len(t, tracks, 1)

	at := map[string]float64{}
	for _, n := range tracks[0].Notes {
		at[n.Name] = n.Time
	}
	assert.InDelta(t, 0, at["C5"], 1e-6)
	assert.InDelta(t, 2, at["D5"], 1e-6)
	assert.InDelta(t, 0, at["E4"], 1e-6)
	assert.InDelta(t, 4, at["F4"], 1e-6)
}
