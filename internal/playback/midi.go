package playback

import (
	"bytes"
	"math"
	"sort"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/Little6thingys/lyric-mind/internal/score"
)

// KindPlayback tags errors raised while encoding, decoding or scheduling.
const KindPlayback ftag.Kind = "playback"

const (
	TicksPerQuarter = 960

	defaultVelocity = 80
	noteChannel     = 0
)

var dynamicVelocity = map[string]uint8{
	"ppp": 20, "pp": 33, "p": 49, "mp": 64, "mf": 80, "f": 96, "ff": 112, "fff": 127,
}

type timedMessage struct {
	tick uint32
	off  bool
	msg  midi.Message
}

// EncodeMIDI writes doc as a Standard MIDI File: a tempo track with meter
// and tempo, then one note track per part. Chord members start with the
// preceding note; rests only advance time.
func EncodeMIDI(doc *score.Document) ([]byte, error) {
	if doc == nil {
		return nil, fault.New("no score to encode", ftag.With(KindPlayback))
	}

	sm := smf.New()
	sm.TimeFormat = smf.MetricTicks(TicksPerQuarter)

	beats, beatType := doc.TimeSignature()
	var track0 smf.Track
	track0.Add(0, smf.MetaMeter(uint8(beats), uint8(beatType))) //nolint:gosec // time signatures are small
	track0.Add(0, smf.MetaTempo(doc.Tempo()))
	track0.Close(0)
	if err := sm.Add(track0); err != nil {
		return nil, fault.Wrap(err, ftag.With(KindPlayback), fmsg.With("add tempo track"))
	}

	divisions := doc.Divisions()
	for _, part := range doc.Parts {
		events, end := partEvents(part, divisions)
		var track smf.Track
		var last uint32
		for _, ev := range events {
			track.Add(ev.tick-last, ev.msg)
			last = ev.tick
		}
		track.Close(end - last)
		if err := sm.Add(track); err != nil {
			return nil, fault.Wrap(err, ftag.With(KindPlayback), fmsg.With("add note track"))
		}
	}

	var buf bytes.Buffer
	if _, err := sm.WriteTo(&buf); err != nil {
		return nil, fault.Wrap(err, ftag.With(KindPlayback), fmsg.WithDesc("write smf", "Could not build MIDI for playback"))
	}
	return buf.Bytes(), nil
}

func partEvents(part *score.Part, divisions float64) ([]timedMessage, uint32) {
	var events []timedMessage
	var measureStart uint32
	velocity := uint8(defaultVelocity)

	for _, m := range part.Measures {
		for _, d := range m.Directions {
			for _, t := range d.Types {
				if v, ok := velocityFor(t.Dynamics); ok {
					velocity = v
				}
			}
		}
		length := m.Timeline(divisions, func(n *score.Note, at float64) {
			if n.Notations != nil {
				if v, ok := velocityFor(n.Notations.Dynamics); ok {
					velocity = v
				}
			}
			ticks := uint32(math.Round(n.Ticks(divisions) * TicksPerQuarter))
			if n.IsRest() || ticks == 0 {
				return
			}
			start := measureStart + uint32(math.Round(at*TicksPerQuarter))
			key := uint8(score.ClampMIDI(n.Pitch.MIDI())) //nolint:gosec // clamped to 0..127
			events = append(events,
				timedMessage{tick: start, msg: midi.NoteOn(noteChannel, key, velocity)},
				timedMessage{tick: start + ticks, off: true, msg: midi.NoteOff(noteChannel, key)},
			)
		})
		measureStart += uint32(math.Round(length * TicksPerQuarter))
	}

	// offs first so repeated pitches retrigger
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].tick != events[j].tick {
			return events[i].tick < events[j].tick
		}
		return events[i].off && !events[j].off
	})

	end := measureStart
	if n := len(events); n > 0 && events[n-1].tick > end {
		end = events[n-1].tick
	}
	return events, end
}

func velocityFor(marks *score.Marks) (uint8, bool) {
	for _, name := range marks.Names() {
		if v, ok := dynamicVelocity[name]; ok {
			return v, true
		}
	}
	return 0, false
}

// NoteEvent is a note with absolute timing in seconds and a 0..1 velocity.
type NoteEvent struct {
	Name     string  `json:"name"`
	MIDI     int     `json:"midi"`
	Time     float64 `json:"time"`
	Duration float64 `json:"duration"`
	Velocity float64 `json:"velocity"`
}

type Track struct {
	Channel int         `json:"channel"`
	Notes   []NoteEvent `json:"notes"`
}

// Decode reads a Standard MIDI File into per-track note lists. Tracks
// without notes are dropped. Times honour tempo changes.
func Decode(data []byte) ([]Track, error) {
	sm, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, fault.Wrap(err, ftag.With(KindPlayback), fmsg.WithDesc("read smf", "Could not read MIDI for playback"))
	}

	seconds := func(tick int64) float64 {
		return float64(sm.TimeAt(tick)) / 1e6
	}

	var tracks []Track
	for _, tr := range sm.Tracks {
		type held struct {
			tick     int64
			velocity uint8
		}
		open := map[uint16][]held{}
		out := Track{Channel: -1}
		var abs int64

		for _, ev := range tr {
			abs += int64(ev.Delta)
			msg := midi.Message(ev.Message)
			var ch, key, vel uint8
			switch {
			case msg.GetNoteStart(&ch, &key, &vel):
				id := uint16(ch)<<8 | uint16(key)
				open[id] = append(open[id], held{tick: abs, velocity: vel})
			case msg.GetNoteEnd(&ch, &key):
				id := uint16(ch)<<8 | uint16(key)
				stack := open[id]
				if len(stack) == 0 {
					continue
				}
				h := stack[0]
				open[id] = stack[1:]
				start := seconds(h.tick)
				out.Channel = int(ch)
				out.Notes = append(out.Notes, NoteEvent{
					Name:     score.MIDIToPitch(int(key)).String(),
					MIDI:     int(key),
					Time:     start,
					Duration: seconds(abs) - start,
					Velocity: float64(h.velocity) / 127,
				})
			}
		}
		if len(out.Notes) == 0 {
			continue
		}
		sort.SliceStable(out.Notes, func(i, j int) bool { return out.Notes[i].Time < out.Notes[j].Time })
		tracks = append(tracks, out)
	}
	return tracks, nil
}
