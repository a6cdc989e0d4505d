// Package midiout drives a hardware or virtual MIDI output as a playback
// synth.
package midiout

import (
	"strings"
	"sync"
	"time"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/Little6thingys/lyric-mind/internal/logger"
	"github.com/Little6thingys/lyric-mind/internal/playback"
	"github.com/Little6thingys/lyric-mind/internal/score"
)

// MaxChannel is the highest MIDI channel number.
const MaxChannel = 15

type timer interface {
	Stop() bool
}

// voice is one sounding key. gen tells a stale release from the current one.
type voice struct {
	gen   uint64
	timer timer
}

// Synth sends note on/off pairs to a MIDI output.
type Synth struct {
	mu        sync.Mutex
	name      string
	send      func(midi.Message) error
	closeFn   func()
	channel   uint8
	held      map[uint8]voice
	gen       uint64
	afterFunc func(time.Duration, func()) timer
}

var _ playback.Synth = (*Synth)(nil)

func newSynth(name string, send func(midi.Message) error, channel uint8) *Synth {
	return &Synth{
		name:    name,
		send:    send,
		channel: channel,
		held:    map[uint8]voice{},
		afterFunc: func(d time.Duration, f func()) timer {
			return time.AfterFunc(d, f)
		},
	}
}

// Open connects to the first output whose name contains match, or the first
// output when match is empty.
func Open(match string, channel uint8) (*Synth, error) {
	if channel > MaxChannel {
		return nil, fault.New("MIDI channel out of range", ftag.With(playback.KindPlayback),
			fmsg.WithDesc("bad channel", "MIDI channels run from 0 to 15"))
	}

	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fault.Wrap(err, ftag.With(playback.KindPlayback), fmsg.With("rtmididrv"))
	}

	outs, err := drv.Outs()
	if err != nil {
		drv.Close()
		return nil, fault.Wrap(err, ftag.With(playback.KindPlayback), fmsg.With("list MIDI outputs"))
	}

	var found drivers.Out
	for _, o := range outs {
		if match == "" || strings.Contains(strings.ToLower(o.String()), strings.ToLower(match)) {
			found = o
			break
		}
	}
	if found == nil {
		drv.Close()
		return nil, fault.New("no MIDI output matching "+match, ftag.With(playback.KindPlayback),
			fmsg.WithDesc("no output", "No MIDI output matches "+match))
	}

	send, err := midi.SendTo(found)
	if err != nil {
		drv.Close()
		return nil, fault.Wrap(err, ftag.With(playback.KindPlayback), fmsg.With("open "+found.String()))
	}

	s := newSynth(found.String(), send, channel)
	s.closeFn = func() {
		_ = found.Close()
		drv.Close()
	}
	return s, nil
}

func (s *Synth) Name() string {
	return s.name
}

// TriggerAttackRelease plays note now and releases it after dur. A key
// struck again before its release is cut off and restarted; only the latest
// strike's release sends the note off.
func (s *Synth) TriggerAttackRelease(note string, dur time.Duration, _ time.Duration, velocity float64) {
	pitch, ok := score.ParsePitchName(note)
	if !ok {
		logger.Warn("Unknown note name", logger.Fields{"note": note})
		return
	}
	key := uint8(pitch.MIDI())
	vel := uint8(velocity * 127)
	if vel == 0 {
		vel = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.held[key]; ok {
		v.timer.Stop()
		delete(s.held, key)
		_ = s.send(midi.NoteOff(s.channel, key))
	}
	if err := s.send(midi.NoteOn(s.channel, key, vel)); err != nil {
		logger.Warn("MIDI note on failed", logger.Fields{"note": note, "error": err.Error()})
		return
	}
	s.gen++
	gen := s.gen
	s.held[key] = voice{gen: gen, timer: s.afterFunc(dur, func() { s.release(key, gen) })}
}

func (s *Synth) release(key uint8, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.held[key]; !ok || v.gen != gen {
		return
	}
	delete(s.held, key)
	_ = s.send(midi.NoteOff(s.channel, key))
}

// Close silences held notes and closes the output.
func (s *Synth) Close() {
	s.mu.Lock()
	for key, v := range s.held {
		v.timer.Stop()
		_ = s.send(midi.NoteOff(s.channel, key))
	}
	s.held = map[uint8]voice{}
	closeFn := s.closeFn
	s.closeFn = nil
	s.mu.Unlock()

	if closeFn != nil {
		closeFn()
	}
}
