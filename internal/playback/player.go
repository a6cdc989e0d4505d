package playback

import (
	"sync"
	"time"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"

	"github.com/Little6thingys/lyric-mind/internal/logger"
	"github.com/Little6thingys/lyric-mind/internal/score"
)

// Player schedules decoded notes onto a synth through a transport.
type Player struct {
	mu        sync.Mutex
	transport Transport
	synth     Synth
}

func NewPlayer(transport Transport, synth Synth) *Player {
	return &Player{transport: transport, synth: synth}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Play encodes doc and schedules it. On failure nothing is scheduled and
// the previous schedule keeps running.
func (p *Player) Play(doc *score.Document) (int, error) {
	data, err := EncodeMIDI(doc)
	if err != nil {
		logger.Error("Playback encode failed", err, nil)
		return 0, err
	}
	return p.PlayMIDI(data)
}

// PlayMIDI cancels any schedule in flight, rewinds to zero, schedules every
// note of data and starts the transport. It returns the number of notes.
func (p *Player) PlayMIDI(data []byte) (int, error) {
	tracks, err := Decode(data)
	if err != nil {
		logger.Error("Playback decode failed", err, nil)
		return 0, err
	}
	if p.transport == nil || p.synth == nil {
		err := fault.New("player has no transport or synth", ftag.With(KindPlayback), fmsg.WithDesc("no output", "Playback is not available"))
		logger.Error("Playback scheduling failed", err, nil)
		return 0, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.transport.Cancel()
	p.transport.Stop()
	p.transport.SetPosition(0)

	count := 0
	for _, tr := range tracks {
		for _, n := range tr.Notes {
			note := n
			p.transport.Schedule(func(at time.Duration) {
				p.synth.TriggerAttackRelease(note.Name, seconds(note.Duration), at, note.Velocity)
			}, seconds(note.Time))
			count++
		}
	}
	p.transport.Start()

	logger.Debug("Playback scheduled", logger.Fields{"notes": count, "tracks": len(tracks)})
	return count, nil
}

// Stop halts the transport and drops the pending schedule.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.transport == nil {
		return
	}
	p.transport.Cancel()
	p.transport.Stop()
}
