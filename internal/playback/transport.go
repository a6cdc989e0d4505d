package playback

import (
	"sort"
	"sync"
	"time"
)

// Transport is a scheduler of callbacks against a playback timeline.
type Transport interface {
	Cancel()
	Stop()
	SetPosition(pos time.Duration)
	Schedule(fn func(at time.Duration), at time.Duration)
	Start()
}

// Synth plays a named note ("C#4") for dur, starting at a timeline offset.
type Synth interface {
	TriggerAttackRelease(note string, dur time.Duration, at time.Duration, velocity float64)
}

const defaultTickInterval = 5 * time.Millisecond

type scheduled struct {
	at time.Duration
	fn func(at time.Duration)
}

// ClockTransport fires scheduled callbacks once the wall clock passes their
// timeline position. Tick does the work; Start runs it on a ticker unless
// the tick interval is zero.
type ClockTransport struct {
	mu       sync.Mutex
	now      func() time.Time
	interval time.Duration

	events   []scheduled
	next     int
	position time.Duration
	started  time.Time
	running  bool
	done     chan struct{}
}

func NewClockTransport() *ClockTransport {
	return &ClockTransport{now: time.Now, interval: defaultTickInterval}
}

// Schedule registers fn at timeline position at.
func (t *ClockTransport) Schedule(fn func(at time.Duration), at time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, scheduled{at: at, fn: fn})
	sort.SliceStable(t.events[t.next:], func(i, j int) bool {
		return t.events[t.next+i].at < t.events[t.next+j].at
	})
}

// Cancel drops every scheduled callback.
func (t *ClockTransport) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = nil
	t.next = 0
}

func (t *ClockTransport) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return
	}
	t.position = t.elapsedLocked()
	t.running = false
	if t.done != nil {
		close(t.done)
		t.done = nil
	}
}

// SetPosition moves the timeline. Callbacks before pos will not fire.
func (t *ClockTransport) SetPosition(pos time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.position = pos
	t.started = t.now()
	t.next = sort.Search(len(t.events), func(i int) bool { return t.events[i].at >= pos })
}

func (t *ClockTransport) Position() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.elapsedLocked()
}

func (t *ClockTransport) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Pending returns how many callbacks have not fired yet.
func (t *ClockTransport) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.events) - t.next
}

func (t *ClockTransport) elapsedLocked() time.Duration {
	if !t.running {
		return t.position
	}
	return t.position + t.now().Sub(t.started)
}

func (t *ClockTransport) Start() {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return
	}
	t.running = true
	t.started = t.now()
	if t.interval <= 0 {
		t.mu.Unlock()
		return
	}
	done := make(chan struct{})
	t.done = done
	interval := t.interval
	t.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				t.Tick()
			}
		}
	}()
}

// Tick fires every due callback and returns how many fired.
func (t *ClockTransport) Tick() int {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return 0
	}
	pos := t.elapsedLocked()
	var due []scheduled
	for t.next < len(t.events) && t.events[t.next].at <= pos {
		due = append(due, t.events[t.next])
		t.next++
	}
	t.mu.Unlock()

	for _, ev := range due {
		ev.fn(ev.at)
	}
	return len(due)
}
