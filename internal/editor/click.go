package editor

import (
	"sync"
	"time"
)

// DefaultClickWindow separates a single click from the first half of a
// double click.
const DefaultClickWindow = 250 * time.Millisecond

// Pointer is a click on the rendered score in SVG user units. TargetID is
// the id of the innermost element under the pointer.
type Pointer struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	TargetID string  `json:"target_id"`
}

type timer interface {
	Stop() bool
}

// Clicker turns raw clicks into exactly one single or double action per
// gesture. A click schedules the single action after the window; a second
// click inside the window cancels it and runs the double action. A native
// double-click event right after that is absorbed.
type Clicker struct {
	mu        sync.Mutex
	window    time.Duration
	afterFunc func(d time.Duration, f func()) timer
	now       func() time.Time

	single func(Pointer)
	double func(Pointer)

	pending    timer
	generation uint64
	lastDouble time.Time
}

func NewClicker(window time.Duration, single, double func(Pointer)) *Clicker {
	if window <= 0 {
		window = DefaultClickWindow
	}
	return &Clicker{
		window: window,
		afterFunc: func(d time.Duration, f func()) timer {
			return time.AfterFunc(d, f)
		},
		now:    time.Now,
		single: single,
		double: double,
	}
}

// Click records a single click.
func (c *Clicker) Click(p Pointer) {
	c.mu.Lock()
	if c.pending != nil {
		c.pending.Stop()
		c.pending = nil
		c.generation++
		c.lastDouble = c.now()
		c.mu.Unlock()
		c.double(p)
		return
	}

	c.generation++
	gen := c.generation
	c.pending = c.afterFunc(c.window, func() {
		c.mu.Lock()
		if gen != c.generation {
			c.mu.Unlock()
			return
		}
		c.pending = nil
		c.mu.Unlock()
		c.single(p)
	})
	c.mu.Unlock()
}

// DoubleClick records a native double-click event.
func (c *Clicker) DoubleClick(p Pointer) {
	c.mu.Lock()
	if c.pending != nil {
		c.pending.Stop()
		c.pending = nil
		c.generation++
	} else if !c.lastDouble.IsZero() && c.now().Sub(c.lastDouble) <= c.window {
		c.lastDouble = time.Time{}
		c.mu.Unlock()
		return
	}
	c.lastDouble = c.now()
	c.mu.Unlock()
	c.double(p)
}

// Pending reports whether a single click is waiting for its window to close.
func (c *Clicker) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending != nil
}

// Cancel drops a pending single click.
func (c *Clicker) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending != nil {
		c.pending.Stop()
		c.pending = nil
		c.generation++
	}
}
