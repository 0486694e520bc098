// Package timectrl paces the optional live display of a running
// simulation against wall-clock time. It has no influence on the
// simulation itself: the event stream a core produces is governed
// entirely by cputime.Time and is identical whether or not a Pacer is
// attached. Pacer only slows down how fast schedgen's caller is allowed
// to print what already happened.
package timectrl

import (
	"sync"
	"time"

	"github.com/z33ky/schedsi/cputime"
)

// Mode selects how a Pacer relates simulated time to wall-clock time.
type Mode int

const (
	// Accelerated never sleeps: steps proceed as fast as the caller drives
	// them. This is the default for batch runs.
	Accelerated Mode = iota
	// RealTime sleeps so that one unit of cputime.Time corresponds to
	// Unit of wall-clock time, letting a human watch a run unfold live.
	RealTime
)

// Pacer converts elapsed simulated time into wall-clock delay. A caller
// driving world.World.Step in a loop calls Wait after each step with the
// amount of simulated time that step consumed; Wait blocks long enough
// that, averaged out, simulated and wall-clock time advance at the same
// rate under RealTime, or not at all under Accelerated.
type Pacer struct {
	mu   sync.Mutex
	mode Mode
	unit time.Duration

	start     time.Time
	simElapsed cputime.Time
}

// NewPacer constructs a Pacer. unit is the wall-clock duration one unit of
// simulated time corresponds to under RealTime; it is ignored under
// Accelerated.
func NewPacer(mode Mode, unit time.Duration) *Pacer {
	return &Pacer{mode: mode, unit: unit, start: time.Now(), simElapsed: cputime.Zero}
}

// Wait blocks, if the Pacer is in RealTime mode, until the wall clock has
// caught up to the simulated time accumulated so far.
func (p *Pacer) Wait(delta cputime.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.simElapsed = p.simElapsed.Add(delta)
	if p.mode != RealTime {
		return
	}

	target := p.start.Add(time.Duration(p.simElapsed.Float64() * float64(p.unit)))
	if sleep := target.Sub(time.Now()); sleep > 0 {
		time.Sleep(sleep)
	}
}
