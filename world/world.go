// Package world is the outermost driver: it owns every module and the set
// of cores executing against them, and advances the simulation one atomic
// core operation at a time.
package world

import (
	"fmt"

	"github.com/z33ky/schedsi/cpucore"
	"github.com/z33ky/schedsi/cputime"
	"github.com/z33ky/schedsi/eventsink"
	"github.com/z33ky/schedsi/module"
	"github.com/z33ky/schedsi/registry"
	"github.com/z33ky/schedsi/thread"
)

// World owns the module hierarchy and the cores driving it.
type World struct {
	modules *registry.Registry[*module.Module, thread.Thread]
	cores   []*cpucore.Core
	final   []eventsink.CoreCounters
}

// New constructs an empty World backed by reg, the arena the hierarchy was
// built in.
func New(reg *registry.Registry[*module.Module, thread.Thread]) *World {
	return &World{modules: reg}
}

// AddCore registers a core to be driven by Run/Step.
func (w *World) AddCore(c *cpucore.Core) {
	w.cores = append(w.cores, c)
}

// SetSink points every registered core's event output at sink.
func (w *World) SetSink(sink eventsink.Sink) {
	for _, c := range w.cores {
		if c != nil {
			c.Sink = sink
		}
	}
}

// AnyPending reports whether any thread across any module still has
// outstanding work as of now; it is the PendingOracle every Core's root
// idle handling consults to distinguish termination from a hang.
func (w *World) AnyPending(now cputime.Time) bool {
	for _, tid := range w.modules.AllThreadIDs() {
		t, ok := w.modules.Thread(tid)
		if !ok {
			continue
		}
		r := t.Remaining()
		if !r.IsNone() && r.IsPositive() {
			return true
		}
	}
	return false
}

// Now returns the current simulated time of the first still-active core,
// or cputime.Zero if every core has already terminated. This simulator's
// own non-goals exclude multi-core execution, so "the" current time is
// always well defined for any world actually driven by Run/Step.
func (w *World) Now() cputime.Time {
	for _, c := range w.cores {
		if c != nil {
			return c.Now()
		}
	}
	return cputime.Zero
}

// Step advances every core by one atomic operation each, in core
// registration order (the only order that matters: this simulator targets
// a single core, per its own non-goals; the loop below generalizes
// trivially if that ever changes). It reports whether every core has
// terminated.
func (w *World) Step() (allDone bool, err error) {
	allDone = true
	for i, c := range w.cores {
		if c == nil {
			continue
		}
		done, stepErr := c.Step()
		if stepErr != nil {
			return false, fmt.Errorf("world: core %s: %w", c.UID, stepErr)
		}
		if done {
			w.final = append(w.final, c.Statistics())
			w.cores[i] = nil
			continue
		}
		allDone = false
	}
	return allDone, nil
}

// FinalStatistics returns the CoreCounters snapshot taken from each core at
// the moment it terminated. A core still running when called is omitted.
func (w *World) FinalStatistics() []eventsink.CoreCounters {
	return append([]eventsink.CoreCounters(nil), w.final...)
}

// Run drives Step until every core terminates or an error occurs, bounded
// by maxSteps as a last-resort guard against a runaway scheduler that
// never makes progress.
func (w *World) Run(maxSteps int) error {
	for i := 0; i < maxSteps; i++ {
		done, err := w.Step()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
	return fmt.Errorf("world: exceeded %d steps without terminating", maxSteps)
}
