package thread

import (
	"fmt"

	"github.com/z33ky/schedsi/cputime"
	"github.com/z33ky/schedsi/registry"
	"github.com/z33ky/schedsi/request"
)

// PeriodicWork models a thread that needs a fixed burst of CPU time once
// every period, the way an interrupt handler or a polling task does. It is
// idle between bursts and yields Idle rather than Execute while waiting for
// the next one to become due.
type PeriodicWork struct {
	tid    registry.ThreadID
	module registry.ModuleID
	start  cputime.Time
	period cputime.Time
	burst  cputime.Time

	// totalBursts bounds how many bursts this thread will ever run;
	// 0 means unbounded.
	totalBursts   int
	burstsDone    int
	finished      bool
	stats         *Stats
}

// NewPeriodicWork constructs a periodic thread firing every period units for
// burst units each time, for totalBursts activations (0 means unbounded).
func NewPeriodicWork(tid registry.ThreadID, module registry.ModuleID, start, period, burst cputime.Time, totalBursts int) *PeriodicWork {
	if !period.IsPositive() {
		panic(fmt.Sprintf("thread: period must be > 0, got %s", period))
	}
	if burst.Cmp(period) >= 0 {
		panic("thread: burst must be less than period")
	}
	return &PeriodicWork{
		tid:         tid,
		module:      module,
		start:       start,
		period:      period,
		burst:       burst,
		totalBursts: totalBursts,
		stats:       newStats(),
	}
}

func (p *PeriodicWork) TID() registry.ThreadID       { return p.tid }
func (p *PeriodicWork) ModuleID() registry.ModuleID   { return p.module }
func (p *PeriodicWork) StartTime() cputime.Time       { return p.start }
func (p *PeriodicWork) Stats() *Stats                 { return p.stats }
func (p *PeriodicWork) DeclaredTimeout() cputime.Time { return cputime.None }

// Remaining reports the time left in the burst currently due, or zero when
// the thread has exhausted its total bursts. Unlike Work, a PeriodicWork
// thread's "remaining" is scoped to its current burst, not its lifetime.
func (p *PeriodicWork) Remaining() cputime.Time {
	if p.finished {
		return cputime.Zero
	}
	return p.burst
}

func (p *PeriodicWork) Ready(now cputime.Time) bool {
	if p.finished {
		return false
	}
	return p.start.LessEqual(now)
}

func (p *PeriodicWork) NextReady(now cputime.Time) cputime.Time {
	if p.finished {
		return cputime.None
	}
	if now.Less(p.start) {
		return p.start
	}
	return (&periodicComputation{owner: p}).nextDue(now)
}

func (p *PeriodicWork) Run(now, delta cputime.Time) {
	if delta.IsZero() {
		return
	}
	p.stats.recordRun(now, delta)
	if delta.Cmp(p.burst) >= 0 {
		p.burstsDone++
		if p.totalBursts > 0 && p.burstsDone >= p.totalBursts {
			p.finished = true
		}
	}
}

func (p *PeriodicWork) RunBackground(now, delta cputime.Time) {
	panic("thread: RunBackground called on a leaf PeriodicWork thread")
}

func (p *PeriodicWork) Finish(now cputime.Time) {
	p.finished = true
}

func (p *PeriodicWork) Suspend(now cputime.Time)               { SuspendStats(p.stats, now) }
func (p *PeriodicWork) Resume(now cputime.Time, returning bool) { ResumeStats(p.stats, now, returning) }

func (p *PeriodicWork) NewComputation() Computation {
	return &periodicComputation{owner: p}
}

type periodicComputation struct {
	owner *PeriodicWork
}

// nextDue returns the next burst's due time given that bursts start at
// owner.start and repeat every period.
func (c *periodicComputation) nextDue(now cputime.Time) cputime.Time {
	p := c.owner
	// activation k is due at start + k*period; find smallest such time >= now.
	k := int64(0)
	due := p.start
	for due.Less(now) {
		k++
		due = p.start.Add(p.period.MulInt(k))
	}
	return due
}

func (c *periodicComputation) Step(in StepInput) (request.Request, bool) {
	if c.owner.finished {
		return request.Request{}, false
	}
	due := c.nextDue(in.Now)
	if due.Equal(in.Now) {
		return request.NewExecute(request.RunUntilTimer), true
	}
	// Not due yet: go idle without setting a timer of our own; the parent
	// scheduler will re-run us once it has re-evaluated readiness.
	return request.NewIdle(), true
}
