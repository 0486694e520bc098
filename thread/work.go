package thread

import (
	"github.com/z33ky/schedsi/cputime"
	"github.com/z33ky/schedsi/registry"
	"github.com/z33ky/schedsi/request"
)

// Work is the plain workload thread: it has a fixed remaining budget and
// no opinion on scheduling. Its computation is a loop that repeatedly
// yields Execute(RunUntilTimer) until remaining reaches zero.
type Work struct {
	tid      registry.ThreadID
	module   registry.ModuleID
	start    cputime.Time
	remain   cputime.Time
	finished bool
	stats    *Stats
}

// NewWork constructs a Work thread with the given workload and start time.
func NewWork(tid registry.ThreadID, module registry.ModuleID, start, units cputime.Time) *Work {
	return &Work{
		tid:    tid,
		module: module,
		start:  start,
		remain: units,
		stats:  newStats(),
	}
}

func (w *Work) TID() registry.ThreadID           { return w.tid }
func (w *Work) ModuleID() registry.ModuleID       { return w.module }
func (w *Work) StartTime() cputime.Time           { return w.start }
func (w *Work) Remaining() cputime.Time           { return w.remain }
func (w *Work) Stats() *Stats                     { return w.stats }
func (w *Work) DeclaredTimeout() cputime.Time     { return cputime.None }

func (w *Work) Ready(now cputime.Time) bool {
	if w.finished || w.remain.IsZero() {
		return false
	}
	return w.start.LessEqual(now)
}

func (w *Work) NextReady(now cputime.Time) cputime.Time {
	if w.finished || w.remain.IsZero() {
		return cputime.None
	}
	if w.start.LessEqual(now) {
		return now
	}
	return w.start
}

func (w *Work) Run(now, delta cputime.Time) {
	if delta.IsZero() {
		return
	}
	if w.remain.Less(delta) {
		panic("thread: Run delta exceeds remaining")
	}
	w.remain = w.remain.Sub(delta)
	if w.remain.IsZero() {
		w.finished = true
	}
	w.stats.recordRun(now, delta)
}

// RunBackground is never called on a Work thread: a plain worker never has
// descendants on the chain above it.
func (w *Work) RunBackground(now, delta cputime.Time) {
	panic("thread: RunBackground called on a leaf Work thread")
}

func (w *Work) Finish(now cputime.Time) {
	w.finished = true
	w.remain = cputime.Zero
}

func (w *Work) Suspend(now cputime.Time)               { SuspendStats(w.stats, now) }
func (w *Work) Resume(now cputime.Time, returning bool) { ResumeStats(w.stats, now, returning) }

// NewComputation returns the single-state "run everything" loop.
func (w *Work) NewComputation() Computation {
	return &workComputation{}
}

type workComputationState int

const (
	workStart workComputationState = iota
	workExecuted
)

type workComputation struct {
	state workComputationState
}

func (c *workComputation) Step(in StepInput) (request.Request, bool) {
	switch c.state {
	case workStart:
		c.state = workExecuted
		return request.NewExecute(request.RunUntilTimer), true
	case workExecuted:
		// The core only resumes us here if the slice elapsed before we
		// finished; if remaining hit zero the core
		// popped the context itself without resuming the computation.
		return request.NewExecute(request.RunUntilTimer), true
	default:
		return request.Request{}, false
	}
}
