package thread

import (
	"github.com/z33ky/schedsi/cputime"
	"github.com/z33ky/schedsi/registry"
)

// NonWorker is an embeddable base for threads that sit on the chain as
// ancestors of the true workload (schedulers, VCPUs): unlike a plain Work
// thread, it is expected to have RunBackground called on it, and it never
// has a meaningful finite "remaining" of its own. Concrete types embed it
// and only need to supply NewComputation.
type NonWorker struct {
	tid    registry.ThreadID
	module registry.ModuleID
	start  cputime.Time
	stats  *Stats
}

// NewNonWorker initializes the embeddable base.
func NewNonWorker(tid registry.ThreadID, module registry.ModuleID, start cputime.Time) NonWorker {
	return NonWorker{tid: tid, module: module, start: start, stats: newStats()}
}

func (n *NonWorker) TID() registry.ThreadID       { return n.tid }
func (n *NonWorker) ModuleID() registry.ModuleID   { return n.module }
func (n *NonWorker) StartTime() cputime.Time       { return n.start }
func (n *NonWorker) Stats() *Stats                 { return n.stats }
func (n *NonWorker) DeclaredTimeout() cputime.Time { return cputime.None }

// Remaining is always None: schedulers and VCPUs never finish on their own
// workload countdown, only via an explicit Finish from the core.
func (n *NonWorker) Remaining() cputime.Time { return cputime.None }

// Ready is always true from start onward; readiness for schedulers/VCPUs is
// governed by chain placement, not by a workload countdown.
func (n *NonWorker) Ready(now cputime.Time) bool {
	return n.start.LessEqual(now)
}

// NextReady: a non-worker is always eventually schedulable; it never
// finishes on its own workload countdown.
func (n *NonWorker) NextReady(now cputime.Time) cputime.Time {
	if n.start.LessEqual(now) {
		return now
	}
	return n.start
}

// Run is a no-op: non-worker threads do no work of their own; all "work" is
// forwarded via Resume to whatever they delegate to.
func (n *NonWorker) Run(now, delta cputime.Time) {}

// RunBackground records a background-time sample: the thread was an
// ancestor on the chain while some descendant context consumed delta units.
func (n *NonWorker) RunBackground(now, delta cputime.Time) {
	if delta.IsZero() {
		return
	}
	n.stats.recordBackground(delta)
}

// Finish does nothing for a NonWorker; concrete types may override it to
// discard additional state (e.g. a scheduler's queues).
func (n *NonWorker) Finish(now cputime.Time) {}

func (n *NonWorker) Suspend(now cputime.Time)               { SuspendStats(n.stats, now) }
func (n *NonWorker) Resume(now cputime.Time, returning bool) { ResumeStats(n.stats, now, returning) }
