// Package thread defines the capability set the cpu core drives: execute
// (via a resumable Computation), run/run_background/finish, and the
// remaining/ready accessors used to decide when a thread may be scheduled.
package thread

import (
	"github.com/z33ky/schedsi/cputime"
	"github.com/z33ky/schedsi/registry"
	"github.com/z33ky/schedsi/request"
)

// StepInput is passed into Computation.Step to resume it. A context's
// computation is always resumed with the current simulated time and, only
// immediately after it yields Resume, also with the chain it handed off,
// returned so it can decide what to do with it next — store it
// back in a ready queue, drop it because it finished, and so on. A
// computation tracks its own place in that protocol; nothing here tags which
// request is being replied to.
type StepInput struct {
	Now cputime.Time
	// Returned is non-nil exactly when this Step call is the reply to a
	// Resume request: the same chain object that was handed off, regardless
	// of why control came back (it finished, idled, or its slice elapsed).
	Returned request.Chain
}

// Computation is a resumable state machine: the language-neutral substitute
// for a native-stack coroutine. Each call to Step runs the computation until
// its next suspension point and returns the Request it yields there, or
// reports that the computation has terminated.
type Computation interface {
	Step(in StepInput) (request.Request, bool)
}

// Stats accumulates the counters the spec requires per thread: total
// execution time, per-run samples with their start times, wait-time
// samples, and context-switch counts. All fields are exact cputime.Time or
// plain counts; nothing here is derived from wall-clock time.
type Stats struct {
	ExecutionTime   cputime.Time
	Runs            []RunSample
	WaitSamples     []cputime.Time
	BackgroundTimes []cputime.Time
	CtxSwitchIn     int
	CtxSwitchOut    int

	lastReadyAt   cputime.Time
	haveLastReady bool
}

// RunSample records one contiguous burst of execution.
type RunSample struct {
	StartTime cputime.Time
	RunTime   cputime.Time
}

func newStats() *Stats {
	return &Stats{ExecutionTime: cputime.Zero}
}

func (s *Stats) recordRun(start, delta cputime.Time) {
	s.ExecutionTime = s.ExecutionTime.Add(delta)
	s.Runs = append(s.Runs, RunSample{StartTime: start, RunTime: delta})
}

// markWaitStart records that the thread became ready-but-not-running at now;
// paired with markWaitEnd to produce a wait_time sample.
func (s *Stats) markWaitStart(now cputime.Time) {
	s.lastReadyAt = now
	s.haveLastReady = true
}

func (s *Stats) recordBackground(delta cputime.Time) {
	s.BackgroundTimes = append(s.BackgroundTimes, delta)
}

func (s *Stats) markWaitEnd(now cputime.Time) {
	if !s.haveLastReady {
		return
	}
	s.WaitSamples = append(s.WaitSamples, now.Sub(s.lastReadyAt))
	s.haveLastReady = false
}

// SuspendStats and ResumeStats are the shared bookkeeping every Thread
// implementation's Suspend/Resume delegates to.
func SuspendStats(s *Stats, now cputime.Time) {
	s.markWaitStart(now)
	s.CtxSwitchOut++
}

func ResumeStats(s *Stats, now cputime.Time, returning bool) {
	s.markWaitEnd(now)
	s.CtxSwitchIn++
}

// Thread is the contract the cpu core relies on. Implementations are
// "shared but not owned" by the contexts that reference them: the Thread
// referenced from a Context is mutated only by whichever Context currently
// sits on top of its core's chain.
type Thread interface {
	TID() registry.ThreadID
	ModuleID() registry.ModuleID

	// NewComputation constructs a fresh resumable computation for this
	// thread. Called once when a Context for this thread is created;
	// moving that Context between chains must not call this again.
	NewComputation() Computation

	// Run accounts delta units of work performed between now and now+delta.
	// It must not be called with delta exceeding Remaining(now).
	Run(now, delta cputime.Time)

	// RunBackground is called on every ancestor context (i.e. every
	// context but the chain's top) whenever the top consumes time, so
	// ancestor activations keep their own statistics current even though
	// they are not themselves executing.
	RunBackground(now, delta cputime.Time)

	// Finish terminates the thread's current computation and discards it.
	Finish(now cputime.Time)

	// Suspend records that the thread is being pushed off the top of its
	// chain without finishing: it starts a wait-time sample and counts a
	// context switch out.
	Suspend(now cputime.Time)

	// Resume records that the thread is (re)gaining the top of its chain: it
	// closes the wait-time sample started by Suspend and counts a context
	// switch in. returning is true when this is the original Context coming
	// back (as opposed to a brand new activation).
	Resume(now cputime.Time, returning bool)

	// Remaining is the outstanding workload; zero means finished.
	Remaining() cputime.Time

	// Ready reports remaining > 0 && start_time <= now && not currently
	// executing elsewhere on some other core's chain.
	Ready(now cputime.Time) bool

	// NextReady is the earliest time at or after now at which Ready might
	// become true, or cputime.None if it never will (finished, or — for a
	// non-worker thread that is always eventually schedulable — this is
	// simply max(now, StartTime)). A scheduler uses this to size the Timer
	// it sets before yielding Idle.
	NextReady(now cputime.Time) cputime.Time

	// StartTime is the earliest time at which the thread may run.
	StartTime() cputime.Time

	// DeclaredTimeout is the timeout a freshly constructed Context for
	// this thread should carry (schedulers typically override it with an
	// explicit Timer request; plain worker threads leave it as None).
	DeclaredTimeout() cputime.Time

	// Stats exposes the thread's accumulated statistics for reporting.
	Stats() *Stats
}
