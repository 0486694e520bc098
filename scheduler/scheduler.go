// Package scheduler implements the base scheduler contract: a Thread whose
// computation maintains ready/waiting/finished queues of retained chains
// and delegates the actual pick to a Policy. A child module's scheduler is
// itself just a Thread, added to its parent's scheduler exactly like any
// worker thread — there is no separate VCPU type; resuming a chain wrapping
// a child's scheduler thread is what descends the hierarchy.
package scheduler

import (
	"fmt"
	"time"

	"github.com/z33ky/schedsi/chain"
	"github.com/z33ky/schedsi/cputime"
	"github.com/z33ky/schedsi/registry"
	"github.com/z33ky/schedsi/request"
	"github.com/z33ky/schedsi/thread"
)

// Metrics receives instrumentation from a Scheduler's decision loop. A nil
// Metrics (the default) costs nothing; observability.SchedulerCollector
// satisfies this interface directly.
type Metrics interface {
	ObservePick(d time.Duration)
	SetReadyQueueDepth(n int)
	IncPreemptions()
	SetIdleRatio(r float64)
}

// Policy picks which ready chain runs next and for how long. ready[i]'s
// Bottom() thread is the candidate; Pick must not mutate ready.
type Policy interface {
	Pick(now cputime.Time, ready []*chain.Chain) (idx int, slice cputime.Time, ok bool)
	Name() string
}

// Scheduler is the base Thread every concrete policy builds on.
type Scheduler struct {
	thread.NonWorker

	policy  Policy
	metrics Metrics

	ready    []*chain.Chain
	waiting  []*chain.Chain
	finished []*chain.Chain
}

// New constructs a scheduler thread for module, driven by policy.
func New(tid registry.ThreadID, module registry.ModuleID, start cputime.Time, policy Policy) *Scheduler {
	return &Scheduler{
		NonWorker: thread.NewNonWorker(tid, module, start),
		policy:    policy,
	}
}

// Policy exposes the scheduling policy, e.g. for statistics labeling.
func (s *Scheduler) Policy() Policy { return s.policy }

// SetMetrics attaches an instrumentation sink to this scheduler's decision
// loop; pass nil to detach. Must be called before the simulation starts
// driving this scheduler.
func (s *Scheduler) SetMetrics(m Metrics) { s.metrics = m }

// AddThread registers t (a worker, or another module's scheduler thread
// when that module is a child of this one) with this scheduler. Threads
// must be added before the simulation starts driving this scheduler.
func (s *Scheduler) AddThread(t thread.Thread) {
	c := chain.FromThread(t)
	if t.Remaining().IsNone() || t.Remaining().IsPositive() {
		s.waiting = append(s.waiting, c)
	} else {
		s.finished = append(s.finished, c)
	}
}

// updateReadyQueue moves every waiting chain whose thread has become ready
// into the ready queue, in place, preserving relative order.
func (s *Scheduler) updateReadyQueue(now cputime.Time) {
	still := s.waiting[:0]
	for _, c := range s.waiting {
		if c.Bottom().Thread.Ready(now) {
			s.ready = append(s.ready, c)
		} else {
			still = append(still, c)
		}
	}
	s.waiting = still
}

// nextDeadline returns the earliest time at which any waiting thread might
// become ready, or cputime.None if nothing is waiting.
func (s *Scheduler) nextDeadline(now cputime.Time) cputime.Time {
	next := cputime.None
	for _, c := range s.waiting {
		next = cputime.MinOptional(next, c.Bottom().Thread.NextReady(now))
	}
	return next
}

// requeue places a chain that just returned control back to this scheduler
// into the right queue: finished if its thread is done, otherwise back to
// waiting (updateReadyQueue will promote it next time around if it is
// already eligible).
func (s *Scheduler) requeue(returned *chain.Chain) {
	t := returned.Bottom().Thread
	if !t.Remaining().IsNone() && t.Remaining().IsZero() {
		s.finished = append(s.finished, returned)
		return
	}
	s.waiting = append(s.waiting, returned)
}

// NewComputation builds the resumable pick/timer/resume loop.
func (s *Scheduler) NewComputation() thread.Computation {
	return &computation{s: s}
}

type stepState int

const (
	stepQueryTime stepState = iota
	stepResume
	stepIdle
	stepAwaitReturn
)

type computation struct {
	s            *Scheduler
	state        stepState
	pickedIdx    int
	grantedSlice cputime.Time
}

func (c *computation) Step(in thread.StepInput) (request.Request, bool) {
	switch c.state {
	case stepQueryTime:
		return c.decide(in.Now)
	case stepIdle:
		c.state = stepQueryTime
		return request.NewIdle(), true
	case stepResume:
		chosen := c.s.ready[c.pickedIdx]
		c.s.ready = append(c.s.ready[:c.pickedIdx], c.s.ready[c.pickedIdx+1:]...)
		c.state = stepAwaitReturn
		return request.NewResume(chosen), true
	case stepAwaitReturn:
		returned, ok := in.Returned.(*chain.Chain)
		if !ok {
			panic(fmt.Sprintf("scheduler: expected a returned chain, got %T", in.Returned))
		}
		r := returned.Bottom().Thread.Remaining()
		finished := !r.IsNone() && r.IsZero()
		preempted := !c.grantedSlice.IsNone() && !finished
		c.s.requeue(returned)
		if preempted && c.s.metrics != nil {
			c.s.metrics.IncPreemptions()
		}
		c.state = stepQueryTime
		return request.NewCurrentTime(), true
	default:
		return request.Request{}, false
	}
}

// decide runs one pass of "consult time, pick, act" and returns the first
// request of whichever branch it takes (Timer before Resume, or Timer
// before Idle).
func (c *computation) decide(now cputime.Time) (request.Request, bool) {
	s := c.s
	s.updateReadyQueue(now)
	if s.metrics != nil {
		s.metrics.SetReadyQueueDepth(len(s.ready))
	}

	pickStart := time.Now()
	idx, slice, ok := s.policy.Pick(now, s.ready)
	if s.metrics != nil {
		s.metrics.ObservePick(time.Since(pickStart))
	}
	if !ok {
		delta := s.nextDeadline(now)
		if !delta.IsNone() {
			delta = delta.Sub(now)
		}
		c.state = stepIdle
		return request.NewTimer(delta), true
	}

	c.pickedIdx = idx
	c.grantedSlice = slice
	c.state = stepResume
	return request.NewTimer(slice), true
}
