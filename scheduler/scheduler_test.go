package scheduler

import (
	"testing"

	"github.com/z33ky/schedsi/chain"
	"github.com/z33ky/schedsi/cputime"
	"github.com/z33ky/schedsi/request"
	"github.com/z33ky/schedsi/schedulers/fcfs"
	"github.com/z33ky/schedsi/thread"
)

func TestAddThreadRoutesByRemaining(t *testing.T) {
	s := New(1, 1, cputime.Zero, fcfs.New())
	ready := thread.NewWork(2, 1, cputime.Zero, cputime.FromInt(5))
	done := thread.NewWork(3, 1, cputime.Zero, cputime.Zero)

	s.AddThread(ready)
	s.AddThread(done)

	if len(s.waiting) != 1 {
		t.Fatalf("waiting has %d entries, want 1 (the thread still with remaining work)", len(s.waiting))
	}
	if len(s.finished) != 1 {
		t.Fatalf("finished has %d entries, want 1 (the already-exhausted thread)", len(s.finished))
	}
}

func TestUpdateReadyQueuePromotesReadyThreads(t *testing.T) {
	s := New(1, 1, cputime.Zero, fcfs.New())
	notYet := thread.NewWork(2, 1, cputime.FromInt(10), cputime.FromInt(5))
	s.AddThread(notYet)

	s.updateReadyQueue(cputime.FromInt(5))
	if len(s.ready) != 0 {
		t.Fatalf("ready has %d entries before start_time, want 0", len(s.ready))
	}

	s.updateReadyQueue(cputime.FromInt(10))
	if len(s.ready) != 1 {
		t.Fatalf("ready has %d entries at start_time, want 1", len(s.ready))
	}
	if len(s.waiting) != 0 {
		t.Fatalf("waiting has %d entries after promotion, want 0", len(s.waiting))
	}
}

func TestRequeueRoutesByRemaining(t *testing.T) {
	s := New(1, 1, cputime.Zero, fcfs.New())
	exhausted := thread.NewWork(2, 1, cputime.Zero, cputime.Zero)
	s.requeue(chain.FromThread(exhausted))
	if len(s.finished) != 1 || len(s.waiting) != 0 {
		t.Fatalf("requeue(exhausted): finished=%d waiting=%d, want 1, 0", len(s.finished), len(s.waiting))
	}

	s2 := New(1, 1, cputime.Zero, fcfs.New())
	stillRunning := thread.NewWork(2, 1, cputime.Zero, cputime.FromInt(5))
	s2.requeue(chain.FromThread(stillRunning))
	if len(s2.waiting) != 1 || len(s2.finished) != 0 {
		t.Fatalf("requeue(stillRunning): waiting=%d finished=%d, want 1, 0", len(s2.waiting), len(s2.finished))
	}
}

func TestNextDeadlineIsNoneWithNothingWaiting(t *testing.T) {
	s := New(1, 1, cputime.Zero, fcfs.New())
	if got := s.nextDeadline(cputime.Zero); !got.IsNone() {
		t.Fatalf("nextDeadline() = %s with nothing waiting, want none", got)
	}
}

func TestComputationDecidesIdleThenResume(t *testing.T) {
	s := New(1, 1, cputime.Zero, fcfs.New())
	work := thread.NewWork(2, 1, cputime.FromInt(3), cputime.FromInt(5))
	s.AddThread(work)

	comp := s.NewComputation()

	req, ok := comp.Step(thread.StepInput{Now: cputime.Zero})
	if !ok || req.Kind != request.Timer {
		t.Fatalf("first decide = %+v, %v, want a Timer request", req, ok)
	}
	req, ok = comp.Step(thread.StepInput{Now: cputime.Zero})
	if !ok || req.Kind != request.Idle {
		t.Fatalf("decide before start_time = %+v, %v, want Idle", req, ok)
	}

	comp2 := s.NewComputation()
	req, ok = comp2.Step(thread.StepInput{Now: cputime.FromInt(3)})
	if !ok || req.Kind != request.Timer {
		t.Fatalf("decide at start_time = %+v, %v, want a Timer request before Resume", req, ok)
	}
	req, ok = comp2.Step(thread.StepInput{Now: cputime.FromInt(3)})
	if !ok || req.Kind != request.Resume {
		t.Fatalf("decide at start_time after Timer = %+v, %v, want Resume", req, ok)
	}
}

func TestPolicyNameExposed(t *testing.T) {
	s := New(1, 1, cputime.Zero, fcfs.New())
	if s.Policy().Name() != "fcfs" {
		t.Fatalf("Policy().Name() = %q, want %q", s.Policy().Name(), "fcfs")
	}
}
