package sjf

import (
	"testing"

	"github.com/z33ky/schedsi/chain"
	"github.com/z33ky/schedsi/cputime"
	"github.com/z33ky/schedsi/thread"
)

func TestPickPrefersSmallestRemaining(t *testing.T) {
	p := New()
	long := chain.FromThread(thread.NewWork(1, 1, cputime.Zero, cputime.FromInt(10)))
	short := chain.FromThread(thread.NewWork(2, 1, cputime.Zero, cputime.FromInt(3)))

	idx, slice, ok := p.Pick(cputime.Zero, []*chain.Chain{long, short})
	if !ok || idx != 1 {
		t.Fatalf("Pick() = %d, %s, %v, want index 1 (the shorter job)", idx, slice, ok)
	}
	if !slice.IsNone() {
		t.Fatalf("slice = %s, want none (sjf runs uninterrupted)", slice)
	}
}

func TestPickTreatsUnboundedRemainingAsInfinite(t *testing.T) {
	p := New()
	unbounded := chain.FromThread(scheduleThread())
	finite := chain.FromThread(thread.NewWork(2, 1, cputime.Zero, cputime.FromInt(5)))

	idx, _, ok := p.Pick(cputime.Zero, []*chain.Chain{unbounded, finite})
	if !ok || idx != 1 {
		t.Fatalf("Pick() = %d, %v, want index 1 (the finite thread over the unbounded one)", idx, ok)
	}
}

func TestPickRejectsEmptyReadyQueue(t *testing.T) {
	p := New()
	if _, _, ok := p.Pick(cputime.Zero, nil); ok {
		t.Fatal("Pick() on an empty ready queue succeeded, want ok=false")
	}
}

// scheduleThread stands in for any Remaining()==None thread without pulling
// in the scheduler package, keeping this test focused on the policy alone.
func scheduleThread() thread.Thread {
	return noneRemainingThread{Work: thread.NewWork(1, 1, cputime.Zero, cputime.Zero)}
}

type noneRemainingThread struct {
	*thread.Work
}

func (noneRemainingThread) Remaining() cputime.Time { return cputime.None }
