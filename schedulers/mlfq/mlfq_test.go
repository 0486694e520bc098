package mlfq

import (
	"testing"

	"github.com/z33ky/schedsi/chain"
	"github.com/z33ky/schedsi/cputime"
	"github.com/z33ky/schedsi/thread"
)

func TestNewRejectsEmptyLevels(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic with zero levels")
		}
	}()
	New(nil)
}

func TestPickDemotesAfterEachTurn(t *testing.T) {
	p := New([]cputime.Time{cputime.FromInt(2), cputime.FromInt(4), cputime.FromInt(8)})
	a := chain.FromThread(thread.NewWork(1, 1, cputime.Zero, cputime.FromInt(20)))

	idx, slice, ok := p.Pick(cputime.Zero, []*chain.Chain{a})
	if !ok || idx != 0 || !slice.Equal(cputime.FromInt(2)) {
		t.Fatalf("first Pick() = %d, %s, %v, want 0, 2, true", idx, slice, ok)
	}

	idx, slice, ok = p.Pick(cputime.FromInt(2), []*chain.Chain{a})
	if !ok || idx != 0 || !slice.Equal(cputime.FromInt(4)) {
		t.Fatalf("second Pick() = %d, %s, %v, want 0, 4, true (demoted one level)", idx, slice, ok)
	}

	idx, slice, ok = p.Pick(cputime.FromInt(6), []*chain.Chain{a})
	if !ok || idx != 0 || !slice.Equal(cputime.FromInt(8)) {
		t.Fatalf("third Pick() = %d, %s, %v, want 0, 8, true (lowest level)", idx, slice, ok)
	}

	idx, slice, ok = p.Pick(cputime.FromInt(14), []*chain.Chain{a})
	if !ok || !slice.Equal(cputime.FromInt(8)) {
		t.Fatalf("fourth Pick() = %d, %s, %v, want slice to stay 8 (floor level)", idx, slice, ok)
	}
}

func TestPickPrefersHigherPriorityThread(t *testing.T) {
	p := New([]cputime.Time{cputime.FromInt(2), cputime.FromInt(4)})
	a := chain.FromThread(thread.NewWork(1, 1, cputime.Zero, cputime.FromInt(20)))
	b := chain.FromThread(thread.NewWork(2, 1, cputime.Zero, cputime.FromInt(20)))

	p.Pick(cputime.Zero, []*chain.Chain{a}) // demotes a to level 1

	idx, _, ok := p.Pick(cputime.FromInt(2), []*chain.Chain{a, b})
	if !ok || idx != 1 {
		t.Fatalf("Pick() = %d, %v, want index 1 (b, still at the top level)", idx, ok)
	}
}

func TestPickRejectsEmptyReadyQueue(t *testing.T) {
	p := New([]cputime.Time{cputime.FromInt(2)})
	if _, _, ok := p.Pick(cputime.Zero, nil); ok {
		t.Fatal("Pick() on an empty ready queue succeeded, want ok=false")
	}
}
