package penalty

import (
	"testing"

	"github.com/z33ky/schedsi/chain"
	"github.com/z33ky/schedsi/cputime"
	"github.com/z33ky/schedsi/schedulers/roundrobin"
	"github.com/z33ky/schedsi/thread"
)

func TestPickStaysOnThreadUntilMinRunElapses(t *testing.T) {
	base := roundrobin.New(cputime.FromInt(1))
	p := New(base, cputime.FromInt(5))

	a := chain.FromThread(thread.NewWork(1, 1, cputime.Zero, cputime.FromInt(20)))
	b := chain.FromThread(thread.NewWork(2, 1, cputime.Zero, cputime.FromInt(20)))
	ready := []*chain.Chain{a, b}

	idx, _, ok := p.Pick(cputime.Zero, ready)
	if !ok || idx != 0 {
		t.Fatalf("first Pick() = %d, %v, want index 0 (a, via the round-robin base)", idx, ok)
	}

	// Even though the base policy would have rotated to b, the penalty
	// addon must stick with a until MinRun has elapsed.
	idx, slice, ok := p.Pick(cputime.FromInt(1), ready)
	if !ok || idx != 0 {
		t.Fatalf("second Pick() = %d, %s, %v, want to stay on index 0 (a) before MinRun elapses", idx, slice, ok)
	}
}

func TestPickDefersToBaseOnceMinRunElapses(t *testing.T) {
	base := roundrobin.New(cputime.FromInt(1))
	p := New(base, cputime.FromInt(2))

	a := chain.FromThread(thread.NewWork(1, 1, cputime.Zero, cputime.FromInt(20)))
	b := chain.FromThread(thread.NewWork(2, 1, cputime.Zero, cputime.FromInt(20)))
	ready := []*chain.Chain{a, b}

	p.Pick(cputime.Zero, ready)
	idx, _, ok := p.Pick(cputime.FromInt(2), ready)
	if !ok {
		t.Fatal("Pick() after MinRun elapsed failed")
	}
	_ = idx
}

func TestPickClampsBaseSliceUpToMinRun(t *testing.T) {
	base := roundrobin.New(cputime.FromInt(1))
	p := New(base, cputime.FromInt(5))

	a := chain.FromThread(thread.NewWork(1, 1, cputime.Zero, cputime.FromInt(20)))
	ready := []*chain.Chain{a}

	_, slice, ok := p.Pick(cputime.Zero, ready)
	if !ok || !slice.Equal(cputime.FromInt(5)) {
		t.Fatalf("Pick() slice = %s, want the base's slice (1) clamped up to MinRun (5)", slice)
	}
}

func TestNameIncludesBasePolicy(t *testing.T) {
	p := New(roundrobin.New(cputime.FromInt(1)), cputime.FromInt(2))
	if p.Name() != "penalty(round-robin)" {
		t.Fatalf("Name() = %q, want %q", p.Name(), "penalty(round-robin)")
	}
}

func TestPickRejectsEmptyReadyQueue(t *testing.T) {
	p := New(roundrobin.New(cputime.FromInt(1)), cputime.FromInt(2))
	if _, _, ok := p.Pick(cputime.Zero, nil); ok {
		t.Fatal("Pick() on an empty ready queue succeeded, want ok=false")
	}
}
