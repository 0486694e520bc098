// Package roundrobin implements a fixed-slice round-robin scheduling policy.
package roundrobin

import (
	"github.com/z33ky/schedsi/chain"
	"github.com/z33ky/schedsi/cputime"
)

// Policy cycles through the ready queue in order, granting each a fixed
// slice. The scheduler's own ready queue already behaves as the rotation:
// Pick always chooses index 0, and the base scheduler's requeue-on-return
// appends back at the end of waiting, which updateReadyQueue re-promotes
// in the same relative order, reproducing round-robin rotation without
// the policy needing to track position itself.
type Policy struct {
	Slice cputime.Time
}

// New builds a round-robin policy granting slice units per turn.
func New(slice cputime.Time) *Policy {
	return &Policy{Slice: slice}
}

func (p *Policy) Name() string { return "round-robin" }

func (p *Policy) Pick(now cputime.Time, ready []*chain.Chain) (int, cputime.Time, bool) {
	if len(ready) == 0 {
		return 0, cputime.Zero, false
	}
	return 0, p.Slice, true
}
