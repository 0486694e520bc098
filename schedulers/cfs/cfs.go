// Package cfs implements a simplified completely-fair policy: each thread
// accumulates a virtual runtime as it executes, and the scheduler always
// picks whichever ready thread has the smallest one, granting a fixed
// scheduling latency slice divided evenly rather than a strict round-robin
// turn.
package cfs

import (
	"github.com/z33ky/schedsi/chain"
	"github.com/z33ky/schedsi/cputime"
	"github.com/z33ky/schedsi/registry"
)

// Policy tracks virtual runtime per thread id. Latency is the scheduling
// period to divide across the currently ready set on every pick.
type Policy struct {
	Latency cputime.Time
	vruntime map[registry.ThreadID]cputime.Time
}

// New builds a CFS-like policy with the given scheduling latency.
func New(latency cputime.Time) *Policy {
	return &Policy{Latency: latency, vruntime: make(map[registry.ThreadID]cputime.Time)}
}

func (p *Policy) Name() string { return "cfs" }

func (p *Policy) Pick(now cputime.Time, ready []*chain.Chain) (int, cputime.Time, bool) {
	if len(ready) == 0 {
		return 0, cputime.Zero, false
	}

	best := -1
	var bestVr cputime.Time
	for i, c := range ready {
		tid := c.Bottom().Thread.TID()
		vr, ok := p.vruntime[tid]
		if !ok {
			vr = cputime.Zero
			p.vruntime[tid] = vr
		}
		if best == -1 || vr.Less(bestVr) {
			best, bestVr = i, vr
		}
	}

	tid := ready[best].Bottom().Thread.TID()
	slice := p.Latency
	if n := int64(len(ready)); n > 1 {
		slice = p.Latency.DivInt(n)
	}
	p.vruntime[tid] = p.vruntime[tid].Add(slice)
	return best, slice, true
}
