// Package mlfq implements a multi-level feedback queue: each thread starts
// at the highest priority level and is demoted a level every time it is
// picked again (having used up its slice at the previous level), down to
// the lowest level, where it round-robins with a fixed, larger slice.
package mlfq

import (
	"github.com/z33ky/schedsi/chain"
	"github.com/z33ky/schedsi/cputime"
	"github.com/z33ky/schedsi/registry"
)

// Policy holds one slice duration per level, levels[0] being the highest
// priority (shortest slice).
type Policy struct {
	slices []cputime.Time
	levels map[registry.ThreadID]int
}

// New builds an MLFQ policy with the given per-level slices, highest
// priority first. At least one level is required.
func New(slices []cputime.Time) *Policy {
	if len(slices) == 0 {
		panic("mlfq: at least one level is required")
	}
	return &Policy{
		slices: append([]cputime.Time(nil), slices...),
		levels: make(map[registry.ThreadID]int),
	}
}

func (p *Policy) Name() string { return "mlfq" }

func (p *Policy) Pick(now cputime.Time, ready []*chain.Chain) (int, cputime.Time, bool) {
	if len(ready) == 0 {
		return 0, cputime.Zero, false
	}

	best := -1
	bestLevel := len(p.slices)
	for i, c := range ready {
		tid := c.Bottom().Thread.TID()
		lvl := p.levels[tid]
		if lvl < bestLevel {
			best, bestLevel = i, lvl
		}
	}

	tid := ready[best].Bottom().Thread.TID()
	slice := p.slices[bestLevel]
	if bestLevel+1 < len(p.slices) {
		p.levels[tid] = bestLevel + 1
	}
	return best, slice, true
}
