// Package penalty wraps another policy with a minimum-residency rule: once
// a thread has been picked, it must be re-picked (sticking with it) until
// at least MinRun units of simulated time have passed since that pick
// before the wrapped policy's decision
// is allowed to switch away, discouraging thrashing between threads whose
// underlying policy would otherwise alternate every tick.
package penalty

import (
	"github.com/z33ky/schedsi/chain"
	"github.com/z33ky/schedsi/cputime"
	"github.com/z33ky/schedsi/registry"
	"github.com/z33ky/schedsi/scheduler"
)

// Policy decorates Base, sticking with the last-picked thread (while it is
// still in the ready queue) until MinRun units of simulated time have passed
// since Base picked it, before deferring to Base again.
type Policy struct {
	Base   scheduler.Policy
	MinRun cputime.Time

	stuck      registry.ThreadID
	hasStuck   bool
	stuckSince cputime.Time
}

// New builds a penalty-addon policy around base.
func New(base scheduler.Policy, minRun cputime.Time) *Policy {
	return &Policy{Base: base, MinRun: minRun}
}

func (p *Policy) Name() string { return "penalty(" + p.Base.Name() + ")" }

func (p *Policy) Pick(now cputime.Time, ready []*chain.Chain) (int, cputime.Time, bool) {
	if p.hasStuck {
		for i, c := range ready {
			t := c.Bottom().Thread
			if t.TID() != p.stuck {
				continue
			}
			if now.Sub(p.stuckSince).Less(p.MinRun) {
				return i, p.MinRun.Sub(now.Sub(p.stuckSince)), true
			}
			break
		}
		p.hasStuck = false
	}

	idx, slice, ok := p.Base.Pick(now, ready)
	if !ok {
		return idx, slice, false
	}
	p.stuck = ready[idx].Bottom().Thread.TID()
	p.hasStuck = true
	p.stuckSince = now
	if !slice.IsNone() && slice.Less(p.MinRun) {
		slice = p.MinRun
	}
	return idx, slice, true
}
