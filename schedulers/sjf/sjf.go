// Package sjf implements shortest-job-first: among ready threads, the one
// with the least remaining work runs next, uninterrupted.
package sjf

import (
	"github.com/z33ky/schedsi/chain"
	"github.com/z33ky/schedsi/cputime"
)

// Policy picks the ready chain whose bottom thread has the smallest
// Remaining(); a thread reporting None (unbounded, e.g. a scheduler thread
// acting as a VCPU) is treated as infinitely long and never preferred over
// a thread with a concrete remaining.
type Policy struct{}

// New builds a shortest-job-first policy.
func New() *Policy { return &Policy{} }

func (p *Policy) Name() string { return "sjf" }

func (p *Policy) Pick(now cputime.Time, ready []*chain.Chain) (int, cputime.Time, bool) {
	best := -1
	var bestRemaining cputime.Time
	for i, c := range ready {
		r := c.Bottom().Thread.Remaining()
		if best == -1 {
			best, bestRemaining = i, r
			continue
		}
		if r.IsNone() {
			continue
		}
		if bestRemaining.IsNone() || r.Less(bestRemaining) {
			best, bestRemaining = i, r
		}
	}
	if best == -1 {
		return 0, cputime.Zero, false
	}
	return best, cputime.None, true
}
