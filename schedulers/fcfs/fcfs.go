// Package fcfs implements a first-come-first-served scheduling policy: once
// a thread has the CPU it keeps it until it finishes or idles on its own,
// so the granted slice is unbounded.
package fcfs

import (
	"github.com/z33ky/schedsi/chain"
	"github.com/z33ky/schedsi/cputime"
)

// Policy always picks the head of the ready queue and never preempts it.
type Policy struct{}

// New builds a FCFS policy.
func New() *Policy { return &Policy{} }

func (p *Policy) Name() string { return "fcfs" }

func (p *Policy) Pick(now cputime.Time, ready []*chain.Chain) (int, cputime.Time, bool) {
	if len(ready) == 0 {
		return 0, cputime.Zero, false
	}
	return 0, cputime.None, true
}
