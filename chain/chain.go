// Package chain implements the context chain: the ordered stack of
// activations from a module's kernel scheduler (the bottom) up through
// however many nested schedulers and VCPU forwards are currently active, to
// the context actually consuming processor time (the top).
//
// A Chain caches its own minimum timeout so a cpu core never has to rescan
// every context to learn when the next timer fires. Most mutations
// (SetTimer, AppendChain) update that cache incrementally; Split recomputes
// both halves from scratch, since removing an arbitrary slice can only be
// done safely by rescanning what's left.
package chain

import (
	"fmt"

	"github.com/z33ky/schedsi/activation"
	"github.com/z33ky/schedsi/cputime"
	"github.com/z33ky/schedsi/thread"
)

// KMax bounds how many contexts a chain may ever hold; guards against a
// runaway or cyclic hierarchy producing an unbounded chain.
const KMax = 32

// Chain is a non-empty, ordered stack of *activation.Context. It is carried
// as the payload of a Resume request via the request.Chain alias.
type Chain struct {
	contexts    []*activation.Context
	nextTimeout cputime.Time
}

// FromContext starts a new one-element chain around an already-constructed
// context.
func FromContext(start *activation.Context) *Chain {
	c := &Chain{contexts: []*activation.Context{start}}
	c.recompute()
	return c
}

// FromThread starts a new one-element chain around a fresh context for t.
func FromThread(t thread.Thread) *Chain {
	return FromContext(activation.NewContext(t))
}

// Len reports how many contexts are stacked on the chain.
func (c *Chain) Len() int { return len(c.contexts) }

func (c *Chain) normIndex(i int) int {
	if i < 0 {
		i += len(c.contexts)
	}
	if i < 0 || i >= len(c.contexts) {
		panic(fmt.Sprintf("chain: index %d out of range for length %d", i, len(c.contexts)))
	}
	return i
}

// Top is the currently-executing context.
func (c *Chain) Top() *activation.Context { return c.contexts[len(c.contexts)-1] }

// Bottom is the module's kernel scheduler context.
func (c *Chain) Bottom() *activation.Context { return c.contexts[0] }

// Parent is the context directly below the top, if any.
func (c *Chain) Parent() (*activation.Context, bool) {
	if len(c.contexts) < 2 {
		return nil, false
	}
	return c.contexts[len(c.contexts)-2], true
}

// ContextAt returns the context at index i; negative i counts from the top,
// as with Python-style indexing (-1 is Top, -2 is Parent, and so on).
func (c *Chain) ContextAt(i int) *activation.Context {
	return c.contexts[c.normIndex(i)]
}

// ThreadAt is a convenience for ContextAt(i).Thread.
func (c *Chain) ThreadAt(i int) thread.Thread {
	return c.contexts[c.normIndex(i)].Thread
}

// NextTimeout is the cached minimum timeout across all contexts on the
// chain, or cputime.None if none of them has one set.
func (c *Chain) NextTimeout() cputime.Time { return c.nextTimeout }

func (c *Chain) recompute() {
	result := cputime.None
	for _, ctx := range c.contexts {
		result = cputime.MinOptional(result, ctx.Timeout())
	}
	c.nextTimeout = result
}

// SetTimer sets the timeout on the context at idx (default -1, the top) and
// maintains the cache incrementally where possible.
func (c *Chain) SetTimer(timeout cputime.Time, idx int) {
	i := c.normIndex(idx)
	ctx := c.contexts[i]
	prev := ctx.Timeout()
	ctx.SetTimeout(timeout)

	switch {
	case c.nextTimeout.IsNone():
		c.nextTimeout = timeout
	case !timeout.IsNone() && c.nextTimeout.Cmp(timeout) >= 0:
		c.nextTimeout = timeout
	case !prev.IsNone() && prev.Equal(c.nextTimeout):
		c.recompute()
	}
}

// Elapse advances every context's timeout by delta and decrements the
// cached minimum by the same amount. It stops at the first context whose
// timeout had already elapsed before this call (it must equal the cache,
// which Elapse's caller is expected to have already checked via
// FindElapsedTimer or NextTimeout before calling), mirroring the real
// hardware: only one timer fires at a time, and whatever else shares the
// chain has not actually been given CPU time to move its own deadline.
func (c *Chain) Elapse(delta cputime.Time) {
	if c.nextTimeout.IsNone() {
		return
	}
	for _, ctx := range c.contexts {
		t := ctx.Timeout()
		if t.IsNone() {
			continue
		}
		done := t.LessEqualZero()
		if done && !t.Equal(c.nextTimeout) {
			panic("chain: elapse precondition violated: an already-elapsed timer does not match the cache")
		}
		ctx.SetTimeout(t.Sub(delta))
		if done {
			break
		}
	}
	c.nextTimeout = c.nextTimeout.Sub(delta)
}

// FindElapsedTimer returns the index of the first context whose timeout has
// elapsed (<= 0), bottom to top.
func (c *Chain) FindElapsedTimer() (int, bool) {
	for i, ctx := range c.contexts {
		t := ctx.Timeout()
		if !t.IsNone() && t.LessEqualZero() {
			return i, true
		}
	}
	return 0, false
}

// Split detaches contexts[idx:] into a new chain, leaving contexts[:idx] in
// the receiver. idx must be > 0: the bottom context can never be split off.
// Both halves' timeout caches are recomputed from scratch.
func (c *Chain) Split(idx int) (*Chain, error) {
	i := c.normIndex(idx)
	if i <= 0 {
		return nil, fmt.Errorf("chain: split index must be > 0, got %d", i)
	}
	tailContexts := make([]*activation.Context, len(c.contexts)-i)
	copy(tailContexts, c.contexts[i:])
	tail := &Chain{contexts: tailContexts}
	tail.recompute()

	c.contexts = c.contexts[:i]
	c.recompute()
	return tail, nil
}

// AppendChain splices tail onto the receiver's top and empties tail: a Chain
// that has been appended elsewhere must never be used again. Returns the
// contexts that were appended, in bottom-to-top order.
func (c *Chain) AppendChain(tail *Chain) ([]*activation.Context, error) {
	if len(tail.contexts) == 0 {
		return nil, fmt.Errorf("chain: cannot append an empty or already-consumed chain")
	}
	if len(c.contexts)+len(tail.contexts) > KMax {
		return nil, fmt.Errorf("chain: append would exceed maximum chain depth %d", KMax)
	}
	appended := tail.contexts
	c.contexts = append(c.contexts, appended...)
	if !tail.nextTimeout.IsNone() && (c.nextTimeout.IsNone() || tail.nextTimeout.Less(c.nextTimeout)) {
		c.nextTimeout = tail.nextTimeout
	}
	tail.contexts = nil
	tail.nextTimeout = cputime.None
	return appended, nil
}

// Finish calls Thread.Finish(now) on every context, bottom to top.
func (c *Chain) Finish(now cputime.Time) {
	for _, ctx := range c.contexts {
		ctx.Thread.Finish(now)
	}
}

// RunBackground calls Thread.RunBackground(now, delta) on every context
// except the top: every ancestor watched the top consume delta units of
// processor time without running itself.
func (c *Chain) RunBackground(now, delta cputime.Time) {
	if delta.IsZero() || len(c.contexts) < 2 {
		return
	}
	for _, ctx := range c.contexts[:len(c.contexts)-1] {
		ctx.Thread.RunBackground(now, delta)
	}
}

// Suspend calls Thread.Suspend(now) on every context, bottom to top; used
// when an entire chain is being set aside rather than finished.
func (c *Chain) Suspend(now cputime.Time) {
	for _, ctx := range c.contexts {
		ctx.Thread.Suspend(now)
	}
}
