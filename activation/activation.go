// Package activation is the per-thread half of a chain: a Context pairs a
// Thread with its resumable Computation and the timeout that governs when
// the core must interrupt it.
package activation

import (
	"github.com/z33ky/schedsi/cputime"
	"github.com/z33ky/schedsi/request"
	"github.com/z33ky/schedsi/thread"
)

// Context is one activation record on a chain: the Thread it runs, the
// Computation driving it, and the timeout the chain's cache is built from.
// A Context is never shared between two chains at once; moving it between
// chains (split/append) carries it and its Computation's progress intact.
type Context struct {
	Thread  thread.Thread
	comp    thread.Computation
	timeout cputime.Time

	started bool
	// pending is set by Reply and consumed by the next Step call, which
	// passes it alongside the current time; it is how a context gets back
	// the chain it handed off via a Resume request.
	pending request.Chain
}

// NewContext builds a fresh computation for t via t.NewComputation, with the
// thread's declared timeout as the context's starting timeout.
func NewContext(t thread.Thread) *Context {
	return &Context{
		Thread:  t,
		comp:    t.NewComputation(),
		timeout: t.DeclaredTimeout(),
	}
}

// Timeout returns the context's own cached timeout.
func (c *Context) Timeout() cputime.Time { return c.timeout }

// SetTimeout overwrites the context's own timeout. Callers maintaining a
// chain-level cache must update that cache too; Context itself has no
// notion of siblings.
func (c *Context) SetTimeout(t cputime.Time) { c.timeout = t }

// Reply arranges for the context's next Step to receive chain along with the
// current time, satisfying a pending Resume request.
func (c *Context) Reply(chain request.Chain) {
	c.pending = chain
}

// Step drives the context's computation forward by one request. On the
// first call it starts the computation fresh; every call passes the given
// current time, plus the pending Reply if there is one.
func (c *Context) Step(now cputime.Time) (request.Request, bool) {
	in := thread.StepInput{Now: now}
	if c.pending != nil {
		in.Returned = c.pending
		c.pending = nil
	}
	c.started = true
	return c.comp.Step(in)
}

// Started reports whether Step has been called on this context at least once.
func (c *Context) Started() bool { return c.started }

// Restart discards the context's current computation and replaces it with a
// fresh one for the same thread, first finishing the old one. Used by the
// single-hardware-timer core variant, which cannot preserve the kernel
// scheduler's in-flight decision across every timer tick and instead always
// re-enters it from the top.
func (c *Context) Restart(now cputime.Time) {
	c.Thread.Finish(now)
	c.comp = c.Thread.NewComputation()
	c.timeout = c.Thread.DeclaredTimeout()
	c.started = false
	c.pending = nil
}
