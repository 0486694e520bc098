// Package cpucore drives the context chain one atomic operation at a time:
// pulling a Request out of whatever computation is on top, accounting time
// and context-switch cost, splitting the chain on an elapsed timer, and
// reporting every transition to an eventsink.Sink.
package cpucore

import (
	"github.com/z33ky/schedsi/chain"
	"github.com/z33ky/schedsi/cputime"
	"github.com/z33ky/schedsi/eventsink"
	"github.com/z33ky/schedsi/registry"
	"github.com/z33ky/schedsi/request"
	"github.com/z33ky/schedsi/thread"
)

// Variant selects between the two core driver strategies from the spec:
// each context may own an independent timer, or only the kernel may.
type Variant int

const (
	LocalTimer Variant = iota
	KernelTimerOnly
)

// CostFunc computes the simulated-time cost of switching from the module
// owning the departing top context to the module owning the arriving one.
// It must return cputime.Zero when from == to.
type CostFunc func(from, to registry.ModuleID) cputime.Time

// ConstantCost builds a CostFunc that charges moduleCost for any
// cross-module transition and nothing for an intra-module one.
func ConstantCost(moduleCost cputime.Time) CostFunc {
	return func(from, to registry.ModuleID) cputime.Time {
		if from == to {
			return cputime.Zero
		}
		return moduleCost
	}
}

// PendingOracle reports whether any thread anywhere in the simulation still
// has outstanding work, used to distinguish a legitimate idle-to-termination
// transition at the root from a genuine hang.
type PendingOracle func(now cputime.Time) bool

// Core drives one context chain. It does not own the modules or threads
// reachable from that chain — only the chain itself.
type Core struct {
	UID     string
	Variant Variant
	Cost    CostFunc
	Sink    eventsink.Sink
	Pending PendingOracle

	chain *chain.Chain
	now   cputime.Time

	idleTime   cputime.Time
	switchTime cputime.Time
	perModule  map[registry.ModuleID]cputime.Time
}

// New constructs a Core rooted at kernel's own fresh context.
func New(uid string, variant Variant, kernel thread.Thread, cost CostFunc, sink eventsink.Sink, pending PendingOracle) *Core {
	return &Core{
		UID:       uid,
		Variant:   variant,
		Cost:      cost,
		Sink:      sink,
		Pending:   pending,
		chain:     chain.FromThread(kernel),
		now:       cputime.Zero,
		idleTime:  cputime.Zero,
		switchTime: cputime.Zero,
		perModule: make(map[registry.ModuleID]cputime.Time),
	}
}

// Now returns the core's current simulated time.
func (c *Core) Now() cputime.Time { return c.now }

func (c *Core) emit(e eventsink.Event) {
	if c.Sink == nil {
		return
	}
	e.CoreUID = c.UID
	e.Time = c.now
	c.Sink.Emit(e)
}

func (c *Core) chainSummary() []eventsink.ChainEntry {
	out := make([]eventsink.ChainEntry, 0, c.chain.Len())
	var prevModule registry.ModuleID
	for i := 0; i < c.chain.Len(); i++ {
		t := c.chain.ThreadAt(i)
		rel := eventsink.Child
		if i > 0 && t.ModuleID() == prevModule {
			rel = eventsink.Sibling
		}
		out = append(out, eventsink.ChainEntry{ThreadID: t.TID(), ModuleID: t.ModuleID(), Relationship: rel})
		prevModule = t.ModuleID()
	}
	return out
}

func (c *Core) accountModule(mod registry.ModuleID, delta cputime.Time) {
	c.perModule[mod] = c.perModule[mod].Add(delta)
}

// Step runs one atomic operation: either the full handling of one
// time-consuming Request, or a timer-interrupt unwind. done reports
// whether the simulation has terminated on this core (chain drained, no
// pending work anywhere).
func (c *Core) Step() (done bool, err error) {
	if c.chain == nil {
		return true, nil
	}

	if nt := c.chain.NextTimeout(); !nt.IsNone() && nt.LessEqualZero() {
		if err := c.timerInterrupt(); err != nil {
			return false, c.fail(err)
		}
		return false, nil
	}

	for {
		ctx := c.chain.Top()
		req, alive := ctx.Step(c.now)
		if !alive {
			return false, c.fail(&MalformedRequestError{Reason: "computation ended without yielding Finish"})
		}
		consumed, doneNow, err := c.handle(req)
		if err != nil {
			return false, c.fail(err)
		}
		if doneNow {
			c.chain = nil
			return true, nil
		}
		if consumed {
			return false, nil
		}
	}
}

func (c *Core) fail(err error) error {
	c.emit(eventsink.Event{Kind: eventsink.CoreFailure, Reason: err.Error()})
	return err
}

func (c *Core) handle(req request.Request) (consumed bool, done bool, err error) {
	switch req.Kind {
	case request.CurrentTime:
		return false, false, nil

	case request.Timer:
		idx := -1
		if req.HasIndex {
			idx = req.AtIndex
		}
		if c.Variant == KernelTimerOnly && c.chain.Len() > 1 {
			// Requests always originate from the top context; if the chain
			// is more than one deep, the issuer cannot be the kernel.
			return false, false, &TimerViolationError{Reason: "timer set by a non-kernel context under the kernel-timer-only variant"}
		}
		c.chain.SetTimer(req.Delta, idx)
		c.emit(eventsink.Event{Kind: eventsink.TimerSet, CtxIndex: idx, HasValue: !req.Delta.IsNone(), Value: req.Delta})
		return false, false, nil

	case request.Idle:
		c.emit(eventsink.Event{Kind: eventsink.ThreadYield, ThreadID: c.chain.Top().Thread.TID()})
		if c.chain.Len() == 1 {
			return c.rootIdle()
		}
		if c.Variant == KernelTimerOnly {
			if err := c.popTop(1, true, eventsink.Up); err != nil {
				return false, false, err
			}
			return true, false, nil
		}
		if err := c.popTop(c.chain.Len()-1, false, eventsink.Up); err != nil {
			return false, false, err
		}
		return true, false, nil

	case request.Resume:
		sub, ok := req.Sub.(*chain.Chain)
		if !ok || sub == nil {
			return false, false, &MalformedRequestError{Reason: "Resume payload is not a chain"}
		}
		if err := c.appendChain(sub); err != nil {
			return false, false, err
		}
		return true, false, nil

	case request.Execute:
		return c.execute(req)

	case request.Finish:
		if err := c.popTop(c.chain.Len()-1, true, eventsink.Up); err != nil {
			return false, false, err
		}
		return true, c.chain == nil, nil

	default:
		return false, false, &MalformedRequestError{Reason: "unknown request kind"}
	}
}

func (c *Core) execute(req request.Request) (consumed bool, done bool, err error) {
	budget := c.chain.NextTimeout()
	if req.N != request.RunUntilTimer {
		budget = cputime.MinOptional(budget, cputime.FromInt(req.N))
	}
	top := c.chain.Top()
	remaining := top.Thread.Remaining()
	if budget.IsNone() {
		if remaining.IsNone() {
			return false, false, &HangError{Reason: "unbounded Execute with no timer anywhere on the chain"}
		}
		budget = remaining
	}
	if budget.LessEqualZero() {
		if err := c.timerInterrupt(); err != nil {
			return false, false, err
		}
		return true, false, nil
	}

	delta := budget
	if !remaining.IsNone() && remaining.Less(budget) {
		delta = remaining
	}

	top.Thread.Run(c.now, delta)
	c.chain.RunBackground(c.now, delta)
	c.now = c.now.Add(delta)
	c.chain.Elapse(delta)
	c.accountModule(top.Thread.ModuleID(), delta)

	c.emit(eventsink.Event{Kind: eventsink.ThreadExecute, ThreadID: top.Thread.TID(), RunTime: delta})

	newRemaining := top.Thread.Remaining()
	if !newRemaining.IsNone() && newRemaining.IsZero() {
		c.emit(eventsink.Event{Kind: eventsink.ThreadFinish, ThreadID: top.Thread.TID()})
		if err := c.popTop(c.chain.Len()-1, true, eventsink.Up); err != nil {
			return false, false, err
		}
		return true, c.chain == nil, nil
	}
	return true, false, nil
}

// rootIdle handles Idle at the kernel scheduler: either jump current_time
// forward to the next pending deadline, or, if nothing anywhere is
// pending, terminate the simulation on this core.
func (c *Core) rootIdle() (consumed bool, done bool, err error) {
	nt := c.chain.NextTimeout()
	if nt.IsNone() {
		if c.Pending != nil && c.Pending(c.now) {
			return false, false, &HangError{Reason: "kernel yielded with no timer while work remains pending"}
		}
		c.chain = nil
		return true, true, nil
	}
	from := c.now
	c.now = c.now.Add(nt)
	c.chain.Elapse(nt)
	c.idleTime = c.idleTime.Add(nt)
	c.emit(eventsink.Event{Kind: eventsink.CoreIdle, FromTime: from, ToTime: c.now})
	return true, false, nil
}

// popTop splits the chain at idx, finishing or suspending the detached
// tail, charges the cross-module switch cost, and replies the tail back to
// the new top so a pending Resume request is satisfied.
func (c *Core) popTop(idx int, doFinish bool, dir eventsink.Direction) error {
	fromThread := c.chain.Top().Thread
	tail, err := c.chain.Split(idx)
	if err != nil {
		return err
	}
	if doFinish {
		tail.Finish(c.now)
	} else {
		tail.Suspend(c.now)
	}

	toThread := c.chain.Top().Thread
	cost := c.Cost(fromThread.ModuleID(), toThread.ModuleID())
	c.now = c.now.Add(cost)
	c.chain.Elapse(cost)
	c.switchTime = c.switchTime.Add(cost)

	c.chain.Top().Reply(tail)
	toThread.Resume(c.now, true)

	c.emit(eventsink.Event{Kind: eventsink.ContextSwitch, Direction: dir, Cost: cost})
	return nil
}

// appendChain descends into sub: charges the switch cost, splices it on,
// and resumes each newly-appended context's thread as a fresh activation.
func (c *Core) appendChain(sub *chain.Chain) error {
	fromThread := c.chain.Top().Thread
	appended, err := c.chain.AppendChain(sub)
	if err != nil {
		return err
	}
	toThread := c.chain.Top().Thread
	cost := c.Cost(fromThread.ModuleID(), toThread.ModuleID())
	c.now = c.now.Add(cost)
	c.chain.Elapse(cost)
	c.switchTime = c.switchTime.Add(cost)

	for _, ctx := range appended {
		ctx.Thread.Resume(c.now, false)
	}

	c.emit(eventsink.Event{Kind: eventsink.ContextSwitch, Direction: eventsink.Down, Cost: cost})
	c.emit(eventsink.Event{Kind: eventsink.Schedule, ChainSummary: c.chainSummary()})
	return nil
}

// timerInterrupt handles chain.NextTimeout() <= 0: finds the elapsed
// context, splits above it (discarding the whole tail under the
// kernel-timer-only variant, or just suspending it under local-timer),
// clears the now-current top's elapsed timer, and — for kernel-timer-only
// — restarts the kernel's own computation, modeling a single hardware
// timer that always re-enters the scheduler from scratch.
func (c *Core) timerInterrupt() error {
	idx, ok := c.chain.FindElapsedTimer()
	if !ok {
		return &MalformedRequestError{Reason: "timer interrupt with no elapsed timer"}
	}
	c.emit(eventsink.Event{Kind: eventsink.TimerElapsed, CtxIndex: idx})

	if c.chain.Len() > 1 {
		doFinish := c.Variant == KernelTimerOnly
		if err := c.popTop(idx+1, doFinish, eventsink.Up); err != nil {
			return err
		}
	}
	c.chain.SetTimer(cputime.None, -1)

	if c.Variant == KernelTimerOnly {
		c.chain.Bottom().Restart(c.now)
	}
	return nil
}

// Statistics returns the core's accumulated counters.
func (c *Core) Statistics() eventsink.CoreCounters {
	perModule := make(map[registry.ModuleID]cputime.Time, len(c.perModule))
	for k, v := range c.perModule {
		perModule[k] = v
	}
	return eventsink.CoreCounters{
		TotalTime:  c.now,
		IdleTime:   c.idleTime,
		SwitchTime: c.switchTime,
		PerModule:  perModule,
	}
}
