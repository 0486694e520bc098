// Package request defines the tagged variant a Thread's or Scheduler's
// computation yields at every suspension point.
package request

import (
	"fmt"

	"github.com/z33ky/schedsi/cputime"
)

// Kind discriminates the Request variants.
type Kind int

const (
	// Execute consumes processor time at the current top context.
	Execute Kind = iota
	// Timer sets (or clears) a context's timeout.
	Timer
	// Idle signals no runnable child; surrender the budget upward.
	Idle
	// Resume appends a sub-chain onto the core's chain.
	Resume
	// CurrentTime asks the core for current_time, resumed immediately.
	CurrentTime
	// Finish is terminal: the thread has finished. It is implicit when
	// Thread.Remaining reaches zero, but a computation may also yield it
	// explicitly (e.g. a scheduler that has nothing left to manage).
	Finish
)

func (k Kind) String() string {
	switch k {
	case Execute:
		return "execute"
	case Timer:
		return "timer"
	case Idle:
		return "idle"
	case Resume:
		return "resume"
	case CurrentTime:
		return "current_time"
	case Finish:
		return "finish"
	default:
		return "unknown"
	}
}

// RunUntilTimer is the sentinel Execute payload meaning "run until the
// timer elapses or the request limit is hit", i.e. n == -1 in the spec.
const RunUntilTimer = -1

// Chain stands in for *chain.Chain. The indirection exists so this package
// does not need to import chain, which itself depends on request for the
// Requests its contexts' computations yield; an interface with an
// unexported method would only let types in this package implement it, so
// this is an alias rather than a sealed interface. Callers that need the
// concrete type (the cpu core, and nothing else) type-assert back to
// *chain.Chain.
type Chain = any

// Request is the tagged variant produced by exactly one yield of a
// computation. Exactly one field group is meaningful per Kind.
type Request struct {
	Kind Kind

	// Execute
	N int64 // > 0, or RunUntilTimer

	// Timer
	Delta    cputime.Time
	AtIndex  int  // index to set the timer at; only meaningful if HasIndex
	HasIndex bool

	// Resume
	Sub Chain
}

// NewExecute builds an Execute(n) request. n must be > 0 or RunUntilTimer.
func NewExecute(n int64) Request {
	if n != RunUntilTimer && n <= 0 {
		panic(fmt.Sprintf("request: illegal Execute(%d)", n))
	}
	return Request{Kind: Execute, N: n}
}

// NewTimer builds a Timer(delta) request applying to the top context.
func NewTimer(delta cputime.Time) Request {
	return Request{Kind: Timer, Delta: delta}
}

// NewTimerAt builds a Timer(delta) request applying to an explicit chain index.
func NewTimerAt(delta cputime.Time, index int) Request {
	return Request{Kind: Timer, Delta: delta, AtIndex: index, HasIndex: true}
}

// NewIdle builds an Idle request.
func NewIdle() Request { return Request{Kind: Idle} }

// NewResume builds a Resume(chain) request.
func NewResume(sub Chain) Request {
	if sub == nil {
		panic("request: Resume with nil chain")
	}
	return Request{Kind: Resume, Sub: sub}
}

// NewCurrentTime builds a CurrentTime request.
func NewCurrentTime() Request { return Request{Kind: CurrentTime} }

// NewFinish builds an explicit Finish request.
func NewFinish() Request { return Request{Kind: Finish} }
