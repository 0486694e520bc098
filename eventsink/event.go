// Package eventsink defines the structural event stream the core driver
// emits at every observable transition. A Sink is a single-method fan-in
// point: backends (text, binary, SVG, a Multiplexer) all implement Emit
// against the same tagged Event variant rather than exposing one method
// per event kind.
package eventsink

import (
	"github.com/z33ky/schedsi/cputime"
	"github.com/z33ky/schedsi/registry"
)

// Kind discriminates the Event variants.
type Kind int

const (
	Schedule Kind = iota
	ContextSwitch
	ThreadExecute
	ThreadYield
	ThreadFinish
	TimerSet
	TimerElapsed
	CoreIdle
	ThreadStatistics
	CoreStatistics
	CoreFailure
)

func (k Kind) String() string {
	switch k {
	case Schedule:
		return "schedule"
	case ContextSwitch:
		return "context_switch"
	case ThreadExecute:
		return "thread_execute"
	case ThreadYield:
		return "thread_yield"
	case ThreadFinish:
		return "thread_finish"
	case TimerSet:
		return "timer_set"
	case TimerElapsed:
		return "timer_elapsed"
	case CoreIdle:
		return "core_idle"
	case ThreadStatistics:
		return "thread_statistics"
	case CoreStatistics:
		return "core_statistics"
	case CoreFailure:
		return "core_failure"
	default:
		return "unknown"
	}
}

// Direction discriminates a ContextSwitch's direction.
type Direction int

const (
	Down Direction = iota // descending into a Resume'd sub-chain
	Up                    // ascending via an idle or timer-elapsed pop
)

func (d Direction) String() string {
	if d == Down {
		return "down"
	}
	return "up"
}

// Relationship classifies the edge between one chain entry and the one
// below it.
type Relationship int

const (
	Sibling Relationship = iota // same module
	Child                       // cᵢ₊₁ is a child module's scheduler
)

func (r Relationship) String() string {
	if r == Sibling {
		return "sibling"
	}
	return "child"
}

// ChainEntry is one position in a ChainSummary.
type ChainEntry struct {
	ThreadID     registry.ThreadID
	ModuleID     registry.ModuleID
	Relationship Relationship
}

// CoreCounters is the per-module execution breakdown a CoreStatistics event
// carries, plus totals.
type CoreCounters struct {
	TotalTime    cputime.Time
	IdleTime     cputime.Time
	SwitchTime   cputime.Time
	PerModule    map[registry.ModuleID]cputime.Time
}

// ThreadCounters mirrors thread.Stats in a sink-friendly, dependency-light
// shape (eventsink must not import thread, to stay a leaf package).
type ThreadCounters struct {
	ExecutionTime cputime.Time
	RunStarts     []cputime.Time
	RunTimes      []cputime.Time
	WaitSamples   []cputime.Time
	CtxSwitchIn   int
	CtxSwitchOut  int
}

// Event is the tagged variant every Sink handles. Exactly one field group
// is meaningful per Kind; CoreUID and Time are set for every per-core event.
type Event struct {
	Kind Kind

	CoreUID string
	Time    cputime.Time

	// Schedule
	ChainSummary []ChainEntry

	// ContextSwitch
	Direction Direction
	Cost      cputime.Time

	// ThreadExecute / ThreadYield / ThreadFinish / ThreadStatistics
	ThreadID registry.ThreadID
	RunTime  cputime.Time

	// TimerSet / TimerElapsed
	CtxIndex  int
	HasValue  bool
	Value     cputime.Time

	// CoreIdle
	FromTime cputime.Time
	ToTime   cputime.Time

	// ThreadStatistics
	ThreadStats ThreadCounters

	// CoreStatistics
	CoreStats CoreCounters

	// CoreFailure
	Reason string
}

// Sink is the single fan-in point every backend implements.
type Sink interface {
	Emit(Event)
}
