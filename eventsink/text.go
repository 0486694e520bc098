package eventsink

import (
	"fmt"
	"io"
)

// TextSink renders every Event as one human-readable line. It is the
// simplest backend and the one replay normally defaults to.
type TextSink struct {
	w io.Writer
}

// NewTextSink wraps w.
func NewTextSink(w io.Writer) *TextSink {
	return &TextSink{w: w}
}

func (s *TextSink) Emit(e Event) {
	switch e.Kind {
	case Schedule:
		fmt.Fprintf(s.w, "%s t=%s schedule %s\n", e.CoreUID, e.Time, formatChain(e.ChainSummary))
	case ContextSwitch:
		fmt.Fprintf(s.w, "%s t=%s context_switch %s cost=%s\n", e.CoreUID, e.Time, e.Direction, e.Cost)
	case ThreadExecute:
		fmt.Fprintf(s.w, "%s t=%s thread_execute tid=%d run=%s\n", e.CoreUID, e.Time, e.ThreadID, e.RunTime)
	case ThreadYield:
		fmt.Fprintf(s.w, "%s t=%s thread_yield tid=%d\n", e.CoreUID, e.Time, e.ThreadID)
	case ThreadFinish:
		fmt.Fprintf(s.w, "%s t=%s thread_finish tid=%d\n", e.CoreUID, e.Time, e.ThreadID)
	case TimerSet:
		v := "none"
		if e.HasValue {
			v = e.Value.String()
		}
		fmt.Fprintf(s.w, "%s t=%s timer_set idx=%d value=%s\n", e.CoreUID, e.Time, e.CtxIndex, v)
	case TimerElapsed:
		fmt.Fprintf(s.w, "%s t=%s timer_elapsed idx=%d\n", e.CoreUID, e.Time, e.CtxIndex)
	case CoreIdle:
		fmt.Fprintf(s.w, "%s core_idle %s -> %s\n", e.CoreUID, e.FromTime, e.ToTime)
	case ThreadStatistics:
		fmt.Fprintf(s.w, "%s thread_statistics tid=%d execution=%s ctxsw_in=%d ctxsw_out=%d\n",
			e.CoreUID, e.ThreadID, e.ThreadStats.ExecutionTime, e.ThreadStats.CtxSwitchIn, e.ThreadStats.CtxSwitchOut)
	case CoreStatistics:
		fmt.Fprintf(s.w, "%s core_statistics total=%s idle=%s switch=%s\n",
			e.CoreUID, e.CoreStats.TotalTime, e.CoreStats.IdleTime, e.CoreStats.SwitchTime)
	case CoreFailure:
		fmt.Fprintf(s.w, "%s core_failure %s\n", e.CoreUID, e.Reason)
	default:
		fmt.Fprintf(s.w, "%s t=%s %s\n", e.CoreUID, e.Time, e.Kind)
	}
}

func formatChain(entries []ChainEntry) string {
	out := ""
	for i, e := range entries {
		if i > 0 {
			out += fmt.Sprintf(" -%s-> ", e.Relationship)
		}
		out += fmt.Sprintf("m%d/t%d", e.ModuleID, e.ThreadID)
	}
	return out
}
