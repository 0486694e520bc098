package activation

import (
	"testing"

	"github.com/z33ky/schedsi/cputime"
	"github.com/z33ky/schedsi/request"
	"github.com/z33ky/schedsi/thread"
)

func TestNewContextUsesDeclaredTimeout(t *testing.T) {
	w := thread.NewWork(1, 1, cputime.Zero, cputime.FromInt(10))
	ctx := NewContext(w)
	if !ctx.Timeout().IsNone() {
		t.Fatalf("Timeout() = %s, want none (a Work thread declares no timeout)", ctx.Timeout())
	}
}

func TestStepStartsThenResumesComputation(t *testing.T) {
	w := thread.NewWork(1, 1, cputime.Zero, cputime.FromInt(10))
	ctx := NewContext(w)

	if ctx.Started() {
		t.Fatal("Started() = true before first Step")
	}
	req, ok := ctx.Step(cputime.Zero)
	if !ok || req.Kind != request.Execute {
		t.Fatalf("first Step = %+v, %v, want Execute request", req, ok)
	}
	if !ctx.Started() {
		t.Fatal("Started() = false after first Step")
	}
}

func TestReplyDeliveredOnNextStep(t *testing.T) {
	w := thread.NewWork(1, 1, cputime.Zero, cputime.FromInt(10))
	ctx := NewContext(w)
	ctx.Step(cputime.Zero)

	ctx.Reply("anything, since request.Chain is just an any alias for *chain.Chain")
	// The Work computation ignores StepInput.Returned, but Reply must not
	// panic and must be consumed (cleared) by the following Step.
	ctx.Step(cputime.FromInt(1))
}

func TestRestartResetsTimeoutAndStarted(t *testing.T) {
	w := thread.NewWork(1, 1, cputime.Zero, cputime.FromInt(10))
	ctx := NewContext(w)
	ctx.Step(cputime.Zero)
	ctx.SetTimeout(cputime.FromInt(3))

	ctx.Restart(cputime.Zero)

	if ctx.Started() {
		t.Fatal("Started() = true after Restart")
	}
	if !ctx.Timeout().IsNone() {
		t.Fatalf("Timeout() = %s after Restart, want reset to thread's declared timeout (none)", ctx.Timeout())
	}
	if w.Remaining().IsPositive() {
		t.Fatalf("Remaining() = %s after Restart, want 0 (Restart finishes the old computation)", w.Remaining())
	}
}
