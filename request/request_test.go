package request

import (
	"testing"

	"github.com/z33ky/schedsi/cputime"
)

func TestNewExecuteRejectsZero(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on Execute(0)")
		}
	}()
	NewExecute(0)
}

func TestNewExecuteAllowsRunUntilTimer(t *testing.T) {
	r := NewExecute(RunUntilTimer)
	if r.Kind != Execute || r.N != RunUntilTimer {
		t.Fatalf("got %+v", r)
	}
}

func TestNewResumeRejectsNil(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on Resume(nil)")
		}
	}()
	NewResume(nil)
}

func TestNewTimerAtSetsIndex(t *testing.T) {
	r := NewTimerAt(cputime.FromInt(3), 2)
	if !r.HasIndex || r.AtIndex != 2 {
		t.Fatalf("got %+v", r)
	}
}

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		Execute:     "execute",
		Timer:       "timer",
		Idle:        "idle",
		Resume:      "resume",
		CurrentTime: "current_time",
		Finish:      "finish",
	}
	for k, want := range cases {
		if got := k.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", k, got, want)
		}
	}
}
