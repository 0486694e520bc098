package timectrl

import (
	"testing"
	"time"

	"github.com/z33ky/schedsi/cputime"
)

func TestPacerAcceleratedNeverSleeps(t *testing.T) {
	p := NewPacer(Accelerated, time.Millisecond)

	start := time.Now()
	p.Wait(cputime.FromInt(1000))
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Fatalf("Accelerated pacer slept for %v, want ~0", elapsed)
	}
}

func TestPacerRealTimeSleepsProportionally(t *testing.T) {
	p := NewPacer(RealTime, 10*time.Millisecond)

	start := time.Now()
	p.Wait(cputime.FromInt(2))
	elapsed := time.Since(start)

	if elapsed < 15*time.Millisecond {
		t.Fatalf("RealTime pacer returned after %v, want at least ~20ms", elapsed)
	}
}

func TestPacerRealTimeDoesNotOversleepAfterCatchingUp(t *testing.T) {
	p := NewPacer(RealTime, time.Millisecond)

	p.Wait(cputime.FromInt(5))
	time.Sleep(10 * time.Millisecond)

	start := time.Now()
	p.Wait(cputime.FromInt(1))
	if elapsed := time.Since(start); elapsed > 5*time.Millisecond {
		t.Fatalf("pacer slept %v despite already being ahead of schedule", elapsed)
	}
}
