package eventsink

import (
	"bytes"
	"strings"
	"testing"

	"github.com/z33ky/schedsi/cputime"
	"github.com/z33ky/schedsi/registry"
)

func sampleEvents() []Event {
	return []Event{
		{
			Kind:    Schedule,
			CoreUID: "core0",
			Time:    cputime.FromInt(1),
			ChainSummary: []ChainEntry{
				{ThreadID: 1, ModuleID: 1, Relationship: Sibling},
				{ThreadID: 2, ModuleID: 2, Relationship: Child},
			},
		},
		{
			Kind:      ContextSwitch,
			CoreUID:   "core0",
			Time:      cputime.FromInt(1),
			Direction: Down,
			Cost:      cputime.FromInt(2),
		},
		{
			Kind:     ThreadExecute,
			CoreUID:  "core0",
			Time:     cputime.FromInt(4),
			ThreadID: 2,
			RunTime:  cputime.FromInt(3),
		},
		{
			Kind:     ThreadYield,
			CoreUID:  "core0",
			Time:     cputime.FromInt(4),
			ThreadID: 2,
		},
		{
			Kind:     ThreadFinish,
			CoreUID:  "core0",
			Time:     cputime.FromInt(4),
			ThreadID: 2,
		},
		{
			Kind:     TimerSet,
			CoreUID:  "core0",
			Time:     cputime.FromInt(4),
			CtxIndex: 0,
			HasValue: true,
			Value:    cputime.FromInt(7),
		},
		{
			Kind:     TimerSet,
			CoreUID:  "core0",
			Time:     cputime.FromInt(4),
			CtxIndex: 0,
			HasValue: false,
		},
		{
			Kind:     TimerElapsed,
			CoreUID:  "core0",
			Time:     cputime.FromInt(7),
			CtxIndex: 0,
		},
		{
			Kind:     CoreIdle,
			CoreUID:  "core0",
			Time:     cputime.FromInt(10),
			FromTime: cputime.Zero,
			ToTime:   cputime.FromInt(10),
		},
		{
			Kind:     ThreadStatistics,
			CoreUID:  "core0",
			Time:     cputime.FromInt(10),
			ThreadID: 2,
			ThreadStats: ThreadCounters{
				ExecutionTime: cputime.FromInt(3),
				RunStarts:     []cputime.Time{cputime.FromInt(1), cputime.FromInt(5)},
				RunTimes:      []cputime.Time{cputime.FromInt(2), cputime.FromInt(1)},
				WaitSamples:   []cputime.Time{cputime.FromInt(1)},
				CtxSwitchIn:   2,
				CtxSwitchOut:  1,
			},
		},
		{
			Kind:    CoreStatistics,
			CoreUID: "core0",
			Time:    cputime.FromInt(10),
			CoreStats: CoreCounters{
				TotalTime:  cputime.FromInt(10),
				IdleTime:   cputime.FromInt(2),
				SwitchTime: cputime.FromInt(1),
				PerModule: map[registry.ModuleID]cputime.Time{
					1: cputime.FromInt(4),
					2: cputime.FromInt(3),
				},
			},
		},
		{
			Kind:    CoreFailure,
			CoreUID: "core0",
			Time:    cputime.FromInt(10),
			Reason:  "timer violation",
		},
	}
}

func TestBinarySinkRoundTrip(t *testing.T) {
	events := sampleEvents()

	var buf bytes.Buffer
	sink := NewBinarySink(&buf)
	for _, e := range events {
		sink.Emit(e)
	}
	if err := sink.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	got, err := DecodeAll(&buf)
	if err != nil {
		t.Fatalf("DecodeAll: %v", err)
	}
	if len(got) != len(events) {
		t.Fatalf("DecodeAll returned %d events, want %d", len(got), len(events))
	}
	for i := range events {
		want := events[i]
		have := got[i]
		if have.Kind != want.Kind || have.CoreUID != want.CoreUID || !have.Time.Equal(want.Time) {
			t.Fatalf("event %d = %+v, want %+v", i, have, want)
		}
	}

	perModule := got[10].CoreStats.PerModule
	if len(perModule) != 2 || !perModule[1].Equal(cputime.FromInt(4)) || !perModule[2].Equal(cputime.FromInt(3)) {
		t.Fatalf("CoreStatistics.PerModule = %v, want {1:4, 2:3}", perModule)
	}

	runStarts := got[9].ThreadStats.RunStarts
	if len(runStarts) != 2 || !runStarts[1].Equal(cputime.FromInt(5)) {
		t.Fatalf("ThreadStatistics.RunStarts = %v, want [1, 5]", runStarts)
	}

	if got[10].Reason != "" {
		t.Fatalf("CoreFailure leaked into CoreStatistics.Reason: %q", got[10].Reason)
	}
	if got[11].Reason != "timer violation" {
		t.Fatalf("CoreFailure.Reason = %q, want %q", got[11].Reason, "timer violation")
	}
}

func TestBinarySinkCoreStatisticsEncodingIsDeterministic(t *testing.T) {
	e := sampleEvents()[10]
	// A map with several entries hashes to a different iteration order on
	// (almost) every run; encode it many times and require identical bytes
	// every time, not just across this one pair.
	first, err := encodePayload(e)
	if err != nil {
		t.Fatalf("encodePayload: %v", err)
	}
	for i := 0; i < 10; i++ {
		got, err := encodePayload(e)
		if err != nil {
			t.Fatalf("encodePayload: %v", err)
		}
		if !bytes.Equal(first, got) {
			t.Fatalf("encodePayload(CoreStatistics) is nondeterministic: %x vs %x", first, got)
		}
	}
}

func TestBinarySinkEmptyStreamDecodesToNothing(t *testing.T) {
	var buf bytes.Buffer
	got, err := DecodeAll(&buf)
	if err != nil {
		t.Fatalf("DecodeAll: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("DecodeAll on empty input = %v, want empty", got)
	}
}

func TestBinarySinkTruncatedStreamErrors(t *testing.T) {
	var buf bytes.Buffer
	sink := NewBinarySink(&buf)
	sink.Emit(sampleEvents()[0])
	if err := sink.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	truncated := buf.Bytes()[:buf.Len()-2]
	if _, err := DecodeAll(bytes.NewReader(truncated)); err == nil {
		t.Fatal("DecodeAll on a truncated record succeeded, want error")
	}
}

func TestTextSinkRendersOneLinePerEvent(t *testing.T) {
	var buf bytes.Buffer
	sink := NewTextSink(&buf)
	for _, e := range sampleEvents() {
		sink.Emit(e)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != len(sampleEvents()) {
		t.Fatalf("got %d lines, want %d", len(lines), len(sampleEvents()))
	}
	if !strings.Contains(lines[0], "schedule") || !strings.Contains(lines[0], "child") {
		t.Fatalf("schedule line = %q, want it to mention the schedule kind and child relationship", lines[0])
	}
	if !strings.Contains(lines[2], "thread_execute") || !strings.Contains(lines[2], "tid=2") {
		t.Fatalf("thread_execute line = %q", lines[2])
	}
	if !strings.Contains(lines[len(lines)-1], "core_failure") || !strings.Contains(lines[len(lines)-1], "timer violation") {
		t.Fatalf("core_failure line = %q", lines[len(lines)-1])
	}
}

func TestMultiplexerFansOutToEverySink(t *testing.T) {
	var a, b bytes.Buffer
	mux := NewMultiplexer(NewTextSink(&a), NewTextSink(&b))

	e := sampleEvents()[2]
	mux.Emit(e)

	if a.String() != b.String() {
		t.Fatalf("sinks diverged: %q vs %q", a.String(), b.String())
	}
	if !strings.Contains(a.String(), "thread_execute") {
		t.Fatalf("multiplexed output = %q, want thread_execute", a.String())
	}
}

func TestMultiplexerAddAppendsASink(t *testing.T) {
	var a, b bytes.Buffer
	mux := NewMultiplexer(NewTextSink(&a))
	mux.Add(NewTextSink(&b))

	mux.Emit(sampleEvents()[2])

	if a.String() == "" || b.String() == "" {
		t.Fatal("both original and added sinks should have received the event")
	}
}

func TestSVGSinkOnlyRendersThreadExecuteSpans(t *testing.T) {
	var buf bytes.Buffer
	sink := NewSVGSink(&buf)
	for _, e := range sampleEvents() {
		sink.Emit(e)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "<svg") {
		t.Fatalf("output does not start with <svg: %q", out[:min(20, len(out))])
	}
	if !strings.Contains(out, "tid=2") {
		t.Fatalf("output missing the only thread with a ThreadExecute span: %q", out)
	}
	if !strings.HasSuffix(strings.TrimRight(out, "\n"), "</svg>") {
		t.Fatal("output does not end with </svg>")
	}
}
