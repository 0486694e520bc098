package hierarchy

import (
	"strings"
	"testing"

	"github.com/z33ky/schedsi/eventsink"
)

const twoModuleDoc = `{
	"modules": [
		{
			"name": "root",
			"scheduler": {"type": "roundrobin", "slice": "3"},
			"children": ["child"]
		},
		{
			"name": "child",
			"scheduler": {"type": "fcfs"},
			"threads": [
				{"type": "work", "start": "0", "units": "5"},
				{"type": "work", "start": "0", "units": "4"}
			]
		}
	],
	"cores": [
		{"uid": "core0", "variant": "local_timer", "root": "root", "module_switch_cost": "1"}
	]
}`

func TestBuildWiresModulesThreadsAndCores(t *testing.T) {
	w, reg, err := Build(strings.NewReader(twoModuleDoc))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(reg.AllModuleIDs()) != 2 {
		t.Fatalf("AllModuleIDs() = %v, want 2 modules", reg.AllModuleIDs())
	}
	// Two scheduler threads plus two work threads.
	if len(reg.AllThreadIDs()) != 4 {
		t.Fatalf("AllThreadIDs() = %v, want 4 threads", reg.AllThreadIDs())
	}

	var sink recordingSink
	AttachSink(w, &sink)

	if err := w.Run(500); err != nil {
		t.Fatalf("Run: %v", err)
	}

	foundFinish := 0
	for _, e := range sink.events {
		if e.Kind == eventsink.ThreadFinish {
			foundFinish++
		}
	}
	if foundFinish != 2 {
		t.Fatalf("thread_finish count = %d, want 2 (both work threads)", foundFinish)
	}
}

func TestBuildRejectsDuplicateModuleName(t *testing.T) {
	doc := `{"modules": [{"name": "a", "scheduler": {"type": "fcfs"}}, {"name": "a", "scheduler": {"type": "fcfs"}}]}`
	if _, _, err := Build(strings.NewReader(doc)); err == nil {
		t.Fatal("Build with a duplicate module name succeeded, want error")
	}
}

func TestBuildRejectsUnknownChild(t *testing.T) {
	doc := `{"modules": [{"name": "a", "scheduler": {"type": "fcfs"}, "children": ["missing"]}]}`
	if _, _, err := Build(strings.NewReader(doc)); err == nil {
		t.Fatal("Build with an unknown child reference succeeded, want error")
	}
}

func TestBuildRejectsUnknownSchedulerType(t *testing.T) {
	doc := `{"modules": [{"name": "a", "scheduler": {"type": "lottery"}}]}`
	if _, _, err := Build(strings.NewReader(doc)); err == nil {
		t.Fatal("Build with an unknown scheduler type succeeded, want error")
	}
}

func TestBuildPenaltyWrapsBasePolicy(t *testing.T) {
	doc := `{"modules": [{"name": "a", "scheduler": {"type": "penalty", "base": "roundrobin", "slice": "2", "min_run": "1"}}]}`
	if _, _, err := Build(strings.NewReader(doc)); err != nil {
		t.Fatalf("Build with a penalty-wrapped round-robin base: %v", err)
	}
}

func TestBuildRejectsModuleCycle(t *testing.T) {
	doc := `{
		"modules": [{"name": "a", "scheduler": {"type": "fcfs"}, "children": ["a"]}],
		"cores": [{"uid": "c", "variant": "local_timer", "root": "a", "module_switch_cost": "1"}]
	}`
	if _, _, err := Build(strings.NewReader(doc)); err == nil {
		t.Fatal("Build with a module listing itself as its own child succeeded, want a cycle error")
	}
}

func TestBuildRejectsMissingCoreRoot(t *testing.T) {
	doc := `{"modules": [{"name": "a", "scheduler": {"type": "fcfs"}}], "cores": [{"uid": "c", "root": "missing"}]}`
	if _, _, err := Build(strings.NewReader(doc)); err == nil {
		t.Fatal("Build with a core referencing an unknown root succeeded, want error")
	}
}

type recordingSink struct {
	events []eventsink.Event
}

func (r *recordingSink) Emit(e eventsink.Event) { r.events = append(r.events, e) }
