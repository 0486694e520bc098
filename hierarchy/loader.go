// Package hierarchy builds a module tree and its cores from a JSON
// workload description: a researcher comparing scheduling strategies edits
// one of these to change policy, slice sizes, or the workload, without
// touching Go code.
package hierarchy

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/z33ky/schedsi/cpucore"
	"github.com/z33ky/schedsi/cputime"
	"github.com/z33ky/schedsi/eventsink"
	"github.com/z33ky/schedsi/module"
	"github.com/z33ky/schedsi/registry"
	"github.com/z33ky/schedsi/scheduler"
	"github.com/z33ky/schedsi/schedulers/cfs"
	"github.com/z33ky/schedsi/schedulers/fcfs"
	"github.com/z33ky/schedsi/schedulers/mlfq"
	"github.com/z33ky/schedsi/schedulers/penalty"
	"github.com/z33ky/schedsi/schedulers/roundrobin"
	"github.com/z33ky/schedsi/schedulers/sjf"
	"github.com/z33ky/schedsi/thread"
	"github.com/z33ky/schedsi/world"
)

// Doc is the JSON document shape.
type Doc struct {
	Modules []ModuleDoc `json:"modules"`
	Cores   []CoreDoc   `json:"cores"`
}

type ModuleDoc struct {
	Name      string       `json:"name"`
	Scheduler SchedulerDoc `json:"scheduler"`
	Threads   []ThreadDoc  `json:"threads"`
	Children  []string     `json:"children"`
}

type SchedulerDoc struct {
	Type    string   `json:"type"`
	Slice   string   `json:"slice,omitempty"`
	Levels  []string `json:"levels,omitempty"`
	MinRun  string   `json:"min_run,omitempty"`
	Base    string   `json:"base,omitempty"`
	Latency string   `json:"latency,omitempty"`
}

type ThreadDoc struct {
	Type   string `json:"type"`   // "work" or "periodic"
	Start  string `json:"start"`
	Units  string `json:"units"`  // work: total units
	Period string `json:"period"` // periodic
	Burst  string `json:"burst"`  // periodic
	Count  int    `json:"count"`  // periodic: total bursts, 0 = unbounded
}

type CoreDoc struct {
	UID              string `json:"uid"`
	Variant          string `json:"variant"` // "local_timer" or "kernel_timer_only"
	Root             string `json:"root"`
	ModuleSwitchCost string `json:"module_switch_cost"`
}

// Build parses r and constructs a world.World with every module, thread,
// scheduler and core wired up and ready to run.
func Build(r io.Reader) (*world.World, *registry.Registry[*module.Module, thread.Thread], error) {
	var doc Doc
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, nil, fmt.Errorf("hierarchy: decode: %w", err)
	}

	reg := registry.New[*module.Module, thread.Thread]()
	byName := make(map[string]*module.Module, len(doc.Modules))
	schedThreads := make(map[string]thread.Thread, len(doc.Modules))

	// Pass 1: create every module and its scheduler thread, so children
	// can reference parents and vice versa regardless of JSON order.
	for _, md := range doc.Modules {
		if _, dup := byName[md.Name]; dup {
			return nil, nil, fmt.Errorf("hierarchy: duplicate module %q", md.Name)
		}
		id := reg.NewModuleID()
		m := module.New(id, md.Name)
		byName[md.Name] = m
		reg.PutModule(id, m)

		policy, err := buildPolicy(md.Scheduler)
		if err != nil {
			return nil, nil, fmt.Errorf("hierarchy: module %q: %w", md.Name, err)
		}
		schedTID := reg.NewThreadID()
		sched := scheduler.New(schedTID, id, cputime.Zero, policy)
		reg.PutThread(schedTID, sched)
		m.SetScheduler(sched)
		schedThreads[md.Name] = sched
	}

	// Pass 2: wire up children and worker threads.
	for _, md := range doc.Modules {
		m := byName[md.Name]
		sched := m.Scheduler().(*scheduler.Scheduler)

		for _, childName := range md.Children {
			child, ok := byName[childName]
			if !ok {
				return nil, nil, fmt.Errorf("hierarchy: module %q references unknown child %q", md.Name, childName)
			}
			child.SetParent(m.ID())
			m.AddChild(child.ID())
			sched.AddThread(child.Scheduler())
		}

		for _, td := range md.Threads {
			t, err := buildThread(reg, m.ID(), td)
			if err != nil {
				return nil, nil, fmt.Errorf("hierarchy: module %q: %w", md.Name, err)
			}
			reg.PutThread(t.TID(), t)
			m.AddThread(t.TID())
			sched.AddThread(t)
		}
	}

	w := world.New(reg)

	for _, cd := range doc.Cores {
		root, ok := byName[cd.Root]
		if !ok {
			return nil, nil, fmt.Errorf("hierarchy: core %q references unknown root module %q", cd.UID, cd.Root)
		}
		if err := detectCycle(reg, root); err != nil {
			return nil, nil, fmt.Errorf("hierarchy: core %q: %w", cd.UID, err)
		}
		variant := cpucore.LocalTimer
		if cd.Variant == "kernel_timer_only" {
			variant = cpucore.KernelTimerOnly
		}
		moduleCost := cputime.FromInt(1)
		if cd.ModuleSwitchCost != "" {
			parsed, err := cputime.Parse(cd.ModuleSwitchCost)
			if err != nil {
				return nil, nil, fmt.Errorf("hierarchy: core %q: %w", cd.UID, err)
			}
			moduleCost = parsed
		}
		core := cpucore.New(cd.UID, variant, root.Scheduler(), cpucore.ConstantCost(moduleCost), nil, w.AnyPending)
		w.AddCore(core)
	}

	return w, reg, nil
}

// AttachSink wires sink as every core's event destination. Split out from
// Build so callers can build once and attach different sinks (e.g. a
// Multiplexer of text + binary) before running.
func AttachSink(w *world.World, sink eventsink.Sink) {
	w.SetSink(sink)
}

// detectCycle walks the child-module graph from root depth-first, failing
// fast with a named cycle instead of letting a malformed hierarchy
// eventually blow the context chain's K_MAX at runtime.
func detectCycle(reg *registry.Registry[*module.Module, thread.Thread], root *module.Module) error {
	onStack := make(map[registry.ModuleID]bool)
	var walk func(m *module.Module, path []string) error
	walk = func(m *module.Module, path []string) error {
		if onStack[m.ID()] {
			return fmt.Errorf("module hierarchy cycle: %s -> %s", joinNames(path), m.Name())
		}
		onStack[m.ID()] = true
		defer delete(onStack, m.ID())
		for _, childID := range m.Children() {
			child := reg.MustModule(childID)
			if err := walk(child, append(path, m.Name())); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(root, nil)
}

func joinNames(names []string) string {
	out := ""
	for i, n := range names {
		if i > 0 {
			out += " -> "
		}
		out += n
	}
	return out
}

func buildThread(reg *registry.Registry[*module.Module, thread.Thread], mod registry.ModuleID, td ThreadDoc) (thread.Thread, error) {
	start, err := cputime.Parse(td.Start)
	if err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	tid := reg.NewThreadID()

	switch td.Type {
	case "", "work":
		units, err := cputime.Parse(td.Units)
		if err != nil {
			return nil, fmt.Errorf("units: %w", err)
		}
		return thread.NewWork(tid, mod, start, units), nil
	case "periodic":
		period, err := cputime.Parse(td.Period)
		if err != nil {
			return nil, fmt.Errorf("period: %w", err)
		}
		burst, err := cputime.Parse(td.Burst)
		if err != nil {
			return nil, fmt.Errorf("burst: %w", err)
		}
		return thread.NewPeriodicWork(tid, mod, start, period, burst, td.Count), nil
	default:
		return nil, fmt.Errorf("unknown thread type %q", td.Type)
	}
}

func buildPolicy(sd SchedulerDoc) (scheduler.Policy, error) {
	switch sd.Type {
	case "roundrobin", "round_robin", "rr":
		slice, err := cputime.Parse(sd.Slice)
		if err != nil {
			return nil, fmt.Errorf("slice: %w", err)
		}
		return roundrobin.New(slice), nil
	case "fcfs":
		return fcfs.New(), nil
	case "sjf":
		return sjf.New(), nil
	case "cfs":
		latency, err := cputime.Parse(sd.Latency)
		if err != nil {
			return nil, fmt.Errorf("latency: %w", err)
		}
		return cfs.New(latency), nil
	case "mlfq":
		if len(sd.Levels) == 0 {
			return nil, fmt.Errorf("mlfq requires at least one level")
		}
		levels := make([]cputime.Time, len(sd.Levels))
		for i, lv := range sd.Levels {
			t, err := cputime.Parse(lv)
			if err != nil {
				return nil, fmt.Errorf("level %d: %w", i, err)
			}
			levels[i] = t
		}
		return mlfq.New(levels), nil
	case "penalty":
		base, err := buildPolicy(SchedulerDoc{Type: sd.Base, Slice: sd.Slice, Levels: sd.Levels, Latency: sd.Latency})
		if err != nil {
			return nil, fmt.Errorf("penalty base: %w", err)
		}
		minRun, err := cputime.Parse(sd.MinRun)
		if err != nil {
			return nil, fmt.Errorf("min_run: %w", err)
		}
		return penalty.New(base, minRun), nil
	default:
		return nil, fmt.Errorf("unknown scheduler type %q", sd.Type)
	}
}
