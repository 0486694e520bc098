// Package module defines the hierarchy node: a Module owns a set of
// threads and exactly one scheduler, and is itself referenced by id rather
// than by pointer to avoid cyclic ownership between modules and threads.
package module

import (
	"fmt"

	"github.com/z33ky/schedsi/registry"
	"github.com/z33ky/schedsi/thread"
)

// Module is a node in the hierarchy tree.
type Module struct {
	id       registry.ModuleID
	name     string
	parent   registry.ModuleID
	hasParent bool

	scheduler thread.Thread
	threadIDs []registry.ThreadID
	children  []registry.ModuleID
}

// New constructs a module with no scheduler or threads yet; SetScheduler,
// AddThread and AddChild complete it.
func New(id registry.ModuleID, name string) *Module {
	return &Module{id: id, name: name}
}

func (m *Module) ID() registry.ModuleID { return m.id }
func (m *Module) Name() string           { return m.name }

// SetParent records that m is a child of parent, whose scheduler runs m's
// scheduler thread directly as one of its own threads.
func (m *Module) SetParent(parent registry.ModuleID) {
	m.parent = parent
	m.hasParent = true
}

// Parent returns the owning module's id, if any.
func (m *Module) Parent() (registry.ModuleID, bool) {
	return m.parent, m.hasParent
}

// SetScheduler installs sched as m's kernel scheduler thread. Every module
// has exactly one.
func (m *Module) SetScheduler(sched thread.Thread) {
	if m.scheduler != nil {
		panic(fmt.Sprintf("module %s: scheduler already set", m.name))
	}
	m.scheduler = sched
}

// Scheduler returns m's kernel scheduler thread.
func (m *Module) Scheduler() thread.Thread {
	if m.scheduler == nil {
		panic(fmt.Sprintf("module %s: scheduler not set", m.name))
	}
	return m.scheduler
}

// AddThread registers a worker thread as belonging to m.
func (m *Module) AddThread(tid registry.ThreadID) {
	m.threadIDs = append(m.threadIDs, tid)
}

// AddChild registers child as a child module of m. Re-entering child is
// done by resuming a chain built from child's own scheduler thread — there
// is no separate VCPU thread type; a child module's scheduler doubles as
// the activation the parent resumes into.
func (m *Module) AddChild(child registry.ModuleID) {
	m.children = append(m.children, child)
}

// ThreadIDs returns the plain worker threads owned directly by m.
func (m *Module) ThreadIDs() []registry.ThreadID {
	return append([]registry.ThreadID(nil), m.threadIDs...)
}

// Children returns the ids of m's child modules.
func (m *Module) Children() []registry.ModuleID {
	return append([]registry.ModuleID(nil), m.children...)
}
