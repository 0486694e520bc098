// Package registry is the id-indexed arena backing the module/thread
// hierarchy. Threads reference their owning module and modules reference
// their threads; expressing that as a raw cyclic pointer graph in Go is
// possible but awkward to reason about and to serialize for replay, so
// instead every cross-reference is a small integer id resolved through this
// registry, the way a generational arena resolves handles.
package registry

import (
	"fmt"
	"sort"
	"sync"
)

// ModuleID identifies a Module within a Registry.
type ModuleID int

// ThreadID identifies a Thread within a Registry.
type ThreadID int

// Invalid is the zero value of both id types and never assigned to a real
// entry; it is useful as a "no parent" marker for the root module.
const Invalid = 0

// Registry owns the id -> value mapping for modules and threads. It does
// not know the concrete Module/Thread types (those live in higher-level
// packages) to avoid an import cycle; it is parameterized by the two
// interfaces those packages' types satisfy.
type Registry[M any, T any] struct {
	mu sync.RWMutex

	modules    map[ModuleID]M
	threads    map[ThreadID]T
	nextModule ModuleID
	nextThread ThreadID
}

// New constructs an empty Registry.
func New[M any, T any]() *Registry[M, T] {
	return &Registry[M, T]{
		modules: make(map[ModuleID]M),
		threads: make(map[ThreadID]T),
	}
}

// NewModuleID allocates and reserves the next ModuleID; the caller stores
// the real value with PutModule once it exists (modules and threads refer
// to each other, so the id often has to exist before the value does).
func (r *Registry[M, T]) NewModuleID() ModuleID {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextModule++
	return r.nextModule
}

// NewThreadID allocates and reserves the next ThreadID.
func (r *Registry[M, T]) NewThreadID() ThreadID {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextThread++
	return r.nextThread
}

// PutModule associates id with m, overwriting any previous value.
func (r *Registry[M, T]) PutModule(id ModuleID, m M) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modules[id] = m
}

// PutThread associates id with t, overwriting any previous value.
func (r *Registry[M, T]) PutThread(id ThreadID, t T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.threads[id] = t
}

// Module looks up a module by id.
func (r *Registry[M, T]) Module(id ModuleID) (M, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.modules[id]
	return m, ok
}

// Thread looks up a thread by id.
func (r *Registry[M, T]) Thread(id ThreadID) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.threads[id]
	return t, ok
}

// MustModule looks up a module by id, panicking if absent; used where an id
// is known by construction to be registered (e.g. resolving an owner id).
func (r *Registry[M, T]) MustModule(id ModuleID) M {
	m, ok := r.Module(id)
	if !ok {
		panic(fmt.Sprintf("registry: unknown module %d", id))
	}
	return m
}

// MustThread looks up a thread by id, panicking if absent.
func (r *Registry[M, T]) MustThread(id ThreadID) T {
	t, ok := r.Thread(id)
	if !ok {
		panic(fmt.Sprintf("registry: unknown thread %d", id))
	}
	return t
}

// AllThreadIDs returns a snapshot of every registered thread id, sorted
// ascending so callers that drive emission order from it (e.g. statistics
// dumps) produce a deterministic event stream instead of Go's unspecified
// map-iteration order.
func (r *Registry[M, T]) AllThreadIDs() []ThreadID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]ThreadID, 0, len(r.threads))
	for id := range r.threads {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// AllModuleIDs returns a snapshot of every registered module id, sorted
// ascending for the same reason as AllThreadIDs.
func (r *Registry[M, T]) AllModuleIDs() []ModuleID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]ModuleID, 0, len(r.modules))
	for id := range r.modules {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
