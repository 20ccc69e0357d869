package data

import "fmt"

// View is a scoped id->Data map with a link to the enclosing scope: a
// lookup that misses locally falls through to prev, then prev's prev, and
// so on up to the global view (spec §3.3's "chained for lookup" view
// stack: frame view -> caller view -> global view).
//
// Grounded in original_source/src/spv/data/manager.hpp's DataView.
type View struct {
	prev *View
	data map[uint32]Data
}

func newView(prev *View) *View {
	return &View{prev: prev, data: make(map[uint32]Data)}
}

func (v *View) Prev() *View { return v.prev }

// At resolves id by searching this view, then its ancestors. The bool is
// false if no view in the chain defines id.
func (v *View) At(id uint32) (Data, bool) {
	for view := v; view != nil; view = view.prev {
		if d, ok := view.data[id]; ok {
			return d, true
		}
	}
	return Data{}, false
}

// Local returns this view's own entry for id without consulting ancestors,
// or the zero Data when id is not defined in this scope; it stores nothing.
func (v *View) Local(id uint32) Data {
	return v.data[id]
}

// Define sets id in this view's own scope (shadowing, not replacing, any
// definition in an ancestor view).
func (v *View) Define(id uint32, d Data) {
	v.data[id] = d
}

// Contains reports whether id is visible from this view (locally or via an
// ancestor), without returning its value.
func (v *View) Contains(id uint32) bool {
	_, ok := v.At(id)
	return ok
}

// Clone makes an independent copy of this view's own bindings (not its
// ancestors) with Owns cleared — used when a function call needs a fresh,
// non-owning snapshot of the caller's locals (e.g. ray-tracing substage
// handoff).
func (v *View) Clone() *View {
	c := newView(v.prev)
	for id, d := range v.data {
		d.Owns = false
		c.data[id] = d
	}
	return c
}

// Manager owns the id space and the global view; every function/substage
// invocation gets its own View chained off some ancestor, tracked here so
// it can be torn down collectively.
//
// Grounded in original_source/src/spv/data/manager.hpp's DataManager.
type Manager struct {
	bound  uint32
	global *View
	views  []*View
}

func NewManager(bound uint32) *Manager {
	m := &Manager{bound: bound}
	m.global = newView(nil)
	return m
}

func (m *Manager) Global() *View { return m.global }

func (m *Manager) Bound() uint32     { return m.bound }
func (m *Manager) SetBound(b uint32) { m.bound = b }

// MakeView creates a new scope chained off prev (nil means chained directly
// off the global view) and tracks it for bulk teardown.
func (m *Manager) MakeView(prev *View) *View {
	if prev == nil {
		prev = m.global
	}
	v := newView(prev)
	m.views = append(m.views, v)
	return v
}

// DestroyView removes view from the manager's bookkeeping. It is an error
// to destroy a view the manager did not create (spec §3.3's ownership
// discipline: only the manager that made a view may retire it).
func (m *Manager) DestroyView(view *View) error {
	for i, v := range m.views {
		if v == view {
			m.views = append(m.views[:i], m.views[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("data: view not tracked by this manager")
}
