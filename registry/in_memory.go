package registry

import (
	"sync"

	"golang.org/x/exp/maps"

	"github.com/hupe1980/debugmesh/core"
)

// InMemory is a volatile BreakpointRegistry implementation storing
// breakpoints in a process local map. It is safe for concurrent access and
// best suited for tests or single-process hosts. Each returned breakpoint is
// cloned to prevent external mutation of internal state. Listeners are
// notified outside the registry lock.
type InMemory struct {
	mu          sync.RWMutex
	breakpoints map[string]core.Breakpoint
	enabled     bool
	listeners   map[string]core.RegistryListener
}

// NewInMemory constructs an empty in-memory breakpoint registry with global
// enablement switched on.
func NewInMemory() *InMemory {
	return &InMemory{
		breakpoints: make(map[string]core.Breakpoint),
		enabled:     true,
		listeners:   make(map[string]core.RegistryListener),
	}
}

// Add stores the breakpoint (assigning an id when absent) and notifies
// listeners. It returns the stored breakpoint.
func (r *InMemory) Add(bp core.Breakpoint) core.Breakpoint {
	if bp.ID == "" {
		bp.ID = core.NewID()
	}

	r.mu.Lock()
	r.breakpoints[bp.ID] = bp.Clone()
	r.mu.Unlock()

	for _, l := range r.snapshotListeners() {
		l.BreakpointAdded(bp.Clone())
	}

	return bp
}

// Remove drops the breakpoint with the given id and notifies listeners. It is
// a no-op for unknown ids.
func (r *InMemory) Remove(id string) {
	r.mu.Lock()
	bp, ok := r.breakpoints[id]
	if ok {
		delete(r.breakpoints, id)
	}
	r.mu.Unlock()

	if !ok {
		return
	}
	for _, l := range r.snapshotListeners() {
		l.BreakpointRemoved(bp.Clone())
	}
}

// Update replaces a stored breakpoint and notifies listeners of the change.
// Unknown breakpoints are added instead.
func (r *InMemory) Update(bp core.Breakpoint) {
	r.mu.Lock()
	_, known := r.breakpoints[bp.ID]
	if known {
		r.breakpoints[bp.ID] = bp.Clone()
	}
	r.mu.Unlock()

	if !known {
		r.Add(bp)
		return
	}
	for _, l := range r.snapshotListeners() {
		l.BreakpointChanged(bp.Clone())
	}
}

// SetEnabled flips the global enablement toggle and notifies listeners when
// the value actually changes.
func (r *InMemory) SetEnabled(enabled bool) {
	r.mu.Lock()
	changed := r.enabled != enabled
	r.enabled = enabled
	r.mu.Unlock()

	if !changed {
		return
	}
	for _, l := range r.snapshotListeners() {
		l.RegistryEnablementChanged(enabled)
	}
}

// Breakpoints returns clones of the breakpoints of the given kind.
func (r *InMemory) Breakpoints(kind core.BreakpointKind) []core.Breakpoint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]core.Breakpoint, 0, len(r.breakpoints))
	for _, bp := range r.breakpoints {
		if bp.Kind == kind {
			res = append(res, bp.Clone())
		}
	}
	return res
}

// Enabled reports the global enablement toggle.
func (r *InMemory) Enabled() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.enabled
}

// AddListener registers l under id.
func (r *InMemory) AddListener(id string, l core.RegistryListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners[id] = l
}

// RemoveListener drops the listener registered under id.
func (r *InMemory) RemoveListener(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.listeners, id)
}

func (r *InMemory) snapshotListeners() []core.RegistryListener {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Values(r.listeners)
}
