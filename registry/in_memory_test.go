package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hupe1980/debugmesh/core"
)

type recordingListener struct {
	mu          sync.Mutex
	added       []core.Breakpoint
	removed     []core.Breakpoint
	changed     []core.Breakpoint
	enablements []bool
}

func (l *recordingListener) BreakpointAdded(bp core.Breakpoint) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.added = append(l.added, bp)
}

func (l *recordingListener) BreakpointRemoved(bp core.Breakpoint) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.removed = append(l.removed, bp)
}

func (l *recordingListener) BreakpointChanged(bp core.Breakpoint) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.changed = append(l.changed, bp)
}

func (l *recordingListener) RegistryEnablementChanged(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enablements = append(l.enablements, enabled)
}

func lineBreakpoint(line int) core.Breakpoint {
	return core.Breakpoint{
		Kind:       core.BreakpointKindLine,
		Enabled:    true,
		Attributes: map[string]any{core.AttrLineNumber: line},
	}
}

func TestInMemoryAddAssignsIDAndNotifies(t *testing.T) {
	r := NewInMemory()
	l := &recordingListener{}
	r.AddListener("l1", l)

	stored := r.Add(lineBreakpoint(5))

	assert.NotEmpty(t, stored.ID)
	assert.Len(t, l.added, 1)
	assert.Equal(t, stored.ID, l.added[0].ID)
}

func TestInMemoryRemove(t *testing.T) {
	r := NewInMemory()
	l := &recordingListener{}
	r.AddListener("l1", l)

	stored := r.Add(lineBreakpoint(5))
	r.Remove(stored.ID)
	r.Remove("unknown") // no-op

	assert.Len(t, l.removed, 1)
	assert.Empty(t, r.Breakpoints(core.BreakpointKindLine))
}

func TestInMemoryUpdateNotifiesChange(t *testing.T) {
	r := NewInMemory()
	l := &recordingListener{}
	r.AddListener("l1", l)

	stored := r.Add(lineBreakpoint(5))
	stored.Enabled = false
	r.Update(stored)

	assert.Len(t, l.changed, 1)
	assert.False(t, l.changed[0].Enabled)
}

func TestInMemoryKindFilter(t *testing.T) {
	r := NewInMemory()
	r.Add(lineBreakpoint(1))
	r.Add(core.Breakpoint{Kind: "watchpoint", Attributes: map[string]any{}})

	assert.Len(t, r.Breakpoints(core.BreakpointKindLine), 1)
	assert.Len(t, r.Breakpoints("watchpoint"), 1)
}

func TestInMemoryEnablementToggle(t *testing.T) {
	r := NewInMemory()
	l := &recordingListener{}
	r.AddListener("l1", l)

	assert.True(t, r.Enabled())

	r.SetEnabled(false)
	r.SetEnabled(false) // unchanged, no second notification
	r.SetEnabled(true)

	assert.Equal(t, []bool{false, true}, l.enablements)
	assert.True(t, r.Enabled())
}

func TestInMemoryListenerRemovalStopsDelivery(t *testing.T) {
	r := NewInMemory()
	l := &recordingListener{}
	r.AddListener("l1", l)
	r.RemoveListener("l1")

	r.Add(lineBreakpoint(5))

	assert.Empty(t, l.added)
}

func TestInMemoryDefensiveCopies(t *testing.T) {
	r := NewInMemory()
	stored := r.Add(lineBreakpoint(5))

	got := r.Breakpoints(core.BreakpointKindLine)[0]
	got.Attributes[core.AttrLineNumber] = 99

	again := r.Breakpoints(core.BreakpointKindLine)[0]
	assert.Equal(t, 5, again.Attributes[core.AttrLineNumber], "returned breakpoints are clones")
	assert.Equal(t, stored.ID, again.ID)
}
