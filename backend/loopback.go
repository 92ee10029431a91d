package backend

import (
	"context"
	"sync"

	"golang.org/x/exp/maps"

	"github.com/hupe1980/debugmesh/core"
)

// Loopback is an in-process RemoteController simulating a remote execution
// engine. Debug events are delivered synchronously on the caller's goroutine,
// which keeps tests deterministic; from the session controller's point of
// view the delivery is still an asynchronous backend event.
type Loopback struct {
	mu          sync.Mutex
	handle      core.SessionHandle
	attached    bool
	disposed    bool
	suspended   bool
	handlers    map[core.EventHandler]struct{}
	breakpoints map[string]core.BreakpointDescriptor
}

// NewLoopback constructs a fresh loopback backend.
func NewLoopback() *Loopback {
	return &Loopback{
		handlers:    make(map[core.EventHandler]struct{}),
		breakpoints: make(map[string]core.BreakpointDescriptor),
	}
}

// Attach opens the simulated session and returns its handle.
func (l *Loopback) Attach(ctx context.Context) (core.SessionHandle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.disposed {
		return "", core.NewBackendError("attach", "controller disposed", nil)
	}
	if l.attached {
		return "", core.NewBackendError("attach", "already attached", nil)
	}
	l.handle = core.SessionHandle(core.NewID())
	l.attached = true
	return l.handle, nil
}

// Detach closes the simulated session.
func (l *Loopback) Detach(ctx context.Context, handle core.SessionHandle) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.checkLocked("detach", handle); err != nil {
		return err
	}
	l.attached = false
	l.suspended = false
	return nil
}

// Resume continues the simulated execution.
func (l *Loopback) Resume(ctx context.Context, handle core.SessionHandle) error {
	l.mu.Lock()
	if err := l.checkLocked("resume", handle); err != nil {
		l.mu.Unlock()
		return err
	}
	l.suspended = false
	l.mu.Unlock()
	return nil
}

// Suspend acknowledges the request through the event stream with a
// client-request suspension.
func (l *Loopback) Suspend(ctx context.Context, handle core.SessionHandle) error {
	l.mu.Lock()
	if err := l.checkLocked("suspend", handle); err != nil {
		l.mu.Unlock()
		return err
	}
	l.suspended = true
	l.mu.Unlock()

	l.emit(core.DebugEvent{Kind: core.EventSuspend, Detail: core.SuspendClientRequest})
	return nil
}

// StepInto completes immediately with a step-end suspension.
func (l *Loopback) StepInto(ctx context.Context, handle core.SessionHandle) error {
	return l.step("step_into", handle)
}

// StepOver completes immediately with a step-end suspension.
func (l *Loopback) StepOver(ctx context.Context, handle core.SessionHandle) error {
	return l.step("step_over", handle)
}

// StepReturn completes immediately with a step-end suspension.
func (l *Loopback) StepReturn(ctx context.Context, handle core.SessionHandle) error {
	return l.step("step_return", handle)
}

func (l *Loopback) step(op string, handle core.SessionHandle) error {
	l.mu.Lock()
	if err := l.checkLocked(op, handle); err != nil {
		l.mu.Unlock()
		return err
	}
	if !l.suspended {
		l.mu.Unlock()
		return core.NewBackendError(op, "execution is not suspended", nil)
	}
	l.mu.Unlock()

	l.emit(core.DebugEvent{Kind: core.EventSuspend, Detail: core.SuspendStepEnd})
	return nil
}

// CanStepInto reports step support at the current position.
func (l *Loopback) CanStepInto(handle core.SessionHandle) bool { return l.canStep(handle) }

// CanStepOver reports step support at the current position.
func (l *Loopback) CanStepOver(handle core.SessionHandle) bool { return l.canStep(handle) }

// CanStepReturn reports step support at the current position.
func (l *Loopback) CanStepReturn(handle core.SessionHandle) bool { return l.canStep(handle) }

func (l *Loopback) canStep(handle core.SessionHandle) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.attached && handle == l.handle && l.suspended
}

// AddBreakpoint tracks the descriptor under its location key.
func (l *Loopback) AddBreakpoint(ctx context.Context, handle core.SessionHandle, desc core.BreakpointDescriptor) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.checkLocked("add breakpoint", handle); err != nil {
		return err
	}
	l.breakpoints[desc.Key()] = desc
	return nil
}

// RemoveBreakpoint drops the descriptor tracked under its location key.
func (l *Loopback) RemoveBreakpoint(ctx context.Context, handle core.SessionHandle, desc core.BreakpointDescriptor) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.checkLocked("remove breakpoint", handle); err != nil {
		return err
	}
	delete(l.breakpoints, desc.Key())
	return nil
}

// DescribeBreakpoint builds a descriptor from backend-neutral attributes. A
// missing source or line yields nil: this backend cannot represent such a
// breakpoint.
func (l *Loopback) DescribeBreakpoint(attrs map[string]any) *core.BreakpointDescriptor {
	source, _ := attrs[core.DescSource].(string)
	line, okLine := attrs[core.DescLine].(int)
	if source == "" || !okLine {
		return nil
	}
	desc := &core.BreakpointDescriptor{Source: source, Line: line}
	if cond, ok := attrs[core.DescCondition].(string); ok {
		desc.Condition = cond
	}
	if enabled, ok := attrs[core.DescEnabled].(bool); ok {
		desc.Enabled = enabled
	} else {
		desc.Enabled = true
	}
	return desc
}

// RegisterEventHandler subscribes h to simulated events.
func (l *Loopback) RegisterEventHandler(h core.EventHandler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handlers[h] = struct{}{}
}

// UnregisterEventHandler removes h.
func (l *Loopback) UnregisterEventHandler(h core.EventHandler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.handlers, h)
}

// Dispose releases the backend. Repeated calls are no-ops.
func (l *Loopback) Dispose() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.disposed {
		return
	}
	l.disposed = true
	l.attached = false
	l.handlers = make(map[core.EventHandler]struct{})
}

// Breakpoints returns the currently installed descriptors, for inspection in
// tests and examples.
func (l *Loopback) Breakpoints() []core.BreakpointDescriptor {
	l.mu.Lock()
	defer l.mu.Unlock()
	return maps.Values(l.breakpoints)
}

// EmitTerminate injects a terminate event, as a remote engine does when the
// debugged program finishes on its own.
func (l *Loopback) EmitTerminate() {
	l.emit(core.DebugEvent{Kind: core.EventTerminate})
}

// EmitSuspend injects a suspend event with the given detail, as a remote
// engine does on breakpoint hits or externally driven stops.
func (l *Loopback) EmitSuspend(detail core.SuspendDetail) {
	l.mu.Lock()
	l.suspended = true
	l.mu.Unlock()
	l.emit(core.DebugEvent{Kind: core.EventSuspend, Detail: detail})
}

func (l *Loopback) emit(ev core.DebugEvent) {
	l.mu.Lock()
	snapshot := maps.Keys(l.handlers)
	l.mu.Unlock()

	for _, h := range snapshot {
		h.HandleDebugEvent(ev)
	}
}

func (l *Loopback) checkLocked(op string, handle core.SessionHandle) error {
	if l.disposed {
		return core.NewBackendError(op, "controller disposed", nil)
	}
	if !l.attached {
		return core.NewBackendError(op, "no attached session", nil)
	}
	if handle != l.handle {
		return core.NewBackendError(op, "unknown session handle", nil)
	}
	return nil
}
