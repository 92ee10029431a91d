package session

import (
	"sync"

	"github.com/hupe1980/debugmesh/core"
)

// ExecutionThread tracks the suspended/stepping status of the single logical
// thread of execution within a session. It mirrors the session's suspended
// flag but is tracked independently for stepping granularity: stepping is
// true only between a step request and the next suspend event and is cleared
// on any suspend, including non-step suspends such as a breakpoint hit.
type ExecutionThread struct {
	mu        sync.Mutex
	suspended bool
	stepping  bool
	onSuspend func(detail core.SuspendDetail)
}

func newExecutionThread(onSuspend func(detail core.SuspendDetail)) *ExecutionThread {
	return &ExecutionThread{onSuspend: onSuspend}
}

// Suspended reports whether the thread is currently suspended.
func (t *ExecutionThread) Suspended() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.suspended
}

// Stepping reports whether a step request is in flight.
func (t *ExecutionThread) Stepping() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stepping
}

// SetStepping marks (or clears) an in-flight step request.
func (t *ExecutionThread) SetStepping(stepping bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stepping = stepping
}

// FireSuspend marks the thread suspended, clears the stepping flag and
// forwards the suspend detail to the owning session.
func (t *ExecutionThread) FireSuspend(detail core.SuspendDetail) {
	t.mu.Lock()
	t.suspended = true
	t.stepping = false
	notify := t.onSuspend
	t.mu.Unlock()

	if notify != nil {
		notify(detail)
	}
}

// ResumedByTarget reconciles the thread with a session-level resume: the
// session cleared its own suspended state and tells the thread, which drops
// both flags without emitting a notification of its own.
func (t *ExecutionThread) ResumedByTarget() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.suspended = false
	t.stepping = false
}
