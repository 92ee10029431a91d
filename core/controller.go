package core

import "context"

// SessionHandle is the opaque identifier a backend returns from Attach. Every
// subsequent backend call must present it. It is absent before a session is
// attached and invalid once the session terminates.
type SessionHandle string

// Zero reports whether the handle has never been assigned.
func (h SessionHandle) Zero() bool { return h == "" }

// RemoteController is the abstraction over a concrete remote debug protocol
// (a procedural-language engine, a script VM, a DAP adapter, ...). The session
// controller depends only on this contract; implementations live outside the
// core.
//
// Semantics expected from implementations:
//   - All blocking calls accept a context and honor its cancellation where
//     the underlying transport allows it. The session controller imposes no
//     timeout of its own.
//   - Errors are returned as (or wrap) *BackendError.
//   - Events flow to registered handlers until they are unregistered or the
//     controller is disposed. Dispose must be idempotent.
type RemoteController interface {
	// Attach opens a debug session against the remote instance and returns
	// its handle.
	Attach(ctx context.Context) (SessionHandle, error)

	// Detach closes the debug session identified by handle without disposing
	// the controller.
	Detach(ctx context.Context, handle SessionHandle) error

	// Resume continues execution of a suspended session.
	Resume(ctx context.Context, handle SessionHandle) error

	// Suspend requests suspension of a running session. Confirmation arrives
	// asynchronously as a suspend event, not as part of this call.
	Suspend(ctx context.Context, handle SessionHandle) error

	// StepInto executes one step, descending into calls.
	StepInto(ctx context.Context, handle SessionHandle) error

	// StepOver executes one step without descending into calls.
	StepOver(ctx context.Context, handle SessionHandle) error

	// StepReturn executes until the current frame returns.
	StepReturn(ctx context.Context, handle SessionHandle) error

	// CanStepInto reports whether the current execution position supports a
	// step-into request. Support can differ per backend and per position,
	// which is why the predicate is delegated rather than computed locally.
	CanStepInto(handle SessionHandle) bool

	// CanStepOver reports whether the current execution position supports a
	// step-over request.
	CanStepOver(handle SessionHandle) bool

	// CanStepReturn reports whether the current execution position supports a
	// step-return request.
	CanStepReturn(handle SessionHandle) bool

	// AddBreakpoint installs a breakpoint described by desc.
	AddBreakpoint(ctx context.Context, handle SessionHandle, desc BreakpointDescriptor) error

	// RemoveBreakpoint uninstalls a previously added breakpoint.
	RemoveBreakpoint(ctx context.Context, handle SessionHandle, desc BreakpointDescriptor) error

	// DescribeBreakpoint converts backend-neutral breakpoint attributes (see
	// ToDescriptorAttributes) into this backend's descriptor. A nil result
	// means the backend cannot represent the breakpoint.
	DescribeBreakpoint(attrs map[string]any) *BreakpointDescriptor

	// RegisterEventHandler subscribes h to asynchronous debug events.
	RegisterEventHandler(h EventHandler)

	// UnregisterEventHandler removes a previously registered handler.
	UnregisterEventHandler(h EventHandler)

	// Dispose releases controller resources. Implementations must tolerate
	// repeated calls.
	Dispose()
}

// Process is the host-side handle of the external process owned by a debug
// launch. The session force-terminates it when attach fails and best-effort
// terminates it during teardown.
type Process interface {
	// Terminate requests termination of the process.
	Terminate() error

	// Terminated reports whether the process has already exited.
	Terminated() bool
}
