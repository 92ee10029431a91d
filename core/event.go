package core

import "github.com/google/uuid"

// EventKind identifies the category of an asynchronous backend event.
type EventKind string

const (
	// EventSuspend signals that the remote execution has stopped. The event
	// detail carries the reason.
	EventSuspend EventKind = "suspend"

	// EventTerminate signals that the backend considers the session finished.
	// The session reacts by requesting termination of its owned process; the
	// terminal state transition itself is driven by the process exit, keeping
	// "backend says it's done" separate from "the process has actually
	// exited".
	EventTerminate EventKind = "terminate"
)

// SuspendDetail is the reason code accompanying a suspend event or
// notification.
type SuspendDetail string

const (
	// SuspendClientRequest marks a suspension explicitly requested by the
	// host.
	SuspendClientRequest SuspendDetail = "client_request"

	// SuspendBreakpoint marks a suspension caused by hitting a breakpoint.
	SuspendBreakpoint SuspendDetail = "breakpoint"

	// SuspendStepEnd marks the completion of a step request.
	SuspendStepEnd SuspendDetail = "step_end"

	// SuspendUnspecified marks a suspension without a known reason, e.g. a
	// timed or error-triggered stop on the backend side.
	SuspendUnspecified SuspendDetail = "unspecified"
)

// DebugEvent is an asynchronous notification delivered by a backend to its
// registered event handlers. Detail is meaningful for EventSuspend only.
type DebugEvent struct {
	Kind   EventKind
	Detail SuspendDetail
}

// EventHandler receives asynchronous backend events. Implementations must not
// assume any ordering relative to host-issued commands.
type EventHandler interface {
	HandleDebugEvent(ev DebugEvent)
}

// NewID generates a unique identifier used for session handles, breakpoints
// and observer registrations.
func NewID() string { return uuid.NewString() }
