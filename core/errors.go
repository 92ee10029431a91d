package core

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionTerminated is returned (wrapped in the operation's error
	// type) when a mutating operation is invoked on a terminated session.
	ErrSessionTerminated = errors.New("session already terminated")

	// ErrAlreadyAttached is returned wrapped in an AttachError when Connect
	// is invoked on a session that already holds a backend handle.
	ErrAlreadyAttached = errors.New("session already attached")
)

// BackendError is the error type RemoteController implementations return from
// failing protocol calls. Op names the protocol operation.
type BackendError struct {
	Op      string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *BackendError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("backend %s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("backend %s: %s", e.Op, e.Message)
}

// Unwrap returns the underlying transport error, if any.
func (e *BackendError) Unwrap() error { return e.Err }

// NewBackendError constructs a BackendError for the given protocol operation.
func NewBackendError(op, message string, err error) *BackendError {
	return &BackendError{Op: op, Message: message, Err: err}
}

// AttachError reports a failed connect. The session is never left
// half-attached: the owned process is force-terminated before this error
// surfaces.
type AttachError struct {
	Session string
	Err     error
}

// Error implements the error interface.
func (e *AttachError) Error() string {
	return fmt.Sprintf("failed to connect %s to the target: %v", e.Session, e.Err)
}

// Unwrap returns the underlying backend error.
func (e *AttachError) Unwrap() error { return e.Err }

// ControlError reports a failed resume or suspend. Op is "resume" or
// "suspend".
type ControlError struct {
	Op      string
	Session string
	Err     error
}

// Error implements the error interface.
func (e *ControlError) Error() string {
	return fmt.Sprintf("%s of %s failed: %v", e.Op, e.Session, e.Err)
}

// Unwrap returns the underlying backend error.
func (e *ControlError) Unwrap() error { return e.Err }

// StepKind names a step operation for error reporting and dispatch.
type StepKind string

const (
	// StepInto descends into calls.
	StepInto StepKind = "step into"
	// StepOver steps across calls.
	StepOver StepKind = "step over"
	// StepReturn runs until the current frame returns.
	StepReturn StepKind = "step return"
)

// StepError reports a failed step request.
type StepError struct {
	Kind   StepKind
	Handle SessionHandle
	Err    error
}

// Error implements the error interface.
func (e *StepError) Error() string {
	return fmt.Sprintf("%s failed for session %s: %v", e.Kind, e.Handle, e.Err)
}

// Unwrap returns the underlying backend error.
func (e *StepError) Unwrap() error { return e.Err }

// TerminateError reports a detach failure captured during teardown. It is
// returned only after the full teardown sequence completed.
type TerminateError struct {
	Session string
	Err     error
}

// Error implements the error interface.
func (e *TerminateError) Error() string {
	return fmt.Sprintf("error terminating %s: %v", e.Session, e.Err)
}

// Unwrap returns the underlying backend error.
func (e *TerminateError) Unwrap() error { return e.Err }

// DisconnectError reports a failed detach outside of teardown. The session
// state is left unchanged.
type DisconnectError struct {
	Session string
	Err     error
}

// Error implements the error interface.
func (e *DisconnectError) Error() string {
	return fmt.Sprintf("error disconnecting %s: %v", e.Session, e.Err)
}

// Unwrap returns the underlying backend error.
func (e *DisconnectError) Unwrap() error { return e.Err }

// DescribeError reports a breakpoint translation failure. It is logged and
// swallowed by the session: a single breakpoint's failure never aborts the
// session.
type DescribeError struct {
	BreakpointID string
	Err          error
}

// Error implements the error interface.
func (e *DescribeError) Error() string {
	return fmt.Sprintf("unable to describe breakpoint %s: %v", e.BreakpointID, e.Err)
}

// Unwrap returns the underlying translation error, if any.
func (e *DescribeError) Unwrap() error { return e.Err }
