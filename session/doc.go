// Package session implements the debug session controller: the state machine
// that manages the lifecycle of one attached debug session against a remote
// execution engine, translates host-side breakpoint and control requests into
// backend calls, and converts asynchronous backend events back into session
// state transitions and observer notifications.
//
// A Controller is created with session.New against a core.RemoteController
// and wired to its event sources with AttachListeners. From there the host
// drives it through Connect, Resume, Suspend, the step operations, Disconnect
// and Terminate, while the backend drives it through HandleDebugEvent and the
// process monitor through OnProcessTerminated. Teardown is reentrant-safe and
// runs a fixed best-effort sequence regardless of partial failure.
package session
