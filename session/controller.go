package session

import (
	"context"
	"sync"
	"time"

	"github.com/hupe1980/debugmesh/core"
	"github.com/hupe1980/debugmesh/logging"
)

// State is the lifecycle state of a debug session. Transitions are monotonic
// except Attached and Suspended, which may cycle freely until Terminated.
// Terminated is absorbing: no transition leaves it.
type State int

const (
	// StateUnattached is the initial state before Connect succeeds.
	StateUnattached State = iota
	// StateAttached means the session holds a backend handle and is running.
	StateAttached
	// StateSuspended means the backend confirmed a stop via a suspend event.
	StateSuspended
	// StateTerminated is the absorbing terminal state.
	StateTerminated
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUnattached:
		return "unattached"
	case StateAttached:
		return "attached"
	case StateSuspended:
		return "suspended"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// DefaultName is the session display name used when no name is configured and
// the resolver fails or yields nothing.
const DefaultName = "Remote debug session"

// Options holds dependency and configuration overrides passed to New().
type Options struct {
	// Name fixes the session display name. Takes precedence over NameResolver.
	Name string
	// NameResolver resolves the display name from the host launch
	// configuration. It is consulted once, lazily; failure falls back to
	// DefaultName.
	NameResolver func() (string, error)
	// DefaultName overrides the fallback display name.
	DefaultName string
	// Registry is the host breakpoint store this session synchronizes with.
	// Optional; without it only direct breakpoint calls reach the session.
	Registry core.BreakpointRegistry
	// Process is the owned external process of the launch. Optional; without
	// it a backend terminate event drives teardown directly.
	Process core.Process
	// Kind selects the breakpoint model this session supports.
	Kind core.BreakpointKind
	// Logger defaults to a NoOpLogger when nil.
	Logger logging.Logger
}

// Controller owns the lifecycle state of one debug session. Host commands and
// backend events funnel into it from two concurrent call sources; termination
// is internally synchronized so concurrent terminate calls collapse into a
// single teardown, while the remaining operations expect the host's serialized
// dispatch context, as debug UIs provide.
type Controller struct {
	backend  core.RemoteController
	registry core.BreakpointRegistry
	process  core.Process
	logger   logging.Logger

	listenerID   string
	nameResolver func() (string, error)
	defaultName  string

	nameMu sync.Mutex
	name   string

	mu     sync.Mutex
	state  State
	handle core.SessionHandle
	thread *ExecutionThread

	breakpoints *breakpointSynchronizer

	obsMu     sync.RWMutex
	observers map[string]core.Observer
}

// New constructs a Controller bound to the given backend. The returned
// controller is inert until AttachListeners and Connect are called.
func New(backend core.RemoteController, optFns ...func(o *Options)) *Controller {
	opts := Options{
		Kind:        core.BreakpointKindLine,
		DefaultName: DefaultName,
		Logger:      logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	c := &Controller{
		backend:      backend,
		registry:     opts.Registry,
		process:      opts.Process,
		logger:       opts.Logger,
		listenerID:   core.NewID(),
		nameResolver: opts.NameResolver,
		defaultName:  opts.DefaultName,
		name:         opts.Name,
		observers:    map[string]core.Observer{},
	}

	c.thread = newExecutionThread(func(detail core.SuspendDetail) {
		c.notify(core.Notification{Kind: core.NotifySuspended, Detail: detail})
	})
	c.breakpoints = newBreakpointSynchronizer(c, opts.Kind)

	return c
}

// AttachListeners registers the controller with its external event sources:
// the backend event stream and, when configured, the breakpoint registry.
// Construction itself has no side effects; teardown performs the matching
// deregistration.
func (c *Controller) AttachListeners() {
	c.backend.RegisterEventHandler(c)
	if c.registry != nil {
		c.registry.AddListener(c.listenerID, c)
	}
}

func (c *Controller) detachListeners() {
	if c.registry != nil {
		c.registry.RemoveListener(c.listenerID)
	}
}

// Name returns the session display name, resolving it on first use and
// falling back to the default when the host configuration lookup fails.
func (c *Controller) Name() string {
	c.nameMu.Lock()
	defer c.nameMu.Unlock()
	if c.name == "" {
		if c.nameResolver != nil {
			if n, err := c.nameResolver(); err == nil && n != "" {
				c.name = n
			} else if err != nil {
				c.logger.Debug("session name resolution failed, using default: %v", err)
			}
		}
		if c.name == "" {
			c.name = c.defaultName
		}
	}
	return c.name
}

// Handle returns the backend session handle. It is zero before Connect
// succeeds.
func (c *Controller) Handle() core.SessionHandle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handle
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Thread returns the session's execution thread, or nil once terminated.
func (c *Controller) Thread() *ExecutionThread {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.thread
}

// Threads returns the active execution threads. The slice is empty once the
// session terminated.
func (c *Controller) Threads() []*ExecutionThread {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.thread == nil {
		return nil
	}
	return []*ExecutionThread{c.thread}
}

// AddObserver registers fn for lifecycle notifications and returns the id to
// remove it with. Observers are dropped automatically at termination.
func (c *Controller) AddObserver(fn core.Observer) string {
	id := core.NewID()
	c.obsMu.Lock()
	defer c.obsMu.Unlock()
	c.observers[id] = fn
	return id
}

// RemoveObserver drops the observer registered under id.
func (c *Controller) RemoveObserver(id string) {
	c.obsMu.Lock()
	defer c.obsMu.Unlock()
	delete(c.observers, id)
}

func (c *Controller) notify(n core.Notification) {
	n.Session = c.Name()
	n.Handle = c.Handle()

	c.obsMu.RLock()
	snapshot := make([]core.Observer, 0, len(c.observers))
	for _, fn := range c.observers {
		snapshot = append(snapshot, fn)
	}
	c.obsMu.RUnlock()

	for _, fn := range snapshot {
		fn(n)
	}
}

func (c *Controller) notifyError(err error) {
	c.notify(core.Notification{Kind: core.NotifyError, Message: err.Error(), Err: err})
}

// backendCallLogger is the optional richer logging surface. When the injected
// logger provides it, latency and outcome of backend protocol calls are
// recorded there.
type backendCallLogger interface {
	LogBackendCall(op string, dur time.Duration, success bool, err error)
}

func (c *Controller) logBackendCall(op string, start time.Time, err error) {
	if bl, ok := c.logger.(backendCallLogger); ok {
		bl.LogBackendCall(op, time.Since(start), err == nil, err)
	}
}

// Connect attaches to the remote instance and stores the returned handle. On
// failure the owned process is force-terminated and an AttachError surfaces;
// the session is never left half-attached.
func (c *Controller) Connect(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case StateTerminated:
		c.mu.Unlock()
		return &core.AttachError{Session: c.Name(), Err: core.ErrSessionTerminated}
	case StateUnattached:
	default:
		c.mu.Unlock()
		return &core.AttachError{Session: c.Name(), Err: core.ErrAlreadyAttached}
	}
	c.mu.Unlock()

	start := time.Now()
	handle, err := c.backend.Attach(ctx)
	c.logBackendCall("attach", start, err)
	if err != nil {
		if c.process != nil {
			if terr := c.process.Terminate(); terr != nil {
				c.logger.Warn("force-terminating process after attach failure: %v", terr)
			}
		}
		aerr := &core.AttachError{Session: c.Name(), Err: err}
		c.notifyError(aerr)
		return aerr
	}

	c.mu.Lock()
	// Termination may land while Attach is in flight. Terminated is
	// absorbing, so the fresh handle is discarded instead of resurrecting
	// the session.
	if c.state == StateTerminated {
		c.mu.Unlock()
		if derr := c.backend.Detach(context.Background(), handle); derr != nil {
			c.logger.Warn("detaching stale handle of terminated session %s: %v", c.Name(), derr)
		}
		return &core.AttachError{Session: c.Name(), Err: core.ErrSessionTerminated}
	}
	c.handle = handle
	c.state = StateAttached
	c.mu.Unlock()

	c.logger.Info("session %s attached, handle=%s", c.Name(), handle)

	return nil
}

// CanResume reports whether a resume request is currently legal.
func (c *Controller) CanResume() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.thread != nil && c.state == StateSuspended
}

// CanSuspend reports whether a suspend request is currently legal.
func (c *Controller) CanSuspend() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.thread != nil && c.state == StateAttached
}

// CanTerminate reports whether the session can still be terminated.
func (c *Controller) CanTerminate() bool { return !c.IsTerminated() }

// CanDisconnect reports whether a detach without termination is possible.
func (c *Controller) CanDisconnect() bool { return true }

// IsSuspended reports whether the backend confirmed a suspension.
func (c *Controller) IsSuspended() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateSuspended
}

// IsTerminated reports whether the session reached its terminal state.
func (c *Controller) IsTerminated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateTerminated
}

// Resume continues execution. The suspended state is cleared optimistically
// before the backend call; resume is fire-and-forget from the controller's
// point of view, so a backend failure surfaces as ControlError without
// rolling the state flip back. The thread is reconciled and the
// client-request resume notification fires regardless of backend outcome.
func (c *Controller) Resume(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateTerminated {
		c.mu.Unlock()
		return &core.ControlError{Op: "resume", Session: c.Name(), Err: core.ErrSessionTerminated}
	}
	if c.state == StateSuspended {
		c.state = StateAttached
	}
	handle := c.handle
	thread := c.thread
	c.mu.Unlock()

	start := time.Now()
	err := c.backend.Resume(ctx, handle)
	c.logBackendCall("resume", start, err)

	if thread != nil && thread.Suspended() {
		thread.ResumedByTarget()
	}
	c.notify(core.Notification{Kind: core.NotifyResumed, Detail: core.SuspendClientRequest})

	if err != nil {
		cerr := &core.ControlError{Op: "resume", Session: c.Name(), Err: err}
		c.notifyError(cerr)
		return cerr
	}

	return nil
}

// Suspend requests suspension of the running session. The session's own
// suspended state is set only when the backend later delivers the suspend
// event; suspension is sometimes driven externally rather than by request,
// so the asynchronous confirmation is the single path into StateSuspended.
func (c *Controller) Suspend(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateTerminated {
		c.mu.Unlock()
		return &core.ControlError{Op: "suspend", Session: c.Name(), Err: core.ErrSessionTerminated}
	}
	handle := c.handle
	c.mu.Unlock()

	start := time.Now()
	err := c.backend.Suspend(ctx, handle)
	c.logBackendCall("suspend", start, err)
	if err != nil {
		cerr := &core.ControlError{Op: "suspend", Session: c.Name(), Err: err}
		c.notifyError(cerr)
		return cerr
	}

	return nil
}

// suspended applies a backend-confirmed suspension: session and thread are
// marked suspended, stepping clears, and the notification carries the detail
// unchanged.
func (c *Controller) suspended(detail core.SuspendDetail) {
	c.mu.Lock()
	if c.state == StateTerminated {
		c.mu.Unlock()
		return
	}
	c.state = StateSuspended
	thread := c.thread
	c.mu.Unlock()

	if thread != nil {
		thread.FireSuspend(detail)
	} else {
		c.notify(core.Notification{Kind: core.NotifySuspended, Detail: detail})
	}
}

// CanStepInto delegates to the backend, which knows whether the current
// execution position supports descending into calls.
func (c *Controller) CanStepInto() bool { return c.backend.CanStepInto(c.Handle()) }

// CanStepOver delegates to the backend.
func (c *Controller) CanStepOver() bool { return c.backend.CanStepOver(c.Handle()) }

// CanStepReturn delegates to the backend.
func (c *Controller) CanStepReturn() bool { return c.backend.CanStepReturn(c.Handle()) }

// StepInto executes one step, descending into calls.
func (c *Controller) StepInto(ctx context.Context) error { return c.step(ctx, core.StepInto) }

// StepOver executes one step without descending into calls.
func (c *Controller) StepOver(ctx context.Context) error { return c.step(ctx, core.StepOver) }

// StepReturn runs until the current frame returns.
func (c *Controller) StepReturn(ctx context.Context) error { return c.step(ctx, core.StepReturn) }

func (c *Controller) step(ctx context.Context, kind core.StepKind) error {
	start := time.Now()

	c.mu.Lock()
	if c.state == StateTerminated {
		c.mu.Unlock()
		return &core.StepError{Kind: kind, Handle: c.handle, Err: core.ErrSessionTerminated}
	}
	handle := c.handle
	thread := c.thread
	c.mu.Unlock()

	// The step-end suspend may arrive before the backend call returns, so
	// the stepping flag must be raised before the request goes out.
	if thread != nil {
		thread.SetStepping(true)
	}

	var err error
	switch kind {
	case core.StepInto:
		err = c.backend.StepInto(ctx, handle)
	case core.StepOver:
		err = c.backend.StepOver(ctx, handle)
	case core.StepReturn:
		err = c.backend.StepReturn(ctx, handle)
	}
	c.logBackendCall(string(kind), start, err)

	if err != nil {
		if thread != nil {
			thread.SetStepping(false)
		}
		serr := &core.StepError{Kind: kind, Handle: handle, Err: err}
		c.notifyError(serr)
		return serr
	}

	return nil
}

// Disconnect detaches from the backend without terminating the session,
// leaving reattachment semantics to upstream layers. Failure surfaces
// directly with no compensating state change.
func (c *Controller) Disconnect(ctx context.Context) error {
	start := time.Now()
	err := c.backend.Detach(ctx, c.Handle())
	c.logBackendCall("detach", start, err)
	if err != nil {
		derr := &core.DisconnectError{Session: c.Name(), Err: err}
		c.notifyError(derr)
		return derr
	}
	return nil
}

// Terminate drives the session to its terminal state. It is idempotent:
// repeated calls after the first succeed without re-running the teardown side
// effects.
func (c *Controller) Terminate() error { return c.terminated() }

// HandleDebugEvent is the sole entry point for asynchronous backend events.
// A suspend event marks session and thread suspended; a terminate event
// requests termination of the owned process, whose exit in turn drives the
// session's own terminal transition.
func (c *Controller) HandleDebugEvent(ev core.DebugEvent) {
	switch ev.Kind {
	case core.EventSuspend:
		c.suspended(ev.Detail)
	case core.EventTerminate:
		if c.process == nil {
			// No owned process to observe, terminate directly.
			if err := c.terminated(); err != nil {
				c.logger.Error("terminating session %s: %v", c.Name(), err)
			}
			return
		}
		if err := c.process.Terminate(); err != nil {
			c.logger.Error("terminating process of session %s: %v", c.Name(), err)
		}
	}
}

// OnProcessTerminated is invoked by the host when the owned process signals
// termination. This is the actual trigger for the terminal state transition
// and full teardown.
func (c *Controller) OnProcessTerminated() {
	if err := c.terminated(); err != nil {
		c.logger.Error("terminating session %s: %v", c.Name(), err)
	}
}

// terminated runs the teardown protocol. Each step is best-effort and the
// sequence never aborts partway; a detach failure is captured and raised only
// after the remaining steps complete.
func (c *Controller) terminated() error {
	c.mu.Lock()
	if c.state == StateTerminated {
		c.mu.Unlock()
		return nil
	}
	c.state = StateTerminated
	c.thread = nil
	handle := c.handle
	c.mu.Unlock()

	ctx := context.Background()

	var detachErr error
	if !handle.Zero() {
		detachErr = c.backend.Detach(ctx, handle)
	}
	c.backend.UnregisterEventHandler(c)
	c.backend.Dispose()

	c.detachListeners()

	if c.process != nil && !c.process.Terminated() {
		if err := c.process.Terminate(); err != nil {
			c.logger.Warn("terminating process of session %s: %v", c.Name(), err)
		}
	}

	c.notify(core.Notification{Kind: core.NotifyTerminated})

	c.obsMu.Lock()
	c.observers = map[string]core.Observer{}
	c.obsMu.Unlock()

	if detachErr != nil {
		terr := &core.TerminateError{Session: c.Name(), Err: detachErr}
		c.logger.Error("%v", terr)
		return terr
	}

	c.logger.Info("session %s terminated", c.Name())

	return nil
}

// BreakpointAdded implements core.RegistryListener.
func (c *Controller) BreakpointAdded(bp core.Breakpoint) { c.breakpoints.added(bp) }

// BreakpointRemoved implements core.RegistryListener.
func (c *Controller) BreakpointRemoved(bp core.Breakpoint) { c.breakpoints.removed(bp) }

// BreakpointChanged implements core.RegistryListener.
func (c *Controller) BreakpointChanged(bp core.Breakpoint) { c.breakpoints.changed(bp) }

// RegistryEnablementChanged implements core.RegistryListener.
func (c *Controller) RegistryEnablementChanged(enabled bool) {
	c.breakpoints.enablementChanged(enabled)
}

// SupportsBreakpoint reports whether the breakpoint's kind matches the kind
// this session handles.
func (c *Controller) SupportsBreakpoint(bp core.Breakpoint) bool {
	return c.breakpoints.supports(bp)
}
