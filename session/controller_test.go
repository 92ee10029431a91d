package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/hupe1980/debugmesh/backend"
	"github.com/hupe1980/debugmesh/core"
	"github.com/hupe1980/debugmesh/internal/testutil"
)

// MockRemoteController for testing the session state machine against backend
// outcomes.
type MockRemoteController struct{ mock.Mock }

func (m *MockRemoteController) Attach(ctx context.Context) (core.SessionHandle, error) {
	args := m.Called(ctx)
	return args.Get(0).(core.SessionHandle), args.Error(1)
}

func (m *MockRemoteController) Detach(ctx context.Context, handle core.SessionHandle) error {
	return m.Called(ctx, handle).Error(0)
}

func (m *MockRemoteController) Resume(ctx context.Context, handle core.SessionHandle) error {
	return m.Called(ctx, handle).Error(0)
}

func (m *MockRemoteController) Suspend(ctx context.Context, handle core.SessionHandle) error {
	return m.Called(ctx, handle).Error(0)
}

func (m *MockRemoteController) StepInto(ctx context.Context, handle core.SessionHandle) error {
	return m.Called(ctx, handle).Error(0)
}

func (m *MockRemoteController) StepOver(ctx context.Context, handle core.SessionHandle) error {
	return m.Called(ctx, handle).Error(0)
}

func (m *MockRemoteController) StepReturn(ctx context.Context, handle core.SessionHandle) error {
	return m.Called(ctx, handle).Error(0)
}

func (m *MockRemoteController) CanStepInto(handle core.SessionHandle) bool {
	return m.Called(handle).Bool(0)
}

func (m *MockRemoteController) CanStepOver(handle core.SessionHandle) bool {
	return m.Called(handle).Bool(0)
}

func (m *MockRemoteController) CanStepReturn(handle core.SessionHandle) bool {
	return m.Called(handle).Bool(0)
}

func (m *MockRemoteController) AddBreakpoint(ctx context.Context, handle core.SessionHandle, desc core.BreakpointDescriptor) error {
	return m.Called(ctx, handle, desc).Error(0)
}

func (m *MockRemoteController) RemoveBreakpoint(ctx context.Context, handle core.SessionHandle, desc core.BreakpointDescriptor) error {
	return m.Called(ctx, handle, desc).Error(0)
}

func (m *MockRemoteController) DescribeBreakpoint(attrs map[string]any) *core.BreakpointDescriptor {
	args := m.Called(attrs)
	if desc, ok := args.Get(0).(*core.BreakpointDescriptor); ok {
		return desc
	}
	return nil
}

func (m *MockRemoteController) RegisterEventHandler(h core.EventHandler)   { m.Called(h) }
func (m *MockRemoteController) UnregisterEventHandler(h core.EventHandler) { m.Called(h) }
func (m *MockRemoteController) Dispose()                                   { m.Called() }

// fakeProcess tracks termination requests without any callback plumbing.
type fakeProcess struct {
	mu         sync.Mutex
	terminated bool
	calls      int
	err        error
}

func (p *fakeProcess) Terminate() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return p.err
	}
	p.terminated = true
	return nil
}

func (p *fakeProcess) Terminated() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.terminated
}

func (p *fakeProcess) terminateCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func expectTeardown(m *MockRemoteController, handle core.SessionHandle, detachErr error) {
	m.On("Detach", mock.Anything, handle).Return(detachErr)
	m.On("UnregisterEventHandler", mock.Anything).Return()
	m.On("Dispose").Return()
}

func connected(t *testing.T, m *MockRemoteController, optFns ...func(o *Options)) *Controller {
	t.Helper()
	m.On("Attach", mock.Anything).Return(core.SessionHandle("h-1"), nil).Once()
	c := New(m, optFns...)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	return c
}

func TestControllerConnectStoresHandle(t *testing.T) {
	m := &MockRemoteController{}
	c := connected(t, m)

	assert.Equal(t, StateAttached, c.State())
	assert.Equal(t, core.SessionHandle("h-1"), c.Handle())
	assert.False(t, c.IsSuspended())
	assert.True(t, c.CanSuspend())
	assert.False(t, c.CanResume())
	assert.True(t, c.CanTerminate())
}

func TestControllerConnectFailureNeverAttaches(t *testing.T) {
	m := &MockRemoteController{}
	backendErr := core.NewBackendError("attach", "refused", nil)
	m.On("Attach", mock.Anything).Return(core.SessionHandle(""), backendErr)

	process := &fakeProcess{}
	rec := &testutil.NotificationRecorder{}

	c := New(m, func(o *Options) {
		o.Process = process
		o.Name = "pg-debug"
	})
	c.AddObserver(rec.Observer())

	err := c.Connect(context.Background())

	var aerr *core.AttachError
	assert.ErrorAs(t, err, &aerr)
	assert.Equal(t, "pg-debug", aerr.Session)
	assert.ErrorIs(t, err, backendErr)

	assert.Equal(t, StateUnattached, c.State())
	assert.True(t, c.Handle().Zero())
	assert.True(t, process.Terminated(), "process must be force-terminated")
	assert.Equal(t, 1, rec.Count(core.NotifyError))
}

func TestControllerConnectTwiceFails(t *testing.T) {
	m := &MockRemoteController{}
	c := connected(t, m)

	err := c.Connect(context.Background())
	assert.ErrorIs(t, err, core.ErrAlreadyAttached)
	assert.Equal(t, core.SessionHandle("h-1"), c.Handle(), "handle is assigned exactly once")
}

func TestControllerSuspendDoesNotFlipStateSynchronously(t *testing.T) {
	m := &MockRemoteController{}
	c := connected(t, m)
	m.On("Suspend", mock.Anything, core.SessionHandle("h-1")).Return(nil)

	assert.NoError(t, c.Suspend(context.Background()))
	assert.False(t, c.IsSuspended(), "suspended only flips on the backend event")

	c.HandleDebugEvent(core.DebugEvent{Kind: core.EventSuspend, Detail: core.SuspendClientRequest})
	assert.True(t, c.IsSuspended())
	assert.True(t, c.CanResume())
	assert.False(t, c.CanSuspend())
}

func TestControllerSuspendBackendFailure(t *testing.T) {
	m := &MockRemoteController{}
	c := connected(t, m)
	m.On("Suspend", mock.Anything, core.SessionHandle("h-1")).Return(core.NewBackendError("suspend", "boom", nil))

	err := c.Suspend(context.Background())

	var cerr *core.ControlError
	assert.ErrorAs(t, err, &cerr)
	assert.Equal(t, "suspend", cerr.Op)
	assert.False(t, c.IsSuspended())
}

func TestControllerSuspendEventCarriesDetail(t *testing.T) {
	m := &MockRemoteController{}
	rec := &testutil.NotificationRecorder{}
	c := connected(t, m)
	c.AddObserver(rec.Observer())

	c.HandleDebugEvent(core.DebugEvent{Kind: core.EventSuspend, Detail: core.SuspendBreakpoint})

	suspends := rec.OfKind(core.NotifySuspended)
	if assert.Len(t, suspends, 1) {
		assert.Equal(t, core.SuspendBreakpoint, suspends[0].Detail)
		assert.Equal(t, core.SessionHandle("h-1"), suspends[0].Handle)
	}
	assert.True(t, c.Thread().Suspended())
	assert.False(t, c.Thread().Stepping())
}

func TestControllerResumeClearsSuspension(t *testing.T) {
	m := &MockRemoteController{}
	rec := &testutil.NotificationRecorder{}
	c := connected(t, m)
	c.AddObserver(rec.Observer())
	c.HandleDebugEvent(core.DebugEvent{Kind: core.EventSuspend, Detail: core.SuspendClientRequest})

	m.On("Resume", mock.Anything, core.SessionHandle("h-1")).Return(nil)
	assert.NoError(t, c.Resume(context.Background()))

	assert.False(t, c.IsSuspended())
	assert.False(t, c.Thread().Suspended())
	resumes := rec.OfKind(core.NotifyResumed)
	if assert.Len(t, resumes, 1) {
		assert.Equal(t, core.SuspendClientRequest, resumes[0].Detail)
	}
}

// The optimistic resume flip is intentional: resume is fire-and-forget from
// the controller's point of view, while suspend waits for confirmation.
func TestControllerResumeBackendFailureKeepsStateFlip(t *testing.T) {
	m := &MockRemoteController{}
	rec := &testutil.NotificationRecorder{}
	c := connected(t, m)
	c.AddObserver(rec.Observer())
	c.HandleDebugEvent(core.DebugEvent{Kind: core.EventSuspend, Detail: core.SuspendClientRequest})
	c.Thread().SetStepping(true)

	m.On("Resume", mock.Anything, core.SessionHandle("h-1")).Return(core.NewBackendError("resume", "gone", nil))

	err := c.Resume(context.Background())

	var cerr *core.ControlError
	assert.ErrorAs(t, err, &cerr)
	assert.False(t, c.IsSuspended(), "optimistic flip is not rolled back")
	assert.False(t, c.Thread().Suspended(), "thread is reconciled even on failure")
	assert.False(t, c.Thread().Stepping())
	assert.Equal(t, 1, rec.Count(core.NotifyResumed), "resume notification fires regardless of backend outcome")
	assert.Equal(t, 1, rec.Count(core.NotifyError))
}

func TestControllerStepSetsSteppingUntilSuspend(t *testing.T) {
	m := &MockRemoteController{}
	c := connected(t, m)
	c.HandleDebugEvent(core.DebugEvent{Kind: core.EventSuspend, Detail: core.SuspendBreakpoint})

	m.On("StepOver", mock.Anything, core.SessionHandle("h-1")).Return(nil)
	assert.NoError(t, c.StepOver(context.Background()))
	assert.True(t, c.Thread().Stepping())

	c.HandleDebugEvent(core.DebugEvent{Kind: core.EventSuspend, Detail: core.SuspendStepEnd})
	assert.False(t, c.Thread().Stepping(), "any suspend clears stepping")
	assert.True(t, c.Thread().Suspended())
}

// The loopback backend delivers the step-end suspend before the step call
// returns. The stepping flag must already be raised at that point so the
// suspend clears it, leaving no stale step in flight.
func TestControllerStepAgainstSynchronousBackend(t *testing.T) {
	be := backend.NewLoopback()
	c := New(be)
	c.AttachListeners()

	ctx := context.Background()
	assert.NoError(t, c.Connect(ctx))
	assert.NoError(t, c.Suspend(ctx))
	assert.True(t, c.IsSuspended())

	assert.NoError(t, c.StepOver(ctx))

	assert.True(t, c.IsSuspended())
	assert.True(t, c.Thread().Suspended())
	assert.False(t, c.Thread().Stepping(), "stepping must clear on the step-end suspend")
}

func TestControllerStepFailure(t *testing.T) {
	m := &MockRemoteController{}
	c := connected(t, m)
	m.On("StepInto", mock.Anything, core.SessionHandle("h-1")).Return(core.NewBackendError("step_into", "unsupported", nil))

	err := c.StepInto(context.Background())

	var serr *core.StepError
	assert.ErrorAs(t, err, &serr)
	assert.Equal(t, core.StepInto, serr.Kind)
	assert.False(t, c.Thread().Stepping())
}

func TestControllerStepPredicatesDelegate(t *testing.T) {
	m := &MockRemoteController{}
	c := connected(t, m)
	m.On("CanStepInto", core.SessionHandle("h-1")).Return(true)
	m.On("CanStepOver", core.SessionHandle("h-1")).Return(false)
	m.On("CanStepReturn", core.SessionHandle("h-1")).Return(true)

	assert.True(t, c.CanStepInto())
	assert.False(t, c.CanStepOver())
	assert.True(t, c.CanStepReturn())
}

func TestControllerDisconnectKeepsState(t *testing.T) {
	m := &MockRemoteController{}
	c := connected(t, m)
	m.On("Detach", mock.Anything, core.SessionHandle("h-1")).Return(nil).Once()

	assert.NoError(t, c.Disconnect(context.Background()))
	assert.Equal(t, StateAttached, c.State(), "disconnect is not terminate")
}

func TestControllerDisconnectFailure(t *testing.T) {
	m := &MockRemoteController{}
	c := connected(t, m)
	c.HandleDebugEvent(core.DebugEvent{Kind: core.EventSuspend, Detail: core.SuspendClientRequest})
	m.On("Detach", mock.Anything, core.SessionHandle("h-1")).Return(core.NewBackendError("detach", "gone", nil)).Once()

	err := c.Disconnect(context.Background())

	var derr *core.DisconnectError
	assert.ErrorAs(t, err, &derr)
	assert.Equal(t, StateSuspended, c.State(), "no compensating state change")
}

func TestControllerTerminateIdempotent(t *testing.T) {
	m := &MockRemoteController{}
	rec := &testutil.NotificationRecorder{}
	c := connected(t, m)
	c.AddObserver(rec.Observer())
	expectTeardown(m, "h-1", nil)

	assert.NoError(t, c.Terminate())
	assert.NoError(t, c.Terminate(), "repeated terminate is a no-op")

	assert.True(t, c.IsTerminated())
	assert.Nil(t, c.Thread())
	assert.Empty(t, c.Threads())
	assert.False(t, c.IsSuspended())
	assert.False(t, c.CanResume())
	assert.False(t, c.CanSuspend())
	assert.False(t, c.CanTerminate())

	m.AssertNumberOfCalls(t, "Detach", 1)
	m.AssertNumberOfCalls(t, "Dispose", 1)
	m.AssertNumberOfCalls(t, "UnregisterEventHandler", 1)
	assert.Equal(t, 1, rec.Count(core.NotifyTerminated), "teardown side effects run once")
}

func TestControllerTerminateDetachFailureCompletesTeardown(t *testing.T) {
	m := &MockRemoteController{}
	rec := &testutil.NotificationRecorder{}
	process := &fakeProcess{}
	c := connected(t, m, func(o *Options) { o.Process = process })
	c.AddObserver(rec.Observer())
	expectTeardown(m, "h-1", core.NewBackendError("detach", "connection lost", nil))

	err := c.Terminate()

	var terr *core.TerminateError
	assert.ErrorAs(t, err, &terr)
	assert.True(t, c.IsTerminated())
	m.AssertNumberOfCalls(t, "Dispose", 1)
	m.AssertNumberOfCalls(t, "UnregisterEventHandler", 1)
	assert.True(t, process.Terminated(), "teardown continues past the detach failure")
	assert.Equal(t, 1, rec.Count(core.NotifyTerminated))

	assert.NoError(t, c.Terminate(), "error is not replayed")
}

func TestControllerTerminateClearsObservers(t *testing.T) {
	m := &MockRemoteController{}
	rec := &testutil.NotificationRecorder{}
	c := connected(t, m)
	c.AddObserver(rec.Observer())
	expectTeardown(m, "h-1", nil)

	assert.NoError(t, c.Terminate())
	before := len(rec.All())

	c.HandleDebugEvent(core.DebugEvent{Kind: core.EventSuspend, Detail: core.SuspendBreakpoint})
	assert.Len(t, rec.All(), before, "terminated session holds no registered listeners")
}

func TestControllerOnProcessTerminated(t *testing.T) {
	m := &MockRemoteController{}
	c := connected(t, m)
	expectTeardown(m, "h-1", nil)

	c.OnProcessTerminated()

	assert.True(t, c.IsTerminated())
	assert.Empty(t, c.Threads())
	assert.False(t, c.IsSuspended())
	assert.False(t, c.CanResume())
	assert.False(t, c.CanSuspend())
}

func TestControllerBackendTerminateEventDecoupledFromSessionEnd(t *testing.T) {
	m := &MockRemoteController{}
	process := &fakeProcess{}
	c := connected(t, m, func(o *Options) { o.Process = process })

	c.HandleDebugEvent(core.DebugEvent{Kind: core.EventTerminate})

	assert.False(t, c.IsTerminated(), "session waits for the process exit")
	assert.Equal(t, 1, process.terminateCalls())

	expectTeardown(m, "h-1", nil)
	c.OnProcessTerminated()
	assert.True(t, c.IsTerminated())
}

func TestControllerTerminateEventWithoutProcess(t *testing.T) {
	m := &MockRemoteController{}
	c := connected(t, m)
	expectTeardown(m, "h-1", nil)

	c.HandleDebugEvent(core.DebugEvent{Kind: core.EventTerminate})

	assert.True(t, c.IsTerminated())
}

func TestControllerOperationsAfterTerminate(t *testing.T) {
	m := &MockRemoteController{}
	c := connected(t, m)
	expectTeardown(m, "h-1", nil)
	assert.NoError(t, c.Terminate())

	ctx := context.Background()
	assert.ErrorIs(t, c.Resume(ctx), core.ErrSessionTerminated)
	assert.ErrorIs(t, c.Suspend(ctx), core.ErrSessionTerminated)
	assert.ErrorIs(t, c.StepInto(ctx), core.ErrSessionTerminated)
	assert.ErrorIs(t, c.Connect(ctx), core.ErrSessionTerminated)
}

// Termination may land while Attach is in flight. The absorbing terminal
// state must win: the fresh handle is detached and discarded instead of
// resurrecting the session.
func TestControllerTerminateDuringConnect(t *testing.T) {
	m := &MockRemoteController{}
	c := New(m)

	m.On("UnregisterEventHandler", mock.Anything).Return()
	m.On("Dispose").Return()
	m.On("Attach", mock.Anything).Return(core.SessionHandle("h-late"), nil).Run(func(mock.Arguments) {
		assert.NoError(t, c.Terminate())
	})
	m.On("Detach", mock.Anything, core.SessionHandle("h-late")).Return(nil).Once()

	err := c.Connect(context.Background())

	var aerr *core.AttachError
	assert.ErrorAs(t, err, &aerr)
	assert.ErrorIs(t, err, core.ErrSessionTerminated)
	assert.True(t, c.IsTerminated(), "terminal state is never left")
	assert.True(t, c.Handle().Zero(), "late handle must be discarded")
	m.AssertExpectations(t)
}

func TestControllerTerminateBeforeConnectSkipsDetach(t *testing.T) {
	m := &MockRemoteController{}
	m.On("UnregisterEventHandler", mock.Anything).Return()
	m.On("Dispose").Return()

	c := New(m)
	assert.NoError(t, c.Terminate())
	assert.True(t, c.IsTerminated())

	for _, call := range m.Calls {
		if call.Method == "Detach" {
			t.Fatal("detach must not be issued without a handle")
		}
	}
}

func TestControllerNameResolution(t *testing.T) {
	m := &MockRemoteController{}

	c := New(m, func(o *Options) {
		o.NameResolver = func() (string, error) { return "orders-debug", nil }
	})
	assert.Equal(t, "orders-debug", c.Name())

	c = New(m, func(o *Options) {
		o.NameResolver = func() (string, error) { return "", errors.New("config lookup failed") }
	})
	assert.Equal(t, DefaultName, c.Name())

	resolved := 0
	c = New(m, func(o *Options) {
		o.NameResolver = func() (string, error) { resolved++; return "once", nil }
	})
	_ = c.Name()
	_ = c.Name()
	assert.Equal(t, 1, resolved, "name resolves once and is cached")
}

func TestControllerRecordsBackendCalls(t *testing.T) {
	m := &MockRemoteController{}
	logger := &testutil.RecordingLogger{}
	c := connected(t, m, func(o *Options) { o.Logger = logger })
	m.On("Suspend", mock.Anything, core.SessionHandle("h-1")).Return(nil)
	m.On("Resume", mock.Anything, core.SessionHandle("h-1")).Return(core.NewBackendError("resume", "gone", nil))

	ctx := context.Background()
	assert.NoError(t, c.Suspend(ctx))
	assert.Error(t, c.Resume(ctx))

	assert.Equal(t, []string{"attach", "suspend", "resume"}, logger.BackendCalls(),
		"loggers with the richer surface see every backend call, failures included")
}

func TestControllerObserverRemoval(t *testing.T) {
	m := &MockRemoteController{}
	rec := &testutil.NotificationRecorder{}
	c := connected(t, m)
	id := c.AddObserver(rec.Observer())
	c.RemoveObserver(id)

	c.HandleDebugEvent(core.DebugEvent{Kind: core.EventSuspend, Detail: core.SuspendBreakpoint})
	assert.Empty(t, rec.All())
}

func TestControllerConnectSuspendResumeScenario(t *testing.T) {
	m := &MockRemoteController{}
	c := connected(t, m)
	m.On("Suspend", mock.Anything, core.SessionHandle("h-1")).Return(nil)
	m.On("Resume", mock.Anything, core.SessionHandle("h-1")).Return(nil)

	ctx := context.Background()

	assert.NoError(t, c.Suspend(ctx))
	c.HandleDebugEvent(core.DebugEvent{Kind: core.EventSuspend, Detail: core.SuspendClientRequest})
	assert.True(t, c.IsSuspended())

	assert.NoError(t, c.Resume(ctx))
	assert.False(t, c.IsSuspended())
}
