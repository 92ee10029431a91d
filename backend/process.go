package backend

import "sync"

// OwnedProcess is a minimal core.Process implementation for launches whose
// external process lives in the host. Terminate flips the terminated flag
// exactly once and invokes the registered exit callback, which typically
// forwards to the session's OnProcessTerminated.
type OwnedProcess struct {
	mu          sync.Mutex
	terminated  bool
	onTerminate func()
}

// NewOwnedProcess constructs a running process handle.
func NewOwnedProcess() *OwnedProcess {
	return &OwnedProcess{}
}

// NotifyOnTerminate registers fn to run when the process terminates. It
// replaces any previous callback; registration after termination invokes fn
// immediately.
func (p *OwnedProcess) NotifyOnTerminate(fn func()) {
	p.mu.Lock()
	done := p.terminated
	if !done {
		p.onTerminate = fn
	}
	p.mu.Unlock()

	if done && fn != nil {
		fn()
	}
}

// Terminate marks the process terminated and fires the exit callback once.
func (p *OwnedProcess) Terminate() error {
	p.mu.Lock()
	if p.terminated {
		p.mu.Unlock()
		return nil
	}
	p.terminated = true
	fn := p.onTerminate
	p.mu.Unlock()

	if fn != nil {
		fn()
	}
	return nil
}

// Terminated reports whether the process has exited.
func (p *OwnedProcess) Terminated() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.terminated
}
