// Package debugmesh provides a high-level façade over the session controller
// and service abstractions (breakpoint registry, backend, logging) enabling
// rapid construction of remote debugging hosts. Most applications interact
// with this package by:
//  1. Creating a DebugMesh via New() against a core.RemoteController
//     (optionally overriding the default in-memory registry)
//  2. Registering observers for lifecycle notifications
//  3. Driving the session through Connect, Suspend, Resume, the step
//     operations and Terminate
//
// The façade delegates lifecycle handling to session.Controller while keeping
// setup and usage ergonomics concise. All defaults are safe for local
// development and testing; production hosts typically supply a real protocol
// backend, a durable breakpoint registry and a structured logger.
package debugmesh

import (
	"context"

	"github.com/hupe1980/debugmesh/backend"
	"github.com/hupe1980/debugmesh/core"
	"github.com/hupe1980/debugmesh/logging"
	"github.com/hupe1980/debugmesh/registry"
	"github.com/hupe1980/debugmesh/session"
)

// Options configures the DebugMesh instance.
type Options struct {
	// Registry is the breakpoint store the session synchronizes with
	// (defaults to an in-memory registry if not provided).
	Registry core.BreakpointRegistry

	// Process is the owned external process of the launch. Optional.
	Process core.Process

	// Kind selects the supported breakpoint model (defaults to line
	// breakpoints).
	Kind core.BreakpointKind

	// Name fixes the session display name.
	Name string

	// NameResolver resolves the display name lazily from the host launch
	// configuration.
	NameResolver func() (string, error)

	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger
}

// DebugMesh is the high-level façade aggregating the session controller and
// its collaborators.
type DebugMesh struct {
	opts     Options
	session  *session.Controller
	registry core.BreakpointRegistry
}

// New creates a new DebugMesh instance bound to the given backend, with
// optional overrides. Listener wiring happens here: the session is registered
// with the backend event stream and the registry, and an OwnedProcess is
// connected to the session's process-terminated entry point.
func New(be core.RemoteController, optFns ...func(o *Options)) *DebugMesh {
	opts := Options{
		Registry: registry.NewInMemory(),
		Kind:     core.BreakpointKindLine,
		Logger:   logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	sess := session.New(be, func(o *session.Options) {
		o.Registry = opts.Registry
		o.Process = opts.Process
		o.Kind = opts.Kind
		o.Name = opts.Name
		o.NameResolver = opts.NameResolver
		o.Logger = opts.Logger
	})
	sess.AttachListeners()

	if p, ok := opts.Process.(*backend.OwnedProcess); ok {
		p.NotifyOnTerminate(sess.OnProcessTerminated)
	}

	return &DebugMesh{opts: opts, session: sess, registry: opts.Registry}
}

// Session returns the underlying session controller.
func (m *DebugMesh) Session() *session.Controller { return m.session }

// Registry returns the breakpoint registry the session synchronizes with.
func (m *DebugMesh) Registry() core.BreakpointRegistry { return m.registry }

// Observe registers an observer for lifecycle notifications and returns its
// id.
func (m *DebugMesh) Observe(fn core.Observer) string { return m.session.AddObserver(fn) }

// Connect attaches the session to the remote instance.
func (m *DebugMesh) Connect(ctx context.Context) error { return m.session.Connect(ctx) }

// Terminate tears the session down. Idempotent.
func (m *DebugMesh) Terminate() error { return m.session.Terminate() }
