package session

import (
	"context"

	"golang.org/x/exp/maps"

	"github.com/hupe1980/debugmesh/core"
)

// breakpointSynchronizer reconciles the host breakpoint registry's enabled
// set with the backend, issuing add/remove calls. A single breakpoint's
// translation or installation failure is logged and swallowed; it never
// aborts the session. All operations are no-ops once the session terminated.
type breakpointSynchronizer struct {
	c    *Controller
	kind core.BreakpointKind

	// installed tracks descriptors currently held by the backend, keyed by
	// breakpoint id, so a registry enablement off/on cycle restores exactly
	// the previously installed set.
	installed map[string]core.BreakpointDescriptor
}

func newBreakpointSynchronizer(c *Controller, kind core.BreakpointKind) *breakpointSynchronizer {
	return &breakpointSynchronizer{
		c:         c,
		kind:      kind,
		installed: map[string]core.BreakpointDescriptor{},
	}
}

func (s *breakpointSynchronizer) supports(bp core.Breakpoint) bool {
	return bp.Kind == s.kind
}

// describe translates the breakpoint's host attributes into a backend
// descriptor. A nil descriptor means the operation must be skipped.
func (s *breakpointSynchronizer) describe(bp core.Breakpoint) (*core.BreakpointDescriptor, error) {
	attrs, err := core.ToDescriptorAttributes(bp.Attributes)
	if err != nil {
		return nil, &core.DescribeError{BreakpointID: bp.ID, Err: err}
	}
	desc := s.c.backend.DescribeBreakpoint(attrs)
	if desc == nil {
		return nil, &core.DescribeError{BreakpointID: bp.ID}
	}
	return desc, nil
}

func (s *breakpointSynchronizer) added(bp core.Breakpoint) {
	if s.c.IsTerminated() || !s.supports(bp) {
		return
	}

	desc, err := s.describe(bp)
	if err != nil {
		s.c.logger.Error("%v", err)
		return
	}

	if err := s.c.backend.AddBreakpoint(context.Background(), s.c.Handle(), *desc); err != nil {
		s.c.logger.Error("unable to add breakpoint %s: %v", bp.ID, err)
		return
	}

	s.c.mu.Lock()
	s.installed[bp.ID] = *desc
	s.c.mu.Unlock()
}

func (s *breakpointSynchronizer) removed(bp core.Breakpoint) {
	if s.c.IsTerminated() || !s.supports(bp) {
		return
	}

	desc, err := s.describe(bp)
	if err != nil {
		s.c.logger.Error("%v", err)
		return
	}

	s.c.mu.Lock()
	delete(s.installed, bp.ID)
	s.c.mu.Unlock()

	if err := s.c.backend.RemoveBreakpoint(context.Background(), s.c.Handle(), *desc); err != nil {
		s.c.logger.Error("unable to remove breakpoint %s: %v", bp.ID, err)
	}
}

// changed re-dispatches to add or remove based on the breakpoint's own
// enabled flag combined with the registry's global enablement toggle.
func (s *breakpointSynchronizer) changed(bp core.Breakpoint) {
	if !s.supports(bp) {
		return
	}

	registryEnabled := true
	if s.c.registry != nil {
		registryEnabled = s.c.registry.Enabled()
	}

	if bp.Enabled && registryEnabled {
		s.added(bp)
	} else {
		s.removed(bp)
	}
}

// enablementChanged reacts to the registry's global toggle: off removes every
// breakpoint currently installed on the backend, on re-adds all enabled
// breakpoints of the supported kind.
func (s *breakpointSynchronizer) enablementChanged(enabled bool) {
	if s.c.IsTerminated() {
		return
	}

	if !enabled {
		s.c.mu.Lock()
		tracked := maps.Clone(s.installed)
		s.installed = map[string]core.BreakpointDescriptor{}
		s.c.mu.Unlock()

		for id, desc := range tracked {
			if err := s.c.backend.RemoveBreakpoint(context.Background(), s.c.Handle(), desc); err != nil {
				s.c.logger.Error("unable to remove breakpoint %s: %v", id, err)
			}
		}
		return
	}

	if s.c.registry == nil {
		return
	}
	for _, bp := range s.c.registry.Breakpoints(s.kind) {
		if bp.Enabled {
			s.added(bp)
		}
	}
}
