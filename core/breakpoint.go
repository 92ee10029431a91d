package core

import (
	"fmt"

	"golang.org/x/exp/maps"
)

// BreakpointKind tags the model a breakpoint belongs to. A session supports
// exactly one kind; foreign kinds are ignored by its breakpoint handling.
type BreakpointKind string

// BreakpointKindLine is the source-line breakpoint model supported by remote
// engine sessions.
const BreakpointKindLine BreakpointKind = "line"

// Host-side marker attribute keys, as produced by the IDE's breakpoint
// persistence layer.
const (
	AttrResourcePath = "resourcePath"
	AttrLineNumber   = "lineNumber"
	AttrCondition    = "condition"
	AttrEnabled      = "enabled"
)

// Backend-neutral descriptor attribute keys, as consumed by
// RemoteController.DescribeBreakpoint.
const (
	DescSource    = "source"
	DescLine      = "line"
	DescCondition = "condition"
	DescEnabled   = "enabled"
)

// Breakpoint is the host-side record of a breakpoint as stored in the
// registry. Attributes holds the opaque marker attributes the host persists;
// translation to a backend descriptor goes through ToDescriptorAttributes.
type Breakpoint struct {
	ID         string
	Kind       BreakpointKind
	Enabled    bool
	Attributes map[string]any
}

// Clone returns a copy of the breakpoint with its attribute map duplicated.
func (b Breakpoint) Clone() Breakpoint {
	c := b
	if b.Attributes != nil {
		c.Attributes = maps.Clone(b.Attributes)
	}
	return c
}

// BreakpointDescriptor is the backend-neutral representation of a breakpoint
// derived from host attributes. Descriptors are created per translation call
// and never cached.
type BreakpointDescriptor struct {
	Source    string
	Line      int
	Condition string
	Enabled   bool
}

// Key returns a stable identity for the described location, used by backends
// to correlate add and remove calls.
func (d BreakpointDescriptor) Key() string {
	return fmt.Sprintf("%s:%d", d.Source, d.Line)
}

// ToDescriptorAttributes translates opaque host marker attributes into the
// backend-neutral attribute map consumed by DescribeBreakpoint. It is a pure
// function: known marker keys are renamed, unknown keys are passed through
// untouched so backend-specific extensions survive the translation.
func ToDescriptorAttributes(attrs map[string]any) (map[string]any, error) {
	line, ok := intAttr(attrs[AttrLineNumber])
	if !ok {
		return nil, fmt.Errorf("marker attribute %q is missing or not a number", AttrLineNumber)
	}

	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		switch k {
		case AttrLineNumber:
			out[DescLine] = line
		case AttrResourcePath:
			out[DescSource] = fmt.Sprintf("%v", v)
		case AttrCondition:
			out[DescCondition] = fmt.Sprintf("%v", v)
		case AttrEnabled:
			enabled, isBool := v.(bool)
			if !isBool {
				return nil, fmt.Errorf("marker attribute %q is not a boolean", AttrEnabled)
			}
			out[DescEnabled] = enabled
		default:
			out[k] = v
		}
	}

	return out, nil
}

func intAttr(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		// JSON round-trips numbers as float64.
		if n == float64(int64(n)) {
			return int(n), true
		}
	}
	return 0, false
}

// RegistryListener observes membership and enablement changes of a breakpoint
// registry. Listeners are registered under an explicit id so removal is
// symmetric and traceable.
type RegistryListener interface {
	BreakpointAdded(bp Breakpoint)
	BreakpointRemoved(bp Breakpoint)
	BreakpointChanged(bp Breakpoint)
	RegistryEnablementChanged(enabled bool)
}

// BreakpointRegistry is the host's breakpoint persistence store as seen by a
// session: enumeration by kind, a global enablement toggle and listener
// registration. Membership changes independently of session state.
type BreakpointRegistry interface {
	// Breakpoints returns the breakpoints of the given kind.
	Breakpoints(kind BreakpointKind) []Breakpoint

	// Enabled reports the registry's global enablement toggle.
	Enabled() bool

	// AddListener registers l under id.
	AddListener(id string, l RegistryListener)

	// RemoveListener drops the listener registered under id.
	RemoveListener(id string)
}
