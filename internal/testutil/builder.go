package testutil

import (
	"github.com/hupe1980/debugmesh/core"
)

// BreakpointBuilder provides a fluent helper for constructing breakpoints in
// tests.
// Example:
//
//	bp := NewBreakpointBuilder().Source("proc.sql").Line(12).Build()
//
// Chain only the parts you need; sensible defaults are applied.
type BreakpointBuilder struct {
	id        string
	kind      core.BreakpointKind
	enabled   bool
	source    string
	line      any
	condition string
	extra     map[string]any
	noLine    bool
}

// NewBreakpointBuilder creates a builder for an enabled line breakpoint.
func NewBreakpointBuilder() *BreakpointBuilder {
	return &BreakpointBuilder{kind: core.BreakpointKindLine, enabled: true, line: 1, extra: map[string]any{}}
}

// ID overrides the auto-generated breakpoint id (chainable).
func (b *BreakpointBuilder) ID(id string) *BreakpointBuilder { b.id = id; return b }

// Kind sets the breakpoint kind tag (chainable).
func (b *BreakpointBuilder) Kind(k core.BreakpointKind) *BreakpointBuilder { b.kind = k; return b }

// Enabled sets the per-breakpoint enabled flag (chainable).
func (b *BreakpointBuilder) Enabled(e bool) *BreakpointBuilder { b.enabled = e; return b }

// Source sets the resource path marker attribute (chainable).
func (b *BreakpointBuilder) Source(s string) *BreakpointBuilder { b.source = s; return b }

// Line sets the line number marker attribute (chainable).
func (b *BreakpointBuilder) Line(n int) *BreakpointBuilder { b.line = n; return b }

// InvalidLine stores a non-numeric line number so translation fails (chainable).
func (b *BreakpointBuilder) InvalidLine() *BreakpointBuilder { b.line = "not-a-line"; return b }

// NoLine drops the line number marker attribute entirely (chainable).
func (b *BreakpointBuilder) NoLine() *BreakpointBuilder { b.noLine = true; return b }

// Condition sets the condition marker attribute (chainable).
func (b *BreakpointBuilder) Condition(c string) *BreakpointBuilder { b.condition = c; return b }

// Attr adds an arbitrary marker attribute (chainable).
func (b *BreakpointBuilder) Attr(key string, value any) *BreakpointBuilder {
	b.extra[key] = value
	return b
}

// Build assembles the breakpoint.
func (b *BreakpointBuilder) Build() core.Breakpoint {
	id := b.id
	if id == "" {
		id = core.NewID()
	}

	attrs := map[string]any{}
	for k, v := range b.extra {
		attrs[k] = v
	}
	if !b.noLine {
		attrs[core.AttrLineNumber] = b.line
	}
	if b.source != "" {
		attrs[core.AttrResourcePath] = b.source
	}
	if b.condition != "" {
		attrs[core.AttrCondition] = b.condition
	}
	attrs[core.AttrEnabled] = b.enabled

	return core.Breakpoint{ID: id, Kind: b.kind, Enabled: b.enabled, Attributes: attrs}
}
