// Package registry houses concrete implementations of the
// core.BreakpointRegistry contract. The interface itself lives in the core
// package to centralize domain contracts; keeping only implementations here
// prevents the session controller from depending on concrete storage.
//
// Add additional backends (workspace files, IDE bridges, etc.) alongside
// InMemory without changing any calling code – only the wiring layer needs to
// decide which implementation to instantiate.
package registry
