// Package core provides the foundational domain types and interfaces used by
// DebugMesh. It defines the core abstractions for:
//
//   - RemoteController (the backend debug protocol contract)
//   - Debug events delivered asynchronously by a backend
//   - Breakpoints, descriptors and the breakpoint registry contract
//   - The owned process handle of a debug launch
//   - Session notifications delivered to observers
//   - The typed error taxonomy for every session operation
//
// The package intentionally keeps implementation concerns (concrete wire
// protocols, registry storage, the session state machine) out of scope,
// exposing small interfaces to enable custom backends and extensions. All
// exported identifiers include concise documentation to aid discoverability
// and external consumption.
package core
