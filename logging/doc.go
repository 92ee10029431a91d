// Package logging provides a minimal logging interface and adapters for DebugMesh.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that the session controller and registries use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	sess := session.New(backend, func(o *session.Options) { o.Logger = logger })
//
// The design intentionally keeps the interface minimal to avoid vendor lock-in
// while supporting structured logging where available.
package logging
