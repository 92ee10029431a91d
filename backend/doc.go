// Package backend houses in-process implementations of the
// core.RemoteController contract. Loopback simulates a remote execution
// engine entirely in memory: suspend requests are acknowledged through the
// event stream, step requests complete with a step-end suspension, and
// breakpoints are tracked per descriptor key. It is the reference backend for
// development, examples and tests; real wire protocols implement the same
// contract in their own modules.
package backend
