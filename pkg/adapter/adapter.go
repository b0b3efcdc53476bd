// Package adapter defines the lifecycle contract for protocol servers.
package adapter

import "context"

// Adapter is a protocol-specific server with a managed lifecycle.
//
// Lifecycle: the adapter is built from configuration, Serve blocks until
// shutdown, and Stop may be called concurrently with Serve to initiate a
// graceful drain. Stop is idempotent.
type Adapter interface {
	// Serve starts the server and blocks until the context is cancelled or
	// an unrecoverable error occurs. Cancellation triggers graceful
	// shutdown: the listener closes, in-flight requests get to finish
	// within the shutdown timeout, and stragglers are force-closed.
	Serve(ctx context.Context) error

	// Stop initiates graceful shutdown. The context bounds how long to
	// wait for active connections before giving up.
	Stop(ctx context.Context) error

	// Protocol returns the protocol name for logging and metrics.
	Protocol() string

	// Port returns the TCP port the adapter is listening on. Before Serve
	// has bound the listener this is the configured port, which may be 0
	// when the OS picks one.
	Port() int
}
