// Package mtab projects a live mount table as a flat, read-only filesystem
// tree: a single root directory containing one symbolic link per mount,
// named by the mount's decimal id and pointing at that mount's root path.
//
// The package deliberately treats the mount table as volatile shared state
// owned by someone else. Every operation re-reads the table through the
// Table interface, never holds a lock across it, and never retains a record
// past the end of one call. Results observed across two calls are therefore
// not guaranteed to reflect one consistent snapshot; concurrent mount and
// unmount produce skipped or repeated entries rather than errors.
package mtab

import "context"

// Dir is a handle to a mounted filesystem's root directory.
//
// It is the only thing the view needs from a mount beyond its id: the
// ability to render the directory as an absolute path at resolution time.
type Dir interface {
	// Path renders the directory as an absolute path string.
	//
	// Rendering happens at call time, not at record creation time: a mount
	// that was detached after being enumerated fails here, and callers
	// surface that as a not-found outcome rather than a fault.
	Path() (string, error)
}

// Record is one live mount observed during an enumeration.
//
// Records are borrowed, never owned. A record is only guaranteed live for
// the duration of the Table.Walk callback that yielded it. The Root handle
// stays safe to call after the callback returns, but once the provider
// removes the mount, Path begins failing; callers treat that as the mount
// having vanished, which is a normal outcome here.
type Record struct {
	// ID is the mount's identifier, unique within a namespace at a point
	// in time. Providers may reuse ids over time but never for two mounts
	// alive simultaneously.
	ID uint64

	// Root is the mount's root directory handle.
	Root Dir
}

// Namespace identifies one set of mounts visible to a group of processes.
//
// Handles are opaque to the view: obtained from a Resolver, passed to a
// Table, and dropped at the end of the operation. The provider guarantees
// validity for the duration of a single call.
type Namespace interface {
	// ID returns a stable numeric identity for logging and diagnostics.
	ID() uint64
}

// Resolver yields the mount namespace of the calling context.
type Resolver interface {
	// Resolve returns the namespace to enumerate.
	//
	// Returns an error with code ErrNoNamespace when the calling context
	// has no associated mount namespace; every view operation translates
	// that into its not-found class result.
	Resolve(ctx context.Context) (Namespace, error)
}

// ResolverFunc adapts a plain function to the Resolver interface.
type ResolverFunc func(ctx context.Context) (Namespace, error)

// Resolve calls f.
func (f ResolverFunc) Resolve(ctx context.Context) (Namespace, error) {
	return f(ctx)
}

// Table enumerates the live mounts of a namespace.
//
// Implementations must compute the sequence freshly on every Walk call;
// memoizing results across calls breaks the liveness contract. Ordering is
// the provider's native order and is not required to be stable between two
// walks, even within what a caller considers one logical directory read.
type Table interface {
	// Walk calls fn for each live mount in provider order until fn returns
	// false or the enumeration is exhausted.
	//
	// Providers that reference-count records acquire the reference
	// strictly around the fn invocation, one record at a time, so the
	// whole collection is never pinned. Walk must tolerate concurrent
	// mutation of the underlying collection; records appearing or
	// vanishing mid-walk are normal, not errors. Walk never holds an
	// exclusive or shared lock over the whole collection for the duration
	// of the enumeration.
	Walk(ctx context.Context, ns Namespace, fn func(Record) bool) error
}
