package mtab

import "errors"

// Error represents a domain error from view operations.
//
// These are expected outcomes of querying volatile state (entry not found,
// name too long), not infrastructure faults. Protocol handlers translate
// Error codes to protocol-specific status codes in exactly one place.
type Error struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Name is the entry name related to the error (if applicable)
	Name string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Name != "" {
		return e.Message + ": " + e.Name
	}
	return e.Message
}

// ErrorCode represents the category of a view error.
//
// The set is deliberately small: every internal failure is mapped to one of
// these at the boundary operation, and none are retried. There is no
// distinction between "logically absent" and "transiently absent"; both are
// ErrNotFound.
type ErrorCode int

const (
	// ErrNotFound indicates the name does not denote a live mount: it is
	// not a canonical decimal id, or no mount currently carries that id,
	// or the mount vanished between being found and having its path
	// rendered. All three present identically to callers.
	ErrNotFound ErrorCode = iota

	// ErrNameTooLong indicates the requested name exceeds the configured
	// maximum filename length. Reported before any parsing is attempted.
	ErrNameTooLong

	// ErrNoNamespace indicates the calling context has no associated mount
	// namespace. Surfaces as the not-found class at every entry point that
	// needs a namespace.
	ErrNoNamespace

	// ErrExhausted indicates an allocation or capacity failure while
	// synthesizing an entry. Aborts the single operation, never the
	// filesystem.
	ErrExhausted
)

// IsCode reports whether err is, or wraps, a view Error carrying the given
// code.
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == code
}
