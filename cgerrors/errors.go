// Package cgerrors defines the error kinds the causal graph engine raises.
//
// There are no recoverable I/O errors anywhere in the engine; nothing
// retries. The four kinds below are the only ways an operation can fail.
package cgerrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies why an operation failed.
type Kind int

const (
	// NotFound means a public or local version was looked up and is
	// unknown to this graph.
	NotFound Kind = iota
	// InvariantViolation means an internal consistency check failed.
	// This is a programmer error and should never fire in practice.
	InvariantViolation
	// AlreadyExists means an insert into the RLE list would overlap an
	// existing key.
	AlreadyExists
	// InvalidArgument means a caller passed a malformed or out-of-range
	// argument (equal versions to CompareVersions, an empty seq range to
	// Add, a delta parent reference outside its bounds, ...).
	InvalidArgument
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case InvariantViolation:
		return "invariant_violation"
	case AlreadyExists:
		return "already_exists"
	case InvalidArgument:
		return "invalid_argument"
	default:
		return "unknown"
	}
}

// Error wraps a Kind with a stack trace captured at the point of failure.
type Error struct {
	Kind Kind
	msg  string
	err  error // underlying cause via pkg/errors, carries the stack trace
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.err.Error())
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.msg)
}

// Unwrap lets errors.Is/errors.As from the stdlib and pkg/errors see
// through to the captured cause.
func (e *Error) Unwrap() error { return e.err }

// New constructs a *Error of the given kind with a formatted message,
// capturing a stack trace at the call site.
func New(kind Kind, format string, args ...any) *Error {
	msg := fmt.Sprintf(format, args...)
	return &Error{Kind: kind, msg: msg, err: errors.New(msg)}
}

// Wrap annotates err with a Kind and message, capturing a stack trace at
// the call site.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	msg := fmt.Sprintf(format, args...)
	return &Error{Kind: kind, msg: msg, err: errors.Wrap(err, msg)}
}

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// KindOf extracts the Kind from err, returning ok=false if err is not a
// *Error produced by this package.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
