package lease

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a LeaseProvider call failed.
type ErrorKind int

const (
	// ErrInvalidArgument is a construction-time contract violation.
	ErrInvalidArgument ErrorKind = iota + 1

	// ErrConflict means another holder currently owns the lease.
	ErrConflict

	// ErrNotFound means the named lease does not exist in the provider.
	ErrNotFound

	// ErrTransientServer is a retryable server or network error.
	ErrTransientServer

	// ErrOther is an unclassified provider error.
	ErrOther

	// ErrDisposed means the operation was attempted after dispose().
	ErrDisposed
)

// String returns a human-readable name for the error kind.
func (k ErrorKind) String() string {
	switch k {
	case ErrInvalidArgument:
		return "InvalidArgument"
	case ErrConflict:
		return "Conflict"
	case ErrNotFound:
		return "NotFound"
	case ErrTransientServer:
		return "TransientServerError"
	case ErrOther:
		return "Other"
	case ErrDisposed:
		return "Disposed"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// Error is the tagged error returned by LeaseProvider operations and by
// Manager construction.
type Error struct {
	Kind ErrorKind
	Err  error
}

// NewError wraps err with the given kind.
func NewError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.String()
}

// Unwrap allows errors.Is/errors.As to see through to the wrapped cause.
func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Kind, so callers can
// write errors.Is(err, lease.NewError(lease.ErrConflict, nil)).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// KindOf extracts the ErrorKind from err, defaulting to ErrOther for errors
// that did not originate from this package.
func KindOf(err error) ErrorKind {
	if err == nil {
		return 0
	}
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	return ErrOther
}
