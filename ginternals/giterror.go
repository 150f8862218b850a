package ginternals

import (
	"fmt"

	"golang.org/x/xerrors"
)

// Kind categorizes a Error so callers (and tests) can branch on the
// failure mode without string-matching messages.
type Kind int8

// The kinds of failure the core subsystems can produce. See the package
// doc for ginternals for the semantics of each.
const (
	KindUnknown Kind = iota
	KindNotARepository
	KindBadName
	KindNotFound
	KindMalformed
	KindSizeMismatch
	KindChecksumMismatch
	KindUnsupported
	KindProtocol
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindNotARepository:
		return "NotARepository"
	case KindBadName:
		return "BadName"
	case KindNotFound:
		return "NotFound"
	case KindMalformed:
		return "Malformed"
	case KindSizeMismatch:
		return "SizeMismatch"
	case KindChecksumMismatch:
		return "ChecksumMismatch"
	case KindUnsupported:
		return "Unsupported"
	case KindProtocol:
		return "Protocol"
	case KindIO:
		return "Io"
	default:
		return "Unknown"
	}
}

// Error is the single error type returned by the core subsystems. It
// carries a Kind so callers can distinguish failure modes, the
// operation that failed, and an optional wrapped cause.
type Error struct {
	Kind Kind
	Op   string
	Name string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Name != "" {
		msg = fmt.Sprintf("%s %s", msg, e.Name)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", msg, e.Err.Error())
	}
	return fmt.Sprintf("%s: %s", msg, e.Kind)
}

// Unwrap lets errors.Is/errors.As see through to the wrapped cause
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds a *Error, wrapping cause (which may be nil) under op/name
func NewError(kind Kind, op, name string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Name: name, Err: cause}
}

// WrapError wraps cause with op context while preserving its Kind if
// cause is already a *Error; otherwise it's tagged KindIO.
func WrapError(op, name string, cause error) error {
	if cause == nil {
		return nil
	}
	var gitErr *Error
	if xerrors.As(cause, &gitErr) {
		return NewError(gitErr.Kind, op, name, cause)
	}
	return NewError(KindIO, op, name, cause)
}

// IsKind returns whether err is a *Error of the given Kind
func IsKind(err error, kind Kind) bool {
	var gitErr *Error
	if !xerrors.As(err, &gitErr) {
		return false
	}
	return gitErr.Kind == kind
}
