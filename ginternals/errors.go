package ginternals

import "errors"

// ErrObjectNotFound is an error corresponding to a git object not being
// found
var ErrObjectNotFound = errors.New("object not found")

// ErrInvalidOid is returned when a given value isn't a valid Oid
var ErrInvalidOid = errors.New("invalid Oid")

// ErrRepositoryNotFound is returned when no .git directory could be
// found by walking up from a given path
var ErrRepositoryNotFound = errors.New("repository not found")

// ErrShallowNotSupported is returned when a remote requires a shallow
// negotiation this client doesn't implement
var ErrShallowNotSupported = errors.New("shallow clone not supported")

