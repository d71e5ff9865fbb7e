package mediator

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Every error returned by the engine matches exactly one of
// these with errors.Is.
var (
	// ErrInvalidName indicates an empty name, a name whose first rune has no
	// case, or a group name that is not a Module name.
	ErrInvalidName = errors.New("invalid name")

	// ErrInvalidObject indicates a nil object passed to Register.
	ErrInvalidObject = errors.New("invalid object")

	// ErrDuplicateModule indicates a Module name that is already registered
	// or reserved by a pending group.
	ErrDuplicateModule = errors.New("module already registered")

	// ErrAlreadyClaimed indicates a name already requested by an earlier
	// connect, group or waiting ForEach.
	ErrAlreadyClaimed = errors.New("name already claimed")

	// ErrInvalidCallback indicates a nil callback or an unrecognised
	// ForEachArgs argument shape.
	ErrInvalidCallback = errors.New("invalid callback")

	// ErrCascadeTooDeep indicates callbacks nested engine calls beyond the
	// configured maximum cascade depth.
	ErrCascadeTooDeep = errors.New("cascade too deep")
)

// NameError wraps an error with the name and operation that produced it.
type NameError struct {
	// Name is the offending name. Empty when the error is not about a name.
	Name string
	// Op is the operation that failed ("register", "connect", "foreach", "group").
	Op string
	// Err is the underlying sentinel error.
	Err error
}

// Error implements the error interface.
func (e *NameError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Op, e.Name, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *NameError) Unwrap() error {
	return e.Err
}

// ClaimError lists every requested name that could not be claimed.
type ClaimError struct {
	// Op is the operation that failed.
	Op string
	// Names are the conflicting names, in request order.
	Names []string
}

// Error implements the error interface.
func (e *ClaimError) Error() string {
	return fmt.Sprintf("%s: %v: %s", e.Op, ErrAlreadyClaimed, strings.Join(e.Names, ", "))
}

// Unwrap returns ErrAlreadyClaimed for errors.Is support.
func (e *ClaimError) Unwrap() error {
	return ErrAlreadyClaimed
}

// CascadeError reports an engine call made from a callback nested deeper
// than the configured limit.
type CascadeError struct {
	// Op is the rejected operation.
	Op string
	// Name is the name being registered or grouped, if any.
	Name string
	// Depth is the nesting depth at which the call was made.
	Depth int
	// Max is the configured limit.
	Max int
}

// Error implements the error interface.
func (e *CascadeError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("%s: %v (depth %d, max %d)", e.Op, ErrCascadeTooDeep, e.Depth, e.Max)
	}
	return fmt.Sprintf("%s %q: %v (depth %d, max %d)", e.Op, e.Name, ErrCascadeTooDeep, e.Depth, e.Max)
}

// Unwrap returns ErrCascadeTooDeep for errors.Is support.
func (e *CascadeError) Unwrap() error {
	return ErrCascadeTooDeep
}
