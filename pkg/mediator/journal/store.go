// Package journal records an append-only log of mediator engine activity.
//
// The journal is a diagnostic trail: which names were registered, which
// names were claimed, which connections were deferred and when they
// resolved. It is never read back into an engine, so a restarted process
// starts with an empty registry regardless of what the journal holds.
package journal

import (
	"errors"
	"time"
)

// Kind identifies the engine event an entry describes.
type Kind string

// Entry kinds written by the engine.
const (
	KindRegister  Kind = "register"
	KindClaim     Kind = "claim"
	KindDefer     Kind = "defer"
	KindResolve   Kind = "resolve"
	KindSubscribe Kind = "subscribe"
	KindGroup     Kind = "group"
)

// Entry is a single journal record.
type Entry struct {
	// ID is a unique identifier. Generated by the store when empty.
	ID string
	// Sequence is assigned by the store, starting at 1.
	Sequence int64
	Kind     Kind
	// Name is the primary name involved (registered name, group name, filter).
	Name string
	// Names lists every name involved in a claim, defer or resolve.
	Names []string
	// Ref correlates entries for the same connection or subscription.
	Ref       string
	Timestamp time.Time
}

// Store persists journal entries.
// Implementations must be safe for concurrent use.
type Store interface {
	// Append stores an entry, assigning its sequence number.
	Append(entry Entry) error

	// List returns every entry ordered by sequence.
	// Returns empty slice (not error) if the journal is empty.
	List() ([]Entry, error)

	// ListByName returns entries whose Name equals name or whose Names
	// contains it, ordered by sequence.
	ListByName(name string) ([]Entry, error)

	// Close releases any resources (connections, files).
	Close() error
}

// Sentinel errors for journal operations.
var (
	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("journal store closed")

	// ErrInvalidEntry indicates an entry without a kind.
	ErrInvalidEntry = errors.New("journal entry has no kind")
)

func mentions(e Entry, name string) bool {
	if e.Name == name {
		return true
	}
	for _, n := range e.Names {
		if n == name {
			return true
		}
	}
	return false
}
