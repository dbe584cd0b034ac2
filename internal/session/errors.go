package session

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced by engine operations.
var (
	// ErrNoActiveSession is returned by operations that require an active
	// workout when none exists.
	ErrNoActiveSession = errors.New("no active workout session")

	// ErrWorkoutConflict is returned by Start when a session is already
	// active and the caller has not resolved the conflict first.
	ErrWorkoutConflict = errors.New("another workout is already active")
)

// PersistenceError wraps a failure from the persistence collaborator. For
// Finish this means the session was left intact so the caller can retry.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
