package drag

import (
	"errors"
	"fmt"
)

// ErrSessionActive is returned by Start while another gesture is in flight.
// Only one session may be dragging at a time per board view.
var ErrSessionActive = errors.New("drag: a session is already active")

// ErrNoSession is returned by Drop when no gesture is in flight.
var ErrNoSession = errors.New("drag: no active session")

// ErrUnknownItem is returned by Start when the item is not in the store.
var ErrUnknownItem = errors.New("drag: item not found on board")

// PersistenceError reports that the batched update for a drop failed. The
// optimistic mutation has already been rolled back when this is returned; the
// host must surface it since it represents a lost intended action.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("drag: persist drop: %v", e.Err) }

func (e *PersistenceError) Unwrap() error { return e.Err }
