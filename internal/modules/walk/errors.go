package walk

import (
	"errors"
	"fmt"
)

var (
	ErrBadRequest = errors.New("bad request")
	ErrNotFound   = errors.New("walk not found")
	ErrForbidden  = errors.New("not authorized")
	// ErrConflict signals a lost claim race: the walk was unassigned when
	// read but another walker won the conditional update. The caller should
	// refresh its list; the resolver never retries.
	ErrConflict = errors.New("walk no longer available")
)

// StateError rejects a transition whose source state no longer (or never did)
// allow it. The message names the walk's live status so the client can
// resynchronize.
type StateError struct {
	Op      string
	Current Status
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s walk with status: %s", e.Op, e.Current)
}

func stateErr(op string, current Status) error {
	return &StateError{Op: op, Current: current}
}
