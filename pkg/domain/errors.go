package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotInitialized is returned by Send while the machine is still in InitState.
var ErrNotInitialized = errors.New("machine has not been initialized")

// ErrAlreadyInitialized is returned by a second call to Init.
var ErrAlreadyInitialized = errors.New("machine has already been initialized")

// ErrBusy is returned when a transition is in flight and the machine uses
// ConcurrencyFailFast.
var ErrBusy = errors.New("machine is busy with another transition")

// ErrReentrantCall is returned when Init or Send is called with a context that
// belongs to an action of a transition of the same machine that is still in
// flight. Follow-up events are dispatched from a goroutine with a context
// passed through fsm.Detach, which queues behind the running transition.
var ErrReentrantCall = errors.New("reentrant call from inside an action (send follow-up events from a goroutine with fsm.Detach)")

// DefinitionError reports every broken state reference of a definition.
type DefinitionError struct {
	// Missing lists referenced state names that have no definition.
	Missing []string
	// Reserved lists defined states that use a reserved name.
	Reserved []string
}

func (e *DefinitionError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("no definition for states: %s", strings.Join(e.Missing, ", ")))
	}
	if len(e.Reserved) > 0 {
		parts = append(parts, fmt.Sprintf("reserved state names: %s", strings.Join(e.Reserved, ", ")))
	}
	if len(parts) == 0 {
		return "invalid machine definition"
	}
	return strings.Join(parts, "; ")
}

// UnhandledEventError is returned when no rule resolves an event at any scope.
type UnhandledEventError struct {
	Event string
	State string
}

func (e *UnhandledEventError) Error() string {
	return fmt.Sprintf("event %q is invalid in state %q", e.Event, e.State)
}

// ActionError wraps a failure of a user action. It never reaches the caller of
// Init or Send; it is only visible through logs and LifecycleHooks.
type ActionError struct {
	Phase Phase
	State string
	Event string
	Err   error
}

func (e *ActionError) Error() string {
	if e.Event == "" {
		return fmt.Sprintf("%s action of state %q failed: %v", e.Phase, e.State, e.Err)
	}
	return fmt.Sprintf("%s action of state %q failed on event %q: %v", e.Phase, e.State, e.Event, e.Err)
}

func (e *ActionError) Unwrap() error { return e.Err }

// IsDefinitionError reports whether err carries a DefinitionError.
func IsDefinitionError(err error) bool {
	var e *DefinitionError
	return errors.As(err, &e)
}

// IsUnhandledEvent reports whether err carries an UnhandledEventError.
func IsUnhandledEvent(err error) bool {
	var e *UnhandledEventError
	return errors.As(err, &e)
}
