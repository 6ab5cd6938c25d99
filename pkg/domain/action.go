package domain

import "context"

// Event is the input of a single Send call. It is handed by reference to
// every action of the resulting transition and never stored by the engine.
type Event struct {
	Name string `json:"name" yaml:"name"`
	Data any    `json:"data,omitempty" yaml:"data,omitempty"`
}

// Action is a transition-scoped callback owned by an edge.
type Action func(ctx context.Context, evt *Event) error

// EntryAction runs after the machine has moved into its state.
// from is the state just left, or InitState on the first transition.
// evt is nil for the transition performed by Init.
type EntryAction func(ctx context.Context, from string, evt *Event) error

// ExitAction runs before the machine leaves its state for to.
type ExitAction func(ctx context.Context, to string, evt *Event) error

// StateActions holds the optional entry and exit hooks of a state.
//
// Hooks must handle their own failures, typically by dispatching a follow-up
// event to the machine. Any error or panic they produce is logged and dropped.
type StateActions struct {
	OnEntry EntryAction
	OnExit  ExitAction
}
