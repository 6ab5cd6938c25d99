package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/aleung/fsm/pkg/domain"
)

// ErrActionNotFound is returned when a name has no registered action.
var ErrActionNotFound = errors.New("action not found")

// Call describes a single invocation of a named action.
type Call struct {
	// Name is the registered action name.
	Name  string
	Phase domain.Phase
	// State is the state the action is attached to: the exited state for
	// exit and transition actions, the entered state for entry actions.
	State string
	// Peer is the other end of the transition.
	Peer string
	// Event is nil for the transition performed by Init.
	Event *domain.Event
}

// ActionFunc defines the signature for a named action implementation.
type ActionFunc func(ctx context.Context, call Call) error

// Registry manages the available named actions.
type Registry struct {
	mu      sync.RWMutex
	actions map[string]ActionFunc
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		actions: make(map[string]ActionFunc),
	}
}

// Register adds an action to the registry.
// If an action with the same name exists, it is overwritten.
func (r *Registry) Register(name string, fn ActionFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions[name] = fn
}

// Lookup returns the action registered under name.
func (r *Registry) Lookup(name string) (ActionFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.actions[name]
	return fn, ok
}

// Names returns the registered action names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.actions))
	for name := range r.actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Execute looks up an action by name and executes it.
// Returns an error if the action is not found.
func (r *Registry) Execute(ctx context.Context, call Call) error {
	fn, ok := r.Lookup(call.Name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrActionNotFound, call.Name)
	}
	return fn(ctx, call)
}

// Entry binds the named action as the entry action of state.
// The name is resolved at bind time; the action itself runs lazily.
func (r *Registry) Entry(name, state string) (domain.EntryAction, error) {
	if _, ok := r.Lookup(name); !ok {
		return nil, fmt.Errorf("%w: %s", ErrActionNotFound, name)
	}
	return func(ctx context.Context, from string, evt *domain.Event) error {
		return r.Execute(ctx, Call{Name: name, Phase: domain.PhaseEntry, State: state, Peer: from, Event: evt})
	}, nil
}

// Exit binds the named action as the exit action of state.
func (r *Registry) Exit(name, state string) (domain.ExitAction, error) {
	if _, ok := r.Lookup(name); !ok {
		return nil, fmt.Errorf("%w: %s", ErrActionNotFound, name)
	}
	return func(ctx context.Context, to string, evt *domain.Event) error {
		return r.Execute(ctx, Call{Name: name, Phase: domain.PhaseExit, State: state, Peer: to, Event: evt})
	}, nil
}

// Transition binds the named action to a rule. from is empty for global
// rules, whose source state is only known at run time.
func (r *Registry) Transition(name, from, to string) (domain.Action, error) {
	if _, ok := r.Lookup(name); !ok {
		return nil, fmt.Errorf("%w: %s", ErrActionNotFound, name)
	}
	return func(ctx context.Context, evt *domain.Event) error {
		return r.Execute(ctx, Call{Name: name, Phase: domain.PhaseTransition, State: from, Peer: to, Event: evt})
	}, nil
}
