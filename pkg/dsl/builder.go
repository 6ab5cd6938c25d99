package dsl

import (
	"fmt"

	"github.com/aleung/fsm/internal/validator"
	"github.com/aleung/fsm/pkg/domain"
)

// Builder manages the definition construction.
type Builder struct {
	initial     string
	states      map[string]*StateBuilder
	transitions map[string]domain.Rule
	fallback    domain.Rule
}

// New creates a new definition builder whose machine starts in initial.
func New(initial string) *Builder {
	return &Builder{
		initial:     initial,
		states:      make(map[string]*StateBuilder),
		transitions: make(map[string]domain.Rule),
	}
}

// State declares a state in the definition.
// If the state already exists, it returns the existing builder.
func (b *Builder) State(name string) *StateBuilder {
	if sb, ok := b.states[name]; ok {
		return sb
	}
	sb := &StateBuilder{
		name:    name,
		state:   domain.StateDefinition{Transitions: make(map[string]domain.Rule)},
		builder: b,
	}
	b.states[name] = sb
	return sb
}

// On adds a global rule consulted when the current state cannot handle event.
func (b *Builder) On(event, target string) *Builder {
	b.transitions[event] = domain.To(target)
	return b
}

// OnDo is On with a transition action.
func (b *Builder) OnDo(event, target string, action domain.Action) *Builder {
	b.transitions[event] = domain.Edge(target, action)
	return b
}

// Default sets the global fallback rule.
func (b *Builder) Default(target string) *Builder {
	b.fallback = domain.To(target)
	return b
}

// DefaultDo is Default with a transition action.
func (b *Builder) DefaultDo(target string, action domain.Action) *Builder {
	b.fallback = domain.Edge(target, action)
	return b
}

// Build compiles and validates the definition.
func (b *Builder) Build() (domain.MachineDefinition, error) {
	def := domain.MachineDefinition{
		InitialState: b.initial,
		States:       make(map[string]domain.StateDefinition, len(b.states)),
		Transitions:  make(map[string]domain.Rule, len(b.transitions)),
		Default:      b.fallback,
	}
	for name, sb := range b.states {
		def.States[name] = sb.Definition()
	}
	for event, rule := range b.transitions {
		def.Transitions[event] = rule
	}

	if err := validator.Validate(def); err != nil {
		return domain.MachineDefinition{}, fmt.Errorf("invalid definition: %w", err)
	}
	return def, nil
}

// MustBuild is like Build but panics on an invalid definition.
func (b *Builder) MustBuild() domain.MachineDefinition {
	def, err := b.Build()
	if err != nil {
		panic(err)
	}
	return def
}
