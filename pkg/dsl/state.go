package dsl

import "github.com/aleung/fsm/pkg/domain"

// StateBuilder provides a fluent API for configuring a state.
type StateBuilder struct {
	name    string
	state   domain.StateDefinition
	builder *Builder
}

// Entry sets the action run when the machine enters this state.
func (s *StateBuilder) Entry(fn domain.EntryAction) *StateBuilder {
	s.state.Actions.OnEntry = fn
	return s
}

// Exit sets the action run when the machine leaves this state.
func (s *StateBuilder) Exit(fn domain.ExitAction) *StateBuilder {
	s.state.Actions.OnExit = fn
	return s
}

// On moves to target when event arrives in this state.
func (s *StateBuilder) On(event, target string) *StateBuilder {
	s.state.Transitions[event] = domain.To(target)
	return s
}

// OnDo is On with a transition action.
func (s *StateBuilder) OnDo(event, target string, action domain.Action) *StateBuilder {
	s.state.Transitions[event] = domain.Edge(target, action)
	return s
}

// Default moves to target on any event this state has no rule for.
func (s *StateBuilder) Default(target string) *StateBuilder {
	s.state.Default = domain.To(target)
	return s
}

// DefaultDo is Default with a transition action.
func (s *StateBuilder) DefaultDo(target string, action domain.Action) *StateBuilder {
	s.state.Default = domain.Edge(target, action)
	return s
}

// State switches to configuring another state of the same definition.
func (s *StateBuilder) State(name string) *StateBuilder {
	return s.builder.State(name)
}

// Name returns the state name.
func (s *StateBuilder) Name() string {
	return s.name
}

// End returns to the definition builder, e.g. to add global rules.
func (s *StateBuilder) End() *Builder {
	return s.builder
}

// Build compiles the whole definition this state belongs to.
func (s *StateBuilder) Build() (domain.MachineDefinition, error) {
	return s.builder.Build()
}

// Definition returns a copy of the configured state definition.
func (s *StateBuilder) Definition() domain.StateDefinition {
	out := s.state
	out.Transitions = make(map[string]domain.Rule, len(s.state.Transitions))
	for event, rule := range s.state.Transitions {
		out.Transitions[event] = rule
	}
	return out
}
