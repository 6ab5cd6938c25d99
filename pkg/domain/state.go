package domain

// StateDefinition is a named bag of rules. Its name is its key in
// MachineDefinition.States.
type StateDefinition struct {
	Actions StateActions

	// Transitions maps event names to rules local to this state.
	Transitions map[string]Rule

	// Default is used when no local rule matches the event name.
	Default Rule
}

// MachineDefinition is the static description a machine is built from.
// It must not be mutated once handed to a machine; it may be shared by many.
type MachineDefinition struct {
	InitialState string
	States       map[string]StateDefinition

	// Transitions are global rules consulted when the current state has
	// neither a matching rule nor a default.
	Transitions map[string]Rule

	// Default is the global fallback, the weakest rule of all.
	Default Rule
}

// StateNames returns the defined state names in unspecified order.
func (d MachineDefinition) StateNames() []string {
	names := make([]string, 0, len(d.States))
	for name := range d.States {
		names = append(names, name)
	}
	return names
}
