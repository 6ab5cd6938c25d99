/*
Package fsm is a small declarative finite state machine engine.

A machine is described by a MachineDefinition: a set of named states, each with
optional entry and exit actions and a table of event-name to target-state rules,
plus machine-wide rules and defaults. The definition is validated once, at
Create time, and can be shared by any number of machines.

# Resolution

When an event arrives, the first matching rule wins, in this order:

  - the current state's rule for the event name
  - the current state's Default
  - the global rule for the event name
  - the global Default

If nothing matches, Send returns an *UnhandledEventError and the machine stays
where it is.

# Transition protocol

Every transition, including the self-transition, runs four phases in order:

 1. the source state's OnExit, given the target name
 2. the rule's action (Edge rules only), given the event
 3. the current state is set to the target
 4. the target state's OnEntry, given the source name

Action errors and panics are logged and reported through LifecycleHooks, never
returned to the caller: the transition always completes.

# Usage

	m, err := fsm.Create(fsm.MachineDefinition{
		InitialState: "off",
		States: map[string]fsm.StateDefinition{
			"off": {Transitions: map[string]fsm.Rule{"toggle": fsm.To("on")}},
			"on":  {Transitions: map[string]fsm.Rule{"toggle": fsm.To("off")}},
		},
	})
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	_ = m.Init(ctx)                              // __init__ -> off
	_ = m.Send(ctx, fsm.Event{Name: "toggle"})   // off -> on

A machine handles one Init or Send at a time. Overlapping calls queue by
default (see WithConcurrency); an action that needs to trigger another event on
its own machine does so from a goroutine using Detach.

Definitions can also be built with the pkg/dsl builder or loaded from YAML/JSON
files with pkg/adapters/file, and served over HTTP or MCP through the adapters
under pkg/adapters.
*/
package fsm
