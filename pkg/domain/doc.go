/*
Package domain contains the core domain models of the fsm engine.

It defines the static machine definition (states, transition rules and their
actions), the events that drive a machine, and the error taxonomy surfaced to
callers. This package is kept pure and free of I/O, following the same
ports-and-adapters split as the rest of the module.

# Key Entities

  - MachineDefinition: initial state, state table and global fallback rules.
  - StateDefinition: entry/exit hooks plus the state's own transition rules.
  - Rule: a tagged variant, either a bare target or a target with an edge action.
  - Event: the transient input passed to Send and on to every action.
  - LifecycleHooks: observability callbacks fired around each transition.
*/
package domain
