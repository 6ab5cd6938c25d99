/*
Package ports defines the driven ports (interfaces) of the fsm engine.

These interfaces decouple the engine from external infrastructure so that a
machine can run embedded with no dependencies, or be wired to Redis when it is
served by several replicas.

# Key Interfaces

  - Locker: distributed single-slot lock guarding the transitions of a machine.
  - Journal: append-only audit trail of completed transitions.
*/
package ports
