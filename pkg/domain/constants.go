package domain

// InitState is the sentinel reported by a machine before Init completes.
// It is never a legal key in MachineDefinition.States.
const InitState = "__init__"

// DefaultEvent is the reserved transitions key that declarative definitions
// use for the fallback rule of a scope.
const DefaultEvent = "default"

// Scope identifies which level of the precedence chain resolved an event.
type Scope string

const (
	ScopeNone          Scope = ""
	ScopeState         Scope = "state"
	ScopeStateDefault  Scope = "state-default"
	ScopeGlobal        Scope = "global"
	ScopeGlobalDefault Scope = "global-default"
	// ScopeInit marks the synthetic transition performed by Init.
	ScopeInit Scope = "init"
)

// Phase names one of the action-bearing steps of a transition.
type Phase string

const (
	PhaseExit       Phase = "exit"
	PhaseTransition Phase = "transition"
	PhaseEntry      Phase = "entry"
)

// ConcurrencyMode selects how a machine treats overlapping Init/Send calls.
type ConcurrencyMode int

const (
	// ConcurrencySerialize queues overlapping calls behind the in-flight transition.
	ConcurrencySerialize ConcurrencyMode = iota
	// ConcurrencyFailFast rejects overlapping calls with ErrBusy.
	ConcurrencyFailFast
)

func (m ConcurrencyMode) String() string {
	switch m {
	case ConcurrencySerialize:
		return "serialize"
	case ConcurrencyFailFast:
		return "fail-fast"
	default:
		return "unknown"
	}
}
