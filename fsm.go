package fsm

import (
	"context"
	"log/slog"
	"time"

	"github.com/aleung/fsm/internal/runtime"
	"github.com/aleung/fsm/pkg/domain"
	"github.com/aleung/fsm/pkg/ports"
)

// Re-exported domain types so that simple consumers only import this package.
type (
	Event             = domain.Event
	Action            = domain.Action
	EntryAction       = domain.EntryAction
	ExitAction        = domain.ExitAction
	StateActions      = domain.StateActions
	Rule              = domain.Rule
	StateDefinition   = domain.StateDefinition
	MachineDefinition = domain.MachineDefinition
	LifecycleHooks    = domain.LifecycleHooks
	TransitionEvent   = domain.TransitionEvent
	ActionFailure     = domain.ActionFailure
	ConcurrencyMode   = domain.ConcurrencyMode

	DefinitionError     = domain.DefinitionError
	UnhandledEventError = domain.UnhandledEventError
	ActionError         = domain.ActionError
)

// InitState is the state reported before Init.
const InitState = domain.InitState

const (
	ConcurrencySerialize = domain.ConcurrencySerialize
	ConcurrencyFailFast  = domain.ConcurrencyFailFast
)

var (
	ErrNotInitialized     = domain.ErrNotInitialized
	ErrAlreadyInitialized = domain.ErrAlreadyInitialized
	ErrBusy               = domain.ErrBusy
	ErrReentrantCall      = domain.ErrReentrantCall
)

// To is a rule that moves to target without a transition action.
func To(target string) Rule {
	return domain.To(target)
}

// Edge is a rule that moves to target and runs action in between the exit
// and entry phases.
func Edge(target string, action Action) Rule {
	return domain.Edge(target, action)
}

// Detach returns a context for dispatching follow-up events from a goroutine
// started inside an action.
func Detach(ctx context.Context) context.Context {
	return runtime.Detach(ctx)
}

// Machine is a single running instance of a MachineDefinition.
type Machine struct {
	engine *runtime.Engine
}

type config struct {
	runtimeOpts []runtime.EngineOption
}

// Option configures a Machine.
type Option func(*config)

// WithName labels the machine in logs, hooks, metrics and lock keys.
func WithName(name string) Option {
	return func(c *config) {
		c.runtimeOpts = append(c.runtimeOpts, runtime.WithName(name))
	}
}

// WithLogger sets a custom structured logger for the machine.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.runtimeOpts = append(c.runtimeOpts, runtime.WithLogger(logger))
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks LifecycleHooks) Option {
	return func(c *config) {
		c.runtimeOpts = append(c.runtimeOpts, runtime.WithLifecycleHooks(hooks))
	}
}

// WithConcurrency selects what happens when Init/Send calls overlap.
func WithConcurrency(mode ConcurrencyMode) Option {
	return func(c *config) {
		c.runtimeOpts = append(c.runtimeOpts, runtime.WithConcurrency(mode))
	}
}

// WithLocker holds a distributed lock keyed by the machine name during each
// transition.
func WithLocker(locker ports.Locker, ttl time.Duration) Option {
	return func(c *config) {
		c.runtimeOpts = append(c.runtimeOpts, runtime.WithLocker(locker, ttl))
	}
}

// Create validates def and returns a machine in InitState.
// An invalid definition yields a *DefinitionError naming every missing state.
func Create(def MachineDefinition, opts ...Option) (*Machine, error) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	engine, err := runtime.NewEngine(def, cfg.runtimeOpts...)
	if err != nil {
		return nil, err
	}
	return &Machine{engine: engine}, nil
}

// MustCreate is like Create but panics on an invalid definition.
func MustCreate(def MachineDefinition, opts ...Option) *Machine {
	m, err := Create(def, opts...)
	if err != nil {
		panic(err)
	}
	return m
}

// Init enters the initial state, running its entry action with InitState as
// the source.
func (m *Machine) Init(ctx context.Context) error {
	return m.engine.Init(ctx)
}

// Send dispatches evt to the current state.
func (m *Machine) Send(ctx context.Context, evt Event) error {
	return m.engine.Send(ctx, evt)
}

// CurrentState returns the current state name.
func (m *Machine) CurrentState() string {
	return m.engine.CurrentState()
}

// Definition returns the definition the machine was created from.
func (m *Machine) Definition() MachineDefinition {
	return m.engine.Definition()
}

// Name returns the machine label.
func (m *Machine) Name() string {
	return m.engine.Name()
}
