package runtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aleung/fsm/internal/logging"
	"github.com/aleung/fsm/internal/validator"
	"github.com/aleung/fsm/pkg/domain"
	"github.com/aleung/fsm/pkg/ports"
)

// DefaultLockTTL bounds how long a distributed transition lock survives a
// crashed holder.
const DefaultLockTTL = 30 * time.Second

// Engine is the core state machine runner. It owns the current state name of
// a single machine instance and drives it through the transition protocol.
type Engine struct {
	def    domain.MachineDefinition
	name   string
	logger *slog.Logger
	hooks  domain.LifecycleHooks

	mode    domain.ConcurrencyMode
	slot    chan struct{}
	locker  ports.Locker
	lockTTL time.Duration

	mu      sync.RWMutex
	current string
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithName labels the engine in logs, hooks and lock keys.
func WithName(name string) EngineOption {
	return func(e *Engine) {
		e.name = name
	}
}

// WithLogger sets the structured logger. A nil logger is ignored.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithConcurrency selects the policy for overlapping Init/Send calls.
func WithConcurrency(mode domain.ConcurrencyMode) EngineOption {
	return func(e *Engine) {
		e.mode = mode
	}
}

// WithLocker guards every transition with a distributed lock keyed by the
// engine name. ttl <= 0 uses DefaultLockTTL.
func WithLocker(locker ports.Locker, ttl time.Duration) EngineOption {
	return func(e *Engine) {
		e.locker = locker
		if ttl > 0 {
			e.lockTTL = ttl
		}
	}
}

// NewEngine validates def and returns an engine parked in domain.InitState.
func NewEngine(def domain.MachineDefinition, opts ...EngineOption) (*Engine, error) {
	if err := validator.Validate(def); err != nil {
		return nil, err
	}

	e := &Engine{
		def:     def,
		name:    "fsm",
		logger:  logging.NewNop(),
		mode:    domain.ConcurrencySerialize,
		slot:    make(chan struct{}, 1),
		lockTTL: DefaultLockTTL,
		current: domain.InitState,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("machine", e.name)

	return e, nil
}

// Name returns the engine label.
func (e *Engine) Name() string {
	return e.name
}

// Definition returns the definition the engine was built from.
// Callers must treat it as read-only.
func (e *Engine) Definition() domain.MachineDefinition {
	return e.def
}

// CurrentState returns the current state name, or domain.InitState before Init.
func (e *Engine) CurrentState() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.current
}

func (e *Engine) setCurrent(name string) {
	e.mu.Lock()
	e.current = name
	e.mu.Unlock()
}

// Init performs the transition out of domain.InitState into the initial state.
// The exit phase is skipped since the sentinel has no definition. Action
// failures are swallowed; only guard and misuse errors are returned.
func (e *Engine) Init(ctx context.Context) error {
	release, err := e.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	if e.CurrentState() != domain.InitState {
		return domain.ErrAlreadyInitialized
	}

	e.transitionTo(ctx, e.def.InitialState, nil, nil, domain.ScopeInit)
	return nil
}

// Send resolves evt against the current state and executes at most one
// transition. It fails with domain.ErrNotInitialized before Init and with
// *domain.UnhandledEventError when no rule matches; action failures never
// propagate.
func (e *Engine) Send(ctx context.Context, evt domain.Event) error {
	release, err := e.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	current := e.CurrentState()
	if current == domain.InitState {
		return domain.ErrNotInitialized
	}

	rule, scope := e.resolve(current, evt.Name)
	e.logger.Debug("event resolved", "event", evt.Name, "state", current, "scope", scope, "rule", rule.Kind())

	var action domain.Action
	switch rule.Kind() {
	case domain.RuleNone:
		return &domain.UnhandledEventError{Event: evt.Name, State: current}
	case domain.RuleTarget:
	case domain.RuleEdge:
		action = rule.Action()
	}

	e.transitionTo(ctx, rule.Target(), &evt, action, scope)
	return nil
}
