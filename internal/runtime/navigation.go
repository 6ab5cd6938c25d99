package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aleung/fsm/pkg/domain"
)

// resolve applies the precedence chain: state rule, state default, global
// rule, global default. The first match wins.
func (e *Engine) resolve(stateName, eventName string) (domain.Rule, domain.Scope) {
	st := e.def.States[stateName]

	if r, ok := st.Transitions[eventName]; ok && !r.IsZero() {
		return r, domain.ScopeState
	}
	if !st.Default.IsZero() {
		return st.Default, domain.ScopeStateDefault
	}
	if r, ok := e.def.Transitions[eventName]; ok && !r.IsZero() {
		return r, domain.ScopeGlobal
	}
	if !e.def.Default.IsZero() {
		return e.def.Default, domain.ScopeGlobalDefault
	}
	return domain.Rule{}, domain.ScopeNone
}

// transitionTo runs the four phases in order: exit, transition action,
// state mutation, entry. Phase 3 always happens, whatever phases 1 and 2 did.
func (e *Engine) transitionTo(ctx context.Context, target string, evt *domain.Event, action domain.Action, scope domain.Scope) {
	from := e.CurrentState()
	te := &domain.TransitionEvent{
		ID:        uuid.NewString(),
		Machine:   e.name,
		From:      from,
		To:        target,
		Event:     eventName(evt),
		Data:      eventData(evt),
		Scope:     scope,
		Timestamp: time.Now(),
	}

	e.logger.Debug(fmt.Sprintf("%s -> %s", from, target), "event", te.Event, "scope", scope)
	e.emitTransitionStart(ctx, te)

	actx, owner := withOwner(ctx, e)
	defer owner.done.Store(true)

	// 1. Exit
	if from != domain.InitState {
		if onExit := e.def.States[from].Actions.OnExit; onExit != nil {
			e.runPhase(actx, te, domain.PhaseExit, from, func(ctx context.Context) error {
				return onExit(ctx, target, evt)
			})
		}
	}

	// 2. Transition action
	if action != nil {
		e.runPhase(actx, te, domain.PhaseTransition, from, func(ctx context.Context) error {
			return action(ctx, evt)
		})
	}

	// 3. Mutation
	e.setCurrent(target)

	// 4. Entry
	if onEntry := e.def.States[target].Actions.OnEntry; onEntry != nil {
		e.runPhase(actx, te, domain.PhaseEntry, target, func(ctx context.Context) error {
			return onEntry(ctx, from, evt)
		})
	}

	te.Duration = time.Since(te.Timestamp)
	e.emitTransitionEnd(ctx, te)
}

// runPhase is the error boundary of a single action: errors and panics are
// logged, reported to hooks and dropped.
func (e *Engine) runPhase(ctx context.Context, te *domain.TransitionEvent, phase domain.Phase, state string, fn func(context.Context) error) {
	err := safeCall(ctx, fn)
	if err == nil {
		return
	}

	te.Failures++
	actionErr := &domain.ActionError{Phase: phase, State: state, Event: te.Event, Err: err}
	e.logger.Warn("action failed", "phase", phase, "state", state, "event", te.Event, "transition", te.ID, "err", err)
	e.emitActionError(ctx, &domain.ActionFailure{
		TransitionID: te.ID,
		Machine:      e.name,
		Err:          actionErr,
	})
}

func safeCall(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return fn(ctx)
}

// PanicError carries the value recovered from a panicking action.
type PanicError struct {
	Value any
}

func (p *PanicError) Error() string {
	return fmt.Sprintf("action panicked: %v", p.Value)
}

func eventName(evt *domain.Event) string {
	if evt == nil {
		return ""
	}
	return evt.Name
}

func eventData(evt *domain.Event) any {
	if evt == nil {
		return nil
	}
	return evt.Data
}

func (e *Engine) emitTransitionStart(ctx context.Context, te *domain.TransitionEvent) {
	if e.hooks.OnTransitionStart != nil {
		e.hooks.OnTransitionStart(ctx, te)
	}
}

func (e *Engine) emitTransitionEnd(ctx context.Context, te *domain.TransitionEvent) {
	if e.hooks.OnTransitionEnd != nil {
		e.hooks.OnTransitionEnd(ctx, te)
	}
}

func (e *Engine) emitActionError(ctx context.Context, f *domain.ActionFailure) {
	if e.hooks.OnActionError != nil {
		e.hooks.OnActionError(ctx, f)
	}
}
