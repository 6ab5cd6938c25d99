package domain

import (
	"context"
	"time"
)

// TransitionEvent describes one transition for observability sinks. Data is
// the payload of the triggering event; Failures counts actions of this
// transition that failed.
type TransitionEvent struct {
	ID        string        `json:"id"`
	Machine   string        `json:"machine"`
	From      string        `json:"from"`
	To        string        `json:"to"`
	Event     string        `json:"event,omitempty"`
	Data      any           `json:"data,omitempty"`
	Scope     Scope         `json:"scope"`
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration,omitempty"`
	Failures  int           `json:"failures,omitempty"`
}

// ActionFailure describes a swallowed action failure.
type ActionFailure struct {
	TransitionID string
	Machine      string
	Err          *ActionError
}

// LifecycleHooks defines callbacks for engine observability.
// Hooks run synchronously on the transition's goroutine; keep them fast.
type LifecycleHooks struct {
	OnTransitionStart func(context.Context, *TransitionEvent)
	OnTransitionEnd   func(context.Context, *TransitionEvent)
	OnActionError     func(context.Context, *ActionFailure)
}
