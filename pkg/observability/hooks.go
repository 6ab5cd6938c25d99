package observability

import (
	"context"
	"log/slog"

	"github.com/aleung/fsm/pkg/domain"
	"github.com/aleung/fsm/pkg/ports"
)

// LogHooks logs every completed transition at INFO and every action failure
// at ERROR.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransitionEnd: func(ctx context.Context, e *domain.TransitionEvent) {
			logger.InfoContext(ctx, "transition",
				"machine", e.Machine,
				"from", e.From,
				"to", e.To,
				"event", e.Event,
				"scope", e.Scope,
				"duration", e.Duration,
				"failures", e.Failures,
				"transition", e.ID,
			)
		},
		OnActionError: func(ctx context.Context, f *domain.ActionFailure) {
			logger.ErrorContext(ctx, "action error",
				"machine", f.Machine,
				"phase", f.Err.Phase,
				"state", f.Err.State,
				"transition", f.TransitionID,
				"err", f.Err.Err,
			)
		},
	}
}

// JournalHooks appends every completed transition to journal. Record
// failures are logged and otherwise ignored.
func JournalHooks(journal ports.Journal, logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransitionEnd: func(ctx context.Context, e *domain.TransitionEvent) {
			if err := journal.Record(context.WithoutCancel(ctx), *e); err != nil {
				logger.WarnContext(ctx, "failed to record transition", "machine", e.Machine, "transition", e.ID, "err", err)
			}
		},
	}
}

// Combine fans every hook out to all of hooks, in order.
func Combine(hooks ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks

	var starts, ends []func(context.Context, *domain.TransitionEvent)
	var failures []func(context.Context, *domain.ActionFailure)
	for _, h := range hooks {
		if h.OnTransitionStart != nil {
			starts = append(starts, h.OnTransitionStart)
		}
		if h.OnTransitionEnd != nil {
			ends = append(ends, h.OnTransitionEnd)
		}
		if h.OnActionError != nil {
			failures = append(failures, h.OnActionError)
		}
	}

	if len(starts) > 0 {
		out.OnTransitionStart = func(ctx context.Context, e *domain.TransitionEvent) {
			for _, fn := range starts {
				fn(ctx, e)
			}
		}
	}
	if len(ends) > 0 {
		out.OnTransitionEnd = func(ctx context.Context, e *domain.TransitionEvent) {
			for _, fn := range ends {
				fn(ctx, e)
			}
		}
	}
	if len(failures) > 0 {
		out.OnActionError = func(ctx context.Context, f *domain.ActionFailure) {
			for _, fn := range failures {
				fn(ctx, f)
			}
		}
	}
	return out
}
