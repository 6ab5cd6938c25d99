package runtime

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/aleung/fsm/pkg/domain"
)

type ownerKey struct{}

// ownerChain lists the engines whose transitions produced a context,
// innermost first. A link is done once its transition has completed.
type ownerChain struct {
	engine *Engine
	parent *ownerChain
	done   atomic.Bool
}

// withOwner tags the context handed to actions with the running engine. The
// caller marks the returned link done when the transition completes.
func withOwner(ctx context.Context, e *Engine) (context.Context, *ownerChain) {
	parent, _ := ctx.Value(ownerKey{}).(*ownerChain)
	link := &ownerChain{engine: e, parent: parent}
	return context.WithValue(ctx, ownerKey{}, link), link
}

// ownedBy reports whether ctx belongs to a transition of e that is still in
// flight.
func ownedBy(ctx context.Context, e *Engine) bool {
	for c, _ := ctx.Value(ownerKey{}).(*ownerChain); c != nil; c = c.parent {
		if c.engine == e && !c.done.Load() {
			return true
		}
	}
	return false
}

// Detach returns a context that keeps the values of ctx but neither its
// cancellation nor its action ownership. Actions use it to dispatch
// follow-up events from a goroutine:
//
//	go m.Send(runtime.Detach(ctx), domain.Event{Name: "failed"})
func Detach(ctx context.Context) context.Context {
	return context.WithValue(context.WithoutCancel(ctx), ownerKey{}, (*ownerChain)(nil))
}

// acquire takes the single in-flight slot and, if configured, the distributed
// lock. The returned release must be called exactly once.
func (e *Engine) acquire(ctx context.Context) (func(), error) {
	if ownedBy(ctx, e) {
		return nil, domain.ErrReentrantCall
	}
	// An expired ctx never runs a transition, even when the slot is free.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch e.mode {
	case domain.ConcurrencyFailFast:
		select {
		case e.slot <- struct{}{}:
		default:
			return nil, domain.ErrBusy
		}
	default:
		select {
		case e.slot <- struct{}{}:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if e.locker == nil {
		return func() { <-e.slot }, nil
	}

	unlock, err := e.locker.Lock(ctx, e.name, e.lockTTL)
	if err != nil {
		<-e.slot
		return nil, fmt.Errorf("failed to acquire transition lock: %w", err)
	}

	return func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			e.logger.Warn("failed to release transition lock (will expire via TTL)", "err", err)
		}
		<-e.slot
	}, nil
}
