package ports

import (
	"context"

	"github.com/aleung/fsm/pkg/domain"
)

// Journal records completed transitions for auditing and introspection.
// It is write-mostly and never used to restore a machine.
type Journal interface {
	// Record appends a transition to the journal of its machine.
	Record(ctx context.Context, rec domain.TransitionEvent) error

	// List returns up to limit most recent records of a machine, oldest first.
	// limit <= 0 returns everything retained.
	List(ctx context.Context, machine string, limit int) ([]domain.TransitionEvent, error)
}
