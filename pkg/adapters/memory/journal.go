package memory

import (
	"context"
	"sync"

	"github.com/aleung/fsm/pkg/domain"
)

// DefaultJournalSize is the per-machine capacity used when none is given.
const DefaultJournalSize = 1000

// Journal implements ports.Journal in memory, keeping the most recent
// records of each machine.
// Safe for concurrent use.
type Journal struct {
	size int
	data map[string][]domain.TransitionEvent
	mu   sync.RWMutex
}

// NewJournal creates a journal retaining up to size records per machine.
// size <= 0 uses DefaultJournalSize.
func NewJournal(size int) *Journal {
	if size <= 0 {
		size = DefaultJournalSize
	}
	return &Journal{
		size: size,
		data: make(map[string][]domain.TransitionEvent),
	}
}

// Record appends rec, evicting the oldest record once the machine is full.
func (j *Journal) Record(ctx context.Context, rec domain.TransitionEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	recs := append(j.data[rec.Machine], rec)
	if over := len(recs) - j.size; over > 0 {
		recs = append(recs[:0:0], recs[over:]...)
	}
	j.data[rec.Machine] = recs
	return nil
}

// List returns a copy of the most recent records, oldest first.
func (j *Journal) List(ctx context.Context, machine string, limit int) ([]domain.TransitionEvent, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	recs := j.data[machine]
	if limit > 0 && len(recs) > limit {
		recs = recs[len(recs)-limit:]
	}
	out := make([]domain.TransitionEvent, len(recs))
	copy(out, recs)
	return out, nil
}
