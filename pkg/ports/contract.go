package ports

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleung/fsm/pkg/domain"
)

// RunJournalContract runs a suite of tests to verify that a Journal
// implementation adheres to the interface contract. capacity is the number of
// records the journal retains per machine (0 for unbounded).
func RunJournalContract(t *testing.T, journal Journal, capacity int) {
	ctx := context.Background()
	machine := "contract-" + time.Now().Format("20060102150405.000000000")

	record := func(i int) domain.TransitionEvent {
		return domain.TransitionEvent{
			ID:        fmt.Sprintf("rec-%d", i),
			Machine:   machine,
			From:      fmt.Sprintf("s%d", i),
			To:        fmt.Sprintf("s%d", i+1),
			Event:     "next",
			Scope:     domain.ScopeState,
			Timestamp: time.Unix(int64(1700000000+i), 0).UTC(),
		}
	}

	t.Run("Empty Machine", func(t *testing.T) {
		recs, err := journal.List(ctx, machine, 0)
		require.NoError(t, err)
		assert.Empty(t, recs)
	})

	t.Run("Record and List", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			require.NoError(t, journal.Record(ctx, record(i)))
		}

		recs, err := journal.List(ctx, machine, 0)
		require.NoError(t, err)
		require.Len(t, recs, 3)
		assert.Equal(t, "rec-0", recs[0].ID)
		assert.Equal(t, "rec-2", recs[2].ID)
		assert.Equal(t, "s2", recs[2].From)
		assert.Equal(t, "s3", recs[2].To)
		assert.Equal(t, domain.ScopeState, recs[2].Scope)
		assert.True(t, record(2).Timestamp.Equal(recs[2].Timestamp))
	})

	t.Run("List Limit Returns Most Recent", func(t *testing.T) {
		recs, err := journal.List(ctx, machine, 2)
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, "rec-1", recs[0].ID)
		assert.Equal(t, "rec-2", recs[1].ID)
	})

	t.Run("Machines Are Isolated", func(t *testing.T) {
		other := record(9)
		other.Machine = machine + "-other"
		require.NoError(t, journal.Record(ctx, other))

		recs, err := journal.List(ctx, machine, 0)
		require.NoError(t, err)
		assert.Len(t, recs, 3)
	})

	if capacity > 0 {
		t.Run("Capacity Is Enforced", func(t *testing.T) {
			for i := 3; i < capacity+5; i++ {
				require.NoError(t, journal.Record(ctx, record(i)))
			}
			recs, err := journal.List(ctx, machine, 0)
			require.NoError(t, err)
			require.Len(t, recs, capacity)
			assert.Equal(t, fmt.Sprintf("rec-%d", capacity+4), recs[len(recs)-1].ID)
		})
	}
}
