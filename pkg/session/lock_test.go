package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleung/fsm/pkg/domain"
)

func TestManager_LockLifecycle(t *testing.T) {
	mgr, err := NewManager(domain.MachineDefinition{
		InitialState: "s",
		States:       map[string]domain.StateDefinition{"s": {}},
	})
	require.NoError(t, err)
	ctx := context.Background()
	count := 1000

	for i := 0; i < count; i++ {
		id := fmt.Sprintf("instance-%d", i)
		_, _, _ = mgr.GetOrCreate(ctx, id)
		_ = mgr.Delete(id)
	}

	assert.Empty(t, mgr.locks, "creation locks must be released")
	assert.Empty(t, mgr.instances)
}
