package session_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleung/fsm"
	"github.com/aleung/fsm/pkg/domain"
	"github.com/aleung/fsm/pkg/ports"
	"github.com/aleung/fsm/pkg/session"
)

func toggleDefinition(entries *atomic.Int32) domain.MachineDefinition {
	return domain.MachineDefinition{
		InitialState: "off",
		States: map[string]domain.StateDefinition{
			"off": {
				Actions: domain.StateActions{OnEntry: func(ctx context.Context, from string, evt *domain.Event) error {
					if entries != nil {
						entries.Add(1)
					}
					return nil
				}},
				Transitions: map[string]domain.Rule{"toggle": domain.To("on")},
			},
			"on": {Transitions: map[string]domain.Rule{"toggle": domain.To("off")}},
		},
	}
}

type failingLocker struct {
	err error
}

func (f failingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	return nil, f.err
}

func TestNewManager_InvalidDefinition(t *testing.T) {
	_, err := session.NewManager(domain.MachineDefinition{InitialState: "ghost"})
	assert.True(t, domain.IsDefinitionError(err))
}

func TestManager_GetOrCreate(t *testing.T) {
	manager, err := session.NewManager(toggleDefinition(nil))
	require.NoError(t, err)
	ctx := context.Background()

	m, created, err := manager.GetOrCreate(ctx, "a")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "off", m.CurrentState())
	assert.Equal(t, "a", m.Name())

	again, created, err := manager.GetOrCreate(ctx, "a")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Same(t, m, again)

	_, _, err = manager.GetOrCreate(ctx, "")
	assert.ErrorIs(t, err, session.ErrInvalidID)
}

func TestManager_AtomicCreation(t *testing.T) {
	var entries atomic.Int32
	manager, err := session.NewManager(toggleDefinition(&entries))
	require.NoError(t, err)
	ctx := context.Background()

	var wg sync.WaitGroup
	var createdCount atomic.Int32
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, created, err := manager.GetOrCreate(ctx, "shared")
			assert.NoError(t, err)
			if created {
				createdCount.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), createdCount.Load())
	assert.Equal(t, int32(1), entries.Load(), "Init must run exactly once")
}

func TestManager_InstancesAreIndependent(t *testing.T) {
	manager, err := session.NewManager(toggleDefinition(nil))
	require.NoError(t, err)
	ctx := context.Background()

	_, _, err = manager.GetOrCreate(ctx, "a")
	require.NoError(t, err)
	_, _, err = manager.GetOrCreate(ctx, "b")
	require.NoError(t, err)

	m, err := manager.Send(ctx, "a", domain.Event{Name: "toggle"})
	require.NoError(t, err)
	assert.Equal(t, "on", m.CurrentState())

	b, err := manager.Get("b")
	require.NoError(t, err)
	assert.Equal(t, "off", b.CurrentState())
	assert.Equal(t, []string{"a", "b"}, manager.List())
}

func TestManager_SendErrors(t *testing.T) {
	manager, err := session.NewManager(toggleDefinition(nil))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = manager.Send(ctx, "missing", domain.Event{Name: "toggle"})
	assert.ErrorIs(t, err, session.ErrInstanceNotFound)

	_, _, err = manager.GetOrCreate(ctx, "a")
	require.NoError(t, err)
	_, err = manager.Send(ctx, "a", domain.Event{Name: "explode"})
	assert.True(t, domain.IsUnhandledEvent(err))
}

func TestManager_Delete(t *testing.T) {
	manager, err := session.NewManager(toggleDefinition(nil))
	require.NoError(t, err)
	ctx := context.Background()

	_, _, err = manager.GetOrCreate(ctx, "a")
	require.NoError(t, err)

	require.NoError(t, manager.Delete("a"))
	assert.ErrorIs(t, manager.Delete("a"), session.ErrInstanceNotFound)
	_, err = manager.Get("a")
	assert.ErrorIs(t, err, session.ErrInstanceNotFound)
	assert.Empty(t, manager.List())
}

func TestManager_FailedInitIsDiscarded(t *testing.T) {
	lockErr := errors.New("no lock for you")
	manager, err := session.NewManager(toggleDefinition(nil),
		session.WithMachineOptions(fsm.WithLocker(failingLocker{err: lockErr}, 0)),
	)
	require.NoError(t, err)

	_, _, err = manager.GetOrCreate(context.Background(), "a")
	assert.ErrorIs(t, err, lockErr)
	assert.Empty(t, manager.List())
}

func TestManager_MachineOptions(t *testing.T) {
	var machines []string
	manager, err := session.NewManager(toggleDefinition(nil),
		session.WithMachineOptions(
			fsm.WithName("ignored"),
			fsm.WithLifecycleHooks(fsm.LifecycleHooks{
				OnTransitionEnd: func(ctx context.Context, e *fsm.TransitionEvent) {
					machines = append(machines, e.Machine)
				},
			}),
		),
	)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, _, err := manager.GetOrCreate(context.Background(), fmt.Sprintf("m%d", i))
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"m0", "m1", "m2"}, machines)
}
