package http

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleung/fsm/internal/logging"
	"github.com/aleung/fsm/pkg/domain"
)

func TestStreamManager_SubscribeBroadcast(t *testing.T) {
	sm := NewStreamManager(logging.NewNop())

	ch, cancel := sm.Subscribe("a")
	other, cancelOther := sm.Subscribe("b")
	defer cancelOther()

	sm.Broadcast("a", "hello")
	assert.Equal(t, "hello", <-ch)
	assert.Empty(t, other)

	cancel()
	_, open := <-ch
	assert.False(t, open, "unsubscribe closes the channel")
	assert.Zero(t, sm.Subscribers("a"))
}

func TestStreamManager_DropsWhenFull(t *testing.T) {
	sm := NewStreamManager(logging.NewNop())
	ch, cancel := sm.Subscribe("a")
	defer cancel()

	for i := 0; i < 20; i++ {
		sm.Broadcast("a", "msg")
	}
	assert.Len(t, ch, cap(ch))
}

func TestStreamManager_Hooks(t *testing.T) {
	sm := NewStreamManager(nil)
	ch, cancel := sm.Subscribe("m")
	defer cancel()

	sm.Hooks().OnTransitionEnd(context.Background(), &domain.TransitionEvent{ID: "t1", Machine: "m", From: "a", To: "b"})

	require.Len(t, ch, 1)
	assert.Contains(t, <-ch, `"id":"t1"`)
}
