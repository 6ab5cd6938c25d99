package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/aleung/fsm/pkg/domain"
)

// StreamManager fans completed transitions out to SSE subscribers, keyed by
// machine instance ID.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // Instance ID -> Set of Channels
	logger      *slog.Logger
}

// NewStreamManager creates an empty stream manager. A nil logger uses slog.Default.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
		logger:      logger,
	}
}

// Hooks returns lifecycle hooks that broadcast every completed transition.
// Install them on the machines whose transitions should be streamed.
func (sm *StreamManager) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransitionEnd: func(ctx context.Context, e *domain.TransitionEvent) {
			payload, err := json.Marshal(e)
			if err != nil {
				sm.logger.Warn("SSE: failed to encode transition", "machine", e.Machine, "err", err)
				return
			}
			sm.Broadcast(e.Machine, string(payload))
		},
	}
}

// Subscribe registers a buffered channel for id. The returned func
// unsubscribes and closes the channel.
func (sm *StreamManager) Subscribe(id string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[id]; !ok {
		sm.subscribers[id] = make(map[chan<- string]struct{})
	}
	sm.subscribers[id][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[id]; ok {
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, id)
			}
		}
	}
}

// Broadcast sends msg to every subscriber of id without blocking.
func (sm *StreamManager) Broadcast(id string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[id] {
		select {
		case ch <- msg:
		default:
			// Drop message if channel is full (slow client)
			sm.logger.Warn("SSE: Client buffer full, dropping message", "instance", id)
		}
	}
}

// Subscribers returns the number of subscribers of id.
func (sm *StreamManager) Subscribers(id string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[id])
}
