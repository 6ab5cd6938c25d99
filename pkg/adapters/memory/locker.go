package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aleung/fsm/pkg/ports"
)

// Locker implements ports.Locker within a single process.
// Expired locks can be taken over, mirroring the Redis implementation.
type Locker struct {
	mu    sync.Mutex
	locks map[string]lockEntry
	seq   uint64
	poll  time.Duration
}

type lockEntry struct {
	token   uint64
	expires time.Time
}

// NewLocker creates an in-process locker.
func NewLocker() *Locker {
	return &Locker{
		locks: make(map[string]lockEntry),
		poll:  10 * time.Millisecond,
	}
}

// Lock blocks until key is free or expired, or ctx is done.
func (l *Locker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	ticker := time.NewTicker(l.poll)
	defer ticker.Stop()

	for {
		if token, ok := l.tryLock(key, ttl); ok {
			return func(ctx context.Context) error {
				l.mu.Lock()
				defer l.mu.Unlock()
				if cur, ok := l.locks[key]; ok && cur.token == token {
					delete(l.locks, key)
				}
				return nil
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (l *Locker) tryLock(key string, ttl time.Duration) (uint64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if cur, ok := l.locks[key]; ok && now.Before(cur.expires) {
		return 0, false
	}
	l.seq++
	l.locks[key] = lockEntry{token: l.seq, expires: now.Add(ttl)}
	return l.seq, true
}
