package lock

import (
	"context"
	"sync"
	"time"
)

// MemoryLocker is an in-process Locker for single-replica deployments and tests.
type MemoryLocker struct {
	mu    sync.Mutex
	held  map[string]time.Time
	clock func() time.Time
}

// NewMemoryLocker creates a MemoryLocker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]time.Time), clock: time.Now}
}

// Acquire blocks until key is free or ctx is done. Locks older than ttl are
// treated as abandoned.
func (l *MemoryLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (ReleaseFunc, error) {
	for {
		if expires, ok := l.tryLock(key, ttl); ok {
			var once sync.Once
			return func() {
				once.Do(func() {
					l.mu.Lock()
					if l.held[key].Equal(expires) {
						delete(l.held, key)
					}
					l.mu.Unlock()
				})
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ErrLockTimeout
		case <-time.After(retryInterval):
		}
	}
}

func (l *MemoryLocker) tryLock(key string, ttl time.Duration) (time.Time, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	if expires, ok := l.held[key]; ok && now.Before(expires) {
		return time.Time{}, false
	}
	expires := now.Add(ttl)
	l.held[key] = expires
	return expires, true
}
