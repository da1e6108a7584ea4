package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLockerExcludesConcurrentHolders(t *testing.T) {
	l := NewMemoryLocker()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(context.Background(), "attempt:1", time.Second)
			if !assert.NoError(t, err) {
				return
			}
			defer release()

			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
}

func TestMemoryLockerHonoursContext(t *testing.T) {
	l := NewMemoryLocker()
	release, err := l.Acquire(context.Background(), "k", time.Minute)
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = l.Acquire(ctx, "k", time.Minute)
	assert.ErrorIs(t, err, ErrLockTimeout)
}

func TestMemoryLockerExpiredLockIsReclaimed(t *testing.T) {
	l := NewMemoryLocker()
	now := time.Unix(1000, 0)
	l.clock = func() time.Time { return now }

	stale, err := l.Acquire(context.Background(), "k", time.Second)
	require.NoError(t, err)

	now = now.Add(2 * time.Second)
	fresh, err := l.Acquire(context.Background(), "k", time.Second)
	require.NoError(t, err)

	// Releasing the stale holder must not free the fresh one.
	stale()
	_, ok := l.tryLock("k", time.Second)
	assert.False(t, ok)
	fresh()
}
