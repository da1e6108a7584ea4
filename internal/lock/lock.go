// Package lock provides short-lived mutual exclusion keyed by string.
package lock

import (
	"context"
	"errors"
	"time"
)

// ErrLockTimeout is returned when a lock could not be acquired before the
// context or the wait budget ran out.
var ErrLockTimeout = errors.New("lock acquisition timed out")

// ReleaseFunc releases a held lock. It is safe to call more than once.
type ReleaseFunc func()

// Locker acquires exclusive locks that expire after ttl.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (ReleaseFunc, error)
}

// retryInterval is the pause between acquisition attempts.
const retryInterval = 25 * time.Millisecond
