package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a lock.
type UnlockFunc func(ctx context.Context) error

// Locker grants exclusive ownership of a named resource, such as a tub that
// only one vehicle may record into.
type Locker interface {
	// TryLock acquires the lock for key without waiting.
	// Returns domain.ErrResourceLocked if another owner holds it.
	TryLock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
