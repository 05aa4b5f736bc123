package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/vehicle/pkg/domain"
	"github.com/aretw0/vehicle/pkg/ports"
)

// unlockScript deletes the lock only if it still holds our token.
const unlockScript = `
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`

// refreshScript extends the lock only if it still holds our token.
const refreshScript = `
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("pexpire", KEYS[1], ARGV[2])
	else
		return 0
	end
`

// Locker implements ports.Locker using Redis.
type Locker struct {
	client *backend.Client
	prefix string
}

// NewLocker creates a new Redis locker.
func NewLocker(client *backend.Client, prefix string) *Locker {
	return &Locker{
		client: client,
		prefix: prefix,
	}
}

var _ ports.Locker = (*Locker)(nil)

// TryLock acquires the lock for key using SET NX, without waiting.
func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	lease, err := l.TryLease(ctx, key, ttl)
	if err != nil {
		return nil, err
	}
	return lease.Release, nil
}

// TryLease acquires the lock for key like TryLock and returns a lease that
// can be refreshed before ttl runs out. A zero ttl never expires.
func (l *Locker) TryLease(ctx context.Context, key string, ttl time.Duration) (*Lease, error) {
	lease := &Lease{
		client: l.client,
		key:    l.prefix + "lock:" + key,
		token:  uuid.NewString(),
		ttl:    ttl,
	}
	ok, err := l.client.SetNX(ctx, lease.key, lease.token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis error acquiring lock: %w", err)
	}
	if !ok {
		return nil, domain.ErrResourceLocked
	}
	return lease, nil
}

// Lease is a held lock identified by a random token.
type Lease struct {
	client *backend.Client
	key    string
	token  string
	ttl    time.Duration
}

// TTL returns the lease duration.
func (l *Lease) TTL() time.Duration { return l.ttl }

// Refresh extends the lease by its TTL. It returns domain.ErrResourceLocked
// if the lock expired or another owner has taken it.
func (l *Lease) Refresh(ctx context.Context) error {
	n, err := l.client.Eval(ctx, refreshScript, []string{l.key}, l.token, l.ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("redis error refreshing lock: %w", err)
	}
	if n == 0 {
		return domain.ErrResourceLocked
	}
	return nil
}

// Release deletes the lock if it is still ours.
func (l *Lease) Release(ctx context.Context) error {
	return l.client.Eval(ctx, unlockScript, []string{l.key}, l.token).Err()
}
