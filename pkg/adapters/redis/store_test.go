package redis_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/vehicle/pkg/adapters/redis"
	"github.com/aretw0/vehicle/pkg/domain"
	"github.com/aretw0/vehicle/pkg/ports"
)

func setup(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := setup(t)

	store, err := redis.NewFromClient(context.Background(), client)
	require.NoError(t, err)
	defer store.Close()
	ports.RunRecordStoreContract(t, store)
}

func TestRedisStore_ExclusiveWriter(t *testing.T) {
	mr, client := setup(t)
	ctx := context.Background()

	first, err := redis.NewFromClient(ctx, client, redis.WithTub("track"))
	require.NoError(t, err)
	assert.True(t, mr.Exists("vehicle:tub:lock:track"))

	_, err = redis.NewFromClient(ctx, client, redis.WithTub("track"))
	assert.ErrorIs(t, err, domain.ErrResourceLocked)

	other, err := redis.NewFromClient(ctx, client, redis.WithTub("other"))
	require.NoError(t, err, "different tubs do not contend")
	require.NoError(t, other.Close())

	require.NoError(t, first.Close())
	assert.False(t, mr.Exists("vehicle:tub:lock:track"), "lock released on close")

	again, err := redis.NewFromClient(ctx, client, redis.WithTub("track"))
	require.NoError(t, err)
	require.NoError(t, again.Close())
}

func TestRedisStore_WriterLockIsRefreshed(t *testing.T) {
	mr, client := setup(t)
	ctx := context.Background()
	const key = "vehicle:tub:lock:track"

	store, err := redis.NewFromClient(ctx, client, redis.WithTub("track"), redis.WithLockTTL(300*time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, 300*time.Millisecond, mr.TTL(key), "lock expires if the writer stops refreshing")

	mr.FastForward(250 * time.Millisecond)
	assert.Eventually(t, func() bool {
		return mr.TTL(key) > 100*time.Millisecond
	}, 2*time.Second, 10*time.Millisecond, "open writer keeps extending its lock")

	for range 5 {
		mr.FastForward(100 * time.Millisecond)
		time.Sleep(120 * time.Millisecond)
	}
	assert.True(t, mr.Exists(key), "lock outlives its TTL while the writer is open")

	_, err = store.Append(ctx, domain.Record{Values: map[string]domain.Value{"a": domain.Number(1)}})
	require.NoError(t, err)

	require.NoError(t, store.Close())
	assert.False(t, mr.Exists(key))
}

func TestRedisStore_LostLockStopsWriter(t *testing.T) {
	mr, client := setup(t)
	ctx := context.Background()
	const key = "vehicle:tub:lock:track"

	store, err := redis.NewFromClient(ctx, client, redis.WithTub("track"), redis.WithLockTTL(150*time.Millisecond))
	require.NoError(t, err)

	// Another writer took the tub after our lock expired.
	require.NoError(t, mr.Set(key, "someone-else"))

	assert.Eventually(t, func() bool {
		_, err := store.Append(ctx, domain.Record{Values: map[string]domain.Value{"a": domain.Number(1)}})
		return errors.Is(err, domain.ErrResourceLocked)
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, store.Close())
	v, err := mr.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "someone-else", v, "close leaves the new owner's lock alone")
}

func TestRedisStore_DefaultLockTTL(t *testing.T) {
	mr, client := setup(t)

	store, err := redis.NewFromClient(context.Background(), client)
	require.NoError(t, err)
	defer store.Close()
	assert.Equal(t, redis.DefaultLockTTL, mr.TTL("vehicle:tub:lock:default"))
}

func TestRedisStore_Reader(t *testing.T) {
	_, client := setup(t)
	ctx := context.Background()

	writer, err := redis.NewFromClient(ctx, client, redis.WithPrefix("car:"))
	require.NoError(t, err)
	defer writer.Close()
	_, err = writer.Append(ctx, domain.Record{Values: map[string]domain.Value{"a": domain.Number(1)}})
	require.NoError(t, err)

	reader := redis.NewReader(client, redis.WithPrefix("car:"))
	n, err := reader.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = reader.Append(ctx, domain.Record{})
	assert.Error(t, err)
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := setup(t)
	ctx := context.Background()

	store, err := redis.NewFromClient(ctx, client, redis.WithTTL(time.Second))
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Append(ctx, domain.Record{Values: map[string]domain.Value{"a": domain.Number(1)}})
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
