package lock

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mini, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mini.Close)

	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLocker(client, ""), mini
}

func TestAcquireIsExclusive(t *testing.T) {
	locker, mini := newTestLocker(t)
	ctx := context.Background()

	lease, err := locker.Acquire(ctx, "archival", time.Minute)
	require.NoError(t, err)
	require.True(t, mini.Exists("activity:lock:archival"))

	_, err = locker.Acquire(ctx, "archival", time.Minute)
	require.ErrorIs(t, err, ErrAlreadyLocked)

	require.NoError(t, locker.Release(ctx, lease))
	require.False(t, mini.Exists("activity:lock:archival"))

	_, err = locker.Acquire(ctx, "archival", time.Minute)
	require.NoError(t, err)
}

func TestReleaseRejectsForeignToken(t *testing.T) {
	locker, _ := newTestLocker(t)
	ctx := context.Background()

	_, err := locker.Acquire(ctx, "archival", time.Minute)
	require.NoError(t, err)

	err = locker.Release(ctx, &Lease{Key: "archival", Token: "someone-else"})
	require.ErrorIs(t, err, ErrLeaseLost)
}

func TestLeaseExpires(t *testing.T) {
	locker, mini := newTestLocker(t)
	ctx := context.Background()

	lease, err := locker.Acquire(ctx, "archival", time.Second)
	require.NoError(t, err)
	require.NoError(t, locker.Extend(ctx, lease, 10*time.Second))

	mini.FastForward(11 * time.Second)
	require.ErrorIs(t, locker.Release(ctx, lease), ErrLeaseLost)
	require.ErrorIs(t, locker.Extend(ctx, lease, time.Second), ErrLeaseLost)
}
