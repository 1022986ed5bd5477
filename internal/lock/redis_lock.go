// Package lock provides a Redis-backed lease used to keep archival runs exclusive.
package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrAlreadyLocked is returned when another holder owns the lease.
	ErrAlreadyLocked = errors.New("lock already held")
	// ErrLeaseLost is returned when releasing or extending a lease that expired or changed hands.
	ErrLeaseLost = errors.New("lock lease lost")
)

// Only the holder whose token is stored may delete the key.
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
    return redis.call("del", KEYS[1])
else
    return 0
end
`

const extendScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
    return redis.call("pexpire", KEYS[1], ARGV[2])
else
    return 0
end
`

// Lease identifies an acquired lock.
type Lease struct {
	Key   string
	Token string
}

// RedisLocker acquires leases with SET NX PX.
type RedisLocker struct {
	client    redis.Cmdable
	keyPrefix string
}

// NewRedisLocker constructs a locker namespaced under prefix.
func NewRedisLocker(client redis.Cmdable, prefix string) *RedisLocker {
	if prefix == "" {
		prefix = "activity:lock"
	}
	return &RedisLocker{client: client, keyPrefix: prefix}
}

func (l *RedisLocker) fullKey(key string) string {
	return l.keyPrefix + ":" + key
}

// Acquire takes the lease for key for ttl, or fails with ErrAlreadyLocked.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lease, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.fullKey(key), token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAlreadyLocked
	}
	return &Lease{Key: key, Token: token}, nil
}

// Release deletes the lease if it is still owned by the caller.
func (l *RedisLocker) Release(ctx context.Context, lease *Lease) error {
	result, err := l.client.Eval(ctx, releaseScript, []string{l.fullKey(lease.Key)}, lease.Token).Int64()
	if err != nil {
		return err
	}
	if result == 0 {
		return ErrLeaseLost
	}
	return nil
}

// Extend pushes the lease expiry out by ttl.
func (l *RedisLocker) Extend(ctx context.Context, lease *Lease, ttl time.Duration) error {
	result, err := l.client.Eval(ctx, extendScript, []string{l.fullKey(lease.Key)}, lease.Token, ttl.Milliseconds()).Int64()
	if err != nil {
		return err
	}
	if result == 0 {
		return ErrLeaseLost
	}
	return nil
}
