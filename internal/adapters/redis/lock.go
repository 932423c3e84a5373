package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"fincal/internal/domain/calendar"
	"fincal/pkg/errors"
)

const lockPrefix = "fincal:lock:"

// releaseScript deletes the lock only while it still carries our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript resets the expiry only while the lock still carries our token
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// Locker hands out SETNX locks with an owner token
type Locker struct {
	rdb *redis.Client
}

// NewLocker creates a lock manager on client
func NewLocker(client *Client) *Locker {
	return &Locker{rdb: client.rdb}
}

// Acquire takes key for ttl. It returns errors.ErrLocked when another owner holds it.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (calendar.RunLock, error) {
	lease := &Lease{
		rdb:   l.rdb,
		key:   key,
		full:  lockPrefix + key,
		token: uuid.NewString(),
		ttl:   ttl,
	}

	ok, err := l.rdb.SetNX(ctx, lease.full, lease.token, ttl).Result()
	if err != nil {
		return nil, errors.Wrapf(errors.ErrUnavailable, "acquire lock %s: %v", key, err)
	}
	if !ok {
		return nil, errors.Wrapf(errors.ErrLocked, "lock %s", key)
	}
	return lease, nil
}

// Lease is one held lock
type Lease struct {
	rdb   *redis.Client
	key   string
	full  string
	token string
	ttl   time.Duration
}

// Extend resets the lease to its full TTL
func (l *Lease) Extend(ctx context.Context) error {
	n, err := extendScript.Run(ctx, l.rdb, []string{l.full}, l.token, l.ttl.Milliseconds()).Int64()
	if err != nil {
		return errors.Wrapf(errors.ErrUnavailable, "extend lock %s: %v", l.key, err)
	}
	if n == 0 {
		return errors.Wrapf(errors.ErrLocked, "lock %s lost", l.key)
	}
	return nil
}

// Release deletes the lock if it is still ours
func (l *Lease) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.rdb, []string{l.full}, l.token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return errors.Wrapf(err, "release lock %s", l.key)
	}
	return nil
}
