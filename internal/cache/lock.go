package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker acquires a named, time-bounded exclusive lock. Acquire returns
// ok=false (no error) when the lock is already held by someone else, and a
// non-nil error only when the locking mechanism itself is unavailable.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

// RedisLock implements Locker with a SET key value NX PX pattern against
// go-redis directly, rather than a separate lock library (DESIGN.md records
// why redsync was not pulled in). Release is safe under concurrent
// callers: it only deletes the key if
// its value still matches the token this Acquire call wrote, via a Lua
// script, so a lock that outlived its TTL and was re-acquired by someone
// else is never released out from under them.
type RedisLock struct {
	client *redis.Client
}

// NewRedisLock builds a RedisLock over an already-connected client.
func NewRedisLock(client *redis.Client) *RedisLock {
	return &RedisLock{client: client}
}

var releaseIfOwnerScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

func lockKey(key string) string {
	return "lock:" + key
}

// Acquire implements Locker.
func (l *RedisLock) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, lockKey(key), token, ttl).Result()
	if err != nil {
		return noop, false, err
	}
	if !ok {
		return noop, false, nil
	}

	release := func() {
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		releaseIfOwnerScript.Run(rctx, l.client, []string{lockKey(key)}, token)
	}
	return release, true, nil
}

// LocalLock is an in-process fallback used when the distributed lock is
// unavailable (L2 outage), keeping single-node stampede protection intact
// even though cross-node collapsing is lost for the duration.
type LocalLock struct {
	mus sync.Map // map[string]*sync.Mutex
}

// NewLocalLock returns an empty LocalLock.
func NewLocalLock() *LocalLock {
	return &LocalLock{}
}

// Acquire implements Locker by blocking on a per-key mutex until ctx is
// done or the mutex is obtained.
func (l *LocalLock) Acquire(ctx context.Context, key string, _ time.Duration) (func(), bool, error) {
	v, _ := l.mus.LoadOrStore(key, &sync.Mutex{})
	mtx := v.(*sync.Mutex)

	acquired := make(chan struct{})
	go func() {
		mtx.Lock()
		close(acquired)
	}()

	select {
	case <-acquired:
		return mtx.Unlock, true, nil
	case <-ctx.Done():
		return noop, false, ctx.Err()
	}
}

func noop() {}
