package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Loader computes the value for a cache miss.
type Loader func(ctx context.Context) ([]byte, error)

// TwoTier layers L1 (ristretto) in front of L2 (Redis), with in-process
// request collapsing via singleflight ahead of a distributed lock, so at
// most one loader call per key runs cluster-wide under normal conditions
// and at most one per process when L2 is degraded.
type TwoTier struct {
	l1 *L1
	l2 *L2 // nil means L2 is configured absent; degraded mode is permanent

	lock      Locker
	localLock Locker
	lockTTL   time.Duration

	sf       singleflight.Group
	logger   *zap.Logger
	counters counters
}

// Option configures a TwoTier at construction.
type Option func(*TwoTier)

// WithLockTTL overrides the default distributed-lock hold time.
func WithLockTTL(d time.Duration) Option {
	return func(t *TwoTier) { t.lockTTL = d }
}

// New builds a TwoTier cache. l2 may be nil to run L1-only (e.g. local
// development without Redis); lock may be nil to use only the local
// fallback lock.
func New(l1 *L1, l2 *L2, lock Locker, logger *zap.Logger, opts ...Option) *TwoTier {
	t := &TwoTier{
		l1:        l1,
		l2:        l2,
		lock:      lock,
		localLock: NewLocalLock(),
		lockTTL:   10 * time.Second,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// GetOrCompute returns the cached value for key, computing and populating
// both tiers via loader on a miss. Concurrent callers for the same key
// collapse onto a single loader invocation per the stampede-protection
// contract: singleflight collapses same-process callers first, then a
// distributed lock (falling back to an in-process mutex if L2 is degraded)
// collapses cross-node callers before the first caller through actually
// invokes loader.
func (t *TwoTier) GetOrCompute(ctx context.Context, key string, ttl time.Duration, loader Loader) ([]byte, error) {
	if v, ok := t.l1.Get(key); ok {
		t.counters.hits.Add(1)
		return v, nil
	}

	if t.l2 != nil {
		v, found, err := t.l2.Get(ctx, key)
		if err != nil {
			t.logDegraded(err)
		} else if found {
			t.l1.SetTTL(key, v, ttl)
			t.counters.hits.Add(1)
			return v, nil
		}
	}

	t.counters.misses.Add(1)

	v, err, _ := t.sf.Do(key, func() (interface{}, error) {
		return t.lockedLoad(ctx, key, ttl, loader)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// contentionRetries bounds how many times lockedLoad re-attempts a
// contended lock acquisition before giving up and calling loader directly.
const contentionRetries = 3

// contentionRetryDelay is the pause between acquisition attempts.
const contentionRetryDelay = 100 * time.Millisecond

func (t *TwoTier) lockedLoad(ctx context.Context, key string, ttl time.Duration, loader Loader) ([]byte, error) {
	release, ok, err := t.acquireContended(ctx, key)
	if err != nil {
		return loader(ctx)
	}
	if !ok {
		t.logger.Warn("CACHE_CONTENTION", zap.String("key", key))
		return loader(ctx)
	}
	defer release()

	// Re-check L2 after acquiring the lock: another node may have already
	// populated it while we waited.
	if t.l2 != nil {
		if v, found, err := t.l2.Get(ctx, key); err == nil && found {
			t.l1.SetTTL(key, v, ttl)
			return v, nil
		}
	}

	val, err := loader(ctx)
	if err != nil {
		return nil, err
	}

	t.l1.SetTTL(key, val, ttl)
	if t.l2 != nil {
		if err := t.l2.SetTTL(ctx, key, val, ttl); err != nil {
			t.logDegraded(err)
		}
	}
	return val, nil
}

func (t *TwoTier) acquireLock(ctx context.Context, key string) (func(), bool, error) {
	if t.lock != nil {
		release, ok, err := t.lock.Acquire(ctx, key, t.lockTTL)
		if err == nil {
			return release, ok, nil
		}
		t.logDegraded(err)
	}
	// The in-process fallback is probed without blocking, so a key that is
	// already held reports ok=false (contended) to acquireContended's retry
	// loop instead of waiting until ctx is done.
	if ll, isLocal := t.localLock.(*LocalLock); isLocal {
		v, _ := ll.mus.LoadOrStore(key, &sync.Mutex{})
		mtx := v.(*sync.Mutex)
		if !mtx.TryLock() {
			return noop, false, nil
		}
		return mtx.Unlock, true, nil
	}
	return t.localLock.Acquire(ctx, key, t.lockTTL)
}

// acquireContended retries a contended acquireLock call up to
// contentionRetries times, sleeping contentionRetryDelay between attempts,
// before giving up. A non-nil error means the lock backend itself failed
// (already logged CACHE_DEGRADED by acquireLock); ok==false after the final
// attempt means retries were exhausted under contention, which is the
// caller's signal to log CACHE_CONTENTION.
func (t *TwoTier) acquireContended(ctx context.Context, key string) (func(), bool, error) {
	for attempt := 0; ; attempt++ {
		release, ok, err := t.acquireLock(ctx, key)
		if err != nil || ok {
			return release, ok, err
		}
		if attempt >= contentionRetries {
			return nil, false, nil
		}
		select {
		case <-ctx.Done():
			return nil, false, nil
		case <-time.After(contentionRetryDelay):
		}
	}
}

// Evict removes key from both tiers. L2 failures are absorbed: eviction
// never fails the caller, it only logs CACHE_INVALIDATION_FAILED.
func (t *TwoTier) Evict(ctx context.Context, key string) {
	t.l1.Evict(key)
	t.counters.evictions.Add(1)

	if t.l2 == nil {
		return
	}
	if err := t.l2.Evict(ctx, key); err != nil {
		t.logger.Warn("CACHE_INVALIDATION_FAILED", zap.String("key", key), zap.Error(err))
		t.counters.errors.Add(1)
	}
}

// EvictByPattern removes every key matching pattern at both tiers and
// returns the total removed. As with Evict, an L2 failure is logged and
// absorbed rather than surfaced.
func (t *TwoTier) EvictByPattern(ctx context.Context, pattern string) int {
	n := t.l1.EvictByPattern(pattern)
	t.counters.evictions.Add(int64(n))

	if t.l2 == nil {
		return n
	}

	n2, err := t.l2.EvictByPattern(ctx, pattern)
	if err != nil {
		t.logger.Warn("CACHE_INVALIDATION_FAILED", zap.String("pattern", pattern), zap.Error(err))
		t.counters.errors.Add(1)
		return n
	}
	t.counters.evictions.Add(int64(n2))
	return n + n2
}

// MarkAutoRenewal records that the scheduler's nearest:* purge ran at t,
// surfaced in Metrics().LastAutoRenewal.
func (t *TwoTier) MarkAutoRenewal(at time.Time) {
	t.counters.lastAutoRenewal.Store(at.Unix())
}

func (t *TwoTier) logDegraded(err error) {
	t.logger.Warn("CACHE_DEGRADED", zap.Error(err))
	t.counters.errors.Add(1)
}

// Metrics returns a snapshot of this cache's counters.
func (t *TwoTier) Metrics() Metrics {
	return t.counters.snapshot(t.l1.Len())
}
