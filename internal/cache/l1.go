// Package cache implements a two-tier cache: an in-process ristretto-backed
// L1 in front of a go-redis L2, with stampede protection, probabilistic
// early expiration, and pattern-based eviction across both tiers.
package cache

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
)

// defaultEarlyExpirationFraction is the remaining-TTL fraction below which a
// fresh L1 hit is probabilistically treated as a miss, spreading refresh
// load across concurrent readers of a near-expiry hot key, used when
// NewL1 is given a non-positive factor.
const defaultEarlyExpirationFraction = 0.10

// earlyExpirationProbability is the chance a hit inside the early window is
// demoted to a miss.
const earlyExpirationProbability = 0.5

type l1Entry struct {
	value     []byte
	expiresAt time.Time
}

// L1 wraps a ristretto.Cache with an explicit expiresAt stamp per entry
// (ristretto tracks its own TTL internally but does not expose remaining
// TTL, which probabilistic early expiration needs) and a side registry of
// live keys so pattern-based eviction can enumerate them — ristretto itself
// offers no key iteration.
type L1 struct {
	cache *ristretto.Cache
	ttl   time.Duration

	earlyExpirationFraction float64

	keysMu sync.Mutex
	keys   map[string]struct{}

	counters counters
	rng      *rand.Rand
	rngMu    sync.Mutex
}

// NewL1 builds an L1 cache bounded to maxEntries items with the given
// default per-entry TTL. earlyExpirationFactor sets the remaining-TTL
// fraction that triggers probabilistic early expiration; a non-positive
// value falls back to defaultEarlyExpirationFraction.
func NewL1(maxEntries int64, ttl time.Duration, earlyExpirationFactor float64) (*L1, error) {
	if maxEntries <= 0 {
		maxEntries = 10_000
	}
	if earlyExpirationFactor <= 0 {
		earlyExpirationFactor = defaultEarlyExpirationFraction
	}

	rc, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:        maxEntries * 10,
		MaxCost:            maxEntries,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, err
	}

	return &L1{
		cache:                   rc,
		ttl:                     ttl,
		earlyExpirationFraction: earlyExpirationFactor,
		keys:                    make(map[string]struct{}),
		rng:                     rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// Get probes the cache, applying probabilistic early expiration to entries
// nearing TTL expiry so they're demoted to a miss roughly half the time
// once less than earlyExpirationFraction of their TTL remains.
func (l *L1) Get(key string) ([]byte, bool) {
	v, found := l.cache.Get(key)
	if !found {
		l.counters.misses.Add(1)
		return nil, false
	}

	e := v.(l1Entry)
	remaining := time.Until(e.expiresAt)
	if remaining <= 0 {
		l.counters.misses.Add(1)
		return nil, false
	}

	if l.ttl > 0 {
		frac := remaining.Seconds() / l.ttl.Seconds()
		if frac < l.earlyExpirationFraction && l.coinFlip() {
			l.counters.misses.Add(1)
			return nil, false
		}
	}

	l.counters.hits.Add(1)
	return e.value, true
}

func (l *L1) coinFlip() bool {
	l.rngMu.Lock()
	defer l.rngMu.Unlock()
	return l.rng.Float64() < earlyExpirationProbability
}

// Set stores value under key with the cache's default TTL.
func (l *L1) Set(key string, value []byte) {
	l.SetTTL(key, value, l.ttl)
}

// SetTTL stores value under key with an explicit TTL override, used when a
// caller's requested cache entry TTL differs from the tier default (e.g. the
// query engine's fixed 5-minute TTL for nearest:* results).
func (l *L1) SetTTL(key string, value []byte, ttl time.Duration) {
	entry := l1Entry{value: value, expiresAt: time.Now().Add(ttl)}
	l.cache.SetWithTTL(key, entry, 1, ttl)
	l.cache.Wait()

	l.keysMu.Lock()
	l.keys[key] = struct{}{}
	l.keysMu.Unlock()
}

// Evict removes key from L1.
func (l *L1) Evict(key string) {
	l.cache.Del(key)
	l.keysMu.Lock()
	delete(l.keys, key)
	l.keysMu.Unlock()
	l.counters.evictions.Add(1)
}

// EvictByPattern removes every tracked key matching pattern and returns how
// many were removed.
func (l *L1) EvictByPattern(pattern string) int {
	l.keysMu.Lock()
	matched := make([]string, 0)
	for k := range l.keys {
		if matchPattern(pattern, k) {
			matched = append(matched, k)
		}
	}
	l.keysMu.Unlock()

	for _, k := range matched {
		l.Evict(k)
	}
	return len(matched)
}

// Len returns the approximate number of live keys tracked.
func (l *L1) Len() int {
	l.keysMu.Lock()
	defer l.keysMu.Unlock()
	return len(l.keys)
}

// matchPattern implements the single-wildcard glob the cache contract
// promises: '*' matches any run of characters, every other rune is literal.
func matchPattern(pattern, s string) bool {
	if !strings.Contains(pattern, "*") {
		return pattern == s
	}

	segments := strings.Split(pattern, "*")
	if !strings.HasPrefix(s, segments[0]) {
		return false
	}
	s = s[len(segments[0]):]

	for i := 1; i < len(segments)-1; i++ {
		seg := segments[i]
		if seg == "" {
			continue
		}
		idx := strings.Index(s, seg)
		if idx < 0 {
			return false
		}
		s = s[idx+len(seg):]
	}

	last := segments[len(segments)-1]
	return last == "" || strings.HasSuffix(s, last)
}
