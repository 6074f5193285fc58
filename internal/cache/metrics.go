package cache

import "sync/atomic"

// Metrics is a point-in-time snapshot of cache performance counters, per the
// reporting contract: hit/miss/eviction/error counters, hit ratio,
// approximate L1 size, last auto-renewal timestamp.
type Metrics struct {
	Hits            int64
	Misses          int64
	Evictions       int64
	Errors          int64
	HitRatio        float64
	L1Size          int
	LastAutoRenewal int64 // unix seconds, 0 if never run
}

// counters holds the live atomic state a TwoTier cache accumulates into;
// Snapshot reads it without interrupting concurrent writers.
type counters struct {
	hits            atomic.Int64
	misses          atomic.Int64
	evictions       atomic.Int64
	errors          atomic.Int64
	lastAutoRenewal atomic.Int64
}

func (c *counters) snapshot(l1Size int) Metrics {
	hits := c.hits.Load()
	misses := c.misses.Load()

	ratio := 0.0
	if total := hits + misses; total > 0 {
		ratio = float64(hits) / float64(total)
	}

	return Metrics{
		Hits:            hits,
		Misses:          misses,
		Evictions:       c.evictions.Load(),
		Errors:          c.errors.Load(),
		HitRatio:        ratio,
		L1Size:          l1Size,
		LastAutoRenewal: c.lastAutoRenewal.Load(),
	}
}
