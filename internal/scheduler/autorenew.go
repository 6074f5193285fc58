// Package scheduler implements the cache auto-renewal scheduler: a
// ticker-driven background worker that purges the nearest:* cache namespace
// at a fixed interval, bounding the staleness window a missed or absorbed
// cache invalidation can leave behind.
//
// A dedicated worker that sleeps on a ticker channel and exits on a
// shutdown signal; testable by injecting a manual ticker.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/geobank/registry/internal/cache"
	"github.com/geobank/registry/internal/worker"
)

// nearestPattern is the cache namespace this worker purges every tick.
const nearestPattern = "nearest:*"

// AutoRenewWorker periodically purges the "nearest:*" cache namespace so
// proximity results re-warm on a fixed cadence rather than relying solely
// on per-key TTLs. It embeds worker.BaseWorker for the Name/Stop/StopChan
// machinery and owns only the tick loop itself.
type AutoRenewWorker struct {
	*worker.BaseWorker
	cache    *cache.TwoTier
	interval time.Duration
	// newTicker is a seam for tests: production code leaves it nil and
	// Start falls back to time.NewTicker(w.interval).
	newTicker func() *time.Ticker
}

// NewAutoRenewWorker builds an AutoRenewWorker that purges nearest:* every
// interval.
func NewAutoRenewWorker(c *cache.TwoTier, interval time.Duration, logger *zap.Logger) *AutoRenewWorker {
	return &AutoRenewWorker{
		BaseWorker: worker.NewBaseWorker("cache-auto-renew", "", logger),
		cache:      c,
		interval:   interval,
	}
}

// Start runs the tick loop until the worker is stopped or ctx is cancelled.
func (w *AutoRenewWorker) Start(ctx context.Context) error {
	logger := w.Logger()
	logger.Info("starting cache auto-renew worker", zap.Duration("interval", w.interval))

	ticker := w.ticker()
	defer ticker.Stop()

	for {
		select {
		case <-w.StopChan():
			logger.Info("cache auto-renew worker stopped")
			return nil
		case <-ctx.Done():
			logger.Info("cache auto-renew worker context cancelled")
			return ctx.Err()
		case now := <-ticker.C:
			w.renew(ctx, now)
		}
	}
}

func (w *AutoRenewWorker) ticker() *time.Ticker {
	if w.newTicker != nil {
		return w.newTicker()
	}
	return time.NewTicker(w.interval)
}

func (w *AutoRenewWorker) renew(ctx context.Context, now time.Time) {
	n := w.cache.EvictByPattern(ctx, nearestPattern)
	w.cache.MarkAutoRenewal(now)
	w.Logger().Info("cache auto-renewal ran", zap.Int("evicted", n))
}
