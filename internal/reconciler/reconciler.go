// Package reconciler implements the store/index reconciler: a background
// worker that repairs an INDEX_DESYNC left behind when a registration's
// store write succeeds but the following spatial-index insert is lost.
//
// Same ticker-driven shape as internal/scheduler.AutoRenewWorker.
package reconciler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/geobank/registry/internal/geoindex"
	"github.com/geobank/registry/internal/store"
	"github.com/geobank/registry/internal/worker"
)

// Reconciler runs on a timer, lists every id in the store, diffs it against
// the spatial index's id set, and re-inserts any id present in the store
// but missing from the index, logging INDEX_DESYNC for each repair it
// makes.
type Reconciler struct {
	*worker.BaseWorker
	store     store.BranchStore
	index     *geoindex.Index
	interval  time.Duration
	newTicker func() *time.Ticker
}

// NewReconciler builds a Reconciler that diffs store against index every
// interval.
func NewReconciler(s store.BranchStore, idx *geoindex.Index, interval time.Duration, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		BaseWorker: worker.NewBaseWorker("index-reconciler", "", logger),
		store:      s,
		index:      idx,
		interval:   interval,
	}
}

// Start runs the diff-and-repair loop until stopped or ctx is cancelled.
func (r *Reconciler) Start(ctx context.Context) error {
	logger := r.Logger()
	logger.Info("starting index reconciler", zap.Duration("interval", r.interval))

	ticker := r.ticker()
	defer ticker.Stop()

	for {
		select {
		case <-r.StopChan():
			logger.Info("index reconciler stopped")
			return nil
		case <-ctx.Done():
			logger.Info("index reconciler context cancelled")
			return ctx.Err()
		case <-ticker.C:
			if err := r.Reconcile(ctx); err != nil {
				logger.Error("reconciliation pass failed", zap.Error(err))
			}
		}
	}
}

func (r *Reconciler) ticker() *time.Ticker {
	if r.newTicker != nil {
		return r.newTicker()
	}
	return time.NewTicker(r.interval)
}

// Reconcile runs a single diff-and-repair pass: every store id missing from
// the index is re-inserted, and each repair is logged as a resolved
// INDEX_DESYNC. It is exported so it can be invoked directly (on startup,
// or from tests) without waiting for a tick.
func (r *Reconciler) Reconcile(ctx context.Context) error {
	branches, err := r.store.FindAll(ctx)
	if err != nil {
		return err
	}

	indexed := make(map[string]bool, r.index.Count())
	for _, id := range r.index.AllIDs() {
		indexed[id.String()] = true
	}

	repaired := 0
	for _, b := range branches {
		if indexed[b.ID.String()] {
			continue
		}
		r.index.Insert(b.ID, b.Location)
		r.Logger().Warn("INDEX_DESYNC", zap.String("branchId", b.ID.String()), zap.String("resolution", "reinserted into spatial index"))
		repaired++
	}

	if repaired > 0 {
		r.Logger().Info("reconciliation repaired desynced index entries", zap.Int("count", repaired))
	}

	return nil
}
