package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/geobank/registry/internal/cache"
	"github.com/geobank/registry/internal/config"
	"github.com/geobank/registry/internal/geoindex"
	"github.com/geobank/registry/internal/pkg/logger"
	"github.com/geobank/registry/internal/reconciler"
	"github.com/geobank/registry/internal/scheduler"
	"github.com/geobank/registry/internal/store"
	"github.com/geobank/registry/internal/store/postgres"
	"github.com/geobank/registry/internal/worker"
)

// This process runs the registry's two background jobs — the cache
// auto-renewal scheduler and the store/index reconciler — standalone,
// separately from the HTTP API process.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("starting geobank background workers",
		zap.Duration("autoRenewalInterval", cfg.Cache.AutoRenewalInterval),
		zap.Duration("reconcilerInterval", cfg.Reconciler.Interval),
	)

	db, err := postgres.New(&cfg.Database, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("failed to close postgres connection", zap.Error(err))
		}
	}()

	cacheRedis, err := connectRedis(cfg.GetRedisAddr(), cfg.Redis.Password, cfg.Redis.DB, log)
	if err != nil {
		log.Fatal("failed to connect to cache redis", zap.Error(err))
	}
	defer cacheRedis.Close()

	healthCtx, healthCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := db.Health(healthCtx); err != nil {
		healthCancel()
		log.Fatal("postgres health check failed", zap.Error(err))
	}
	if err := cacheRedis.Ping(healthCtx).Err(); err != nil {
		healthCancel()
		log.Fatal("cache redis health check failed", zap.Error(err))
	}
	healthCancel()
	log.Info("all connections healthy")

	branchStore := postgres.NewBranchRepository(db)

	index, err := rebuildIndex(branchStore, log)
	if err != nil {
		log.Fatal("failed to rebuild spatial index from store", zap.Error(err))
	}
	log.Info("spatial index rebuilt from store", zap.Int("count", index.Count()))

	l1, err := cache.NewL1(int64(cfg.Cache.L1Size), cfg.Cache.L1TTL, cfg.Cache.EarlyExpirationFactor)
	if err != nil {
		log.Fatal("failed to build L1 cache", zap.Error(err))
	}
	l2 := cache.NewL2(cacheRedis, cfg.Cache.L2TTL, log)
	lock := cache.NewRedisLock(cacheRedis)
	twoTier := cache.New(l1, l2, lock, log, cache.WithLockTTL(cfg.Lock.AcquisitionTimeout))

	workerManager := worker.NewWorkerManager(log)
	workerManager.Register(scheduler.NewAutoRenewWorker(twoTier, cfg.Cache.AutoRenewalInterval, log))
	workerManager.Register(reconciler.NewReconciler(branchStore, index, cfg.Reconciler.Interval, log))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := workerManager.Start(ctx); err != nil {
		log.Fatal("failed to start workers", zap.Error(err))
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Info("received shutdown signal")

	cancel()
	if err := workerManager.Stop(); err != nil {
		log.Error("error stopping workers", zap.Error(err))
	}

	log.Info("worker shutdown complete")
}

// connectRedis dials the cache-tier Redis instance. Duplicated from
// cmd/api/main.go rather than shared, since the two processes have no
// other reason to import each other and this is the only connection each
// needs beyond Postgres.
func connectRedis(addr, password string, db int, logger *zap.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to cache redis: %w", err)
	}

	logger.Info("cache redis connected", zap.String("addr", addr))
	return client, nil
}

// rebuildIndex seeds a fresh spatial index from every branch currently in
// the store, matching cmd/api's startup reconstruction so the standalone
// worker process's reconciler has an index to diff the store against.
func rebuildIndex(branchStore store.BranchStore, logger *zap.Logger) (*geoindex.Index, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	branches, err := branchStore.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load branches for index rebuild: %w", err)
	}

	pairs := make([]geoindex.IDPoint, 0, len(branches))
	for _, b := range branches {
		pairs = append(pairs, geoindex.IDPoint{ID: b.ID, Point: b.Location})
	}

	logger.Info("rebuilding spatial index", zap.Int("branchCount", len(pairs)))
	return geoindex.RebuildFrom(pairs), nil
}
