package main

// @title geobank Registry API
// @version 1.0.0
// @description Geospatial bank-branch registry: branch registration and
// @description nearest-branch proximity search, backed by a two-tier
// @description stampede-protected cache and a background reconciler that
// @description keeps the in-memory spatial index consistent with the
// @description authoritative branch store.

// @contact.name API Support
// @contact.email support@geobank-registry.example

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /
// @schemes http https

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/geobank/registry/docs"
	"github.com/geobank/registry/internal/cache"
	"github.com/geobank/registry/internal/config"
	httpDelivery "github.com/geobank/registry/internal/delivery/http"
	"github.com/geobank/registry/internal/delivery/http/handler"
	"github.com/geobank/registry/internal/eventsink"
	"github.com/geobank/registry/internal/geoindex"
	"github.com/geobank/registry/internal/pkg/logger"
	"github.com/geobank/registry/internal/proximity"
	"github.com/geobank/registry/internal/reconciler"
	"github.com/geobank/registry/internal/scheduler"
	"github.com/geobank/registry/internal/store"
	"github.com/geobank/registry/internal/store/postgres"
	"github.com/geobank/registry/internal/validate"
	"github.com/geobank/registry/internal/worker"
)

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

	log.Info("starting geobank registry",
		zap.String("env", cfg.Server.Env),
		zap.String("server_addr", cfg.GetServerAddr()),
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
	log.Info("postgres connected")

	cacheRedis, err := connectRedis(cfg.GetRedisAddr(), cfg.Redis.Password, cfg.Redis.DB, log)
	if err != nil {
		log.Fatal("failed to connect to cache redis", zap.Error(err))
	}
	defer cacheRedis.Close()

	streamsRedis, err := eventsink.NewRedisStreamsClient(cfg.GetRedisStreamsAddr(), cfg.RedisStreams.Password, cfg.RedisStreams.DB, log)
	if err != nil {
		log.Fatal("failed to connect to streams redis", zap.Error(err))
	}
	defer streamsRedis.Close()

	healthCtx, healthCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := db.Health(healthCtx); err != nil {
		healthCancel()
		log.Fatal("postgres health check failed", zap.Error(err))
	}
	if err := cacheRedis.Ping(healthCtx).Err(); err != nil {
		healthCancel()
		log.Fatal("cache redis health check failed", zap.Error(err))
	}
	if err := streamsRedis.Ping(healthCtx).Err(); err != nil {
		healthCancel()
		log.Fatal("streams redis health check failed", zap.Error(err))
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

	branchValidator := validate.NewBranchValidator()
	sink := eventsink.NewRedisEventSink(streamsRedis, log)

	queryEngine := proximity.NewQueryEngine(index, branchStore, twoTier, sink, log)
	registrationEngine := proximity.NewRegistrationEngine(index, branchStore, branchValidator, twoTier, sink, log)

	workerManager := worker.NewWorkerManager(log)
	workerManager.Register(scheduler.NewAutoRenewWorker(twoTier, cfg.Cache.AutoRenewalInterval, log))
	workerManager.Register(reconciler.NewReconciler(branchStore, index, cfg.Reconciler.Interval, log))

	backgroundCtx, stopBackground := context.WithCancel(context.Background())
	if err := workerManager.Start(backgroundCtx); err != nil {
		log.Error("failed to start background workers", zap.Error(err))
	}

	registrationHandler := handler.NewRegistrationHandler(registrationEngine, log)
	proximityHandler := handler.NewProximityHandler(queryEngine, cfg.Search, log)

	server := httpDelivery.NewServer(cfg, log, registrationHandler, proximityHandler)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("failed to start HTTP server", zap.Error(err))
		}
	}()

	log.Info("server started successfully",
		zap.String("address", cfg.GetServerAddr()),
		zap.String("env", cfg.Server.Env),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down gracefully")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", zap.Error(err))
	}

	stopBackground()
	if err := workerManager.Stop(); err != nil {
		log.Error("worker shutdown error", zap.Error(err))
	}

	log.Info("server stopped successfully")
}

// connectRedis dials the cache-tier Redis instance. Kept separate from the
// streams connector (eventsink.NewRedisStreamsClient) so event backpressure
// never blocks cache traffic.
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
// the store, so proximity queries have a complete index from the first
// request onward rather than waiting for the reconciler's first tick.
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
