package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/geobank/registry/internal/cache"
)

func newTestCache(t *testing.T) *cache.TwoTier {
	t.Helper()
	l1, err := cache.NewL1(1000, time.Minute, 0)
	require.NoError(t, err)
	return cache.New(l1, nil, nil, zap.NewNop())
}

func TestAutoRenewWorker_PurgesNearestNamespaceOnEachTick(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	const key = "nearest:1,1:r5:m10"
	var loads int64
	load := func(context.Context) ([]byte, error) {
		atomic.AddInt64(&loads, 1)
		return []byte(`{}`), nil
	}

	_, err := c.GetOrCompute(ctx, key, time.Minute, load)
	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt64(&loads))

	w := NewAutoRenewWorker(c, time.Hour, zap.NewNop())
	w.newTicker = func() *time.Ticker { return time.NewTicker(time.Millisecond) }

	runCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- w.Start(runCtx) }()
	<-runCtx.Done()
	<-done

	_, err = c.GetOrCompute(ctx, key, time.Minute, load)
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt64(&loads), "auto-renew must have evicted the nearest:* entry, forcing a reload")

	metrics := c.Metrics()
	assert.Greater(t, metrics.Evictions, int64(0))
	assert.Greater(t, metrics.LastAutoRenewal, int64(0))
}

func TestAutoRenewWorker_StopsOnStopSignal(t *testing.T) {
	c := newTestCache(t)
	w := NewAutoRenewWorker(c, time.Hour, zap.NewNop())
	w.newTicker = func() *time.Ticker { return time.NewTicker(time.Millisecond) }

	done := make(chan error, 1)
	go func() { done <- w.Start(context.Background()) }()

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, w.Stop())

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after Stop()")
	}
}
