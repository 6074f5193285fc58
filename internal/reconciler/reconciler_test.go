package reconciler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/geobank/registry/internal/domain"
	"github.com/geobank/registry/internal/geoindex"
	"github.com/geobank/registry/internal/store"
)

func mustPoint(t *testing.T, lat, lon float64) domain.GeoPoint {
	t.Helper()
	p, err := domain.NewGeoPoint(lat, lon)
	require.NoError(t, err)
	return p
}

func TestReconciler_Reconcile_ReinsertsDesyncedIDs(t *testing.T) {
	s := store.NewMemoryStore()
	idx := geoindex.New()

	id, err := domain.NewBranchId("AAAA1111")
	require.NoError(t, err)
	loc := mustPoint(t, 40, -3)
	b := domain.NewBranch(id, loc, domain.Traditional, "Branch", "Addr", "555-0100", time.Now())

	// Simulate a desync: store write succeeded, index insert was lost.
	require.NoError(t, s.Save(context.Background(), b))
	assert.False(t, idx.Contains(id))

	r := NewReconciler(s, idx, time.Hour, zap.NewNop())
	require.NoError(t, r.Reconcile(context.Background()))

	assert.True(t, idx.Contains(id))
}

func TestReconciler_Reconcile_NoOpWhenAlreadyInSync(t *testing.T) {
	s := store.NewMemoryStore()
	idx := geoindex.New()

	id, err := domain.NewBranchId("AAAA1111")
	require.NoError(t, err)
	loc := mustPoint(t, 40, -3)
	b := domain.NewBranch(id, loc, domain.Traditional, "Branch", "Addr", "555-0100", time.Now())

	require.NoError(t, s.Save(context.Background(), b))
	idx.Insert(id, loc)

	r := NewReconciler(s, idx, time.Hour, zap.NewNop())
	require.NoError(t, r.Reconcile(context.Background()))

	assert.Equal(t, 1, idx.Count())
}

func TestReconciler_Start_RunsOnTickAndStopsOnSignal(t *testing.T) {
	s := store.NewMemoryStore()
	idx := geoindex.New()

	id, err := domain.NewBranchId("AAAA1111")
	require.NoError(t, err)
	loc := mustPoint(t, 40, -3)
	b := domain.NewBranch(id, loc, domain.Traditional, "Branch", "Addr", "555-0100", time.Now())
	require.NoError(t, s.Save(context.Background(), b))

	r := NewReconciler(s, idx, time.Hour, zap.NewNop())
	r.newTicker = func() *time.Ticker { return time.NewTicker(time.Millisecond) }

	done := make(chan error, 1)
	go func() { done <- r.Start(context.Background()) }()

	require.Eventually(t, func() bool { return idx.Contains(id) }, time.Second, time.Millisecond)

	require.NoError(t, r.Stop())
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("reconciler did not stop after Stop()")
	}
}
