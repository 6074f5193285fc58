package proximity_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/geobank/registry/internal/cache"
	"github.com/geobank/registry/internal/domain"
	"github.com/geobank/registry/internal/eventsink"
	"github.com/geobank/registry/internal/geoindex"
	"github.com/geobank/registry/internal/proximity"
	"github.com/geobank/registry/internal/store"
)

func newTestCache(t *testing.T) *cache.TwoTier {
	t.Helper()
	l1, err := cache.NewL1(1000, time.Minute, 0)
	require.NoError(t, err)
	return cache.New(l1, nil, nil, zap.NewNop())
}

func mustPoint(t *testing.T, lat, lon float64) domain.GeoPoint {
	t.Helper()
	p, err := domain.NewGeoPoint(lat, lon)
	require.NoError(t, err)
	return p
}

func seedBranch(t *testing.T, idx *geoindex.Index, s store.BranchStore, idStr string, lat, lon float64, typ domain.BranchType, status domain.BranchStatus) domain.Branch {
	t.Helper()
	id, err := domain.NewBranchId(idStr)
	require.NoError(t, err)
	loc := mustPoint(t, lat, lon)
	b := domain.NewBranch(id, loc, typ, "Branch "+idStr, "Address "+idStr, "555-0100", time.Now())
	b.Status = status

	require.NoError(t, s.Save(context.Background(), b))
	idx.Insert(id, loc)
	return b
}

func TestQueryEngine_Nearest_ReturnsOrderedOperationalBranchesWithinRadius(t *testing.T) {
	idx := geoindex.New()
	s := store.NewMemoryStore()
	sink := eventsink.NewFakeSink()

	seedBranch(t, idx, s, "AAAA1111", 40.0000, -3.0000, domain.Traditional, domain.StatusActive)
	seedBranch(t, idx, s, "BBBB2222", 40.0010, -3.0000, domain.Digital, domain.StatusActive)
	seedBranch(t, idx, s, "CCCC3333", 40.0500, -3.0000, domain.Premium, domain.StatusTemporarilyClosed)
	seedBranch(t, idx, s, "DDDD4444", 50.0000, -3.0000, domain.Premium, domain.StatusActive)

	engine := proximity.NewQueryEngine(idx, s, newTestCache(t), sink, zap.NewNop())

	result, err := engine.Nearest(context.Background(), proximity.QueryRequest{
		UserLocation: mustPoint(t, 40.0000, -3.0000),
		RadiusKm:     5,
		MaxResults:   10,
	})
	require.NoError(t, err)

	require.Len(t, result.Branches, 2)
	assert.Equal(t, "AAAA1111", result.Branches[0].Branch.ID.String())
	assert.Equal(t, "BBBB2222", result.Branches[1].Branch.ID.String())
	assert.False(t, result.CacheHit)
	assert.Equal(t, 2, result.Stats.TotalCandidates)

	events := sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "PROXIMITY_QUERIED", events[0].EventType)
}

func TestQueryEngine_Nearest_SecondCallIsCacheHit(t *testing.T) {
	idx := geoindex.New()
	s := store.NewMemoryStore()
	sink := eventsink.NewFakeSink()
	seedBranch(t, idx, s, "AAAA1111", 40.0000, -3.0000, domain.Traditional, domain.StatusActive)

	engine := proximity.NewQueryEngine(idx, s, newTestCache(t), sink, zap.NewNop())
	req := proximity.QueryRequest{UserLocation: mustPoint(t, 40.0000, -3.0000), RadiusKm: 5, MaxResults: 10}

	first, err := engine.Nearest(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.CacheHit)

	second, err := engine.Nearest(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.Branches, second.Branches)
}

func TestQueryEngine_Nearest_TypeAndServiceFiltersApply(t *testing.T) {
	idx := geoindex.New()
	s := store.NewMemoryStore()
	sink := eventsink.NewFakeSink()

	seedBranch(t, idx, s, "AAAA1111", 40.0000, -3.0000, domain.ATMOnly, domain.StatusActive)
	seedBranch(t, idx, s, "BBBB2222", 40.0005, -3.0000, domain.Premium, domain.StatusActive)

	engine := proximity.NewQueryEngine(idx, s, newTestCache(t), sink, zap.NewNop())

	byType, err := engine.Nearest(context.Background(), proximity.QueryRequest{
		UserLocation: mustPoint(t, 40.0000, -3.0000),
		RadiusKm:     5,
		MaxResults:   10,
		BranchTypes:  []domain.BranchType{domain.Premium},
	})
	require.NoError(t, err)
	require.Len(t, byType.Branches, 1)
	assert.Equal(t, "BBBB2222", byType.Branches[0].Branch.ID.String())

	byService, err := engine.Nearest(context.Background(), proximity.QueryRequest{
		UserLocation: mustPoint(t, 40.0000, -3.0000),
		RadiusKm:     5,
		MaxResults:   10,
		ServiceType:  "account_opening",
	})
	require.NoError(t, err)
	require.Len(t, byService.Branches, 1)
	assert.Equal(t, "BBBB2222", byService.Branches[0].Branch.ID.String())
}

func TestQueryEngine_Nearest_EmptyRadiusReturnsEmptyResultNoError(t *testing.T) {
	idx := geoindex.New()
	s := store.NewMemoryStore()
	sink := eventsink.NewFakeSink()

	engine := proximity.NewQueryEngine(idx, s, newTestCache(t), sink, zap.NewNop())

	result, err := engine.Nearest(context.Background(), proximity.QueryRequest{
		UserLocation: mustPoint(t, 0, 0),
		RadiusKm:     5,
		MaxResults:   10,
	})
	require.NoError(t, err)
	assert.Empty(t, result.Branches)
	assert.Equal(t, 0, result.Stats.TotalCandidates)
}

func TestQueryEngine_Nearest_TruncatesToMaxResults(t *testing.T) {
	idx := geoindex.New()
	s := store.NewMemoryStore()
	sink := eventsink.NewFakeSink()

	seedBranch(t, idx, s, "AAAA1111", 40.0000, -3.0000, domain.Traditional, domain.StatusActive)
	seedBranch(t, idx, s, "BBBB2222", 40.0010, -3.0000, domain.Traditional, domain.StatusActive)
	seedBranch(t, idx, s, "CCCC3333", 40.0020, -3.0000, domain.Traditional, domain.StatusActive)

	engine := proximity.NewQueryEngine(idx, s, newTestCache(t), sink, zap.NewNop())

	result, err := engine.Nearest(context.Background(), proximity.QueryRequest{
		UserLocation: mustPoint(t, 40.0000, -3.0000),
		RadiusKm:     5,
		MaxResults:   2,
	})
	require.NoError(t, err)
	assert.Len(t, result.Branches, 2)
	assert.Equal(t, 3, result.Stats.TotalCandidates)
}
