package geoindex_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geobank/registry/internal/domain"
	"github.com/geobank/registry/internal/geoindex"
)

func mustPoint(t *testing.T, lat, lon float64) domain.GeoPoint {
	t.Helper()
	p, err := domain.NewGeoPoint(lat, lon)
	require.NoError(t, err)
	return p
}

func mustID(t *testing.T, raw string) domain.BranchId {
	t.Helper()
	id, err := domain.NewBranchId(raw)
	require.NoError(t, err)
	return id
}

func TestWithinRadius_Completeness(t *testing.T) {
	idx := geoindex.New()
	a := mustID(t, "BRANCHA")
	b := mustID(t, "BRANCHB")
	center := mustPoint(t, -23.5505, -46.6333)
	near := mustPoint(t, -23.5489, -46.6388)

	idx.Insert(a, center)
	idx.Insert(b, near)

	results := idx.WithinRadius(center, 5)
	ids := make(map[string]bool)
	for _, r := range results {
		ids[r.ID.String()] = true
	}

	assert.True(t, ids[a.String()])
	assert.True(t, ids[b.String()])
}

func TestWithinRadius_Exclusion(t *testing.T) {
	idx := geoindex.New()
	a := mustID(t, "BRANCHA")
	b := mustID(t, "BRANCHB")

	saoPaulo := mustPoint(t, -23.5505, -46.6333)
	rio := mustPoint(t, -22.9068, -43.1729)

	idx.Insert(a, saoPaulo)
	idx.Insert(b, rio)

	results := idx.WithinRadius(saoPaulo, 10)
	require.Len(t, results, 1)
	assert.Equal(t, a.String(), results[0].ID.String())
}

func TestWithinRadius_OrderingNonDecreasing(t *testing.T) {
	idx := geoindex.New()
	center := mustPoint(t, 0, 0)

	for i, raw := range []string{"BRANCHA", "BRANCHB", "BRANCHC", "BRANCHD"} {
		p := mustPoint(t, 0, float64(i)*0.02)
		idx.Insert(mustID(t, raw), p)
	}

	results := idx.WithinRadius(center, 50)
	require.Len(t, results, 4)
	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i-1].Distance.Km(), results[i].Distance.Km())
	}
}

func TestKNearest_LimitsResults(t *testing.T) {
	idx := geoindex.New()
	center := mustPoint(t, 0, 0)

	for i, raw := range []string{"BRANCHA", "BRANCHB", "BRANCHC", "BRANCHD", "BRANCHE"} {
		p := mustPoint(t, 0, float64(i)*0.01)
		idx.Insert(mustID(t, raw), p)
	}

	results := idx.KNearest(center, 2, 50)
	assert.Len(t, results, 2)
}

func TestRemoveAndUpdate(t *testing.T) {
	idx := geoindex.New()
	a := mustID(t, "BRANCHA")
	p1 := mustPoint(t, 0, 0)
	p2 := mustPoint(t, 10, 10)

	idx.Insert(a, p1)
	assert.True(t, idx.Contains(a))

	idx.Update(a, p2)
	assert.Equal(t, 1, idx.Count())

	results := idx.WithinRadius(p2, 1)
	require.Len(t, results, 1)

	idx.Remove(a)
	assert.False(t, idx.Contains(a))
	assert.Equal(t, 0, idx.Count())
}

func TestEmptyIndex_ReturnsEmpty(t *testing.T) {
	idx := geoindex.New()
	results := idx.WithinRadius(mustPoint(t, 0, 0), 10)
	assert.Empty(t, results)
}

func TestConcurrentReadersDuringWrites(t *testing.T) {
	idx := geoindex.New()
	center := mustPoint(t, 0, 0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := mustID(t, "BR"+string(rune('A'+i%26))+string(rune('0'+i/26)))
			idx.Insert(id, mustPoint(t, float64(i%10)*0.001, float64(i%7)*0.001))
		}(i)
	}

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = idx.WithinRadius(center, 10)
		}()
	}

	wg.Wait()
	assert.LessOrEqual(t, idx.Count(), 50)
}

func TestRebuildFrom(t *testing.T) {
	a := mustID(t, "BRANCHA")
	b := mustID(t, "BRANCHB")
	pairs := []geoindex.IDPoint{
		{ID: a, Point: mustPoint(t, 0, 0)},
		{ID: b, Point: mustPoint(t, 1, 1)},
	}

	idx := geoindex.RebuildFrom(pairs)
	assert.Equal(t, 2, idx.Count())
	assert.True(t, idx.Contains(a))
	assert.True(t, idx.Contains(b))
}
