package proximity

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/geobank/registry/internal/cache"
	"github.com/geobank/registry/internal/domain"
	"github.com/geobank/registry/internal/eventsink"
	"github.com/geobank/registry/internal/geoindex"
	apperrors "github.com/geobank/registry/internal/pkg/errors"
	"github.com/geobank/registry/internal/store"
)

// queryCacheTTL is the fixed TTL for nearest:* cache entries.
const queryCacheTTL = 5 * time.Minute

// QueryEngine is the proximity query use case: cache lookup, spatial index
// scan, candidate hydration and filtering, distance computation and
// ordering, and result caching/event publication. A use-case struct holding
// its repo/cache/logger collaborators, constructed once at startup and
// called per-request.
type QueryEngine struct {
	index  *geoindex.Index
	store  store.BranchStore
	cache  *cache.TwoTier
	sink   eventsink.EventSink
	logger *zap.Logger
}

// NewQueryEngine builds a QueryEngine from its collaborators.
func NewQueryEngine(index *geoindex.Index, branchStore store.BranchStore, c *cache.TwoTier, sink eventsink.EventSink, logger *zap.Logger) *QueryEngine {
	return &QueryEngine{index: index, store: branchStore, cache: c, sink: sink, logger: logger}
}

// Nearest executes the proximity-query algorithm: cache probe, spatial
// scan on miss, filter/sort/truncate, stats, cache-put, and event
// publication.
func (e *QueryEngine) Nearest(ctx context.Context, req QueryRequest) (QueryResult, error) {
	start := time.Now()
	key := buildCacheKey(req)

	computed := false
	raw, err := e.cache.GetOrCompute(ctx, key, queryCacheTTL, func(ctx context.Context) ([]byte, error) {
		computed = true
		result, err := e.compute(ctx, req)
		if err != nil {
			return nil, err
		}
		return json.Marshal(result)
	})
	if err != nil {
		return QueryResult{}, err
	}
	hit := !computed

	var result QueryResult
	if unmarshalErr := json.Unmarshal(raw, &result); unmarshalErr != nil {
		// A corrupt cache payload should not panic the query path; treat it
		// as a forced miss and recompute directly.
		e.logger.Warn("failed to unmarshal cached query result", zap.Error(unmarshalErr))
		result, err = e.compute(ctx, req)
		if err != nil {
			return QueryResult{}, err
		}
		hit = false
	}

	elapsedMs := float64(time.Since(start).Microseconds()) / 1000.0
	ids := make([]string, 0, len(result.Branches))
	for _, bd := range result.Branches {
		ids = append(ids, bd.Branch.ID.String())
	}

	event := eventsink.NewProximityQueried(
		req.UserLocation.Lat(), req.UserLocation.Lon(), req.RadiusKm, req.MaxResults,
		ids, elapsedMs, hit, time.Now(), req.CorrelationID, req.SessionID,
	)
	e.sink.PublishAsync("PROXIMITY_QUERIED", event)

	result.CacheHit = hit
	return result, nil
}

// compute performs the uncached path of the algorithm.
func (e *QueryEngine) compute(ctx context.Context, req QueryRequest) (QueryResult, error) {
	scored := e.index.WithinRadius(req.UserLocation, req.RadiusKm)
	if len(scored) == 0 {
		return QueryResult{Stats: QueryStats{}}, nil
	}

	ids := make([]domain.BranchId, 0, len(scored))
	distanceByID := make(map[string]domain.Distance, len(scored))
	for _, s := range scored {
		ids = append(ids, s.ID)
		distanceByID[s.ID.String()] = s.Distance
	}

	branches, err := e.store.FindByIDs(ctx, ids)
	if err != nil {
		return QueryResult{}, apperrors.ErrSearchUnavailable.WithDetails(map[string]interface{}{"cause": err.Error()})
	}

	typeSet := make(map[domain.BranchType]bool, len(req.BranchTypes))
	for _, t := range req.BranchTypes {
		typeSet[t] = true
	}

	var candidates []BranchDistance
	for _, b := range branches {
		if !b.Operational() {
			continue
		}
		if len(typeSet) > 0 && !typeSet[b.Type] {
			continue
		}
		if req.ServiceType != "" && !b.SupportsService(req.ServiceType) {
			continue
		}

		d := distanceByID[b.ID.String()]
		candidates = append(candidates, BranchDistance{
			Branch:     b,
			Distance:   d,
			DistanceKm: d.RoundedKm(),
		})
	}

	sortCandidates(candidates)

	stats := computeStats(candidates, req.RadiusKm)

	maxResults := req.MaxResults
	if maxResults > 0 && maxResults < len(candidates) {
		candidates = candidates[:maxResults]
	}

	return QueryResult{Branches: candidates, Stats: stats}, nil
}

// sortCandidates orders by ascending distance (rounded to meter precision),
// then descending BranchType priority, then ascending BranchId.
func sortCandidates(candidates []BranchDistance) {
	sort.SliceStable(candidates, func(i, j int) bool {
		di := math.Round(candidates[i].Distance.Km() * 1000)
		dj := math.Round(candidates[j].Distance.Km() * 1000)
		if di != dj {
			return di < dj
		}

		pi := candidates[i].Branch.Type.Priority()
		pj := candidates[j].Branch.Type.Priority()
		if pi != pj {
			return pi > pj
		}

		return candidates[i].Branch.ID.String() < candidates[j].Branch.ID.String()
	})
}

// computeStats summarizes the full candidate set (before maxResults
// truncation): count, mean distance, and density per km² of the searched
// disk (candidateCount / (pi * radiusKm^2)).
func computeStats(candidates []BranchDistance, radiusKm float64) QueryStats {
	if len(candidates) == 0 {
		return QueryStats{}
	}

	var sum float64
	for _, c := range candidates {
		sum += c.Distance.Km()
	}
	avg := sum / float64(len(candidates))

	var density float64
	if radiusKm > 0 {
		area := math.Pi * radiusKm * radiusKm
		density = float64(len(candidates)) / area
	}

	return QueryStats{
		TotalCandidates: len(candidates),
		AvgDistanceKm:   roundTo(avg, 3),
		DensityPerKm2:   roundTo(density, 6),
	}
}

func roundTo(v float64, places int) float64 {
	mult := math.Pow(10, float64(places))
	return math.Round(v*mult) / mult
}

// buildCacheKey quantizes coordinates to 6 decimal places and folds the
// remaining query parameters into a deterministic key.
func buildCacheKey(req QueryRequest) string {
	latQ := quantize(req.UserLocation.Lat())
	lonQ := quantize(req.UserLocation.Lon())

	var b strings.Builder
	fmt.Fprintf(&b, "nearest:%s,%s:r%g:m%d", latQ, lonQ, req.RadiusKm, req.MaxResults)

	if len(req.BranchTypes) > 0 {
		types := make([]string, len(req.BranchTypes))
		for i, t := range req.BranchTypes {
			types[i] = string(t)
		}
		sort.Strings(types)
		b.WriteString(":t")
		b.WriteString(strings.Join(types, ","))
	}
	if req.ServiceType != "" {
		b.WriteString(":s")
		b.WriteString(strings.ToLower(req.ServiceType))
	}

	return b.String()
}

func quantize(v float64) string {
	return fmt.Sprintf("%.6f", v)
}
