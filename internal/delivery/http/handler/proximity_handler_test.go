package handler_test

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/geobank/registry/internal/cache"
	"github.com/geobank/registry/internal/config"
	"github.com/geobank/registry/internal/delivery/http/handler"
	"github.com/geobank/registry/internal/domain"
	"github.com/geobank/registry/internal/eventsink"
	"github.com/geobank/registry/internal/geoindex"
	"github.com/geobank/registry/internal/proximity"
	"github.com/geobank/registry/internal/store"
)

func newTestProximityHandler(t *testing.T) *handler.ProximityHandler {
	t.Helper()

	idx := geoindex.New()
	s := store.NewMemoryStore()

	id, err := domain.NewBranchId("AAAA1111")
	require.NoError(t, err)
	loc, err := domain.NewGeoPoint(40.0000, -3.0000)
	require.NoError(t, err)
	b := domain.NewBranch(id, loc, domain.Traditional, "Branch AAAA1111", "Address 1", "555-0100", time.Now())
	b.Status = domain.StatusActive
	require.NoError(t, s.Save(t.Context(), b))
	idx.Insert(id, loc)

	l1, err := cache.NewL1(1000, time.Minute, 0)
	require.NoError(t, err)
	twoTier := cache.New(l1, nil, nil, zap.NewNop())
	sink := eventsink.NewFakeSink()
	engine := proximity.NewQueryEngine(idx, s, twoTier, sink, zap.NewNop())

	search := config.SearchConfig{
		DefaultRadiusKm:   5,
		MaxRadiusKm:       50,
		DefaultMaxResults: 10,
		MaxResults:        50,
	}
	return handler.NewProximityHandler(engine, search, zap.NewNop())
}

func newTestApp(h *handler.ProximityHandler) *fiber.App {
	app := fiber.New()
	app.Get("/nearest", h.Nearest)
	app.Get("/desafio/nearest", h.NearestLegacy)
	return app
}

func TestProximityHandler_Nearest_RejectsExplicitZeroRadius(t *testing.T) {
	app := newTestApp(newTestProximityHandler(t))

	req := httptest.NewRequest("GET", "/nearest?lat=40.0000&lon=-3.0000&radiusKm=0", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestProximityHandler_Nearest_RejectsNegativeRadius(t *testing.T) {
	app := newTestApp(newTestProximityHandler(t))

	req := httptest.NewRequest("GET", "/nearest?lat=40.0000&lon=-3.0000&radiusKm=-1", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestProximityHandler_Nearest_RejectsExplicitZeroMaxResults(t *testing.T) {
	app := newTestApp(newTestProximityHandler(t))

	req := httptest.NewRequest("GET", "/nearest?lat=40.0000&lon=-3.0000&maxResults=0", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestProximityHandler_Nearest_AbsentRadiusAndMaxResultsApplyDefaults(t *testing.T) {
	app := newTestApp(newTestProximityHandler(t))

	req := httptest.NewRequest("GET", "/nearest?lat=40.0000&lon=-3.0000", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestProximityHandler_NearestLegacy_RejectsExplicitZeroRadius(t *testing.T) {
	app := newTestApp(newTestProximityHandler(t))

	req := httptest.NewRequest("GET", "/desafio/nearest?posX=-3.0000&posY=40.0000&radius=0", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestProximityHandler_NearestLegacy_RejectsExplicitZeroLimite(t *testing.T) {
	app := newTestApp(newTestProximityHandler(t))

	req := httptest.NewRequest("GET", "/desafio/nearest?posX=-3.0000&posY=40.0000&limite=0", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestProximityHandler_NearestLegacy_RejectsNegativeLimite(t *testing.T) {
	app := newTestApp(newTestProximityHandler(t))

	req := httptest.NewRequest("GET", "/desafio/nearest?posX=-3.0000&posY=40.0000&limite=-5", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestProximityHandler_NearestLegacy_AbsentParamsApplyDefaults(t *testing.T) {
	app := newTestApp(newTestProximityHandler(t))

	req := httptest.NewRequest("GET", "/desafio/nearest?posX=-3.0000&posY=40.0000", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
