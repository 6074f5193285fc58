package geokernel_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/geobank/registry/internal/domain"
	"github.com/geobank/registry/internal/geokernel"
)

func pt(t *testing.T, lat, lon float64) domain.GeoPoint {
	t.Helper()
	p, err := domain.NewGeoPoint(lat, lon)
	if err != nil {
		t.Fatalf("NewGeoPoint(%f, %f): %v", lat, lon, err)
	}
	return p
}

func TestDistance_SamePointIsZero(t *testing.T) {
	p := pt(t, -23.5505, -46.6333)
	d := geokernel.Distance(p, p)
	assert.InDelta(t, 0.0, d.Km(), 1e-9)
}

func TestDistance_Symmetric(t *testing.T) {
	a := pt(t, -23.5505, -46.6333)
	b := pt(t, -22.9068, -43.1729)

	assert.InDelta(t, geokernel.Distance(a, b).Km(), geokernel.Distance(b, a).Km(), 1e-9)
}

func TestDistance_NonNegative(t *testing.T) {
	a := pt(t, 10, 10)
	b := pt(t, -10, -10)
	assert.GreaterOrEqual(t, geokernel.Distance(a, b).Km(), 0.0)
}

func TestDistance_TriangleInequality(t *testing.T) {
	p := pt(t, -23.5505, -46.6333)
	q := pt(t, -22.9068, -43.1729)
	r := pt(t, 40.7128, -74.0060)

	pr := geokernel.Distance(p, r).Km()
	pq := geokernel.Distance(p, q).Km()
	qr := geokernel.Distance(q, r).Km()

	assert.LessOrEqual(t, pr, pq+qr+0.5)
}

func TestDistance_KnownSaoPauloRioPair(t *testing.T) {
	saoPaulo := pt(t, -23.5505, -46.6333)
	rio := pt(t, -22.9068, -43.1729)

	d := geokernel.Distance(saoPaulo, rio)
	// Known great-circle distance is ~357km; Haversine tolerance is the
	// spec's documented +-0.5%.
	assert.InDelta(t, 357.0, d.Km(), 10)
}

func TestDistance_ScenarioExamples(t *testing.T) {
	a := pt(t, -23.5505, -46.6333)
	b := pt(t, -23.5489, -46.6388)
	userLoc := pt(t, -23.5500, -46.6360)

	distToA := geokernel.Distance(userLoc, a)
	distToB := geokernel.Distance(userLoc, b)

	assert.InDelta(t, 0.25, distToA.Km(), 0.05)
	assert.InDelta(t, 0.22, distToB.Km(), 0.05)
}

func TestBearing_InRange(t *testing.T) {
	a := pt(t, -23.5505, -46.6333)
	b := pt(t, -22.9068, -43.1729)

	brg := geokernel.Bearing(a, b)
	assert.GreaterOrEqual(t, brg, 0.0)
	assert.Less(t, brg, 360.0)
}

func TestBearing_DueNorth(t *testing.T) {
	a := pt(t, 0, 0)
	b := pt(t, 1, 0)

	brg := geokernel.Bearing(a, b)
	assert.InDelta(t, 0.0, brg, 1e-6)
}

func TestBoundingBoxDegrees_WidensNearPoles(t *testing.T) {
	equator := pt(t, 0, 0)
	nearPole := pt(t, 89, 0)

	_, dLonEq := geokernel.BoundingBoxDegrees(equator, 10)
	_, dLonPole := geokernel.BoundingBoxDegrees(nearPole, 10)

	assert.Greater(t, dLonPole, dLonEq)
}

func TestDistance_RoundedKmOnlyAtBoundary(t *testing.T) {
	a := pt(t, 0, 0)
	b := pt(t, 0, 0.001)

	d := geokernel.Distance(a, b)
	rounded := d.RoundedKm()

	assert.Equal(t, math.Round(d.Km()*100)/100, rounded)
}
