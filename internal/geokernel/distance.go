// Package geokernel is the pure, stateless great-circle distance and
// bearing kernel. It is total on valid domain.GeoPoint values and
// performs no rounding internally — rounding only happens at the external
// API boundary (domain.Distance.RoundedKm).
package geokernel

import (
	"math"

	"github.com/geobank/registry/internal/domain"
)

// earthRadiusKm is the mean Earth radius used for the Haversine formula.
const earthRadiusKm = 6371.0

// Distance computes the great-circle (Haversine) distance between a and b.
func Distance(a, b domain.GeoPoint) domain.Distance {
	lat1 := a.Lat() * math.Pi / 180.0
	lat2 := b.Lat() * math.Pi / 180.0
	dLat := (b.Lat() - a.Lat()) * math.Pi / 180.0
	dLon := (b.Lon() - a.Lon()) * math.Pi / 180.0

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return domain.NewDistance(earthRadiusKm * c)
}

// Bearing computes the initial compass bearing from a to b, in degrees,
// normalized to [0, 360).
func Bearing(a, b domain.GeoPoint) float64 {
	lat1 := a.Lat() * math.Pi / 180.0
	lat2 := b.Lat() * math.Pi / 180.0
	dLon := (b.Lon() - a.Lon()) * math.Pi / 180.0

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)

	theta := math.Atan2(y, x) * 180.0 / math.Pi
	return math.Mod(theta+360.0, 360.0)
}

// BoundingBoxDegrees returns a cheap degree-box half-width (dLat, dLon)
// around center sized so that any point within radiusKm lies inside the box.
// It is a pre-filter only — callers must still admit candidates through
// Distance to avoid false positives at high latitudes (the box widens in
// longitude near the poles in a way a naive degree radius would not).
func BoundingBoxDegrees(center domain.GeoPoint, radiusKm float64) (dLat, dLon float64) {
	dLat = radiusKm / 111.0
	cosLat := math.Cos(center.Lat() * math.Pi / 180.0)
	if cosLat < 1e-6 {
		cosLat = 1e-6
	}
	dLon = radiusKm / (111.0 * cosLat)
	return dLat, dLon
}
