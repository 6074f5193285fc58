package domain

import (
	"encoding/json"
	"fmt"
)

// GeoPoint is an immutable (lat, lon) pair. Valid construction guarantees
// -90 <= Lat <= 90 and -180 <= Lon <= 180 for the lifetime of the value.
type GeoPoint struct {
	lat float64
	lon float64
}

// NewGeoPoint validates lat/lon and returns a GeoPoint, or an error if the
// coordinates fall outside the valid domain range.
func NewGeoPoint(lat, lon float64) (GeoPoint, error) {
	if lat < -90 || lat > 90 {
		return GeoPoint{}, fmt.Errorf("latitude %f out of range [-90, 90]", lat)
	}
	if lon < -180 || lon > 180 {
		return GeoPoint{}, fmt.Errorf("longitude %f out of range [-180, 180]", lon)
	}
	return GeoPoint{lat: lat, lon: lon}, nil
}

// Lat returns the latitude in degrees.
func (p GeoPoint) Lat() float64 { return p.lat }

// Lon returns the longitude in degrees.
func (p GeoPoint) Lon() float64 { return p.lon }

func (p GeoPoint) String() string {
	return fmt.Sprintf("(%.6f, %.6f)", p.lat, p.lon)
}

type geoPointWire struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// MarshalJSON exposes the otherwise-unexported lat/lon pair, since GeoPoint
// is embedded in API response bodies (branch registration/query results).
func (p GeoPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(geoPointWire{Lat: p.lat, Lon: p.lon})
}

// UnmarshalJSON restores a GeoPoint written by MarshalJSON, bypassing range
// validation since the value was already validated before it was persisted
// or cached.
func (p *GeoPoint) UnmarshalJSON(data []byte) error {
	var w geoPointWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	p.lat = w.Lat
	p.lon = w.Lon
	return nil
}
