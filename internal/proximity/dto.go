// Package proximity implements the query engine and registration engine:
// the two core orchestration use cases of the registry. Each is a struct
// holding its collaborating repositories/caches, with one exported method
// per operation following a validate -> repo -> transform -> dto shape.
package proximity

import (
	"github.com/geobank/registry/internal/domain"
)

// QueryRequest is the input to the query engine's Nearest operation.
type QueryRequest struct {
	UserLocation  domain.GeoPoint
	RadiusKm      float64
	MaxResults    int
	BranchTypes   []domain.BranchType // empty means no type filter
	ServiceType   string              // empty means no service filter
	CorrelationID string
	SessionID     string
}

// BranchDistance pairs a branch with its computed distance from the query's
// UserLocation.
type BranchDistance struct {
	Branch   domain.Branch   `json:"branch"`
	Distance domain.Distance `json:"-"`
	// DistanceKm duplicates Distance.RoundedKm() for JSON (de)serialization,
	// since domain.Distance has no exported fields of its own.
	DistanceKm float64 `json:"distanceKm"`
}

// QueryStats carries the summary statistics alongside the ranked branch
// list: total candidates in radius (before maxResults truncation), the mean
// distance among them, and their density in the searched disk.
type QueryStats struct {
	TotalCandidates int     `json:"totalCandidates"`
	AvgDistanceKm   float64 `json:"avgDistanceKm"`
	DensityPerKm2   float64 `json:"densityPerKm2"`
}

// QueryResult is the query engine's output, cached verbatim (minus CacheHit,
// which is always recomputed fresh) at the `nearest:*` cache key.
type QueryResult struct {
	Branches []BranchDistance `json:"branches"`
	Stats    QueryStats       `json:"stats"`
	CacheHit bool             `json:"-"`
}

// RegistrationRequest is the input to the registration engine's Register
// operation. ID is optional; when empty a fresh UUID is generated.
type RegistrationRequest struct {
	ID            string
	Name          string
	Address       string
	ContactPhone  string
	Location      domain.GeoPoint
	Type          domain.BranchType
	CorrelationID string
}
