// Package validate implements the business validator: the
// inter-branch-distance rule, the area-saturation rule, and the
// status-transition and regulatory-compliance checks.
//
// The hand-written business rules below follow an ordered rule list,
// stopping at first failure — no pack library expresses bespoke
// geo-business rules better than direct code, so this part is plain Go.
package validate

import (
	"fmt"

	"github.com/geobank/registry/internal/domain"
	"github.com/geobank/registry/internal/geokernel"
)

// RuleTag identifies which business rule rejected a candidate.
type RuleTag string

const (
	RuleTooClose        RuleTag = "TOO_CLOSE"
	RuleAreaSaturated   RuleTag = "AREA_SATURATED"
	RuleIllegalTransition RuleTag = "ILLEGAL_TRANSITION"
)

// RuleViolation is returned by the validators below on rejection.
type RuleViolation struct {
	Tag     RuleTag
	Message string
	// BranchID is the offending nearby branch for RuleTooClose; empty
	// otherwise.
	BranchID string
}

func (e *RuleViolation) Error() string {
	return fmt.Sprintf("%s: %s", e.Tag, e.Message)
}

const (
	// MinInterBranchKm is the default minimum great-circle distance
	// between any two operational branches (registration.minInterBranchKm).
	MinInterBranchKm = 0.5
	// SaturationRadiusKm is the default radius used for the area-saturation
	// check (registration.saturationRadiusKm).
	SaturationRadiusKm = 5.0
	// SaturationCount is the default operational-branch count threshold
	// that triggers area saturation (registration.saturationCount).
	SaturationCount = 10
)

// NearbyBranch is the minimal view of an existing operational branch the
// validator needs: its id, location, and type.
type NearbyBranch struct {
	ID       domain.BranchId
	Location domain.GeoPoint
	Type     domain.BranchType
}

// BranchValidator evaluates registration-time business rules. It is
// stateless and safe to call concurrently.
type BranchValidator struct {
	MinInterBranchKm   float64
	SaturationRadiusKm float64
	SaturationCount    int
}

// NewBranchValidator builds a validator with the spec's default thresholds.
func NewBranchValidator() *BranchValidator {
	return &BranchValidator{
		MinInterBranchKm:   MinInterBranchKm,
		SaturationRadiusKm: SaturationRadiusKm,
		SaturationCount:    SaturationCount,
	}
}

// ValidateRegistration runs the ordered rule list, stopping at the first
// failure. minDistanceNearby is the set of operational branches within
// MinInterBranchKm of candidate's location (used for rule 1); saturationNearby
// is the set within SaturationRadiusKm (used for rule 2) — the registration
// engine supplies both via index queries, never a full scan.
func (v *BranchValidator) ValidateRegistration(
	candidate domain.Branch,
	minDistanceNearby []NearbyBranch,
	saturationNearby []NearbyBranch,
) error {
	for _, e := range minDistanceNearby {
		d := geokernel.Distance(candidate.Location, e.Location)
		if d.Km() < v.MinInterBranchKm {
			return &RuleViolation{
				Tag:      RuleTooClose,
				Message:  fmt.Sprintf("candidate is %.3fkm from existing branch %s, minimum is %.1fkm", d.Km(), e.ID, v.MinInterBranchKm),
				BranchID: e.ID.String(),
			}
		}
	}

	if candidate.Type == domain.Traditional {
		count := 0
		for _, e := range saturationNearby {
			if geokernel.Distance(candidate.Location, e.Location).Km() <= v.SaturationRadiusKm {
				count++
			}
		}
		if count >= v.SaturationCount {
			return &RuleViolation{
				Tag:     RuleAreaSaturated,
				Message: fmt.Sprintf("%d operational branches already within %.1fkm, saturation threshold is %d", count, v.SaturationRadiusKm, v.SaturationCount),
			}
		}
	}

	return nil
}

// ValidateStatusTransition enforces the transition rules: a
// PERMANENTLY_CLOSED branch accepts no further change, ACTIVE cannot jump
// directly to PERMANENTLY_CLOSED (must pass through a temporary-closure
// state first), and any other transition must appear in the permitted set.
func ValidateStatusTransition(current, target domain.BranchStatus) error {
	if current == domain.StatusPermanentlyClosed {
		return &RuleViolation{
			Tag:     RuleIllegalTransition,
			Message: "branch is permanently closed; no further status changes are allowed",
		}
	}
	if current == domain.StatusActive && target == domain.StatusPermanentlyClosed {
		return &RuleViolation{
			Tag:     RuleIllegalTransition,
			Message: "active branches must pass through a temporary-closure state before permanent closure",
		}
	}
	if !current.CanTransitionTo(target) {
		return &RuleViolation{
			Tag:     RuleIllegalTransition,
			Message: fmt.Sprintf("transition %s -> %s is not permitted", current, target),
		}
	}
	return nil
}

// RegulatoryCompliance checks the administrative-flow-only rules: a
// non-empty contact phone and (trivially, since domain.GeoPoint already
// enforces it at construction) coordinates in global valid range.
func RegulatoryCompliance(b domain.Branch) error {
	if b.ContactPhone == "" {
		return &RuleViolation{
			Tag:     RuleTag("MISSING_CONTACT_PHONE"),
			Message: "contact phone is required for regulatory compliance",
		}
	}
	return nil
}
