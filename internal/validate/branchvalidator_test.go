package validate_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geobank/registry/internal/domain"
	"github.com/geobank/registry/internal/validate"
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

func TestValidateRegistration_TooClose(t *testing.T) {
	v := validate.NewBranchValidator()
	now := time.Now()

	existing := mustPoint(t, -23.5505, -46.6333)
	candidateLoc := mustPoint(t, -23.5506, -46.6334) // ~14m away

	candidate := domain.NewBranch(mustID(t, "NEWBR"), candidateLoc, domain.Traditional, "New", "Addr", "", now)
	nearby := []validate.NearbyBranch{
		{ID: mustID(t, "OLDBR"), Location: existing, Type: domain.Traditional},
	}

	err := v.ValidateRegistration(candidate, nearby, nearby)
	require.Error(t, err)
	rv, ok := err.(*validate.RuleViolation)
	require.True(t, ok)
	assert.Equal(t, validate.RuleTooClose, rv.Tag)
	assert.Equal(t, "OLDBR", rv.BranchID)
}

func TestValidateRegistration_ExactlyZeroDistanceFails(t *testing.T) {
	v := validate.NewBranchValidator()
	now := time.Now()
	loc := mustPoint(t, -23.5505, -46.6333)

	candidate := domain.NewBranch(mustID(t, "DUP"), loc, domain.Traditional, "Dup", "Addr", "", now)
	nearby := []validate.NearbyBranch{{ID: mustID(t, "ORIG"), Location: loc, Type: domain.Traditional}}

	err := v.ValidateRegistration(candidate, nearby, nearby)
	require.Error(t, err)
}

func TestValidateRegistration_AreaSaturated(t *testing.T) {
	v := validate.NewBranchValidator()
	now := time.Now()
	center := mustPoint(t, -23.55, -46.63)

	var saturationNearby []validate.NearbyBranch
	for i := 0; i < 10; i++ {
		// spread branches along a line, comfortably within 5km, comfortably
		// more than 0.5km apart from each other.
		p := mustPoint(t, -23.55+float64(i-5)*0.008, -46.63)
		saturationNearby = append(saturationNearby, validate.NearbyBranch{
			ID:       mustID(t, "ATM"+string(rune('A'+i))),
			Location: p,
			Type:     domain.ATMOnly,
		})
	}

	candidate := domain.NewBranch(mustID(t, "NEWTRAD"), center, domain.Traditional, "New", "Addr", "", now)

	err := v.ValidateRegistration(candidate, nil, saturationNearby)
	require.Error(t, err)
	rv, ok := err.(*validate.RuleViolation)
	require.True(t, ok)
	assert.Equal(t, validate.RuleAreaSaturated, rv.Tag)
}

func TestValidateRegistration_AreaSaturated_OnlyAppliesToTraditional(t *testing.T) {
	v := validate.NewBranchValidator()
	now := time.Now()
	center := mustPoint(t, -23.55, -46.63)

	var saturationNearby []validate.NearbyBranch
	for i := 0; i < 10; i++ {
		p := mustPoint(t, -23.55+float64(i-5)*0.008, -46.63)
		saturationNearby = append(saturationNearby, validate.NearbyBranch{
			ID:       mustID(t, "ATM"+string(rune('A'+i))),
			Location: p,
			Type:     domain.ATMOnly,
		})
	}

	candidate := domain.NewBranch(mustID(t, "NEWATM"), center, domain.ATMOnly, "New", "Addr", "", now)

	err := v.ValidateRegistration(candidate, nil, saturationNearby)
	assert.NoError(t, err)
}

func TestValidateStatusTransition_PermanentlyClosedIsTerminal(t *testing.T) {
	err := validate.ValidateStatusTransition(domain.StatusPermanentlyClosed, domain.StatusActive)
	require.Error(t, err)
}

func TestValidateStatusTransition_ActiveCannotJumpToPermanentlyClosed(t *testing.T) {
	err := validate.ValidateStatusTransition(domain.StatusActive, domain.StatusPermanentlyClosed)
	require.Error(t, err)
}

func TestValidateStatusTransition_ActiveToTemporarilyClosedAllowed(t *testing.T) {
	err := validate.ValidateStatusTransition(domain.StatusActive, domain.StatusTemporarilyClosed)
	assert.NoError(t, err)
}

func TestValidateStatusTransition_TemporarilyClosedToPermanentlyClosedAllowed(t *testing.T) {
	err := validate.ValidateStatusTransition(domain.StatusTemporarilyClosed, domain.StatusPermanentlyClosed)
	assert.NoError(t, err)
}

func TestRegulatoryCompliance_RequiresPhone(t *testing.T) {
	now := time.Now()
	b := domain.NewBranch(mustID(t, "NOPHONE"), mustPoint(t, 0, 0), domain.Digital, "X", "Addr", "", now)
	err := validate.RegulatoryCompliance(b)
	assert.Error(t, err)
}
