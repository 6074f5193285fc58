package proximity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/geobank/registry/internal/cache"
	"github.com/geobank/registry/internal/domain"
	"github.com/geobank/registry/internal/eventsink"
	"github.com/geobank/registry/internal/geoindex"
	apperrors "github.com/geobank/registry/internal/pkg/errors"
	"github.com/geobank/registry/internal/store"
	"github.com/geobank/registry/internal/validate"
)

const (
	maxNameLength    = 100
	maxAddressLength = 255
	// minDistanceRadiusKm and saturationRadiusKm are the fixed radii the
	// engine queries the spatial index with before handing the candidates
	// to the validator; they mirror validate.MinInterBranchKm and
	// validate.SaturationRadiusKm rather than re-deriving them, so the
	// default validator thresholds and the index scan radius never drift
	// apart silently. A validator whose threshold fields are changed after
	// NewBranchValidator is not followed: the scan radii stay at these values.
	minDistanceRadiusKm = validate.MinInterBranchKm
	saturationRadiusKm  = validate.SaturationRadiusKm
)

// RegistrationEngine is the branch registration use case: validate, check
// business rules against the spatial index's nearby candidates, persist,
// index, invalidate, and publish — in that order.
type RegistrationEngine struct {
	index     *geoindex.Index
	store     store.BranchStore
	validator *validate.BranchValidator
	cache     *cache.TwoTier
	sink      eventsink.EventSink
	logger    *zap.Logger
}

// NewRegistrationEngine builds a RegistrationEngine from its collaborators.
func NewRegistrationEngine(
	index *geoindex.Index,
	branchStore store.BranchStore,
	validator *validate.BranchValidator,
	c *cache.TwoTier,
	sink eventsink.EventSink,
	logger *zap.Logger,
) *RegistrationEngine {
	return &RegistrationEngine{index: index, store: branchStore, validator: validator, cache: c, sink: sink, logger: logger}
}

// Register executes the registration algorithm and returns the stored
// branch with its server-assigned id and timestamps.
func (e *RegistrationEngine) Register(ctx context.Context, req RegistrationRequest) (domain.Branch, error) {
	if err := validateShape(req); err != nil {
		return domain.Branch{}, err
	}

	id, err := resolveBranchID(req.ID)
	if err != nil {
		return domain.Branch{}, apperrors.ErrInvalidInput.WithDetails(map[string]interface{}{"cause": err.Error()})
	}

	candidate := domain.NewBranch(id, req.Location, req.Type, req.Name, req.Address, req.ContactPhone, time.Now())

	minNearby := e.nearbyView(e.index.WithinRadius(req.Location, minDistanceRadiusKm))
	satNearby := minNearby
	if saturationRadiusKm > minDistanceRadiusKm {
		satNearby = e.nearbyView(e.index.WithinRadius(req.Location, saturationRadiusKm))
	}

	operationalMin, err := e.filterOperational(ctx, minNearby)
	if err != nil {
		return domain.Branch{}, err
	}
	operationalSat, err := e.filterOperational(ctx, satNearby)
	if err != nil {
		return domain.Branch{}, err
	}

	if err := e.validator.ValidateRegistration(candidate, operationalMin, operationalSat); err != nil {
		if rv, ok := err.(*validate.RuleViolation); ok {
			return domain.Branch{}, apperrors.NewRuleViolation(string(rv.Tag), rv.BranchID)
		}
		return domain.Branch{}, apperrors.NewRuleViolation("UNKNOWN", "")
	}

	// Step 5: store first, index second. If the process crashes between
	// these two calls the store remains correct and the index is merely
	// stale for this one id — the reconciler repairs it; swapping this
	// order would let a concurrent query observe the id in the index but
	// fail to hydrate it from the store.
	if err := e.store.Save(ctx, candidate); err != nil {
		return domain.Branch{}, apperrors.ErrStoreUnavailable.WithDetails(map[string]interface{}{"cause": err.Error()})
	}

	e.index.Insert(candidate.ID, candidate.Location)

	e.cache.EvictByPattern(ctx, "nearest:*")
	e.cache.EvictByPattern(ctx, "branches:*")

	event := eventsink.NewBranchRegistered(
		candidate.ID.String(), candidate.Name, string(candidate.Type),
		candidate.Location.Lat(), candidate.Location.Lon(),
		candidate.CreatedAt, req.CorrelationID,
	)
	e.sink.PublishAsync("BRANCH_REGISTERED", event)

	return candidate, nil
}

// nearbyView converts spatial-index scan results into the bare id list the
// store needs to hydrate full Branch records.
func (e *RegistrationEngine) nearbyView(scored []geoindex.ScoredID) []domain.BranchId {
	ids := make([]domain.BranchId, len(scored))
	for i, s := range scored {
		ids[i] = s.ID
	}
	return ids
}

// filterOperational hydrates ids from the store and narrows them to
// operational branches, in the validate.NearbyBranch shape the business
// validator expects.
func (e *RegistrationEngine) filterOperational(ctx context.Context, ids []domain.BranchId) ([]validate.NearbyBranch, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	branches, err := e.store.FindByIDs(ctx, ids)
	if err != nil {
		return nil, apperrors.ErrStoreUnavailable.WithDetails(map[string]interface{}{"cause": err.Error()})
	}

	out := make([]validate.NearbyBranch, 0, len(branches))
	for _, b := range branches {
		if !b.Operational() {
			continue
		}
		out = append(out, validate.NearbyBranch{ID: b.ID, Location: b.Location, Type: b.Type})
	}
	return out, nil
}

// validateShape enforces the request's input-shape rules.
func validateShape(req RegistrationRequest) error {
	name := req.Name
	if name == "" || len(name) > maxNameLength {
		return apperrors.ErrInvalidInput.WithDetails(map[string]interface{}{"field": "name"})
	}
	if req.Address == "" || len(req.Address) > maxAddressLength {
		return apperrors.ErrInvalidInput.WithDetails(map[string]interface{}{"field": "address"})
	}
	if !req.Type.Valid() {
		return apperrors.ErrInvalidInput.WithDetails(map[string]interface{}{"field": "type"})
	}
	return nil
}

// resolveBranchID returns a validated BranchId for raw, or generates a fresh
// UUID-backed one when raw is empty.
func resolveBranchID(raw string) (domain.BranchId, error) {
	if raw == "" {
		id, err := domain.NewBranchId(uuid.NewString())
		if err != nil {
			return domain.BranchId{}, fmt.Errorf("generated uuid failed validation: %w", err)
		}
		return id, nil
	}
	return domain.NewBranchId(raw)
}
