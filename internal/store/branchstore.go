// Package store implements the branch store: the authoritative, key-value
// set over domain.Branch keyed by domain.BranchId. The spatial index and
// the caches are derivable from it; it is the source of truth.
package store

import (
	"context"

	"github.com/geobank/registry/internal/domain"
)

// BranchStore is the capability set the registration and query engines
// depend on. Concrete adapters (in-memory, Postgres) implement it; engines
// are constructed with an explicit BranchStore value rather than
// discovering one through a framework container.
type BranchStore interface {
	// Save inserts or replaces the branch with the given ID. Per-record
	// save is atomic: concurrent readers never observe a half-written
	// Branch.
	Save(ctx context.Context, b domain.Branch) error

	// SaveAll persists every branch in bs as a single unit: concurrent
	// readers see either none or all of them, never a partial set.
	SaveAll(ctx context.Context, bs []domain.Branch) error

	// FindByID returns the branch with the given id, or ErrNotFound.
	FindByID(ctx context.Context, id domain.BranchId) (domain.Branch, error)

	// DeleteByID removes a branch. Reserved for administrative tooling —
	// the core registration/query path never calls it.
	DeleteByID(ctx context.Context, id domain.BranchId) error

	// FindAll returns every branch in the store, used for spatial-index
	// reconstruction on startup and by the reconciler.
	FindAll(ctx context.Context) ([]domain.Branch, error)

	// FindByTypes returns every branch whose Type is in types. An empty
	// types set returns every branch.
	FindByTypes(ctx context.Context, types []domain.BranchType) ([]domain.Branch, error)

	// FindByIDs returns the branches matching the given ids, skipping any
	// that are not found, preserving no particular order.
	FindByIDs(ctx context.Context, ids []domain.BranchId) ([]domain.Branch, error)

	// SearchByText does a case-insensitive substring match against name and
	// address.
	SearchByText(ctx context.Context, substring string) ([]domain.Branch, error)

	// Count returns the total number of branches in the store.
	Count(ctx context.Context) (int, error)

	// CountByType returns the number of branches of the given type.
	CountByType(ctx context.Context, t domain.BranchType) (int, error)
}

// ErrNotFound is returned by FindByID when no branch has the given id.
var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "branch not found" }
