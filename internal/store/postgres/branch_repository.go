package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/geobank/registry/internal/domain"
	"github.com/geobank/registry/internal/store"
)

// branchRow mirrors the `branches` table layout for sqlx scanning.
type branchRow struct {
	ID           string    `db:"id"`
	Lat          float64   `db:"lat"`
	Lon          float64   `db:"lon"`
	Type         string    `db:"type"`
	Status       string    `db:"status"`
	Name         string    `db:"name"`
	Address      string    `db:"address"`
	ContactPhone string    `db:"contact_phone"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r branchRow) toDomain() (domain.Branch, error) {
	id, err := domain.NewBranchId(r.ID)
	if err != nil {
		return domain.Branch{}, err
	}
	loc, err := domain.NewGeoPoint(r.Lat, r.Lon)
	if err != nil {
		return domain.Branch{}, err
	}
	return domain.Branch{
		ID:           id,
		Location:     loc,
		Type:         domain.BranchType(r.Type),
		Status:       domain.BranchStatus(r.Status),
		Name:         r.Name,
		Address:      r.Address,
		ContactPhone: r.ContactPhone,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}, nil
}

func fromDomain(b domain.Branch) branchRow {
	return branchRow{
		ID:           b.ID.String(),
		Lat:          b.Location.Lat(),
		Lon:          b.Location.Lon(),
		Type:         string(b.Type),
		Status:       string(b.Status),
		Name:         b.Name,
		Address:      b.Address,
		ContactPhone: b.ContactPhone,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
}

// BranchRepository persists branches in the `branches` table. It implements
// store.BranchStore with an sqlx query shape: sql.ErrNoRows translates to a
// typed not-found error, and failures are logged via zap.
type BranchRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewBranchRepository builds a BranchRepository over an open DB connection.
func NewBranchRepository(db *DB) *BranchRepository {
	return &BranchRepository{db: db.DB, logger: db.logger}
}

const upsertBranchSQL = `
INSERT INTO branches (id, lat, lon, type, status, name, address, contact_phone, created_at, updated_at)
VALUES (:id, :lat, :lon, :type, :status, :name, :address, :contact_phone, :created_at, :updated_at)
ON CONFLICT (id) DO UPDATE SET
	lat = EXCLUDED.lat,
	lon = EXCLUDED.lon,
	type = EXCLUDED.type,
	status = EXCLUDED.status,
	name = EXCLUDED.name,
	address = EXCLUDED.address,
	contact_phone = EXCLUDED.contact_phone,
	updated_at = EXCLUDED.updated_at
`

// Save implements store.BranchStore.
func (r *BranchRepository) Save(ctx context.Context, b domain.Branch) error {
	_, err := r.db.NamedExecContext(ctx, upsertBranchSQL, fromDomain(b))
	if err != nil {
		r.logger.Error("failed to save branch", zap.String("id", b.ID.String()), zap.Error(err))
		return fmt.Errorf("save branch: %w", err)
	}
	return nil
}

// SaveAll implements store.BranchStore as a single transaction: all rows
// commit together or none do, preserving all-or-nothing visibility for
// concurrent readers.
func (r *BranchRepository) SaveAll(ctx context.Context, bs []domain.Branch) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, b := range bs {
		if _, err := tx.NamedExecContext(ctx, upsertBranchSQL, fromDomain(b)); err != nil {
			r.logger.Error("failed to save branch in batch", zap.String("id", b.ID.String()), zap.Error(err))
			return fmt.Errorf("save branch %s: %w", b.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch save: %w", err)
	}
	return nil
}

// FindByID implements store.BranchStore.
func (r *BranchRepository) FindByID(ctx context.Context, id domain.BranchId) (domain.Branch, error) {
	var row branchRow
	err := r.db.GetContext(ctx, &row, `SELECT * FROM branches WHERE id = $1`, id.String())
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Branch{}, store.ErrNotFound
	}
	if err != nil {
		r.logger.Error("failed to find branch", zap.String("id", id.String()), zap.Error(err))
		return domain.Branch{}, fmt.Errorf("find branch: %w", err)
	}
	return row.toDomain()
}

// DeleteByID implements store.BranchStore.
func (r *BranchRepository) DeleteByID(ctx context.Context, id domain.BranchId) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM branches WHERE id = $1`, id.String())
	if err != nil {
		r.logger.Error("failed to delete branch", zap.String("id", id.String()), zap.Error(err))
		return fmt.Errorf("delete branch: %w", err)
	}
	return nil
}

// FindAll implements store.BranchStore.
func (r *BranchRepository) FindAll(ctx context.Context) ([]domain.Branch, error) {
	var rows []branchRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT * FROM branches`); err != nil {
		r.logger.Error("failed to find all branches", zap.Error(err))
		return nil, fmt.Errorf("find all branches: %w", err)
	}
	return rowsToDomain(rows)
}

// FindByTypes implements store.BranchStore.
func (r *BranchRepository) FindByTypes(ctx context.Context, types []domain.BranchType) ([]domain.Branch, error) {
	if len(types) == 0 {
		return r.FindAll(ctx)
	}

	query, args, err := sqlx.In(`SELECT * FROM branches WHERE type IN (?)`, typesToStrings(types))
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	query = r.db.Rebind(query)

	var rows []branchRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.Error("failed to find branches by type", zap.Error(err))
		return nil, fmt.Errorf("find by types: %w", err)
	}
	return rowsToDomain(rows)
}

// FindByIDs implements store.BranchStore.
func (r *BranchRepository) FindByIDs(ctx context.Context, ids []domain.BranchId) ([]domain.Branch, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	strIDs := make([]string, len(ids))
	for i, id := range ids {
		strIDs[i] = id.String()
	}

	query, args, err := sqlx.In(`SELECT * FROM branches WHERE id IN (?)`, strIDs)
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	query = r.db.Rebind(query)

	var rows []branchRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.Error("failed to find branches by ids", zap.Error(err))
		return nil, fmt.Errorf("find by ids: %w", err)
	}
	return rowsToDomain(rows)
}

// SearchByText implements store.BranchStore with a case-insensitive ILIKE
// scan over name and address.
func (r *BranchRepository) SearchByText(ctx context.Context, substring string) ([]domain.Branch, error) {
	pattern := "%" + strings.ReplaceAll(substring, "%", `\%`) + "%"

	var rows []branchRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT * FROM branches WHERE name ILIKE $1 OR address ILIKE $1`, pattern)
	if err != nil {
		r.logger.Error("failed to search branches by text", zap.Error(err))
		return nil, fmt.Errorf("search by text: %w", err)
	}
	return rowsToDomain(rows)
}

// Count implements store.BranchStore.
func (r *BranchRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM branches`); err != nil {
		return 0, fmt.Errorf("count branches: %w", err)
	}
	return n, nil
}

// CountByType implements store.BranchStore.
func (r *BranchRepository) CountByType(ctx context.Context, t domain.BranchType) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM branches WHERE type = $1`, string(t)); err != nil {
		return 0, fmt.Errorf("count branches by type: %w", err)
	}
	return n, nil
}

func rowsToDomain(rows []branchRow) ([]domain.Branch, error) {
	out := make([]domain.Branch, 0, len(rows))
	for _, row := range rows {
		b, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func typesToStrings(types []domain.BranchType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}
