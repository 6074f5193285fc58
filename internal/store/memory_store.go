package store

import (
	"context"
	"strings"
	"sync"

	"github.com/geobank/registry/internal/domain"
)

// MemoryStore is an in-process BranchStore backed by a RWMutex-guarded map,
// with secondary indexes by type and status maintained alongside. It is the
// backing store exercised by the registration/query engine unit tests; both
// cmd binaries always construct internal/store/postgres.BranchRepository.
type MemoryStore struct {
	mu       sync.RWMutex
	branches map[string]domain.Branch
	byType   map[domain.BranchType]map[string]bool
	byStatus map[domain.BranchStatus]map[string]bool
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		branches: make(map[string]domain.Branch),
		byType:   make(map[domain.BranchType]map[string]bool),
		byStatus: make(map[domain.BranchStatus]map[string]bool),
	}
}

func (s *MemoryStore) saveLocked(b domain.Branch) {
	key := b.ID.String()
	if old, ok := s.branches[key]; ok {
		s.unindexLocked(key, old)
	}

	s.branches[key] = b
	s.indexLocked(key, b)
}

func (s *MemoryStore) indexLocked(key string, b domain.Branch) {
	if s.byType[b.Type] == nil {
		s.byType[b.Type] = make(map[string]bool)
	}
	s.byType[b.Type][key] = true

	if s.byStatus[b.Status] == nil {
		s.byStatus[b.Status] = make(map[string]bool)
	}
	s.byStatus[b.Status][key] = true
}

func (s *MemoryStore) unindexLocked(key string, old domain.Branch) {
	delete(s.byType[old.Type], key)
	delete(s.byStatus[old.Status], key)
}

// Save implements BranchStore.
func (s *MemoryStore) Save(_ context.Context, b domain.Branch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveLocked(b)
	return nil
}

// SaveAll implements BranchStore with all-or-nothing visibility: the whole
// batch is applied under a single write-lock hold, so concurrent readers
// never observe a partially-applied batch.
func (s *MemoryStore) SaveAll(_ context.Context, bs []domain.Branch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range bs {
		s.saveLocked(b)
	}
	return nil
}

// FindByID implements BranchStore.
func (s *MemoryStore) FindByID(_ context.Context, id domain.BranchId) (domain.Branch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.branches[id.String()]
	if !ok {
		return domain.Branch{}, ErrNotFound
	}
	return b, nil
}

// DeleteByID implements BranchStore.
func (s *MemoryStore) DeleteByID(_ context.Context, id domain.BranchId) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := id.String()
	old, ok := s.branches[key]
	if !ok {
		return nil
	}
	s.unindexLocked(key, old)
	delete(s.branches, key)
	return nil
}

// FindAll implements BranchStore.
func (s *MemoryStore) FindAll(_ context.Context) ([]domain.Branch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Branch, 0, len(s.branches))
	for _, b := range s.branches {
		out = append(out, b)
	}
	return out, nil
}

// FindByTypes implements BranchStore.
func (s *MemoryStore) FindByTypes(_ context.Context, types []domain.BranchType) ([]domain.Branch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(types) == 0 {
		out := make([]domain.Branch, 0, len(s.branches))
		for _, b := range s.branches {
			out = append(out, b)
		}
		return out, nil
	}

	var out []domain.Branch
	for _, t := range types {
		for key := range s.byType[t] {
			out = append(out, s.branches[key])
		}
	}
	return out, nil
}

// FindByIDs implements BranchStore.
func (s *MemoryStore) FindByIDs(_ context.Context, ids []domain.BranchId) ([]domain.Branch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Branch, 0, len(ids))
	for _, id := range ids {
		if b, ok := s.branches[id.String()]; ok {
			out = append(out, b)
		}
	}
	return out, nil
}

// SearchByText implements BranchStore with a case-insensitive substring scan
// over name and address.
func (s *MemoryStore) SearchByText(_ context.Context, substring string) ([]domain.Branch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(substring)
	var out []domain.Branch
	for _, b := range s.branches {
		if strings.Contains(strings.ToLower(b.Name), needle) || strings.Contains(strings.ToLower(b.Address), needle) {
			out = append(out, b)
		}
	}
	return out, nil
}

// Count implements BranchStore.
func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.branches), nil
}

// CountByType implements BranchStore.
func (s *MemoryStore) CountByType(_ context.Context, t domain.BranchType) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byType[t]), nil
}
