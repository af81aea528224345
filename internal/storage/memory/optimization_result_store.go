package memory

import (
	"context"
	"sort"
	"sync"

	"strataquant/internal/domain"
	"strataquant/internal/storage"
)

// OptimizationResultStore is an in-memory implementation of storage.OptimizationResultStore.
type OptimizationResultStore struct {
	mu   sync.RWMutex
	data map[string][]domain.OptimizationResult // keyed by sweep_id
}

// NewOptimizationResultStore creates a new in-memory optimization result store.
func NewOptimizationResultStore() *OptimizationResultStore {
	return &OptimizationResultStore{
		data: make(map[string][]domain.OptimizationResult),
	}
}

// Compile-time interface check.
var _ storage.OptimizationResultStore = (*OptimizationResultStore)(nil)

// InsertBulk adds all results of a sweep. Returns ErrDuplicateKey if the sweep
// exists or the batch repeats a (fast, slow) pair.
func (s *OptimizationResultStore) InsertBulk(_ context.Context, sweepID string, results []domain.OptimizationResult) error {
	if sweepID == "" {
		return storage.ErrInvalidInput
	}
	if len(results) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[sweepID]; exists {
		return storage.ErrDuplicateKey
	}

	seen := make(map[[2]int]struct{}, len(results))
	for _, r := range results {
		k := [2]int{r.FastPeriod, r.SlowPeriod}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	stored := append([]domain.OptimizationResult(nil), results...)
	sort.Slice(stored, func(i, j int) bool {
		if stored[i].FastPeriod != stored[j].FastPeriod {
			return stored[i].FastPeriod < stored[j].FastPeriod
		}
		return stored[i].SlowPeriod < stored[j].SlowPeriod
	})
	s.data[sweepID] = stored
	return nil
}

// GetBySweepID retrieves a sweep's results. Returns ErrNotFound if not exists.
func (s *OptimizationResultStore) GetBySweepID(_ context.Context, sweepID string) ([]domain.OptimizationResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results, exists := s.data[sweepID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return append([]domain.OptimizationResult(nil), results...), nil
}
