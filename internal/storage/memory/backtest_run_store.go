package memory

import (
	"context"
	"sort"
	"sync"

	"strataquant/internal/domain"
	"strataquant/internal/storage"
)

// BacktestRunStore is an in-memory implementation of storage.BacktestRunStore.
type BacktestRunStore struct {
	mu   sync.RWMutex
	data map[string]*domain.BacktestRun
}

// NewBacktestRunStore creates a new in-memory backtest run store.
func NewBacktestRunStore() *BacktestRunStore {
	return &BacktestRunStore{
		data: make(map[string]*domain.BacktestRun),
	}
}

// Compile-time interface check.
var _ storage.BacktestRunStore = (*BacktestRunStore)(nil)

// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
func (s *BacktestRunStore) Insert(_ context.Context, run *domain.BacktestRun) error {
	if run == nil || run.RunID == "" || run.Result == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[run.RunID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[run.RunID] = copyRun(run)
	return nil
}

// GetByID retrieves a run by ID. Returns ErrNotFound if not exists.
func (s *BacktestRunStore) GetByID(_ context.Context, runID string) (*domain.BacktestRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, exists := s.data[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyRun(run), nil
}

// ListByStrategy retrieves runs of a strategy, ordered by created_at ASC, run_id ASC.
func (s *BacktestRunStore) ListByStrategy(_ context.Context, strategyID string) ([]*domain.BacktestRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.BacktestRun
	for _, run := range s.data {
		if run.StrategyID == strategyID {
			result = append(result, copyRun(run))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt < result[j].CreatedAt
		}
		return result[i].RunID < result[j].RunID
	})
	return result, nil
}

// copyRun deep-copies a run so callers cannot mutate stored state.
func copyRun(run *domain.BacktestRun) *domain.BacktestRun {
	runCopy := *run
	resultCopy := *run.Result
	resultCopy.EquityCurve = append([]float64(nil), run.Result.EquityCurve...)
	if run.Result.Trades != nil {
		resultCopy.Trades = append([]domain.Trade(nil), run.Result.Trades...)
	}
	if run.Result.TradeStats != nil {
		stats := *run.Result.TradeStats
		resultCopy.TradeStats = &stats
	}
	runCopy.Result = &resultCopy
	return &runCopy
}
