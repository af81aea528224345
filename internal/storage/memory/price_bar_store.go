package memory

import (
	"context"
	"sort"
	"sync"

	"strataquant/internal/domain"
	"strataquant/internal/storage"
)

type seriesKey struct {
	symbol   string
	interval string
}

// PriceBarStore is an in-memory implementation of storage.PriceBarStore.
type PriceBarStore struct {
	mu   sync.RWMutex
	data map[seriesKey]map[int64]domain.PriceBar // series -> timestamp -> bar
}

// NewPriceBarStore creates a new in-memory price bar store.
func NewPriceBarStore() *PriceBarStore {
	return &PriceBarStore{
		data: make(map[seriesKey]map[int64]domain.PriceBar),
	}
}

// Compile-time interface check.
var _ storage.PriceBarStore = (*PriceBarStore)(nil)

// InsertBulk adds multiple bars. Fails entire batch on duplicate.
func (s *PriceBarStore) InsertBulk(_ context.Context, symbol, interval string, bars []domain.PriceBar) error {
	if symbol == "" || interval == "" {
		return storage.ErrInvalidInput
	}
	if len(bars) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := seriesKey{symbol, interval}
	existing := s.data[key]

	// First pass: check for duplicates (existing + intra-batch)
	batchKeys := make(map[int64]struct{}, len(bars))
	for _, b := range bars {
		if _, exists := existing[b.Timestamp]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[b.Timestamp]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[b.Timestamp] = struct{}{}
	}

	// Second pass: insert all
	if existing == nil {
		existing = make(map[int64]domain.PriceBar, len(bars))
		s.data[key] = existing
	}
	for _, b := range bars {
		existing[b.Timestamp] = b
	}

	return nil
}

// GetBySeries retrieves all bars for a series, ordered by timestamp ASC.
func (s *PriceBarStore) GetBySeries(ctx context.Context, symbol, interval string) ([]domain.PriceBar, error) {
	return s.collect(symbol, interval, func(int64) bool { return true }), nil
}

// GetByTimeRange retrieves bars within [start, end] (inclusive).
func (s *PriceBarStore) GetByTimeRange(_ context.Context, symbol, interval string, start, end int64) ([]domain.PriceBar, error) {
	return s.collect(symbol, interval, func(ts int64) bool { return ts >= start && ts <= end }), nil
}

func (s *PriceBarStore) collect(symbol, interval string, keep func(int64) bool) []domain.PriceBar {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.PriceBar
	for ts, b := range s.data[seriesKey{symbol, interval}] {
		if keep(ts) {
			result = append(result, b)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp < result[j].Timestamp
	})
	return result
}
