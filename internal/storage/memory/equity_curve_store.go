package memory

import (
	"context"
	"sync"

	"strataquant/internal/storage"
)

// EquityCurveStore is an in-memory implementation of storage.EquityCurveStore.
type EquityCurveStore struct {
	mu   sync.RWMutex
	data map[string][]float64
}

// NewEquityCurveStore creates a new in-memory equity curve store.
func NewEquityCurveStore() *EquityCurveStore {
	return &EquityCurveStore{
		data: make(map[string][]float64),
	}
}

// Compile-time interface check.
var _ storage.EquityCurveStore = (*EquityCurveStore)(nil)

// Insert adds the curve of a run. Returns ErrDuplicateKey if it exists.
func (s *EquityCurveStore) Insert(_ context.Context, runID string, curve []float64) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[runID]; exists {
		return storage.ErrDuplicateKey
	}
	s.data[runID] = append([]float64(nil), curve...)
	return nil
}

// GetByRunID retrieves the curve of a run. Returns ErrNotFound if not exists.
func (s *EquityCurveStore) GetByRunID(_ context.Context, runID string) ([]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	curve, exists := s.data[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return append([]float64(nil), curve...), nil
}
