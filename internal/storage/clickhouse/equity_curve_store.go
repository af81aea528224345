package clickhouse

import (
	"context"
	"fmt"

	"strataquant/internal/storage"
)

// EquityCurveStore implements storage.EquityCurveStore using ClickHouse.
// Each bar is one row keyed by (run_id, bar_index).
type EquityCurveStore struct {
	conn *Conn
}

// NewEquityCurveStore creates a new EquityCurveStore.
func NewEquityCurveStore(conn *Conn) *EquityCurveStore {
	return &EquityCurveStore{conn: conn}
}

// Compile-time interface check.
var _ storage.EquityCurveStore = (*EquityCurveStore)(nil)

// Insert adds the curve of a run. Returns ErrDuplicateKey if the run has rows.
func (s *EquityCurveStore) Insert(ctx context.Context, runID string, curve []float64) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	if len(curve) == 0 {
		return nil
	}

	var count uint64
	if err := s.conn.QueryRow(ctx,
		`SELECT count() FROM equity_curves WHERE run_id = ?`, runID,
	).Scan(&count); err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if count > 0 {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO equity_curves (run_id, bar_index, equity)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}
	for i, v := range curve {
		if err := batch.Append(runID, uint32(i), v); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByRunID retrieves the curve ordered by bar index. Returns ErrNotFound if not exists.
func (s *EquityCurveStore) GetByRunID(ctx context.Context, runID string) ([]float64, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT equity
		FROM equity_curves
		WHERE run_id = ?
		ORDER BY bar_index ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query equity curve: %w", err)
	}
	defer rows.Close()

	var curve []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan equity row: %w", err)
		}
		curve = append(curve, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate equity rows: %w", err)
	}

	if len(curve) == 0 {
		return nil, storage.ErrNotFound
	}
	return curve, nil
}
