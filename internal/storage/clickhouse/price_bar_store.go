package clickhouse

import (
	"context"
	"fmt"

	"strataquant/internal/domain"
	"strataquant/internal/storage"
)

// PriceBarStore implements storage.PriceBarStore using ClickHouse.
type PriceBarStore struct {
	conn *Conn
}

// NewPriceBarStore creates a new PriceBarStore.
func NewPriceBarStore(conn *Conn) *PriceBarStore {
	return &PriceBarStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PriceBarStore = (*PriceBarStore)(nil)

// InsertBulk adds bars for a series. Fails entire batch on duplicate timestamp.
// MergeTree does not enforce keys, so duplicates are checked before the batch.
func (s *PriceBarStore) InsertBulk(ctx context.Context, symbol, interval string, bars []domain.PriceBar) error {
	if symbol == "" || interval == "" {
		return storage.ErrInvalidInput
	}
	if len(bars) == 0 {
		return nil
	}

	seen := make(map[int64]struct{}, len(bars))
	minTs, maxTs := bars[0].Timestamp, bars[0].Timestamp
	for _, b := range bars {
		if _, exists := seen[b.Timestamp]; exists {
			return storage.ErrDuplicateKey
		}
		seen[b.Timestamp] = struct{}{}
		minTs = min(minTs, b.Timestamp)
		maxTs = max(maxTs, b.Timestamp)
	}

	existing, err := s.GetByTimeRange(ctx, symbol, interval, minTs, maxTs)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	for _, b := range existing {
		if _, clash := seen[b.Timestamp]; clash {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO price_bars (
			symbol, interval, timestamp, open, high, low, close, volume
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, b := range bars {
		if err := batch.Append(
			symbol, interval, b.Timestamp,
			b.Open, b.High, b.Low, b.Close, b.Volume,
		); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetBySeries retrieves all bars of a series, ordered by timestamp ASC.
func (s *PriceBarStore) GetBySeries(ctx context.Context, symbol, interval string) ([]domain.PriceBar, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT timestamp, open, high, low, close, volume
		FROM price_bars FINAL
		WHERE symbol = ? AND interval = ?
		ORDER BY timestamp ASC
	`, symbol, interval)
	if err != nil {
		return nil, fmt.Errorf("query by series: %w", err)
	}
	defer rows.Close()

	return scanPriceBars(rows)
}

// GetByTimeRange retrieves bars within [start, end] (inclusive).
func (s *PriceBarStore) GetByTimeRange(ctx context.Context, symbol, interval string, start, end int64) ([]domain.PriceBar, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT timestamp, open, high, low, close, volume
		FROM price_bars FINAL
		WHERE symbol = ? AND interval = ? AND timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp ASC
	`, symbol, interval, start, end)
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanPriceBars(rows)
}

func scanPriceBars(rows chRows) ([]domain.PriceBar, error) {
	var bars []domain.PriceBar

	for rows.Next() {
		var b domain.PriceBar
		if err := rows.Scan(&b.Timestamp, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan price bar row: %w", err)
		}
		bars = append(bars, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price bar rows: %w", err)
	}
	return bars, nil
}
