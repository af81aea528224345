// Package arrowfile caches price bar series as Arrow IPC streams on disk,
// so repeated runs over the same history skip the exchange download.
package arrowfile

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/ipc"
	"github.com/apache/arrow/go/v14/arrow/memory"

	"strataquant/internal/domain"
)

// ErrSchemaMismatch is returned when a stream does not carry the bar schema.
var ErrSchemaMismatch = errors.New("arrow stream does not match price bar schema")

var barSchema = arrow.NewSchema([]arrow.Field{
	{Name: "timestamp", Type: arrow.PrimitiveTypes.Int64},
	{Name: "open", Type: arrow.PrimitiveTypes.Float64},
	{Name: "high", Type: arrow.PrimitiveTypes.Float64},
	{Name: "low", Type: arrow.PrimitiveTypes.Float64},
	{Name: "close", Type: arrow.PrimitiveTypes.Float64},
	{Name: "volume", Type: arrow.PrimitiveTypes.Float64},
}, nil)

// Write serializes bars as a single-record Arrow IPC stream.
func Write(w io.Writer, bars []domain.PriceBar) error {
	pool := memory.NewGoAllocator()

	b := array.NewRecordBuilder(pool, barSchema)
	defer b.Release()

	ts := b.Field(0).(*array.Int64Builder)
	cols := [5]*array.Float64Builder{
		b.Field(1).(*array.Float64Builder),
		b.Field(2).(*array.Float64Builder),
		b.Field(3).(*array.Float64Builder),
		b.Field(4).(*array.Float64Builder),
		b.Field(5).(*array.Float64Builder),
	}
	for _, bar := range bars {
		ts.Append(bar.Timestamp)
		cols[0].Append(bar.Open)
		cols[1].Append(bar.High)
		cols[2].Append(bar.Low)
		cols[3].Append(bar.Close)
		cols[4].Append(bar.Volume)
	}

	record := b.NewRecord()
	defer record.Release()

	writer := ipc.NewWriter(w, ipc.WithSchema(barSchema), ipc.WithAllocator(pool))
	if err := writer.Write(record); err != nil {
		writer.Close()
		return fmt.Errorf("write arrow record: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close arrow writer: %w", err)
	}
	return nil
}

// Read deserializes all records of an Arrow IPC stream written by Write.
func Read(r io.Reader) ([]domain.PriceBar, error) {
	reader, err := ipc.NewReader(r, ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, fmt.Errorf("open arrow reader: %w", err)
	}
	defer reader.Release()

	if !reader.Schema().Equal(barSchema) {
		return nil, ErrSchemaMismatch
	}

	var bars []domain.PriceBar
	for reader.Next() {
		rec := reader.Record()
		ts := rec.Column(0).(*array.Int64)
		open := rec.Column(1).(*array.Float64)
		high := rec.Column(2).(*array.Float64)
		low := rec.Column(3).(*array.Float64)
		closes := rec.Column(4).(*array.Float64)
		volume := rec.Column(5).(*array.Float64)

		for i := 0; i < int(rec.NumRows()); i++ {
			bars = append(bars, domain.PriceBar{
				Timestamp: ts.Value(i),
				Open:      open.Value(i),
				High:      high.Value(i),
				Low:       low.Value(i),
				Close:     closes.Value(i),
				Volume:    volume.Value(i),
			})
		}
	}
	if err := reader.Err(); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read arrow records: %w", err)
	}
	return bars, nil
}

// Save writes bars to path, replacing any existing file.
func Save(path string, bars []domain.PriceBar) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := Write(f, bars); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Load reads bars from path.
func Load(path string) ([]domain.PriceBar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return Read(f)
}
