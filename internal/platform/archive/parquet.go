// Package archive encodes bar cross-sections as Parquet files.
package archive

import (
	"io"
	"time"

	"github.com/parquet-go/parquet-go"

	"ashare_store/internal/feature/bars/domain/entity"
)

// MetadataGranularity is the key-value metadata entry naming the bar granularity.
const MetadataGranularity = "granularity"

// BarRecord is the Parquet schema of an exported bar.
type BarRecord struct {
	Symbol    string  `parquet:"symbol"`
	TradeDate string  `parquet:"trade_date"`                        // YYYY-MM-DD
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms of the bar, Beijing wall clock read as UTC
	Open      float64 `parquet:"open"`
	High      float64 `parquet:"high"`
	Low       float64 `parquet:"low"`
	Close     float64 `parquet:"close"`
	Volume    int64   `parquet:"volume"`
	Amount    float64 `parquet:"amount"`
}

// ParquetWriter writes bars in the BarRecord schema.
type ParquetWriter struct{}

// NewParquetWriter creates a ParquetWriter.
func NewParquetWriter() *ParquetWriter {
	return &ParquetWriter{}
}

// WriteBars encodes bars to w as a single Parquet file.
func (ParquetWriter) WriteBars(w io.Writer, granularity entity.Granularity, bars []entity.Bar) error {
	return parquet.Write(w, ToRecords(bars), parquet.KeyValueMetadata(MetadataGranularity, string(granularity)))
}

// ToRecords converts bars to their Parquet rows.
func ToRecords(bars []entity.Bar) []BarRecord {
	records := make([]BarRecord, 0, len(bars))
	for _, b := range bars {
		records = append(records, BarRecord{
			Symbol:    b.Symbol,
			TradeDate: b.TradeDate.Format(time.DateOnly),
			Timestamp: b.Timestamp().UnixMilli(),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
			Amount:    b.Amount,
		})
	}
	return records
}

// ReadBars decodes a file produced by WriteBars.
func ReadBars(r io.ReaderAt, size int64) ([]BarRecord, error) {
	return parquet.Read[BarRecord](r, size)
}

