package writer

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	"keeperstats/logger"
	"keeperstats/models"
	"keeperstats/processor"
)

// LedgerRecord is one row of the per trade PnL ledger. Vwap and Profit are
// null when no reference price was known for the trade's window.
type LedgerRecord struct {
	Timestamp        int64    `parquet:"name=timestamp, type=INT64"`
	Datetime         string   `parquet:"name=datetime, type=BYTE_ARRAY, convertedtype=UTF8"`
	Type             string   `parquet:"name=type, type=BYTE_ARRAY, convertedtype=UTF8"`
	Price            float64  `parquet:"name=price, type=DOUBLE"`
	Amount           float64  `parquet:"name=amount, type=DOUBLE"`
	Money            float64  `parquet:"name=money, type=DOUBLE"`
	Vwap             *float64 `parquet:"name=vwap, type=DOUBLE, repetitiontype=OPTIONAL"`
	Profit           *float64 `parquet:"name=profit, type=DOUBLE, repetitiontype=OPTIONAL"`
	CumulativeProfit float64  `parquet:"name=cumulative_profit, type=DOUBLE"`
}

// BuildLedger values every trade against vwaps. Trades past the last VWAP
// window stay in the ledger without a profit.
func BuildLedger(trades []models.TradeRecord, vwaps processor.VwapSeries, vwapsStart int64) []LedgerRecord {
	sorted := models.SortTrades(trades)
	var profits []processor.Profit
	if vwapsStart >= 0 {
		profits = processor.CalculatePnL(processor.Normalize(sorted), vwaps, vwapsStart)
	}

	records := make([]LedgerRecord, 0, len(sorted))
	var cumulative float64
	for i, t := range sorted {
		r := LedgerRecord{
			Timestamp: t.Timestamp,
			Datetime:  t.Time().Format(models.ListingTimeLayout),
			Type:      t.Side(),
			Price:     t.Price.InexactFloat64(),
			Amount:    t.Amount.InexactFloat64(),
			Money:     t.Money.InexactFloat64(),
		}
		if i < len(profits) && profits[i].Valid {
			if v, ok := vwaps.At(processor.Bucket(t.Timestamp, vwapsStart)); ok {
				r.Vwap = &v
			}
			p := profits[i].Value
			r.Profit = &p
			cumulative += p
		}
		r.CumulativeProfit = cumulative
		records = append(records, r)
	}
	return records
}

// memoryFile implements source.ParquetFile over an in-memory buffer.
type memoryFile struct {
	buffer *bytes.Buffer
}

func newMemoryFile() *memoryFile {
	return &memoryFile{buffer: &bytes.Buffer{}}
}

func (m *memoryFile) Create(name string) (source.ParquetFile, error) { return m, nil }
func (m *memoryFile) Open(name string) (source.ParquetFile, error)   { return m, nil }

// Seek only reports the write position; the parquet writer never rewinds.
func (m *memoryFile) Seek(offset int64, whence int) (int64, error) {
	return int64(m.buffer.Len()), nil
}

func (m *memoryFile) Read(b []byte) (int, error)  { return m.buffer.Read(b) }
func (m *memoryFile) Write(b []byte) (int, error) { return m.buffer.Write(b) }
func (m *memoryFile) Close() error                { return nil }
func (m *memoryFile) Bytes() []byte               { return m.buffer.Bytes() }

func compressionCodec(name string) (parquet.CompressionCodec, error) {
	switch strings.ToLower(name) {
	case "", "snappy":
		return parquet.CompressionCodec_SNAPPY, nil
	case "gzip":
		return parquet.CompressionCodec_GZIP, nil
	case "none", "uncompressed":
		return parquet.CompressionCodec_UNCOMPRESSED, nil
	}
	return 0, fmt.Errorf("unsupported parquet compression %q", name)
}

// EncodeLedger serialises records into a parquet file in memory.
func EncodeLedger(records []LedgerRecord, compression string) ([]byte, error) {
	log := logger.GetLogger().WithComponent("parquet_ledger").WithFields(logger.Fields{
		"records":     len(records),
		"compression": compression,
	})

	codec, err := compressionCodec(compression)
	if err != nil {
		return nil, err
	}

	mf := newMemoryFile()
	pw, err := writer.NewParquetWriter(mf, new(LedgerRecord), 1)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet writer: %w", err)
	}
	pw.CompressionType = codec

	for _, r := range records {
		if err := pw.Write(r); err != nil {
			pw.WriteStop()
			return nil, fmt.Errorf("failed to write parquet record: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("failed to finalize parquet writing: %w", err)
	}

	data := mf.Bytes()
	log.WithFields(logger.Fields{"file_size": len(data)}).Debug("parquet ledger encoded")
	return data, nil
}
