// Package file reads trades and price history from local files.
package file

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"keeperstats/logger"
	"keeperstats/models"
)

// PriceHistoryReader reads a price history file holding one JSON object per
// line: {"timestamp": ..., "price": ..., "volume": ...}.
type PriceHistoryReader struct {
	path string
	log  *logger.Log
}

func NewPriceHistoryReader(path string) *PriceHistoryReader {
	return &PriceHistoryReader{path: path, log: logger.GetLogger()}
}

func (r *PriceHistoryReader) Name() string {
	return "file"
}

// Prices returns the points in [from, to] ordered by timestamp. Lines that
// fail to parse are skipped.
func (r *PriceHistoryReader) Prices(ctx context.Context, from, to time.Time) ([]models.PricePoint, error) {
	log := r.log.WithComponent("price_file_reader").WithFields(logger.Fields{"path": r.path})

	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("open price history: %w", err)
	}
	defer f.Close()

	var out []models.PricePoint
	skipped := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for line := 1; scanner.Scan(); line++ {
		if line%10000 == 0 && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var p models.PricePoint
		if err := json.Unmarshal(raw, &p); err != nil {
			skipped++
			log.WithError(err).WithFields(logger.Fields{"line": line}).Debug("skipping malformed price line")
			continue
		}
		if p.Timestamp < from.Unix() || p.Timestamp > to.Unix() {
			continue
		}
		out = append(out, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read price history: %w", err)
	}
	if skipped > 0 {
		log.WithFields(logger.Fields{"skipped": skipped}).Warn("skipped malformed price lines")
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	logger.LogDataFlowEntry(log, "price_file", "memory", len(out), "prices")
	return out, nil
}
