package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"keeperstats/logger"
	"keeperstats/models"
)

// TradesReader reads a JSON trade listing as written by the trades command.
type TradesReader struct {
	path string
	log  *logger.Log
}

func NewTradesReader(path string) *TradesReader {
	return &TradesReader{path: path, log: logger.GetLogger()}
}

func (r *TradesReader) Name() string {
	return "file"
}

// Trades returns the listed trades whose timestamp falls in [from, to].
func (r *TradesReader) Trades(ctx context.Context, from, to time.Time) ([]models.TradeRecord, error) {
	log := r.log.WithComponent("trades_file_reader").WithFields(logger.Fields{"path": r.path})

	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("read trades file: %w", err)
	}
	var listed []models.ListedTrade
	if err := json.Unmarshal(data, &listed); err != nil {
		return nil, fmt.Errorf("parse trades file: %w", err)
	}

	trades := make([]models.TradeRecord, 0, len(listed))
	for _, l := range listed {
		if l.Timestamp < from.Unix() || l.Timestamp > to.Unix() {
			continue
		}
		t, err := l.Trade()
		if err != nil {
			return nil, fmt.Errorf("trades file %s: %w", r.path, err)
		}
		trades = append(trades, t)
	}

	logger.LogDataFlowEntry(log, "trades_file", "memory", len(trades), "trades")
	return trades, ctx.Err()
}
