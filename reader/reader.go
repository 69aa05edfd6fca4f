// Package reader fetches keeper trades and market prices from exchanges and
// local files.
package reader

import (
	"context"
	"time"

	"keeperstats/models"
)

// TradeSource yields the keeper's own trades in [from, to]. Order is not
// guaranteed.
type TradeSource interface {
	Trades(ctx context.Context, from, to time.Time) ([]models.TradeRecord, error)
}

// PriceSource yields market prices in [from, to] ordered by timestamp.
type PriceSource interface {
	Prices(ctx context.Context, from, to time.Time) ([]models.PricePoint, error)
}

// Named is implemented by sources that can identify themselves in logs and
// cache keys.
type Named interface {
	Name() string
}

func nameOf(v interface{}) string {
	if n, ok := v.(Named); ok {
		return n.Name()
	}
	return "unknown"
}

// ValidateTrades rejects trades that break the sign rules of TradeRecord.
func ValidateTrades(trades []models.TradeRecord) error {
	for _, t := range trades {
		if err := t.Validate(); err != nil {
			return err
		}
	}
	return nil
}
