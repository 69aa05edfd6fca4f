package models

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// TradeRecord is a fill of the keeper's own order. Money is always the
// positive product of Amount and Price; IsSell is from the keeper's side.
type TradeRecord struct {
	ID        string          `json:"id,omitempty"`
	Pair      string          `json:"pair,omitempty"`
	Timestamp int64           `json:"timestamp"`
	Price     decimal.Decimal `json:"price"`
	Amount    decimal.Decimal `json:"amount"`
	Money     decimal.Decimal `json:"money"`
	IsSell    bool            `json:"is_sell"`
}

// NewTradeRecord builds a trade and derives Money from amount and price.
func NewTradeRecord(ts int64, price, amount decimal.Decimal, isSell bool) TradeRecord {
	return TradeRecord{
		Timestamp: ts,
		Price:     price,
		Amount:    amount,
		Money:     amount.Mul(price),
		IsSell:    isSell,
	}
}

// Validate checks the sign rules readers must uphold before trades reach
// the calculators.
func (t TradeRecord) Validate() error {
	if t.Price.IsNegative() {
		return fmt.Errorf("trade at %d: negative price %s", t.Timestamp, t.Price)
	}
	if t.Amount.IsNegative() {
		return fmt.Errorf("trade at %d: negative amount %s", t.Timestamp, t.Amount)
	}
	if t.Money.IsNegative() {
		return fmt.Errorf("trade at %d: negative money %s", t.Timestamp, t.Money)
	}
	return nil
}

// Side is "Sell" or "Buy" as shown in listings.
func (t TradeRecord) Side() string {
	if t.IsSell {
		return "Sell"
	}
	return "Buy"
}

func (t TradeRecord) Time() time.Time {
	return time.Unix(t.Timestamp, 0).UTC()
}

// SortTrades returns a copy of trades ordered by timestamp. Trades sharing a
// timestamp keep their input order.
func SortTrades(trades []TradeRecord) []TradeRecord {
	sorted := make([]TradeRecord, len(trades))
	copy(sorted, trades)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp < sorted[j].Timestamp
	})
	return sorted
}
