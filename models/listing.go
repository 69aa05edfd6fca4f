package models

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// ListedTrade is the exported form of a trade used by JSON trade listings.
// Type is "Buy" or "Sell" from the keeper's side. Amounts are kept as JSON
// numbers in full precision.
type ListedTrade struct {
	Datetime  string      `json:"datetime"`
	Timestamp int64       `json:"timestamp"`
	Type      string      `json:"type"`
	Price     json.Number `json:"price"`
	Amount    json.Number `json:"amount"`
	Money     json.Number `json:"money,omitempty"`
}

const ListingTimeLayout = "2006-01-02 15:04:05 MST"

// Listed converts t to its listing form.
func (t TradeRecord) Listed() ListedTrade {
	return ListedTrade{
		Datetime:  t.Time().Format(ListingTimeLayout),
		Timestamp: t.Timestamp,
		Type:      t.Side(),
		Price:     json.Number(t.Price.String()),
		Amount:    json.Number(t.Amount.String()),
		Money:     json.Number(t.Money.String()),
	}
}

// Trade converts a listing entry back into a TradeRecord. A missing money
// value is derived from amount and price.
func (l ListedTrade) Trade() (TradeRecord, error) {
	var isSell bool
	switch l.Type {
	case "Sell", "sell":
		isSell = true
	case "Buy", "buy":
	default:
		return TradeRecord{}, fmt.Errorf("trade at %d: unknown type %q", l.Timestamp, l.Type)
	}
	price, err := decimal.NewFromString(l.Price.String())
	if err != nil {
		return TradeRecord{}, fmt.Errorf("trade at %d: price: %w", l.Timestamp, err)
	}
	amount, err := decimal.NewFromString(l.Amount.String())
	if err != nil {
		return TradeRecord{}, fmt.Errorf("trade at %d: amount: %w", l.Timestamp, err)
	}
	t := NewTradeRecord(l.Timestamp, price, amount, isSell)
	if l.Money != "" {
		money, err := decimal.NewFromString(l.Money.String())
		if err != nil {
			return TradeRecord{}, fmt.Errorf("trade at %d: money: %w", l.Timestamp, err)
		}
		t.Money = money
	}
	return t, t.Validate()
}
