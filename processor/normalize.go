package processor

import "keeperstats/models"

// Delta is the change in the keeper's base and quote balances caused by one
// trade.
type Delta struct {
	Base  float64
	Quote float64
}

// PnLInput holds trades as parallel slices ordered by timestamp.
type PnLInput struct {
	Deltas     []Delta
	Prices     []float64
	Timestamps []int64
}

func (in PnLInput) Len() int {
	return len(in.Timestamps)
}

// Normalize orders trades by timestamp and converts each one into balance
// deltas: a buy adds amount to base and removes money from quote, a sell does
// the opposite. Trades are neither dropped nor merged.
func Normalize(trades []models.TradeRecord) PnLInput {
	sorted := models.SortTrades(trades)
	in := PnLInput{
		Deltas:     make([]Delta, len(sorted)),
		Prices:     make([]float64, len(sorted)),
		Timestamps: make([]int64, len(sorted)),
	}
	for i, t := range sorted {
		amount := t.Amount.InexactFloat64()
		money := t.Money.InexactFloat64()
		if t.IsSell {
			in.Deltas[i] = Delta{Base: -amount, Quote: money}
		} else {
			in.Deltas[i] = Delta{Base: amount, Quote: -money}
		}
		in.Prices[i] = t.Price.InexactFloat64()
		in.Timestamps[i] = t.Timestamp
	}
	return in
}
