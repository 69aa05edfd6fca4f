package processor

import "fmt"

// Profit is the result for one trade. Valid is false when no VWAP was
// available for the trade's bucket.
type Profit struct {
	Timestamp int64
	Value     float64
	Valid     bool
}

// Bucket returns the index of the VWAP window a trade at ts is compared
// against: the number of minutes since start, rounded up.
func Bucket(ts, start int64) int {
	d := ts - start
	if d <= 0 {
		return int(d / 60)
	}
	return int((d + 59) / 60)
}

// CalculatePnL values each trade against the VWAP of the window starting at
// the trade's bucket: (vwap - price) * base delta. Trades whose bucket lies
// past the end of vwaps are dropped together with every later trade. Trades
// before the first window have no VWAP and yield an unknown profit.
//
// It panics when the input slices differ in length.
func CalculatePnL(in PnLInput, vwaps VwapSeries, vwapsStart int64) []Profit {
	if len(in.Deltas) != len(in.Prices) || len(in.Prices) != len(in.Timestamps) {
		panic(fmt.Sprintf("pnl input length mismatch: %d deltas, %d prices, %d timestamps",
			len(in.Deltas), len(in.Prices), len(in.Timestamps)))
	}

	profits := make([]Profit, 0, in.Len())
	for i, ts := range in.Timestamps {
		bucket := Bucket(ts, vwapsStart)
		if bucket >= vwaps.Len() {
			break
		}
		p := Profit{Timestamp: ts}
		if bucket < 0 {
			profits = append(profits, p)
			continue
		}
		if vwap, ok := vwaps.At(bucket); ok {
			p.Value = (vwap - in.Prices[i]) * in.Deltas[i].Base
			p.Valid = true
		}
		profits = append(profits, p)
	}
	return profits
}

// TotalProfit sums the known profits.
func TotalProfit(profits []Profit) float64 {
	var total float64
	for _, p := range profits {
		if p.Valid {
			total += p.Value
		}
	}
	return total
}

// MissingCount returns how many profits could not be computed.
func MissingCount(profits []Profit) int {
	n := 0
	for _, p := range profits {
		if !p.Valid {
			n++
		}
	}
	return n
}

// CumulativeProfit returns the running sum of profits. Unknown profits add
// nothing.
func CumulativeProfit(profits []Profit) []float64 {
	out := make([]float64, len(profits))
	var sum float64
	for i, p := range profits {
		if p.Valid {
			sum += p.Value
		}
		out[i] = sum
	}
	return out
}
