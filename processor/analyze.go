package processor

import "keeperstats/models"

// Analysis is everything derived from one period of trades and prices.
type Analysis struct {
	Report     Report
	Chart      Chart
	Vwaps      VwapSeries
	VwapsStart int64
}

// Analyze computes the VWAP series from prices and the daily report and
// chart for trades. Without a full VWAP window the report carries no profits.
func Analyze(trades []models.TradeRecord, prices []models.PricePoint, windowMinutes int) Analysis {
	vwaps, start := ApproxVWAPs(prices, windowMinutes)
	a := Analysis{Vwaps: vwaps, VwapsStart: start}
	if start < 0 {
		a.Report = DailyReport(trades, nil, start, windowMinutes)
		a.Chart = Chart{}
		return a
	}
	a.Report = DailyReport(trades, &vwaps, start, windowMinutes)
	a.Chart = ChartSeries(trades, prices, vwaps, start)
	return a
}
