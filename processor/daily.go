package processor

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"keeperstats/models"
)

const (
	CaveatPartialDays = "The first and the last day of the report may not contain all trades."
	CaveatIncomplete  = "*) Profit calculation for that day incomplete due to missing price information."
)

// CaveatLastWindow is the note about trades past the VWAP horizon.
func CaveatLastWindow(windowMinutes int) string {
	return fmt.Sprintf("The last window of %d minutes of trades is excluded from profit calculation.", windowMinutes)
}

// DaySummary aggregates one UTC calendar day. Volume, Bought and Sold are
// quote token amounts: Bought is the quote received by keeper sells and
// Sold the quote paid by keeper buys.
type DaySummary struct {
	Day                 time.Time
	TradeCount          int
	Volume              decimal.Decimal
	Bought              decimal.Decimal
	Sold                decimal.Decimal
	NetBought           decimal.Decimal
	CumulativeNetBought decimal.Decimal
	Profit              float64
	ProfitCalculated    bool
	Incomplete          bool
	MissingProfits      int
}

// Report is the day by day summary of a trading period.
type Report struct {
	Days             []DaySummary
	TradeCount       int
	Volume           decimal.Decimal
	NetBought        decimal.Decimal
	Profit           float64
	ProfitCalculated bool
	WindowMinutes    int
	Caveats          []string
}

// IncompleteDays counts days flagged as incomplete.
func (r Report) IncompleteDays() int {
	n := 0
	for _, d := range r.Days {
		if d.Incomplete {
			n++
		}
	}
	return n
}

// PartitionByDay splits trades, ordered by timestamp, into consecutive UTC
// calendar days.
func PartitionByDay(trades []models.TradeRecord) [][]models.TradeRecord {
	sorted := models.SortTrades(trades)
	var days [][]models.TradeRecord
	var current []models.TradeRecord
	var currentDay time.Time
	for _, t := range sorted {
		day := dayOf(t.Timestamp)
		if len(current) > 0 && !day.Equal(currentDay) {
			days = append(days, current)
			current = nil
		}
		currentDay = day
		current = append(current, t)
	}
	if len(current) > 0 {
		days = append(days, current)
	}
	return days
}

func dayOf(ts int64) time.Time {
	return time.Unix(ts, 0).UTC().Truncate(24 * time.Hour)
}

// DailyReport summarises trades per UTC day. Profits are computed for each
// day separately against the shared vwaps and vwapsStart. A nil or empty
// vwaps, or a negative vwapsStart, leaves every trade beyond the horizon and
// profits are reported as not calculated.
func DailyReport(trades []models.TradeRecord, vwaps *VwapSeries, vwapsStart int64, windowMinutes int) Report {
	calculated := vwaps != nil && vwaps.Len() > 0 && vwapsStart >= 0
	report := Report{
		Volume:           decimal.Zero,
		NetBought:        decimal.Zero,
		ProfitCalculated: calculated,
		WindowMinutes:    windowMinutes,
		TradeCount:       len(trades),
	}

	cumulative := decimal.Zero
	for _, dayTrades := range PartitionByDay(trades) {
		summary := DaySummary{
			Day:              dayOf(dayTrades[0].Timestamp),
			TradeCount:       len(dayTrades),
			Volume:           decimal.Zero,
			Bought:           decimal.Zero,
			Sold:             decimal.Zero,
			ProfitCalculated: calculated,
		}
		for _, t := range dayTrades {
			summary.Volume = summary.Volume.Add(t.Money)
			if t.IsSell {
				summary.Bought = summary.Bought.Add(t.Money)
			} else {
				summary.Sold = summary.Sold.Add(t.Money)
			}
		}
		summary.NetBought = summary.Bought.Sub(summary.Sold)
		cumulative = cumulative.Add(summary.NetBought)
		summary.CumulativeNetBought = cumulative

		if calculated {
			profits := CalculatePnL(Normalize(dayTrades), *vwaps, vwapsStart)
			summary.Profit = TotalProfit(profits)
			summary.MissingProfits = MissingCount(profits)
			summary.Incomplete = summary.MissingProfits > 0
		}

		report.Volume = report.Volume.Add(summary.Volume)
		report.NetBought = cumulative
		report.Profit += summary.Profit
		report.Days = append(report.Days, summary)
	}

	report.Caveats = []string{CaveatPartialDays}
	if calculated {
		report.Caveats = append(report.Caveats, CaveatLastWindow(windowMinutes))
	}
	return report
}

// ChartPoint is one sample of a chart series.
type ChartPoint struct {
	Timestamp int64
	Value     float64
}

// Chart holds the two series plotted by the PnL chart: cumulative profit at
// each valued trade and the reference price at each price point.
type Chart struct {
	CumulativeProfit []ChartPoint
	Price            []ChartPoint
}

// ChartSeries builds the PnL chart data for trades over the whole period.
// Trades whose profit is unknown are left out of the profit series.
func ChartSeries(trades []models.TradeRecord, prices []models.PricePoint, vwaps VwapSeries, vwapsStart int64) Chart {
	chart := Chart{}
	var sum float64
	for _, p := range CalculatePnL(Normalize(trades), vwaps, vwapsStart) {
		if !p.Valid {
			continue
		}
		sum += p.Value
		chart.CumulativeProfit = append(chart.CumulativeProfit, ChartPoint{Timestamp: p.Timestamp, Value: sum})
	}
	for _, p := range prices {
		if p.IsPlaceholder() {
			continue
		}
		chart.Price = append(chart.Price, ChartPoint{Timestamp: p.Timestamp, Value: p.Price})
	}
	return chart
}
