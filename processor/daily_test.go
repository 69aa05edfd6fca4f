package processor

import (
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"keeperstats/models"
)

const day0 = int64(1518393600) // 2018-02-12 00:00:00 UTC

func TestPartitionByDay(t *testing.T) {
	trades := []models.TradeRecord{
		trade(day0+86400+5, "1", "1", false),
		trade(day0+10, "1", "1", false),
		trade(day0+86399, "1", "1", true),
		trade(day0+86400, "1", "1", true),
		trade(day0+3*86400, "1", "1", false),
	}
	days := PartitionByDay(trades)
	if len(days) != 3 {
		t.Fatalf("expected 3 days, got %d", len(days))
	}
	sizes := []int{2, 2, 1}
	total := 0
	for i, d := range days {
		if len(d) != sizes[i] {
			t.Fatalf("day %d has %d trades, want %d", i, len(d), sizes[i])
		}
		for j := 1; j < len(d); j++ {
			if d[j].Timestamp < d[j-1].Timestamp {
				t.Fatalf("day %d out of order", i)
			}
		}
		total += len(d)
	}
	if total != len(trades) {
		t.Fatalf("partition lost trades: %d != %d", total, len(trades))
	}
	var joined []models.TradeRecord
	for _, d := range days {
		joined = append(joined, d...)
	}
	if !reflect.DeepEqual(joined, models.SortTrades(trades)) {
		t.Fatalf("joined days differ from sorted trades: %+v", joined)
	}
	if PartitionByDay(nil) != nil {
		t.Fatalf("expected no days for no trades")
	}
}

func TestDailyReport(t *testing.T) {
	trades := []models.TradeRecord{
		trade(day0+60, "50", "2", false),
		trade(day0+120, "55", "1", true),
		trade(day0+86400+60, "60", "1", true),
	}
	vwaps := flatSeries(3000, 52)
	report := DailyReport(trades, &vwaps, day0, 60)

	if len(report.Days) != 2 {
		t.Fatalf("expected 2 days, got %d", len(report.Days))
	}
	first := report.Days[0]
	if !first.Day.Equal(time.Unix(day0, 0).UTC()) {
		t.Fatalf("unexpected day: %v", first.Day)
	}
	if first.TradeCount != 2 {
		t.Fatalf("trade count: %d", first.TradeCount)
	}
	if !first.Volume.Equal(decimal.NewFromInt(155)) {
		t.Fatalf("volume: %s", first.Volume)
	}
	if !first.Bought.Equal(decimal.NewFromInt(55)) || !first.Sold.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("bought %s sold %s", first.Bought, first.Sold)
	}
	if !first.NetBought.Equal(decimal.NewFromInt(-45)) {
		t.Fatalf("net bought: %s", first.NetBought)
	}
	if !almostEqual(first.Profit, 4+3) || first.Incomplete || !first.ProfitCalculated {
		t.Fatalf("first day profit: %+v", first)
	}

	second := report.Days[1]
	if !second.CumulativeNetBought.Equal(decimal.NewFromInt(15)) {
		t.Fatalf("cumulative net bought: %s", second.CumulativeNetBought)
	}
	if !almostEqual(second.Profit, 8) {
		t.Fatalf("second day profit: %v", second.Profit)
	}

	if report.TradeCount != 3 || !report.Volume.Equal(decimal.NewFromInt(215)) || !almostEqual(report.Profit, 15) {
		t.Fatalf("unexpected totals: %+v", report)
	}
	if len(report.Caveats) != 2 || report.Caveats[1] != CaveatLastWindow(60) {
		t.Fatalf("unexpected caveats: %v", report.Caveats)
	}
}

func TestDailyReportIncompleteDay(t *testing.T) {
	values := []float64{10, 10, 0, 10}
	valid := []bool{true, true, false, true}
	vwaps := NewVwapSeries(values, valid)
	trades := []models.TradeRecord{
		trade(day0, "9", "1", false),
		trade(day0+120, "9", "1", false),
	}
	report := DailyReport(trades, &vwaps, day0, 2)
	if !report.Days[0].Incomplete || report.Days[0].MissingProfits != 1 {
		t.Fatalf("day should be incomplete: %+v", report.Days[0])
	}
	if !almostEqual(report.Days[0].Profit, 1) {
		t.Fatalf("known profit should still be summed: %v", report.Days[0].Profit)
	}
	if report.IncompleteDays() != 1 {
		t.Fatalf("incomplete days: %d", report.IncompleteDays())
	}
}

func TestDailyReportWithoutPrices(t *testing.T) {
	trades := []models.TradeRecord{trade(day0, "9", "1", false)}
	report := DailyReport(trades, nil, -1, 240)
	if report.ProfitCalculated || report.Days[0].ProfitCalculated {
		t.Fatalf("profit should not be calculated: %+v", report)
	}
	if len(report.Caveats) != 1 || report.Caveats[0] != CaveatPartialDays {
		t.Fatalf("unexpected caveats: %v", report.Caveats)
	}
}

func TestDailyReportEmptyVWAPs(t *testing.T) {
	empty := NewVwapSeries([]float64{}, []bool{})
	report := DailyReport([]models.TradeRecord{trade(day0, "9", "1", false)}, &empty, day0, 240)
	if report.ProfitCalculated || report.Days[0].ProfitCalculated {
		t.Fatalf("empty vwaps must leave profits not calculated: %+v", report.Days[0])
	}
	if report.Profit != 0 || report.Days[0].Incomplete {
		t.Fatalf("trades past the horizon must not count as incomplete: %+v", report.Days[0])
	}
}

func TestAnalyzeShortPriceHistory(t *testing.T) {
	prices := make([]models.PricePoint, 10)
	for i := range prices {
		prices[i] = pp(day0+int64(i)*60, 100, 1)
	}
	a := Analyze([]models.TradeRecord{trade(day0+120, "99", "1", false)}, prices, 240)
	if a.Vwaps.Len() != 0 {
		t.Fatalf("expected no full window, got %d vwaps", a.Vwaps.Len())
	}
	if a.Report.ProfitCalculated || a.Report.Days[0].ProfitCalculated {
		t.Fatalf("short price history must report profits as not calculated: %+v", a.Report)
	}
}

func TestChartSeries(t *testing.T) {
	vwaps := NewVwapSeries([]float64{10, 0, 10}, []bool{true, false, true})
	trades := []models.TradeRecord{
		trade(0, "9", "1", false),
		trade(60, "9", "1", false),
		trade(120, "8", "1", false),
	}
	prices := []models.PricePoint{pp(0, 10, 1), models.Placeholder(60), pp(120, 11, 1)}
	chart := ChartSeries(trades, prices, vwaps, 0)
	if len(chart.CumulativeProfit) != 2 {
		t.Fatalf("unexpected profit series: %+v", chart.CumulativeProfit)
	}
	if !almostEqual(chart.CumulativeProfit[1].Value, 3) || chart.CumulativeProfit[1].Timestamp != 120 {
		t.Fatalf("unexpected cumulative value: %+v", chart.CumulativeProfit[1])
	}
	if len(chart.Price) != 2 || chart.Price[1].Value != 11 {
		t.Fatalf("unexpected price series: %+v", chart.Price)
	}
}

func TestAnalyzeWithoutPrices(t *testing.T) {
	a := Analyze([]models.TradeRecord{trade(day0+60, "50", "1", false)}, nil, 60)
	if a.VwapsStart != -1 || a.Report.ProfitCalculated {
		t.Fatalf("expected no profit calculation, got %+v", a.Report)
	}
	if len(a.Chart.CumulativeProfit) != 0 {
		t.Fatalf("expected empty chart")
	}
}

func TestAnalyze(t *testing.T) {
	var prices []models.PricePoint
	for i := int64(0); i < 10; i++ {
		prices = append(prices, models.PricePoint{Timestamp: day0 + i*60, Price: 52, Volume: 1})
	}
	trades := []models.TradeRecord{
		trade(day0+60, "50", "2", false),
		trade(day0+120, "55", "1", true),
	}
	a := Analyze(trades, prices, 3)
	if a.VwapsStart != day0 || a.Vwaps.Len() != 8 {
		t.Fatalf("unexpected vwaps: start %d len %d", a.VwapsStart, a.Vwaps.Len())
	}
	if !a.Report.ProfitCalculated || a.Report.Profit != 7 {
		t.Fatalf("unexpected profit: %+v", a.Report)
	}
	if len(a.Chart.CumulativeProfit) != 2 || a.Chart.CumulativeProfit[1].Value != 7 {
		t.Fatalf("unexpected chart: %+v", a.Chart.CumulativeProfit)
	}
	if len(a.Chart.Price) != 10 {
		t.Fatalf("expected 10 price points, got %d", len(a.Chart.Price))
	}
}
