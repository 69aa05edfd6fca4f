package writer

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"keeperstats/models"
	"keeperstats/processor"
)

const day0 = int64(1518393600) // 2018-02-12 00:00:00 UTC

var generated = time.Date(2018, 2, 14, 10, 0, 0, 0, time.UTC)

func trade(ts int64, price, amount string, isSell bool) models.TradeRecord {
	return models.NewTradeRecord(ts, decimal.RequireFromString(price), decimal.RequireFromString(amount), isSell)
}

func flat(n int, v float64) processor.VwapSeries {
	values := make([]float64, n)
	valid := make([]bool, n)
	for i := range values {
		values[i], valid[i] = v, true
	}
	return processor.NewVwapSeries(values, valid)
}

func sampleTrades() []models.TradeRecord {
	return []models.TradeRecord{
		trade(day0+60, "50", "2", false),
		trade(day0+120, "55", "1", true),
		trade(day0+86400+60, "60", "1", true),
	}
}

func TestAmountFormatter(t *testing.T) {
	tests := []struct {
		token string
		value float64
		want  string
	}{
		{"DAI", 1234567.891, "1,234,567.89 DAI"},
		{"usdt", -45, "-45.00 USDT"},
		{"eth", 0.5, "0.5000 ETH"},
	}
	for _, tt := range tests {
		if got := AmountFormatter(tt.token)(tt.value); got != tt.want {
			t.Fatalf("AmountFormatter(%s)(%v) = %q, want %q", tt.token, tt.value, got, tt.want)
		}
	}
}

func TestWritePnLText(t *testing.T) {
	vwaps := flat(3000, 52)
	report := processor.DailyReport(sampleTrades(), &vwaps, day0, 60)

	var buf bytes.Buffer
	if err := WritePnLText(&buf, report, "eth", "dai", generated); err != nil {
		t.Fatalf("WritePnLText: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"PnL report for ETH/DAI market-making:\n\n",
		"Cumulative net bought",
		"2018-02-12",
		"-45.00 DAI",
		processor.CaveatPartialDays,
		processor.CaveatLastWindow(60),
		"Remarks:\n" + processor.CaveatIncomplete,
		"Total number of trades: 3\n",
		"Total volume: 215.00 DAI\n",
		"Total profit: 15.00 DAI\n",
		"Generated at: 2018.02.14 10:00:00 UTC",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("report missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "n/a") {
		t.Fatalf("profits should be calculated:\n%s", out)
	}
}

func TestWritePnLTextWithoutPrices(t *testing.T) {
	report := processor.DailyReport(sampleTrades(), nil, -1, 60)

	var buf bytes.Buffer
	if err := WritePnLText(&buf, report, "ETH", "DAI", generated); err != nil {
		t.Fatalf("WritePnLText: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "n/a") {
		t.Fatalf("expected n/a profits:\n%s", out)
	}
	for _, absent := range []string{"Remarks:", "Total profit", "The last window"} {
		if strings.Contains(out, absent) {
			t.Fatalf("unexpected %q in report:\n%s", absent, out)
		}
	}
}

func TestTableAlignment(t *testing.T) {
	tbl := newTable([]string{"Name", "Value"}, []align{alignLeft, alignRight})
	tbl.add("a", "1")
	tbl.add("long", "12345")

	var buf bytes.Buffer
	if err := tbl.render(&buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	want := "Name   Value\n" +
		"============\n" +
		"a          1\n" +
		"long   12345\n"
	if buf.String() != want {
		t.Fatalf("unexpected table:\n%q\nwant\n%q", buf.String(), want)
	}
}

func TestWriteTradesText(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTradesText(&buf, sampleTrades(), "eth", "dai", generated); err != nil {
		t.Fatalf("WriteTradesText: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Trade history on the ETH-DAI pair:",
		"Amount in ETH",
		"Value in DAI",
		"2018-02-12 00:01:00 UTC",
		"50.00000000",
		"100.00000000",
		"Buy  = Somebody bought DAI from the keeper",
		"Sell = Somebody sold DAI to the keeper",
		"Number of trades: 3",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("listing missing %q:\n%s", want, out)
		}
	}
}

func TestWriteTradesJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTradesJSON(&buf, sampleTrades()[:1]); err != nil {
		t.Fatalf("WriteTradesJSON: %v", err)
	}
	var listed []map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &listed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(listed))
	}
	got := listed[0]
	if got["type"] != "Buy" || got["price"] != 50.0 || got["money"] != 100.0 || got["datetime"] != "2018-02-12 00:01:00 UTC" {
		t.Fatalf("unexpected listing: %v", got)
	}
}

func TestWritePriceHistory(t *testing.T) {
	prices := []models.PricePoint{{Timestamp: 60, Price: 10, Volume: 1}, {Timestamp: 120, Price: 10.5}}
	var buf bytes.Buffer
	if err := WritePriceHistory(&buf, prices); err != nil {
		t.Fatalf("WritePriceHistory: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 || lines[1] != `{"timestamp":120,"price":10.5,"volume":0}` {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}

func TestWriteChartCSV(t *testing.T) {
	chart := processor.Chart{
		CumulativeProfit: []processor.ChartPoint{{Timestamp: day0 + 60, Value: 4}, {Timestamp: day0 + 120, Value: 7}},
		Price:            []processor.ChartPoint{{Timestamp: day0, Value: 52.25}},
	}
	var buf bytes.Buffer
	if err := WriteChartCSV(&buf, chart); err != nil {
		t.Fatalf("WriteChartCSV: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected header and 3 rows, got %d", len(rows))
	}
	if rows[3][0] != "price" || rows[3][2] != "2018-02-12 00:00:00" || rows[3][3] != "52.25" {
		t.Fatalf("unexpected price row: %v", rows[3])
	}
}

func TestBuildLedger(t *testing.T) {
	trades := sampleTrades()
	vwaps := flat(5, 52)
	records := BuildLedger(trades, vwaps, day0)

	if len(records) != 3 {
		t.Fatalf("expected every trade in ledger, got %d", len(records))
	}
	if records[0].Profit == nil || *records[0].Profit != 4 || records[0].Vwap == nil || *records[0].Vwap != 52 {
		t.Fatalf("unexpected first record: %+v", records[0])
	}
	if records[1].CumulativeProfit != 7 {
		t.Fatalf("unexpected cumulative profit: %v", records[1].CumulativeProfit)
	}
	if records[2].Profit != nil || records[2].CumulativeProfit != 7 {
		t.Fatalf("trade past the last window should have no profit: %+v", records[2])
	}
}

func TestEncodeLedger(t *testing.T) {
	records := BuildLedger(sampleTrades(), flat(5, 52), day0)
	for _, compression := range []string{"snappy", "gzip", "none"} {
		data, err := EncodeLedger(records, compression)
		if err != nil {
			t.Fatalf("EncodeLedger(%s): %v", compression, err)
		}
		if len(data) < 8 || string(data[:4]) != "PAR1" || string(data[len(data)-4:]) != "PAR1" {
			t.Fatalf("output for %s is not a parquet file", compression)
		}
	}
	if _, err := EncodeLedger(records, "lz4"); err == nil {
		t.Fatalf("expected error for unsupported compression")
	}
}
