package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"keeperstats/config"
)

func testConfig(baseURL string) *config.Config {
	cfg := config.Default()
	cfg.Reader.Timeout = 5 * time.Second
	cfg.Reader.RateLimit = config.RateLimitConfig{RequestsPerSecond: 1000, BurstSize: 10}
	cfg.Reader.Retry = config.RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, BackoffMultiplier: 2}
	cfg.Source.Binance = config.BinanceSourceConfig{BaseURL: baseURL, APIKey: "key", SecretKey: "secret", Symbol: "ETHDAI"}
	return &cfg
}

func TestTradeReader(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/myTrades" {
			http.NotFound(w, r)
			return
		}
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"code":-1003,"msg":"Too many requests."}`)
			return
		}
		if r.URL.Query().Get("symbol") != "ETHDAI" {
			t.Errorf("unexpected symbol: %s", r.URL.Query().Get("symbol"))
		}
		fmt.Fprint(w, `[
			{"symbol":"ETHDAI","id":1,"orderId":10,"orderListId":-1,"price":"50.0","qty":"2.0","quoteQty":"100.0","commission":"0","commissionAsset":"DAI","time":1000000,"isBuyer":true,"isMaker":true,"isBestMatch":true},
			{"symbol":"ETHDAI","id":2,"orderId":11,"orderListId":-1,"price":"55.0","qty":"1.0","quoteQty":"55.0","commission":"0","commissionAsset":"DAI","time":1060000,"isBuyer":false,"isMaker":true,"isBestMatch":true}
		]`)
	}))
	defer srv.Close()

	r := NewTradeReader(testConfig(srv.URL))
	trades, err := r.Trades(context.Background(), time.Unix(900, 0), time.Unix(2000, 0))
	if err != nil {
		t.Fatalf("Trades: %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(trades))
	}
	if trades[0].IsSell || !trades[1].IsSell {
		t.Fatalf("keeper side not derived from isBuyer: %+v", trades)
	}
	if trades[0].Timestamp != 1000 || !trades[0].Money.Equal(decimal.NewFromInt(100)) || trades[0].ID != "1" {
		t.Fatalf("unexpected first trade: %+v", trades[0])
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("expected one retry, got %d calls", calls)
	}
}

func TestTradeReaderPermanentError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"code":-1121,"msg":"Invalid symbol."}`)
	}))
	defer srv.Close()

	r := NewTradeReader(testConfig(srv.URL))
	if _, err := r.Trades(context.Background(), time.Unix(0, 0), time.Unix(60, 0)); err == nil {
		t.Fatalf("expected error")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("invalid symbol must not be retried, got %d calls", calls)
	}
}

func TestKlineReaderPaging(t *testing.T) {
	const total = pageLimit + 5
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/klines" {
			http.NotFound(w, r)
			return
		}
		start, _ := strconv.ParseInt(r.URL.Query().Get("startTime"), 10, 64)
		var rows [][]interface{}
		for i := 0; i < total; i++ {
			open := int64(i) * 60_000
			if open < start || len(rows) == pageLimit {
				continue
			}
			rows = append(rows, []interface{}{open, "1", "12", "8", "1", "3", open + 59_999, "30", 4, "1", "10", "0"})
		}
		_ = json.NewEncoder(w).Encode(rows)
	}))
	defer srv.Close()

	r := NewKlineReader(testConfig(srv.URL))
	prices, err := r.Prices(context.Background(), time.Unix(0, 0), time.Unix(int64(total)*60, 0))
	if err != nil {
		t.Fatalf("Prices: %v", err)
	}
	if len(prices) != total {
		t.Fatalf("expected %d prices, got %d", total, len(prices))
	}
	if prices[1].Timestamp != 60 || prices[1].Price != 10 || prices[1].Volume != 3 {
		t.Fatalf("unexpected price point: %+v", prices[1])
	}
	if prices[total-1].Timestamp != int64(total-1)*60 {
		t.Fatalf("last point: %+v", prices[total-1])
	}
}

func TestKlinePrice(t *testing.T) {
	if _, err := klinePrice(0, "x", "1", "1"); err == nil {
		t.Fatalf("expected error for malformed high")
	}
	p, err := klinePrice(120_000, "3", "1", "0.5")
	if err != nil || p.Timestamp != 120 || p.Price != 2 || p.Volume != 0.5 {
		t.Fatalf("unexpected point %+v, %v", p, err)
	}
}
