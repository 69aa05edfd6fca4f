package bybit

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

	"keeperstats/config"
)

func testConfig(baseURL string) *config.Config {
	cfg := config.Default()
	cfg.Reader.RateLimit = config.RateLimitConfig{RequestsPerSecond: 1000, BurstSize: 10}
	cfg.Reader.Retry = config.RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, BackoffMultiplier: 2}
	cfg.Source.Bybit = config.BybitSourceConfig{BaseURL: baseURL, Category: "spot", Symbol: "ethusdt"}
	return &cfg
}

func klineResponse(rows [][]string) map[string]interface{} {
	return map[string]interface{}{
		"retCode":    0,
		"retMsg":     "OK",
		"result":     map[string]interface{}{"category": "spot", "symbol": "ETHUSDT", "list": rows},
		"retExtInfo": map[string]interface{}{},
		"time":       1672025956592,
	}
}

func TestKlineReader(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v5/market/kline" {
			http.NotFound(w, r)
			return
		}
		if atomic.AddInt32(&calls, 1) == 1 {
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"retCode": retCodeRateLimited, "retMsg": "Too many visits!"})
			return
		}
		q := r.URL.Query()
		if q.Get("symbol") != "ETHUSDT" || q.Get("interval") != "1" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		start, _ := strconv.ParseInt(q.Get("start"), 10, 64)
		rows := [][]string{}
		for i := 2; i >= 0; i-- {
			open := start + int64(i)*60_000
			rows = append(rows, []string{strconv.FormatInt(open, 10), "1", "12", "8", "1", "3", "30"})
		}
		_ = json.NewEncoder(w).Encode(klineResponse(rows))
	}))
	defer srv.Close()

	r := NewKlineReader(testConfig(srv.URL))
	prices, err := r.Prices(context.Background(), time.Unix(600, 0), time.Unix(900, 0))
	if err != nil {
		t.Fatalf("Prices: %v", err)
	}
	if len(prices) != 3 {
		t.Fatalf("expected 3 prices, got %d", len(prices))
	}
	for i, p := range prices {
		if p.Timestamp != int64(600+60*i) || p.Price != 10 || p.Volume != 3 {
			t.Fatalf("unexpected point %d: %+v", i, p)
		}
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("expected a retry after rate limiting, got %d calls", calls)
	}
}

func TestKlineReaderPermanentError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		fmt.Fprint(w, `{"retCode":10001,"retMsg":"Not supported symbols","result":{},"retExtInfo":{},"time":1}`)
	}))
	defer srv.Close()

	r := NewKlineReader(testConfig(srv.URL))
	if _, err := r.Prices(context.Background(), time.Unix(0, 0), time.Unix(60, 0)); err == nil {
		t.Fatalf("expected error")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("parameter errors must not be retried, got %d calls", calls)
	}
}

func TestRowPrice(t *testing.T) {
	if _, err := rowPrice([]string{"1", "2"}); err == nil {
		t.Fatalf("expected error for short row")
	}
	p, err := rowPrice([]string{"120000", "1", "4", "2", "3", "7", "21"})
	if err != nil || p.Timestamp != 120 || p.Price != 3 || p.Volume != 7 {
		t.Fatalf("unexpected point %+v, %v", p, err)
	}
}
