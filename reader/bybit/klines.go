// Package bybit reads one minute klines from the Bybit v5 market API.
package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	bybit "github.com/bybit-exchange/bybit.go.api"
	"golang.org/x/time/rate"

	"keeperstats/config"
	"keeperstats/logger"
	"keeperstats/models"
	"keeperstats/reader"
)

const (
	pageLimit          = 1000
	retCodeRateLimited = 10006
)

// KlineReader builds a price series from Bybit one minute klines, pricing
// each minute at the middle of its high and low.
type KlineReader struct {
	client   *bybit.Client
	category string
	symbol   string
	limiter  *rate.Limiter
	backoff  reader.Backoff
	log      *logger.Log
}

func NewKlineReader(cfg *config.Config) *KlineReader {
	src := cfg.Source.Bybit
	client := bybit.NewBybitHttpClient("", "", bybit.WithBaseURL(strings.TrimRight(src.BaseURL, "/")))
	client.HTTPClient = &http.Client{Timeout: cfg.Reader.Timeout}

	rps := cfg.Reader.RateLimit.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	burst := cfg.Reader.RateLimit.BurstSize
	if burst <= 0 {
		burst = 1
	}

	category := src.Category
	if category == "" {
		category = "spot"
	}

	return &KlineReader{
		client:   client,
		category: category,
		symbol:   strings.ToUpper(src.Symbol),
		limiter:  rate.NewLimiter(rate.Limit(rps), burst),
		backoff:  reader.BackoffFromConfig(cfg.Reader.Retry),
		log:      logger.GetLogger(),
	}
}

func (r *KlineReader) Name() string {
	return "bybit-" + r.category + "-" + r.symbol
}

type klineResult struct {
	Category string     `json:"category"`
	Symbol   string     `json:"symbol"`
	List     [][]string `json:"list"`
}

// Prices implements reader.PriceSource.
func (r *KlineReader) Prices(ctx context.Context, from, to time.Time) ([]models.PricePoint, error) {
	log := r.log.WithComponent("bybit_kline_reader").WithFields(logger.Fields{"symbol": r.symbol, "category": r.category})

	var out []models.PricePoint
	next := from.UnixMilli()
	end := to.UnixMilli()
	for next <= end {
		var result klineResult
		err := reader.Retry(ctx, r.backoff, "bybit_klines", func(ctx context.Context) error {
			if err := r.limiter.Wait(ctx); err != nil {
				return err
			}
			res, err := r.fetch(ctx, next, end)
			result = res
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("bybit klines %s: %w", r.symbol, err)
		}

		page := make([]models.PricePoint, 0, len(result.List))
		for _, row := range result.List {
			p, err := rowPrice(row)
			if err != nil {
				log.WithError(err).Warn("skipping malformed kline")
				continue
			}
			page = append(page, p)
		}
		if len(page) == 0 {
			break
		}
		// rows come newest first
		sort.Slice(page, func(i, j int) bool { return page[i].Timestamp < page[j].Timestamp })
		out = append(out, page...)

		next = (page[len(page)-1].Timestamp + 60) * 1000
		if len(result.List) < pageLimit {
			break
		}
	}

	logger.LogDataFlowEntry(log, "bybit_api", "memory", len(out), "prices")
	return out, nil
}

func (r *KlineReader) fetch(ctx context.Context, start, end int64) (klineResult, error) {
	params := map[string]interface{}{
		"category": r.category,
		"symbol":   r.symbol,
		"interval": "1",
		"start":    start,
		"end":      end,
		"limit":    pageLimit,
	}
	resp, err := r.client.NewUtaBybitServiceWithParams(params).GetMarketKline(ctx)
	if err != nil {
		return klineResult{}, err
	}
	if resp.RetCode != 0 {
		err := fmt.Errorf("bybit error %d: %s", resp.RetCode, resp.RetMsg)
		if resp.RetCode == retCodeRateLimited {
			reader.ReportRateLimited("bybit", r.symbol)
			return klineResult{}, err
		}
		return klineResult{}, reader.Permanent(err)
	}

	payload, err := json.Marshal(resp.Result)
	if err != nil {
		return klineResult{}, reader.Permanent(fmt.Errorf("marshal kline result: %w", err))
	}
	var result klineResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return klineResult{}, reader.Permanent(fmt.Errorf("decode kline result: %w", err))
	}
	return result, nil
}

// rowPrice converts [startTime, open, high, low, close, volume, turnover].
func rowPrice(row []string) (models.PricePoint, error) {
	if len(row) < 6 {
		return models.PricePoint{}, fmt.Errorf("kline row has %d fields", len(row))
	}
	values := make([]float64, 6)
	for i := range values {
		v, err := strconv.ParseFloat(row[i], 64)
		if err != nil {
			return models.PricePoint{}, fmt.Errorf("kline field %d %q: %w", i, row[i], err)
		}
		values[i] = v
	}
	return models.PricePoint{
		Timestamp: int64(values[0]) / 1000,
		Price:     (values[2] + values[3]) / 2,
		Volume:    values[5],
	}, nil
}
