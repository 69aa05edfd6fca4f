package binance

import (
	"context"
	"fmt"
	"strconv"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"golang.org/x/time/rate"

	"keeperstats/config"
	"keeperstats/logger"
	"keeperstats/models"
	"keeperstats/reader"
)

// KlineReader builds a price series from one minute klines, pricing each
// minute at the middle of its high and low.
type KlineReader struct {
	client  *binance.Client
	symbol  string
	limiter *rate.Limiter
	backoff reader.Backoff
	log     *logger.Log
}

func NewKlineReader(cfg *config.Config) *KlineReader {
	return &KlineReader{
		client:  newClient(cfg),
		symbol:  cfg.Source.Binance.Symbol,
		limiter: newLimiter(cfg),
		backoff: reader.BackoffFromConfig(cfg.Reader.Retry),
		log:     logger.GetLogger(),
	}
}

func (r *KlineReader) Name() string {
	return "binance-" + r.symbol
}

// Prices implements reader.PriceSource.
func (r *KlineReader) Prices(ctx context.Context, from, to time.Time) ([]models.PricePoint, error) {
	log := r.log.WithComponent("binance_kline_reader").WithFields(logger.Fields{"symbol": r.symbol})

	var out []models.PricePoint
	next := millis(from)
	end := millis(to)
	for next <= end {
		var page []*binance.Kline
		err := reader.Retry(ctx, r.backoff, "binance_klines", func(ctx context.Context) error {
			if err := r.limiter.Wait(ctx); err != nil {
				return err
			}
			res, err := r.client.NewKlinesService().
				Symbol(r.symbol).
				Interval("1m").
				StartTime(next).
				EndTime(end).
				Limit(pageLimit).
				Do(ctx)
			page = res
			return classify(err, r.symbol)
		})
		if err != nil {
			return nil, fmt.Errorf("binance klines %s: %w", r.symbol, err)
		}
		if len(page) == 0 {
			break
		}
		for _, k := range page {
			p, err := klinePrice(k.OpenTime, k.High, k.Low, k.Volume)
			if err != nil {
				log.WithError(err).Warn("skipping malformed kline")
				continue
			}
			out = append(out, p)
		}
		next = page[len(page)-1].OpenTime + 60_000
		if len(page) < pageLimit {
			break
		}
	}

	logger.LogDataFlowEntry(log, "binance_api", "memory", len(out), "prices")
	return out, nil
}

// klinePrice converts a kline opening at openTime (ms) into a price point.
func klinePrice(openTime int64, high, low, volume string) (models.PricePoint, error) {
	h, err := strconv.ParseFloat(high, 64)
	if err != nil {
		return models.PricePoint{}, fmt.Errorf("high %q: %w", high, err)
	}
	l, err := strconv.ParseFloat(low, 64)
	if err != nil {
		return models.PricePoint{}, fmt.Errorf("low %q: %w", low, err)
	}
	v, err := strconv.ParseFloat(volume, 64)
	if err != nil {
		return models.PricePoint{}, fmt.Errorf("volume %q: %w", volume, err)
	}
	return models.PricePoint{Timestamp: openTime / 1000, Price: (h + l) / 2, Volume: v}, nil
}
