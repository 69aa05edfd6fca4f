package binance

import (
	"context"
	"fmt"
	"strconv"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"keeperstats/config"
	"keeperstats/logger"
	"keeperstats/models"
	"keeperstats/reader"
)

// myTrades accepts at most a 24 hour range per request.
const tradeWindow = 24 * time.Hour

// TradeReader lists the account's own trades on one symbol.
type TradeReader struct {
	client  *binance.Client
	symbol  string
	limiter *rate.Limiter
	backoff reader.Backoff
	log     *logger.Log
}

func NewTradeReader(cfg *config.Config) *TradeReader {
	r := &TradeReader{
		client:  newClient(cfg),
		symbol:  cfg.Source.Binance.Symbol,
		limiter: newLimiter(cfg),
		backoff: reader.BackoffFromConfig(cfg.Reader.Retry),
		log:     logger.GetLogger(),
	}
	r.log.WithComponent("binance_trade_reader").WithFields(logger.Fields{
		"symbol":  r.symbol,
		"timeout": cfg.Reader.Timeout,
	}).Info("binance trade reader initialized")
	return r
}

func (r *TradeReader) Name() string {
	return "binance"
}

// Trades implements reader.TradeSource.
func (r *TradeReader) Trades(ctx context.Context, from, to time.Time) ([]models.TradeRecord, error) {
	log := r.log.WithComponent("binance_trade_reader").WithFields(logger.Fields{"symbol": r.symbol})
	start := time.Now()

	var trades []models.TradeRecord
	for windowStart := from; !windowStart.After(to); windowStart = windowStart.Add(tradeWindow) {
		windowEnd := windowStart.Add(tradeWindow - time.Millisecond)
		if windowEnd.After(to) {
			windowEnd = to
		}
		batch, err := r.window(ctx, windowStart, windowEnd)
		if err != nil {
			return nil, err
		}
		trades = append(trades, batch...)
	}

	logger.LogPerformanceEntry(log, "binance_trade_reader", "list_trades", time.Since(start), logger.Fields{"symbol": r.symbol})
	logger.LogDataFlowEntry(log, "binance_api", "memory", len(trades), "trades")
	return trades, nil
}

// window pages through one time window, switching to fromId paging once a
// full page comes back.
func (r *TradeReader) window(ctx context.Context, from, to time.Time) ([]models.TradeRecord, error) {
	var out []models.TradeRecord
	var fromID int64 = -1
	for {
		var page []*binance.TradeV3
		err := reader.Retry(ctx, r.backoff, "binance_my_trades", func(ctx context.Context) error {
			if err := r.limiter.Wait(ctx); err != nil {
				return err
			}
			svc := r.client.NewListTradesService().Symbol(r.symbol).Limit(pageLimit)
			if fromID >= 0 {
				svc = svc.FromID(fromID)
			} else {
				svc = svc.StartTime(millis(from)).EndTime(millis(to))
			}
			res, err := svc.Do(ctx)
			page = res
			return classify(err, r.symbol)
		})
		if err != nil {
			return nil, fmt.Errorf("binance trades %s: %w", r.symbol, err)
		}

		done := len(page) < pageLimit
		for _, t := range page {
			if t.Time > millis(to) {
				done = true
				break
			}
			rec, err := toTradeRecord(t)
			if err != nil {
				return nil, err
			}
			out = append(out, rec)
			fromID = t.ID + 1
		}
		if done || len(page) == 0 {
			return out, nil
		}
	}
}

func toTradeRecord(t *binance.TradeV3) (models.TradeRecord, error) {
	price, err := decimal.NewFromString(t.Price)
	if err != nil {
		return models.TradeRecord{}, fmt.Errorf("trade %d: price %q: %w", t.ID, t.Price, err)
	}
	amount, err := decimal.NewFromString(t.Quantity)
	if err != nil {
		return models.TradeRecord{}, fmt.Errorf("trade %d: quantity %q: %w", t.ID, t.Quantity, err)
	}
	rec := models.NewTradeRecord(t.Time/1000, price, amount, !t.IsBuyer)
	rec.ID = strconv.FormatInt(t.ID, 10)
	rec.Pair = t.Symbol
	return rec, rec.Validate()
}
