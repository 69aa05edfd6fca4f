package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"keeperstats/config"
	"keeperstats/logger"
	"keeperstats/models"
	"keeperstats/processor"
	"keeperstats/reader"
	"keeperstats/writer"
)

func cmdPnL(args []string) int {
	fs := flag.NewFlagSet("pnl", flag.ExitOnError)
	common := registerCommon(fs)
	vwapMinutes := fs.Int("vwap-minutes", 0, "VWAP window in minutes (default pnl.vwap_minutes)")
	asText := fs.Bool("text", false, "Write the daily text report (default)")
	asChart := fs.Bool("chart", false, "Write chart series as CSV")
	asParquet := fs.Bool("parquet", false, "Write the per trade ledger as parquet")
	_ = fs.Parse(args)

	cfg, log, err := bootstrap(*common.configPath)
	if err != nil {
		return fail(log, "Failed to load configuration", err)
	}
	if *vwapMinutes > 0 {
		cfg.PnL.VwapMinutes = *vwapMinutes
	}

	selected := 0
	for _, b := range []bool{*asText, *asChart, *asParquet} {
		if b {
			selected++
		}
	}
	if selected > 1 {
		return fail(log, "Invalid flags", fmt.Errorf("--text, --chart and --parquet are exclusive"))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer logger.LogRunSummary(context.Background(), log)

	from, to, err := period(cfg, *common.past)
	if err != nil {
		return fail(log, "Invalid period", err)
	}

	trades, prices, err := loadPeriod(ctx, cfg, log, from, to)
	if err != nil {
		return fail(log, "Failed to load trades and prices", err)
	}

	start := time.Now()
	analysis := processor.Analyze(trades, prices, cfg.PnL.VwapMinutes)
	logger.LogPerformanceEntry(log.WithComponent("pnl"), "pnl", "analyze", time.Since(start), logger.Fields{
		"trades":       len(trades),
		"prices":       len(prices),
		"vwap_minutes": cfg.PnL.VwapMinutes,
	})

	report := analysis.Report
	log.LogMetric("pnl", "trade_count", report.TradeCount, "gauge", nil)
	log.LogMetric("pnl", "incomplete_days", report.IncompleteDays(), "gauge", nil)
	if report.ProfitCalculated {
		log.LogMetric("pnl", "total_profit", report.Profit, "gauge", logger.Fields{"token": cfg.PnL.QuoteToken})
	} else {
		log.WithComponent("pnl").Warn("no price data available, profits not calculated")
	}

	var buf bytes.Buffer
	var artifact writer.Artifact
	switch {
	case *asChart:
		err = writer.WriteChartCSV(&buf, analysis.Chart)
		artifact = writer.Artifact{Kind: "chart", Extension: "csv", ContentType: "text/csv"}
	case *asParquet:
		var data []byte
		data, err = writer.EncodeLedger(writer.BuildLedger(trades, analysis.Vwaps, analysis.VwapsStart), cfg.Writer.Parquet.Compression)
		buf.Write(data)
		artifact = writer.Artifact{Kind: "ledger", Extension: "parquet", ContentType: "application/octet-stream"}
	default:
		err = writer.WritePnLText(&buf, report, cfg.PnL.BaseToken, cfg.PnL.QuoteToken, time.Now())
		artifact = writer.Artifact{Kind: "pnl", Extension: "txt", ContentType: "text/plain; charset=utf-8"}
	}
	if err != nil {
		return fail(log, "Failed to render report", err)
	}
	artifact.Data = buf.Bytes()

	if err := emit(ctx, cfg, log, common, artifact); err != nil {
		return fail(log, "Failed to write report", err)
	}
	return 0
}

// loadPeriod fetches trades and prices for [from, to] from the configured
// sources.
func loadPeriod(ctx context.Context, cfg *config.Config, log *logger.Log, from, to time.Time) ([]models.TradeRecord, []models.PricePoint, error) {
	trades, err := fetchTrades(ctx, cfg, log, from, to)
	if err != nil {
		return nil, nil, err
	}

	priceSource, closeSource, err := newPriceSource(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	defer closeSource()

	start := time.Now()
	prices, err := priceSource.Prices(ctx, from, to)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch prices: %w", err)
	}
	logger.LogPerformanceEntry(log.WithComponent("pnl"), "pnl", "fetch_prices", time.Since(start), logger.Fields{
		"source": cfg.Source.PriceSource,
		"points": len(prices),
	})
	return trades, prices, nil
}

func fetchTrades(ctx context.Context, cfg *config.Config, log *logger.Log, from, to time.Time) ([]models.TradeRecord, error) {
	tradeSource, err := newTradeSource(cfg)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	trades, err := tradeSource.Trades(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("fetch trades: %w", err)
	}
	if err := reader.ValidateTrades(trades); err != nil {
		return nil, err
	}
	logger.LogPerformanceEntry(log.WithComponent("pnl"), "pnl", "fetch_trades", time.Since(start), logger.Fields{
		"source": cfg.Source.TradeSource,
		"trades": len(trades),
	})
	return models.SortTrades(trades), nil
}
