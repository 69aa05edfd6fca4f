package main

import (
	"bytes"
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"keeperstats/logger"
	"keeperstats/writer"
)

// cmdPrices dumps the configured price source as a price history file.
func cmdPrices(args []string) int {
	fs := flag.NewFlagSet("prices", flag.ExitOnError)
	common := registerCommon(fs)
	_ = fs.Parse(args)

	cfg, log, err := bootstrap(*common.configPath)
	if err != nil {
		return fail(log, "Failed to load configuration", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer logger.LogRunSummary(context.Background(), log)

	from, to, err := period(cfg, *common.past)
	if err != nil {
		return fail(log, "Invalid period", err)
	}

	source, closeSource, err := newPriceSource(ctx, cfg)
	if err != nil {
		return fail(log, "Failed to create price source", err)
	}
	defer closeSource()

	start := time.Now()
	prices, err := source.Prices(ctx, from, to)
	if err != nil {
		return fail(log, "Failed to fetch prices", err)
	}
	logger.LogPerformanceEntry(log.WithComponent("prices"), "prices", "fetch_prices", time.Since(start), logger.Fields{
		"source": cfg.Source.PriceSource,
		"points": len(prices),
	})

	var buf bytes.Buffer
	if err := writer.WritePriceHistory(&buf, prices); err != nil {
		return fail(log, "Failed to render prices", err)
	}
	artifact := writer.Artifact{Kind: "prices", Extension: "jsonl", ContentType: "application/x-ndjson", Data: buf.Bytes()}
	if err := emit(ctx, cfg, log, common, artifact); err != nil {
		return fail(log, "Failed to write prices", err)
	}
	return 0
}
