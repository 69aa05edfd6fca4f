package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"keeperstats/logger"
	"keeperstats/writer"
)

func cmdTrades(args []string) int {
	fs := flag.NewFlagSet("trades", flag.ExitOnError)
	common := registerCommon(fs)
	asText := fs.Bool("text", false, "Write a text table (default)")
	asJSON := fs.Bool("json", false, "Write a JSON listing readable by the file trade source")
	_ = fs.Parse(args)

	cfg, log, err := bootstrap(*common.configPath)
	if err != nil {
		return fail(log, "Failed to load configuration", err)
	}
	if *asText && *asJSON {
		return fail(log, "Invalid flags", fmt.Errorf("--text and --json are exclusive"))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer logger.LogRunSummary(context.Background(), log)

	from, to, err := period(cfg, *common.past)
	if err != nil {
		return fail(log, "Invalid period", err)
	}
	trades, err := fetchTrades(ctx, cfg, log, from, to)
	if err != nil {
		return fail(log, "Failed to load trades", err)
	}
	log.LogMetric("trades", "trade_count", len(trades), "gauge", nil)

	var buf bytes.Buffer
	var artifact writer.Artifact
	if *asJSON {
		err = writer.WriteTradesJSON(&buf, trades)
		artifact = writer.Artifact{Kind: "trades", Extension: "json", ContentType: "application/json"}
	} else {
		err = writer.WriteTradesText(&buf, trades, cfg.PnL.BaseToken, cfg.PnL.QuoteToken, time.Now())
		artifact = writer.Artifact{Kind: "trades", Extension: "txt", ContentType: "text/plain; charset=utf-8"}
	}
	if err != nil {
		return fail(log, "Failed to render trades", err)
	}
	artifact.Data = buf.Bytes()

	if err := emit(ctx, cfg, log, common, artifact); err != nil {
		return fail(log, "Failed to write trades", err)
	}
	return 0
}
