package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	"keeperstats/config"
	"keeperstats/internal/dashboard"
	"keeperstats/logger"
)

func cmdServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultPath, "Path to configuration file")
	_ = fs.Parse(args)

	cfg, log, err := bootstrap(*configPath)
	if err != nil {
		return fail(log, "Failed to load configuration", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := dashboard.NewServer(cfg.Dashboard, cfg.PnL.VwapMinutes, log)
	if err := srv.Run(ctx); err != nil {
		return fail(log, "Report api failed", err)
	}
	log.WithFields(logger.Fields{"service": cfg.App.Name}).Info("keeperstats stopped")
	return 0
}
