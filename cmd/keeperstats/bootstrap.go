package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"keeperstats/config"
	"keeperstats/internal/cache"
	"keeperstats/internal/storage"
	"keeperstats/logger"
	"keeperstats/reader"
	"keeperstats/reader/binance"
	"keeperstats/reader/bybit"
	"keeperstats/reader/file"
	"keeperstats/writer"
)

// commonFlags are shared by the report commands.
type commonFlags struct {
	configPath *string
	past       *string
	output     *string
	upload     *bool
}

func registerCommon(fs *flag.FlagSet) commonFlags {
	c := commonFlags{
		configPath: fs.String("config", config.DefaultPath, "Path to configuration file"),
		past:       fs.String("past", "", "Period to report on, e.g. 12h, 3d or 1w (default pnl.past)"),
		output:     fs.String("o", "", "Output file (default stdout)"),
		upload:     fs.Bool("upload", false, "Upload the output to S3"),
	}
	return c
}

// bootstrap loads .env and the configuration and configures logging and
// metrics.
func bootstrap(configPath string) (*config.Config, *logger.Log, error) {
	log := logger.GetLogger()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.WithError(err).Warn("Error loading .env file")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, log, err
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		return nil, log, fmt.Errorf("configure logger: %w", err)
	}

	if cfg.Metrics.CloudWatch {
		logger.InitCloudWatch(cfg.Metrics.Region, cfg.Metrics.Namespace, cfg.Metrics.DashboardName)
	}

	log.WithFields(logger.Fields{
		"service":     cfg.App.Name,
		"version":     cfg.App.Version,
		"environment": config.AppEnvironment(),
	}).Info("starting keeperstats")
	return cfg, log, nil
}

// period returns the [from, to] range ending now. An empty override uses
// pnl.past.
func period(cfg *config.Config, override string) (time.Time, time.Time, error) {
	past := cfg.PnL.Past
	if override != "" {
		past = override
	}
	d, err := config.ParsePast(past)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to := time.Now().UTC()
	return to.Add(-d), to, nil
}

func newTradeSource(cfg *config.Config) (reader.TradeSource, error) {
	switch cfg.Source.TradeSource {
	case "file":
		if cfg.Source.TradesFile == "" {
			return nil, fmt.Errorf("source.trades_file is required for the file trade source")
		}
		return file.NewTradesReader(cfg.Source.TradesFile), nil
	case "binance":
		return binance.NewTradeReader(cfg), nil
	}
	return nil, fmt.Errorf("unsupported trade source %q", cfg.Source.TradeSource)
}

// newPriceSource builds the configured price source. Exchange sources are
// wrapped with the price cache; the returned function closes it.
func newPriceSource(ctx context.Context, cfg *config.Config) (reader.PriceSource, func() error, error) {
	noop := func() error { return nil }

	var src reader.PriceSource
	switch cfg.Source.PriceSource {
	case "file":
		if cfg.Source.PriceHistoryFile == "" {
			return nil, nil, fmt.Errorf("source.price_history_file is required for the file price source")
		}
		return file.NewPriceHistoryReader(cfg.Source.PriceHistoryFile), noop, nil
	case "binance":
		src = binance.NewKlineReader(cfg)
	case "bybit":
		src = bybit.NewKlineReader(cfg)
	default:
		return nil, nil, fmt.Errorf("unsupported price source %q", cfg.Source.PriceSource)
	}

	priceCache, closeCache, err := cache.New(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if _, ok := priceCache.(cache.Nop); ok {
		return src, closeCache, nil
	}
	return reader.NewCachedPriceSource(src, priceCache), closeCache, nil
}

// emit writes data to the output path and uploads it when asked.
func emit(ctx context.Context, cfg *config.Config, log *logger.Log, flags commonFlags, artifact writer.Artifact) error {
	out, err := writer.Create(*flags.output)
	if err != nil {
		return err
	}
	if _, err := bytes.NewReader(artifact.Data).WriteTo(out); err != nil {
		out.Close()
		return fmt.Errorf("write output: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}

	if !*flags.upload {
		return nil
	}
	if !cfg.Storage.S3.Enabled {
		return fmt.Errorf("--upload requires storage.s3.enabled")
	}
	store, err := storage.NewS3Store(ctx, cfg.Storage.S3)
	if err != nil {
		return err
	}
	uri, err := writer.NewS3Uploader(store, cfg.App.Version).Upload(ctx, artifact)
	if err != nil {
		return err
	}
	log.WithComponent("main").WithFields(logger.Fields{"uri": uri}).Info("output uploaded")
	return nil
}

// fail logs err and returns the exit code for it.
func fail(log *logger.Log, msg string, err error) int {
	log.WithComponent("main").WithError(err).Error(msg)
	return 1
}
