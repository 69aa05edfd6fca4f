// Package cache stores finished days of price history so repeated report
// runs do not refetch them.
package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"keeperstats/config"
	"keeperstats/internal/storage"
	"keeperstats/logger"
	"keeperstats/models"
	"keeperstats/reader"
)

// Nop never hits and drops every write.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]models.PricePoint, bool, error) { return nil, false, nil }
func (Nop) Put(context.Context, string, []models.PricePoint) error        { return nil }

// New builds the cache selected by cache.backend. The returned close
// function releases backend connections.
func New(ctx context.Context, cfg *config.Config) (reader.PriceCache, func() error, error) {
	noop := func() error { return nil }
	log := logger.GetLogger().WithComponent("price_cache").WithFields(logger.Fields{"backend": cfg.Cache.Backend})

	switch cfg.Cache.Backend {
	case "", "none":
		return Nop{}, noop, nil
	case "file":
		c, err := NewFileCache(cfg.Cache.Dir, cfg.Cache.TTL)
		if err != nil {
			return nil, nil, err
		}
		log.WithFields(logger.Fields{"dir": cfg.Cache.Dir}).Info("using file price cache")
		return c, noop, nil
	case "s3":
		store, err := storage.NewS3Store(ctx, cfg.Storage.S3)
		if err != nil {
			return nil, nil, err
		}
		log.WithFields(logger.Fields{"bucket": cfg.Storage.S3.Bucket}).Info("using s3 price cache")
		return NewS3Cache(store, cfg.Cache.Prefix), noop, nil
	case "redis":
		c, err := NewRedisCache(ctx, cfg.Cache.Redis, cfg.Cache.TTL)
		if err != nil {
			return nil, nil, err
		}
		log.WithFields(logger.Fields{"addr": cfg.Cache.Redis.Addr}).Info("using redis price cache")
		return c, c.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
}

func encode(batch []models.PricePoint) ([]byte, error) {
	if batch == nil {
		batch = []models.PricePoint{}
	}
	data, err := json.Marshal(batch)
	if err != nil {
		return nil, fmt.Errorf("encode price batch: %w", err)
	}
	return data, nil
}

func decode(data []byte) ([]models.PricePoint, error) {
	var batch []models.PricePoint
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, fmt.Errorf("decode price batch: %w", err)
	}
	return batch, nil
}
