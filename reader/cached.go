package reader

import (
	"context"
	"fmt"
	"time"

	"keeperstats/logger"
	"keeperstats/models"
)

// PriceCache stores price batches under string keys.
type PriceCache interface {
	Get(ctx context.Context, key string) ([]models.PricePoint, bool, error)
	Put(ctx context.Context, key string, batch []models.PricePoint) error
}

// CachedPriceSource serves prices one UTC day at a time, reading finished
// days from the cache and storing them after a fetch. The current day is
// always fetched.
type CachedPriceSource struct {
	source PriceSource
	cache  PriceCache
	name   string
	now    func() time.Time
	log    *logger.Log
}

func NewCachedPriceSource(source PriceSource, cache PriceCache) *CachedPriceSource {
	return &CachedPriceSource{
		source: source,
		cache:  cache,
		name:   nameOf(source),
		now:    time.Now,
		log:    logger.GetLogger(),
	}
}

func (c *CachedPriceSource) Name() string {
	return c.name
}

func (c *CachedPriceSource) batchKey(day time.Time) string {
	return fmt.Sprintf("%s/%s", c.name, day.Format("20060102"))
}

// Prices implements PriceSource.
func (c *CachedPriceSource) Prices(ctx context.Context, from, to time.Time) ([]models.PricePoint, error) {
	log := c.log.WithComponent("price_cache").WithFields(logger.Fields{"source": c.name})
	now := c.now().UTC()

	var out []models.PricePoint
	hits, misses := 0, 0
	for day := from.UTC().Truncate(24 * time.Hour); !day.After(to); day = day.Add(24 * time.Hour) {
		dayEnd := day.Add(24*time.Hour - time.Second)
		complete := dayEnd.Before(now)

		var batch []models.PricePoint
		cached := false
		if complete {
			b, ok, err := c.cache.Get(ctx, c.batchKey(day))
			if err != nil {
				log.WithError(err).Warn("price cache read failed")
			} else if ok {
				batch, cached = b, true
			}
		}

		if cached {
			hits++
		} else {
			misses++
			b, err := c.source.Prices(ctx, day, dayEnd)
			if err != nil {
				return nil, fmt.Errorf("fetch prices for %s: %w", day.Format("2006-01-02"), err)
			}
			batch = b
			if complete {
				if err := c.cache.Put(ctx, c.batchKey(day), batch); err != nil {
					log.WithError(err).Warn("price cache write failed")
				}
			}
		}

		for _, p := range batch {
			if p.Timestamp >= from.Unix() && p.Timestamp <= to.Unix() {
				out = append(out, p)
			}
		}
	}

	log.WithFields(logger.Fields{"hits": hits, "misses": misses, "points": len(out)}).Debug("served prices")
	return out, nil
}
