package cache

import (
	"context"
	"path"

	"keeperstats/internal/storage"
	"keeperstats/models"
)

type objectStore interface {
	Get(ctx context.Context, name string) ([]byte, bool, error)
	Put(ctx context.Context, name string, data []byte, contentType string, metadata map[string]string) error
}

var _ objectStore = (*storage.S3Store)(nil)

// S3Cache stores price batches as JSON objects under prefix.
type S3Cache struct {
	store  objectStore
	prefix string
}

func NewS3Cache(store objectStore, prefix string) *S3Cache {
	return &S3Cache{store: store, prefix: prefix}
}

func (c *S3Cache) name(key string) string {
	return path.Join(c.prefix, key+".json")
}

func (c *S3Cache) Get(ctx context.Context, key string) ([]models.PricePoint, bool, error) {
	data, ok, err := c.store.Get(ctx, c.name(key))
	if err != nil || !ok {
		return nil, false, err
	}
	batch, err := decode(data)
	if err != nil {
		return nil, false, err
	}
	return batch, true, nil
}

func (c *S3Cache) Put(ctx context.Context, key string, batch []models.PricePoint) error {
	data, err := encode(batch)
	if err != nil {
		return err
	}
	return c.store.Put(ctx, c.name(key), data, "application/json", map[string]string{"content-type": "price-batch"})
}
