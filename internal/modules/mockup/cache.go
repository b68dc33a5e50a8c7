// Package mockup caches the preview image URL of remote products.
package mockup

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/georgemunganga/printa-catalog/internal/platform/observability"
)

const (
	DefaultSize = 256
	DefaultTTL  = 10 * time.Minute
)

// Source looks up the first mockup image of a remote product.
type Source interface {
	MockupURL(ctx context.Context, externalID string) (string, error)
}

// Cache is a size-bounded, time-expiring cache in front of a Source.
// Failed lookups are not cached.
type Cache struct {
	src    Source
	lru    *expirable.LRU[string, string]
	group  singleflight.Group
	logger *zap.Logger
}

// New returns a cache holding at most size entries for ttl each. Zero
// values take the defaults.
func New(src Source, size int, ttl time.Duration, logger *zap.Logger) *Cache {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		src:    src,
		lru:    expirable.NewLRU[string, string](size, nil, ttl),
		logger: observability.OrNop(logger),
	}
}

// MockupURL returns the cached URL or fetches it. Concurrent misses for the
// same product share one fetch.
func (c *Cache) MockupURL(ctx context.Context, externalID string) (string, error) {
	if url, ok := c.lru.Get(externalID); ok {
		return url, nil
	}
	v, err, _ := c.group.Do(externalID, func() (any, error) {
		url, err := c.src.MockupURL(ctx, externalID)
		if err != nil {
			return "", err
		}
		c.lru.Add(externalID, url)
		c.logger.Debug("mockup cached", zap.String("external_id", externalID))
		return url, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Invalidate drops the entry for a product.
func (c *Cache) Invalidate(externalID string) {
	c.lru.Remove(externalID)
}

func (c *Cache) Len() int { return c.lru.Len() }
