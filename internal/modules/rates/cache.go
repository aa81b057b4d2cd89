// README: Read-through Redis cache in front of the rate store.
package rates

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"garage/internal/modules/billing"
)

const (
	tariffKeyPrefix   = "rates:tariff:"
	discountKeyPrefix = "rates:discount:"
	pricingKey        = "rates:pricing:active"
)

// Source is the read side of the rate configuration.
type Source interface {
	GetTariff(ctx context.Context, zone billing.ZoneType) (*billing.Tariff, error)
	ActivePricingConfig(ctx context.Context) (*billing.DynamicPricingConfig, error)
	GetDiscountInfo(ctx context.Context, userID string) (*billing.DiscountInfo, error)
}

// Cache serves from Redis and falls back to the wrapped Source on miss.
// Cached values were validated when first loaded from the Source.
type Cache struct {
	redis *redis.Client
	next  Source
	ttl   time.Duration
}

func NewCache(redis *redis.Client, next Source, ttl time.Duration) *Cache {
	return &Cache{redis: redis, next: next, ttl: ttl}
}

func (c *Cache) GetTariff(ctx context.Context, zone billing.ZoneType) (*billing.Tariff, error) {
	return readThrough(ctx, c, tariffKeyPrefix+string(zone), func() (*billing.Tariff, error) {
		return c.next.GetTariff(ctx, zone)
	})
}

func (c *Cache) ActivePricingConfig(ctx context.Context) (*billing.DynamicPricingConfig, error) {
	return readThrough(ctx, c, pricingKey, func() (*billing.DynamicPricingConfig, error) {
		return c.next.ActivePricingConfig(ctx)
	})
}

func (c *Cache) GetDiscountInfo(ctx context.Context, userID string) (*billing.DiscountInfo, error) {
	return readThrough(ctx, c, discountKeyPrefix+userID, func() (*billing.DiscountInfo, error) {
		return c.next.GetDiscountInfo(ctx, userID)
	})
}

func (c *Cache) InvalidateTariff(ctx context.Context, zone billing.ZoneType) error {
	return c.redis.Del(ctx, tariffKeyPrefix+string(zone)).Err()
}

func (c *Cache) InvalidatePricing(ctx context.Context) error {
	return c.redis.Del(ctx, pricingKey).Err()
}

func (c *Cache) InvalidateDiscount(ctx context.Context, userID string) error {
	return c.redis.Del(ctx, discountKeyPrefix+userID).Err()
}

func readThrough[T any](ctx context.Context, c *Cache, key string, load func() (*T, error)) (*T, error) {
	raw, err := c.redis.Get(ctx, key).Bytes()
	if err == nil {
		var v T
		if json.Unmarshal(raw, &v) == nil {
			return &v, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		return nil, err
	}

	v, err := load()
	if err != nil {
		return nil, err
	}
	if payload, err := json.Marshal(v); err == nil {
		_ = c.redis.Set(ctx, key, payload, c.ttl).Err()
	}
	return v, nil
}
