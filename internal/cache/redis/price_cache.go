package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/collectibles/internal/domain"
)

// PriceCache implements domain.PriceCache using Redis hashes. Each item is a
// hash at "{prefix}price:{itemID}" with fields "price" and "ts" (Unix nanos).
type PriceCache struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewPriceCache creates a PriceCache. A zero ttl keeps entries forever.
func NewPriceCache(c *Client, ttl time.Duration) *PriceCache {
	return &PriceCache{rdb: c.Underlying(), prefix: c.prefix, ttl: ttl}
}

func (pc *PriceCache) priceKey(itemID string) string {
	return pc.prefix + "price:" + itemID
}

// SetPrice stores the latest price and timestamp for an item.
func (pc *PriceCache) SetPrice(ctx context.Context, itemID string, price decimal.Decimal, ts time.Time) error {
	key := pc.priceKey(itemID)
	pipe := pc.rdb.TxPipeline()
	pipe.HSet(ctx, key, encodePrice(price, ts))
	if pc.ttl > 0 {
		pipe.Expire(ctx, key, pc.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set price %s: %w", itemID, err)
	}
	return nil
}

// GetPrice returns domain.ErrNotFound when no price is cached for itemID.
func (pc *PriceCache) GetPrice(ctx context.Context, itemID string) (decimal.Decimal, time.Time, error) {
	vals, err := pc.rdb.HGetAll(ctx, pc.priceKey(itemID)).Result()
	if err != nil {
		return decimal.Decimal{}, time.Time{}, fmt.Errorf("redis: get price %s: %w", itemID, err)
	}
	price, ts, err := decodePrice(vals)
	if err != nil {
		return decimal.Decimal{}, time.Time{}, fmt.Errorf("redis: get price %s: %w", itemID, err)
	}
	return price, ts, nil
}

func encodePrice(price decimal.Decimal, ts time.Time) map[string]any {
	return map[string]any{
		"price": price.String(),
		"ts":    strconv.FormatInt(ts.UnixNano(), 10),
	}
}

func decodePrice(vals map[string]string) (decimal.Decimal, time.Time, error) {
	priceStr, ok := vals["price"]
	if !ok {
		return decimal.Decimal{}, time.Time{}, domain.ErrNotFound
	}
	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return decimal.Decimal{}, time.Time{}, fmt.Errorf("parse price: %w", err)
	}

	tsStr, ok := vals["ts"]
	if !ok {
		return price, time.Time{}, nil
	}
	tsNano, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return decimal.Decimal{}, time.Time{}, fmt.Errorf("parse ts: %w", err)
	}
	return price, time.Unix(0, tsNano), nil
}

// Compile-time interface check.
var _ domain.PriceCache = (*PriceCache)(nil)
