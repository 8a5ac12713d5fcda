package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PriceCache holds the last broadcast price per item.
type PriceCache interface {
	SetPrice(ctx context.Context, itemID string, price decimal.Decimal, ts time.Time) error
	GetPrice(ctx context.Context, itemID string) (decimal.Decimal, time.Time, error)
}

// SignalBus provides pub/sub between instances.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
