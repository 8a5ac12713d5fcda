package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PriceStore reads and updates the price of a catalog item. Implementations
// return ErrNotFound for unknown items and wrap everything else with ErrStorage.
type PriceStore interface {
	GetPrice(ctx context.Context, itemID string) (decimal.Decimal, error)
	SetPrice(ctx context.Context, itemID string, price decimal.Decimal) error
}

// Catalog answers item lookups for offer validation and display.
type Catalog interface {
	Exists(ctx context.Context, itemID string) (bool, error)
	GetItem(ctx context.Context, itemID string) (Item, error)
}

// ItemStore is a catalog whose prices can be updated.
type ItemStore interface {
	PriceStore
	Catalog
}

// ListOpts provides pagination for list queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64          `json:"id"`
	Event     string         `json:"event"`
	Detail    map[string]any `json:"detail"`
	CreatedAt time.Time      `json:"createdAt"`
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
