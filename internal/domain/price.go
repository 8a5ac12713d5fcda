package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceChangeEvent describes one accepted price update. It is built once per
// update and never mutated afterwards.
type PriceChangeEvent struct {
	ItemID         string          `json:"itemId"`
	NewPrice       decimal.Decimal `json:"newPrice"`
	FormattedPrice string          `json:"formattedPrice"`
	Timestamp      time.Time       `json:"timestamp"`
}

// NewPriceChangeEvent builds the event for itemID at price, stamped with ts.
func NewPriceChangeEvent(itemID string, price decimal.Decimal, ts time.Time) PriceChangeEvent {
	return PriceChangeEvent{
		ItemID:         itemID,
		NewPrice:       price,
		FormattedPrice: FormatPrice(price),
		Timestamp:      ts,
	}
}
