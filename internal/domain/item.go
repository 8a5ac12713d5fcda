package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item is a catalog entry whose price can change while clients watch it.
type Item struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	UpdatedAt   time.Time
}

// FormatPrice renders a catalog price, e.g. "$899.99 USD".
func FormatPrice(p decimal.Decimal) string {
	return "$" + p.StringFixed(2) + " USD"
}

// FormatAmount renders an offer amount, e.g. "$850.00".
func FormatAmount(a decimal.Decimal) string {
	return "$" + a.StringFixed(2)
}
