package domain

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Offer is a buyer's proposed purchase amount for one catalog item. Offers are
// created once and never updated or deleted.
type Offer struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Email  string          `json:"email"`
	ItemID string          `json:"itemId"`
	Amount decimal.Decimal `json:"amount"`
}

// MarshalJSON writes Amount as a JSON number so ledger files stay readable by
// tools that expect {"amount": 850.0}.
func (o Offer) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID     string      `json:"id"`
		Name   string      `json:"name"`
		Email  string      `json:"email"`
		ItemID string      `json:"itemId"`
		Amount json.Number `json:"amount"`
	}{
		ID:     o.ID,
		Name:   o.Name,
		Email:  o.Email,
		ItemID: o.ItemID,
		Amount: json.Number(o.Amount.String()),
	})
}

// DisplayAmount returns the amount formatted for listings.
func (o Offer) DisplayAmount() string {
	return FormatAmount(o.Amount)
}

// OfferView is an offer decorated for listings.
type OfferView struct {
	Offer
	DisplayAmount string `json:"displayAmount"`
	ItemName      string `json:"itemName"`
}

// MarshalJSON flattens the embedded offer next to the display fields.
func (v OfferView) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID            string      `json:"id"`
		Name          string      `json:"name"`
		Email         string      `json:"email"`
		ItemID        string      `json:"itemId"`
		Amount        json.Number `json:"amount"`
		DisplayAmount string      `json:"displayAmount"`
		ItemName      string      `json:"itemName"`
	}{
		ID:            v.ID,
		Name:          v.Name,
		Email:         v.Email,
		ItemID:        v.ItemID,
		Amount:        json.Number(v.Amount.String()),
		DisplayAmount: v.DisplayAmount,
		ItemName:      v.ItemName,
	})
}
