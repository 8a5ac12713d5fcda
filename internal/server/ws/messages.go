package ws

import (
	"encoding/json"
	"time"

	"github.com/alanyoungcy/collectibles/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	typeConnected   = "CONNECTED"
	typePriceUpdate = "PRICE_UPDATE"
	typeError       = "ERROR"

	connectedText     = "Connected to price update service"
	invalidUpdateText = "Invalid price update request"
	notFoundText      = "Failed to update price: item not found"
	failedUpdateText  = "Failed to update price: internal error"
)

type connectedMessage struct {
	Type        string `json:"type"`
	Message     string `json:"message"`
	ClientCount int    `json:"clientCount"`
}

type priceUpdateMessage struct {
	Type         string      `json:"type"`
	ItemID       string      `json:"itemId"`
	NewPrice     string      `json:"newPrice"`
	PriceNumeric json.Number `json:"priceNumeric"`
	Timestamp    int64       `json:"timestamp"`
}

type errorMessage struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// priceUpdateRequest is the inbound frame a client sends to change a price.
type priceUpdateRequest struct {
	ItemID   string              `json:"itemId"`
	NewPrice decimal.NullDecimal `json:"newPrice"`
}

func encodePriceUpdate(ev domain.PriceChangeEvent) ([]byte, error) {
	return json.Marshal(priceUpdateMessage{
		Type:         typePriceUpdate,
		ItemID:       ev.ItemID,
		NewPrice:     ev.FormattedPrice,
		PriceNumeric: json.Number(ev.NewPrice.String()),
		Timestamp:    ev.Timestamp.UnixMilli(),
	})
}

func encodeConnected(clientCount int) ([]byte, error) {
	return json.Marshal(connectedMessage{
		Type:        typeConnected,
		Message:     connectedText,
		ClientCount: clientCount,
	})
}

func encodeError(msg string, now time.Time) ([]byte, error) {
	return json.Marshal(errorMessage{
		Type:      typeError,
		Message:   msg,
		Timestamp: now.UnixMilli(),
	})
}
