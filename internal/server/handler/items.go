package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/collectibles/internal/domain"
	"github.com/shopspring/decimal"
)

// CatalogService reads catalog items.
type CatalogService interface {
	GetItem(ctx context.Context, itemID string) (domain.Item, error)
}

// PriceService applies and reads item prices.
type PriceService interface {
	UpdatePrice(ctx context.Context, itemID string, price decimal.Decimal) (domain.PriceChangeEvent, error)
	LastPrice(ctx context.Context, itemID string) (decimal.Decimal, error)
}

// ItemOffers lists the decorated offers of one item.
type ItemOffers interface {
	ListForItem(ctx context.Context, itemID string) []domain.OfferView
}

// ItemHandler serves item detail and price endpoints.
type ItemHandler struct {
	catalog CatalogService
	prices  PriceService
	offers  ItemOffers
	logger  *slog.Logger
}

// NewItemHandler creates an ItemHandler.
func NewItemHandler(catalog CatalogService, prices PriceService, offers ItemOffers, logger *slog.Logger) *ItemHandler {
	return &ItemHandler{
		catalog: catalog,
		prices:  prices,
		offers:  offers,
		logger:  logHandler(logger, "items"),
	}
}

type itemResponse struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Description  string             `json:"description"`
	Price        string             `json:"price"`
	PriceNumeric json.Number        `json:"priceNumeric"`
	Offers       []domain.OfferView `json:"offers"`
}

// GetItem returns one item with its current price and offers.
// GET /api/items/{id}
func (h *ItemHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")

	item, err := h.catalog.GetItem(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, h.logger, "get item", err)
		return
	}

	offers := h.offers.ListForItem(r.Context(), id)
	if offers == nil {
		offers = []domain.OfferView{}
	}

	writeJSON(w, http.StatusOK, itemResponse{
		ID:           item.ID,
		Name:         item.Name,
		Description:  item.Description,
		Price:        domain.FormatPrice(item.Price),
		PriceNumeric: json.Number(item.Price.String()),
		Offers:       offers,
	})
}

type priceResponse struct {
	ItemID       string      `json:"itemId"`
	Price        string      `json:"price"`
	PriceNumeric json.Number `json:"priceNumeric"`
	Timestamp    int64       `json:"timestamp,omitempty"`
}

// GetPrice returns the last known price of an item.
// GET /api/items/{id}/price
func (h *ItemHandler) GetPrice(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")

	price, err := h.prices.LastPrice(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, h.logger, "get price", err)
		return
	}

	writeJSON(w, http.StatusOK, priceResponse{
		ItemID:       id,
		Price:        domain.FormatPrice(price),
		PriceNumeric: json.Number(price.String()),
	})
}

type updatePriceRequest struct {
	NewPrice decimal.NullDecimal `json:"newPrice"`
}

// UpdatePrice sets a new price and broadcasts it to connected clients.
// PUT /api/items/{id}/price
func (h *ItemHandler) UpdatePrice(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")

	var req updatePriceRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	ev, err := h.prices.UpdatePrice(r.Context(), id, req.NewPrice.Decimal)
	if err != nil {
		writeDomainError(w, r, h.logger, "update price", err)
		return
	}

	writeJSON(w, http.StatusOK, priceResponse{
		ItemID:       ev.ItemID,
		Price:        ev.FormattedPrice,
		PriceNumeric: json.Number(ev.NewPrice.String()),
		Timestamp:    ev.Timestamp.UnixMilli(),
	})
}
