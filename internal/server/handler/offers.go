package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/collectibles/internal/domain"
	"github.com/alanyoungcy/collectibles/internal/ledger"
	"github.com/shopspring/decimal"
)

// OfferService defines the methods that the offer handler requires from the
// service layer.
type OfferService interface {
	Submit(ctx context.Context, candidate domain.Offer) (ledger.SubmitResult, error)
	ListAll(ctx context.Context) []domain.Offer
	ListForItem(ctx context.Context, itemID string) []domain.OfferView
}

// persistWarning accompanies an offer that was accepted but not saved.
const persistWarning = "Offer recorded but could not be saved to disk; it may be lost on restart"

// OfferHandler serves offer submission and listing endpoints.
type OfferHandler struct {
	offers OfferService
	logger *slog.Logger
}

// NewOfferHandler creates an OfferHandler with the given service and logger.
func NewOfferHandler(offers OfferService, logger *slog.Logger) *OfferHandler {
	return &OfferHandler{
		offers: offers,
		logger: logHandler(logger, "offers"),
	}
}

type submitOfferRequest struct {
	Name   string          `json:"name"`
	Email  string          `json:"email"`
	ItemID string          `json:"itemId"`
	Amount decimal.Decimal `json:"amount"`
}

type offerResponse struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Email         string      `json:"email"`
	ItemID        string      `json:"itemId"`
	Amount        json.Number `json:"amount"`
	DisplayAmount string      `json:"displayAmount"`
	Warning       string      `json:"warning,omitempty"`
}

// Submit records a new offer.
// POST /api/offers
func (h *OfferHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitOfferRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.offers.Submit(r.Context(), domain.Offer{
		Name:   req.Name,
		Email:  req.Email,
		ItemID: req.ItemID,
		Amount: req.Amount,
	})
	if err != nil {
		writeDomainError(w, r, h.logger, "submit offer", err)
		return
	}

	resp := toOfferResponse(res.Offer)
	if res.PersistErr != nil {
		resp.Warning = persistWarning
		w.Header().Set("Warning", `199 - "`+persistWarning+`"`)
	}
	writeJSON(w, http.StatusCreated, resp)
}

func toOfferResponse(o domain.Offer) offerResponse {
	return offerResponse{
		ID:            o.ID,
		Name:          o.Name,
		Email:         o.Email,
		ItemID:        o.ItemID,
		Amount:        json.Number(o.Amount.String()),
		DisplayAmount: o.DisplayAmount(),
	}
}

type listOffersResponse struct {
	Offers []offerResponse `json:"offers"`
	Total  int             `json:"total"`
}

// ListAll returns every recorded offer.
// GET /api/offers
func (h *OfferHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	offers := h.offers.ListAll(r.Context())
	out := make([]offerResponse, 0, len(offers))
	for _, o := range offers {
		out = append(out, toOfferResponse(o))
	}
	writeJSON(w, http.StatusOK, listOffersResponse{Offers: out, Total: len(out)})
}

type itemOffersResponse struct {
	ItemID string             `json:"itemId"`
	Offers []domain.OfferView `json:"offers"`
	Total  int                `json:"total"`
}

// ListForItem returns the offers recorded for one item.
// GET /api/items/{id}/offers
func (h *OfferHandler) ListForItem(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	views := h.offers.ListForItem(r.Context(), id)
	if views == nil {
		views = []domain.OfferView{}
	}
	writeJSON(w, http.StatusOK, itemOffersResponse{ItemID: id, Offers: views, Total: len(views)})
}
