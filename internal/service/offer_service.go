package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/alanyoungcy/collectibles/internal/domain"
	"github.com/alanyoungcy/collectibles/internal/ledger"
	"github.com/alanyoungcy/collectibles/internal/metrics"
)

// OfferLedger is the subset of *ledger.Ledger used by OfferService.
type OfferLedger interface {
	Submit(ctx context.Context, candidate domain.Offer) (ledger.SubmitResult, error)
	ListAll(ctx context.Context) []domain.Offer
	ListForItem(ctx context.Context, itemID string) []domain.OfferView
}

// OfferNotifier announces accepted offers.
type OfferNotifier interface {
	OfferSubmitted(ctx context.Context, o domain.Offer) error
}

// OfferService records offers in the ledger and runs the audit and
// notification side effects of each accepted one.
type OfferService struct {
	ledger   OfferLedger
	audit    domain.AuditStore
	notifier OfferNotifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewOfferService creates an OfferService. audit, notifier and m may be nil.
func NewOfferService(l OfferLedger, audit domain.AuditStore, notifier OfferNotifier, m *metrics.Metrics, logger *slog.Logger) *OfferService {
	return &OfferService{
		ledger:   l,
		audit:    audit,
		notifier: notifier,
		metrics:  m,
		logger:   logger.With(slog.String("component", "offer_service")),
	}
}

// Submit records candidate. The returned result carries a non-nil PersistErr
// when the offer was accepted but not durably saved.
func (s *OfferService) Submit(ctx context.Context, candidate domain.Offer) (ledger.SubmitResult, error) {
	res, err := s.ledger.Submit(ctx, candidate)
	if err != nil {
		s.metrics.OfferRejected(rejectReason(err))
		return res, err
	}

	s.metrics.OfferAccepted()
	if res.PersistErr != nil {
		s.metrics.PersistFailed()
	}

	if s.audit != nil {
		detail := map[string]any{
			"offer_id": res.Offer.ID,
			"item_id":  res.Offer.ItemID,
			"amount":   res.Offer.Amount.String(),
			"email":    res.Offer.Email,
		}
		if err := s.audit.Log(ctx, "offer_submitted", detail); err != nil {
			s.logger.WarnContext(ctx, "offer_service: audit failed",
				slog.String("offer_id", res.Offer.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	if s.notifier != nil {
		if err := s.notifier.OfferSubmitted(ctx, res.Offer); err != nil {
			s.logger.WarnContext(ctx, "offer_service: notify failed",
				slog.String("offer_id", res.Offer.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	return res, nil
}

// ListAll returns every recorded offer.
func (s *OfferService) ListAll(ctx context.Context) []domain.Offer {
	return s.ledger.ListAll(ctx)
}

// ListForItem returns the decorated offers for one item.
func (s *OfferService) ListForItem(ctx context.Context, itemID string) []domain.OfferView {
	return s.ledger.ListForItem(ctx, itemID)
}

func rejectReason(err error) string {
	var fe *domain.FieldError
	switch {
	case errors.As(err, &fe):
		return fe.Field
	case errors.Is(err, domain.ErrNotFound):
		return "item_not_found"
	default:
		return "error"
	}
}
