package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alanyoungcy/collectibles/internal/domain"
	"github.com/alanyoungcy/collectibles/internal/metrics"
	"github.com/shopspring/decimal"
)

// Broadcaster fans a price change out to connected sessions and returns the
// number of successful deliveries.
type Broadcaster interface {
	Broadcast(ctx context.Context, ev domain.PriceChangeEvent) int
}

// PriceNotifier announces accepted price changes.
type PriceNotifier interface {
	PriceUpdated(ctx context.Context, ev domain.PriceChangeEvent) error
}

// PriceServiceOptions carries the optional collaborators of PriceService.
// Any nil field disables that side effect.
type PriceServiceOptions struct {
	Cache      domain.PriceCache
	Bus        domain.SignalBus
	Audit      domain.AuditStore
	Notifier   PriceNotifier
	Metrics    *metrics.Metrics
	InstanceID string
}

// PriceService applies price changes to the store and broadcasts each
// accepted change exactly once.
type PriceService struct {
	store       domain.PriceStore
	broadcaster Broadcaster
	opts        PriceServiceOptions
	logger      *slog.Logger
	now         func() time.Time
}

// NewPriceService creates a PriceService over store and broadcaster.
func NewPriceService(store domain.PriceStore, broadcaster Broadcaster, opts PriceServiceOptions, logger *slog.Logger) *PriceService {
	return &PriceService{
		store:       store,
		broadcaster: broadcaster,
		opts:        opts,
		logger:      logger.With(slog.String("component", "price_service")),
		now:         time.Now,
	}
}

// UpdatePrice validates the request, updates the store, and broadcasts the
// resulting event. Nothing is broadcast unless the store update succeeds.
// Unknown items yield an *domain.ItemNotFoundError; store failures match
// domain.ErrStorage.
func (s *PriceService) UpdatePrice(ctx context.Context, itemID string, price decimal.Decimal) (domain.PriceChangeEvent, error) {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		s.opts.Metrics.PriceUpdate("invalid")
		return domain.PriceChangeEvent{}, domain.NewFieldError("itemId", "Item ID is required")
	}
	if !price.IsPositive() {
		s.opts.Metrics.PriceUpdate("invalid")
		return domain.PriceChangeEvent{}, domain.NewFieldError("newPrice", "Price must be greater than 0")
	}

	if err := s.store.SetPrice(ctx, itemID, price); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.opts.Metrics.PriceUpdate("not_found")
			return domain.PriceChangeEvent{}, &domain.ItemNotFoundError{ItemID: itemID}
		}
		s.opts.Metrics.PriceUpdate("error")
		if !errors.Is(err, domain.ErrStorage) {
			err = fmt.Errorf("%w: %w", domain.ErrStorage, err)
		}
		return domain.PriceChangeEvent{}, fmt.Errorf("price_service: update %q: %w", itemID, err)
	}

	ev := domain.NewPriceChangeEvent(itemID, price, s.now())
	delivered := s.broadcaster.Broadcast(ctx, ev)
	s.opts.Metrics.PriceUpdate("ok")
	s.logger.InfoContext(ctx, "price_service: price updated",
		slog.String("item_id", itemID),
		slog.String("price", ev.FormattedPrice),
		slog.Int("delivered", delivered),
	)

	s.afterUpdate(ctx, ev)
	return ev, nil
}

// afterUpdate runs the best-effort side effects of an accepted change.
func (s *PriceService) afterUpdate(ctx context.Context, ev domain.PriceChangeEvent) {
	if s.opts.Cache != nil {
		if err := s.opts.Cache.SetPrice(ctx, ev.ItemID, ev.NewPrice, ev.Timestamp); err != nil {
			s.warn(ctx, "cache price", ev, err)
		}
	}
	if s.opts.Bus != nil {
		payload, err := encodeRelay(s.opts.InstanceID, ev)
		if err == nil {
			err = s.opts.Bus.Publish(ctx, PriceChannel, payload)
		}
		if err != nil {
			s.warn(ctx, "publish price event", ev, err)
		}
	}
	if s.opts.Audit != nil {
		detail := map[string]any{
			"item_id":   ev.ItemID,
			"new_price": ev.NewPrice.String(),
		}
		if err := s.opts.Audit.Log(ctx, "price_updated", detail); err != nil {
			s.warn(ctx, "audit price update", ev, err)
		}
	}
	if s.opts.Notifier != nil {
		if err := s.opts.Notifier.PriceUpdated(ctx, ev); err != nil {
			s.warn(ctx, "notify price update", ev, err)
		}
	}
}

func (s *PriceService) warn(ctx context.Context, op string, ev domain.PriceChangeEvent, err error) {
	s.logger.WarnContext(ctx, "price_service: "+op+" failed",
		slog.String("item_id", ev.ItemID),
		slog.String("error", err.Error()),
	)
}

// LastPrice returns the most recently broadcast price for itemID from the
// cache, falling back to the store when no cache is configured or the cache
// has no entry.
func (s *PriceService) LastPrice(ctx context.Context, itemID string) (decimal.Decimal, error) {
	if s.opts.Cache != nil {
		p, _, err := s.opts.Cache.GetPrice(ctx, itemID)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "price_service: cache read failed",
				slog.String("item_id", itemID),
				slog.String("error", err.Error()),
			)
		}
	}
	p, err := s.store.GetPrice(ctx, itemID)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("price_service: get price %q: %w", itemID, err)
	}
	return p, nil
}
