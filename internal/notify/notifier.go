// Package notify forwards marketplace events to operator chat channels.
// Events are filtered by type so operators only receive what they asked for.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alanyoungcy/collectibles/internal/domain"
)

// Event types understood by the notifier.
const (
	EventOfferSubmitted = "offer_submitted"
	EventPriceUpdated   = "price_updated"
)

// Sender is the interface that each notification channel must implement.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name returns a human-readable identifier for the sender (e.g. "telegram").
	Name() string
}

// Notifier dispatches notifications to one or more Senders.
type Notifier struct {
	senders []Sender
	events  map[string]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier that delivers to senders. Only events listed
// in events are forwarded; an empty list allows every event.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		if e = strings.TrimSpace(e); e != "" {
			allowed[e] = true
		}
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Enabled reports whether event would be forwarded to at least one sender.
func (n *Notifier) Enabled(event string) bool {
	if len(n.senders) == 0 {
		return false
	}
	return len(n.events) == 0 || n.events[event]
}

// Notify sends a notification to all senders if event passes the filter.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if !n.Enabled(event) {
		n.logger.DebugContext(ctx, "notify: event filtered out", slog.String("event", event))
		return nil
	}

	var errs []error
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "notify: sender failed",
				slog.String("sender", s.Name()),
				slog.String("event", event),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// OfferSubmitted announces a newly recorded offer.
func (n *Notifier) OfferSubmitted(ctx context.Context, o domain.Offer) error {
	return n.Notify(ctx, EventOfferSubmitted, "New offer "+o.ID,
		fmt.Sprintf("%s <%s> offered %s for %s", o.Name, o.Email, o.DisplayAmount(), o.ItemID))
}

// PriceUpdated announces an accepted price change.
func (n *Notifier) PriceUpdated(ctx context.Context, ev domain.PriceChangeEvent) error {
	return n.Notify(ctx, EventPriceUpdated, "Price update",
		fmt.Sprintf("%s is now %s", ev.ItemID, ev.FormattedPrice))
}
