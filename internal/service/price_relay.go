package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/alanyoungcy/collectibles/internal/domain"
)

// PriceChannel is the pub/sub channel carrying price events between
// instances.
const PriceChannel = "price_updates"

type relayEnvelope struct {
	Origin string                  `json:"origin"`
	Event  domain.PriceChangeEvent `json:"event"`
}

func encodeRelay(origin string, ev domain.PriceChangeEvent) ([]byte, error) {
	return json.Marshal(relayEnvelope{Origin: origin, Event: ev})
}

// PriceRelay re-broadcasts price events published by other instances to the
// sessions connected to this one.
type PriceRelay struct {
	bus         domain.SignalBus
	broadcaster Broadcaster
	instanceID  string
	logger      *slog.Logger
}

// NewPriceRelay creates a relay that ignores events published with
// instanceID as their origin.
func NewPriceRelay(bus domain.SignalBus, broadcaster Broadcaster, instanceID string, logger *slog.Logger) *PriceRelay {
	return &PriceRelay{
		bus:         bus,
		broadcaster: broadcaster,
		instanceID:  instanceID,
		logger:      logger.With(slog.String("component", "price_relay")),
	}
}

// Run subscribes to PriceChannel and forwards events until ctx is cancelled
// or the subscription closes.
func (r *PriceRelay) Run(ctx context.Context) error {
	msgs, err := r.bus.Subscribe(ctx, PriceChannel)
	if err != nil {
		return err
	}
	r.logger.Info("price_relay: subscribed", slog.String("channel", PriceChannel))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case data, ok := <-msgs:
			if !ok {
				r.logger.Warn("price_relay: subscription closed")
				return nil
			}
			r.handle(ctx, data)
		}
	}
}

func (r *PriceRelay) handle(ctx context.Context, data []byte) {
	var env relayEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		r.logger.WarnContext(ctx, "price_relay: malformed event", slog.String("error", err.Error()))
		return
	}
	if env.Origin == r.instanceID {
		return
	}
	n := r.broadcaster.Broadcast(ctx, env.Event)
	r.logger.DebugContext(ctx, "price_relay: relayed event",
		slog.String("origin", env.Origin),
		slog.String("item_id", env.Event.ItemID),
		slog.Int("delivered", n),
	)
}
