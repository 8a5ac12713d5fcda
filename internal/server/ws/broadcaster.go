package ws

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/alanyoungcy/collectibles/internal/domain"
	"github.com/alanyoungcy/collectibles/internal/metrics"
	"golang.org/x/sync/errgroup"
)

const defaultWorkers = 16

// Broadcaster fans price change events out to every registered session.
type Broadcaster struct {
	registry *Registry
	workers  int
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewBroadcaster creates a broadcaster over reg that delivers with at most
// workers concurrent sends. m may be nil.
func NewBroadcaster(reg *Registry, workers int, logger *slog.Logger, m *metrics.Metrics) *Broadcaster {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Broadcaster{
		registry: reg,
		workers:  workers,
		logger:   logger,
		metrics:  m,
	}
}

// Broadcast serializes ev once and sends it to a snapshot of the registry.
// A session that is closed or fails its send is unregistered and closed; the
// remaining deliveries continue. It returns the number of sessions that
// accepted the message.
func (b *Broadcaster) Broadcast(ctx context.Context, ev domain.PriceChangeEvent) int {
	msg, err := encodePriceUpdate(ev)
	if err != nil {
		b.logger.ErrorContext(ctx, "ws: encode price update",
			slog.String("item_id", ev.ItemID),
			slog.String("error", err.Error()),
		)
		return 0
	}

	sessions := b.registry.Snapshot()
	if len(sessions) == 0 {
		b.metrics.ObserveBroadcast(0, 0)
		return 0
	}

	var delivered, dropped atomic.Int64
	var g errgroup.Group
	g.SetLimit(b.workers)
	for _, s := range sessions {
		g.Go(func() error {
			if err := b.deliver(s, msg); err != nil {
				b.logger.WarnContext(ctx, "ws: dropping session after failed send",
					slog.String("session", s.ID()),
					slog.String("item_id", ev.ItemID),
					slog.String("error", err.Error()),
				)
				if b.registry.Remove(s) {
					dropped.Add(1)
				}
				_ = s.Close()
				return nil
			}
			delivered.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	b.metrics.ObserveBroadcast(int(delivered.Load()), int(dropped.Load()))
	b.metrics.SetOpenSessions(b.registry.Len())
	b.logger.DebugContext(ctx, "ws: price broadcast",
		slog.String("item_id", ev.ItemID),
		slog.Int64("delivered", delivered.Load()),
		slog.Int("sessions", len(sessions)),
	)
	return int(delivered.Load())
}

func (b *Broadcaster) deliver(s Session, msg []byte) error {
	if !s.IsOpen() {
		return domain.ErrSessionGone
	}
	return s.Send(msg)
}
