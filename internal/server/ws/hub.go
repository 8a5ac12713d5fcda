package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/collectibles/internal/domain"
	"github.com/alanyoungcy/collectibles/internal/metrics"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

const (
	// writeWait is the maximum time to wait for a write to complete.
	writeWait = 10 * time.Second

	// pongWait is the maximum time to wait for a pong from the client.
	pongWait = 60 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize is the maximum size of an incoming message.
	maxMessageSize = 4096

	defaultSendBuffer    = 256
	defaultUpdateTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// PriceUpdater applies a price change and broadcasts it on success.
type PriceUpdater interface {
	UpdatePrice(ctx context.Context, itemID string, price decimal.Decimal) (domain.PriceChangeEvent, error)
}

// Config tunes per-connection behaviour.
type Config struct {
	SendBuffer    int
	UpdateTimeout time.Duration
}

// Hub accepts WebSocket connections on the price endpoint, registers them as
// sessions, and turns inbound update frames into price updates.
type Hub struct {
	registry      *Registry
	updater       PriceUpdater
	logger        *slog.Logger
	metrics       *metrics.Metrics
	sendBuffer    int
	updateTimeout time.Duration
	now           func() time.Time
}

// NewHub creates a hub over reg. m may be nil.
func NewHub(reg *Registry, updater PriceUpdater, logger *slog.Logger, cfg Config, m *metrics.Metrics) *Hub {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = defaultSendBuffer
	}
	if cfg.UpdateTimeout <= 0 {
		cfg.UpdateTimeout = defaultUpdateTimeout
	}
	return &Hub{
		registry:      reg,
		updater:       updater,
		logger:        logger,
		metrics:       m,
		sendBuffer:    cfg.SendBuffer,
		updateTimeout: cfg.UpdateTimeout,
		now:           time.Now,
	}
}

// ClientCount returns the number of registered sessions.
func (h *Hub) ClientCount() int {
	return h.registry.Len()
}

// Run blocks until ctx is cancelled and then closes every session.
func (h *Hub) Run(ctx context.Context) error {
	<-ctx.Done()
	for _, s := range h.registry.Snapshot() {
		h.registry.Remove(s)
		_ = s.Close()
	}
	h.metrics.SetOpenSessions(0)
	h.logger.Info("ws: hub stopped")
	return ctx.Err()
}

// HandleWS upgrades the request and registers the connection under its
// remote address.
// GET /ws/prices
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws: upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := newClient(h, conn, r.RemoteAddr, h.sendBuffer)
	if prev := h.registry.Register(c); prev != nil {
		h.logger.Info("ws: replacing session", slog.String("session", c.id))
		_ = prev.Close()
	}
	count := h.registry.Len()
	h.metrics.SetOpenSessions(count)
	h.logger.Info("ws: client connected",
		slog.String("session", c.id),
		slog.Int("total_clients", count),
	)

	if msg, err := encodeConnected(count); err == nil {
		_ = c.Send(msg)
	}

	go c.writePump()
	go c.readPump()
}

// drop unregisters c if it is still the registered session for its id and
// closes it.
func (h *Hub) drop(c *client) {
	if h.registry.Remove(c) {
		count := h.registry.Len()
		h.metrics.SetOpenSessions(count)
		h.logger.Info("ws: client disconnected",
			slog.String("session", c.id),
			slog.Int("total_clients", count),
		)
	}
	_ = c.Close()
}

// handleMessage applies one inbound price update frame. Failures are reported
// to the originating client only.
func (h *Hub) handleMessage(c *client, message []byte) {
	var req priceUpdateRequest
	if err := json.Unmarshal(message, &req); err != nil || req.ItemID == "" || !req.NewPrice.Valid {
		h.logger.Warn("ws: invalid price update request", slog.String("session", c.id))
		h.replyError(c, invalidUpdateText)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.updateTimeout)
	defer cancel()

	_, err := h.updater.UpdatePrice(ctx, req.ItemID, req.NewPrice.Decimal)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrInvalidInput):
		h.replyError(c, invalidUpdateText)
	case errors.Is(err, domain.ErrNotFound):
		h.replyError(c, notFoundText)
	default:
		h.logger.Error("ws: price update failed",
			slog.String("session", c.id),
			slog.String("item_id", req.ItemID),
			slog.String("error", err.Error()),
		)
		h.replyError(c, failedUpdateText)
	}
}

func (h *Hub) replyError(c *client, text string) {
	msg, err := encodeError(text, h.now())
	if err != nil {
		return
	}
	if err := c.Send(msg); err != nil {
		h.drop(c)
	}
}
