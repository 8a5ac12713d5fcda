package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/collectibles/internal/domain"
	"github.com/shopspring/decimal"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakePriceStore struct {
	mu     sync.Mutex
	prices map[string]decimal.Decimal
	err    error
}

func newFakePriceStore() *fakePriceStore {
	return &fakePriceStore{prices: map[string]decimal.Decimal{
		"item1": decimal.RequireFromString("799.99"),
	}}
}

func (s *fakePriceStore) GetPrice(_ context.Context, itemID string) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.prices[itemID]
	if !ok {
		return decimal.Decimal{}, domain.ErrNotFound
	}
	return p, nil
}

func (s *fakePriceStore) SetPrice(_ context.Context, itemID string, price decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if _, ok := s.prices[itemID]; !ok {
		return fmt.Errorf("fake: set price %s: %w", itemID, domain.ErrNotFound)
	}
	s.prices[itemID] = price
	return nil
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []domain.PriceChangeEvent
	seen   chan domain.PriceChangeEvent
}

func newRecordingBroadcaster() *recordingBroadcaster {
	return &recordingBroadcaster{seen: make(chan domain.PriceChangeEvent, 16)}
}

func (b *recordingBroadcaster) Broadcast(_ context.Context, ev domain.PriceChangeEvent) int {
	b.mu.Lock()
	b.events = append(b.events, ev)
	b.mu.Unlock()
	b.seen <- ev
	return 1
}

func (b *recordingBroadcaster) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

type fakeCache struct {
	prices map[string]decimal.Decimal
	err    error
}

func (c *fakeCache) SetPrice(_ context.Context, itemID string, price decimal.Decimal, _ time.Time) error {
	if c.err != nil {
		return c.err
	}
	if c.prices == nil {
		c.prices = make(map[string]decimal.Decimal)
	}
	c.prices[itemID] = price
	return nil
}

func (c *fakeCache) GetPrice(_ context.Context, itemID string) (decimal.Decimal, time.Time, error) {
	p, ok := c.prices[itemID]
	if !ok {
		return decimal.Decimal{}, time.Time{}, domain.ErrNotFound
	}
	return p, time.Time{}, nil
}

// chanBus delivers published payloads to every subscriber of the channel.
type chanBus struct {
	mu   sync.Mutex
	subs map[string][]chan []byte
	err  error
}

func newChanBus() *chanBus {
	return &chanBus{subs: make(map[string][]chan []byte)}
}

func (b *chanBus) Publish(_ context.Context, channel string, payload []byte) error {
	if b.err != nil {
		return b.err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs[channel] {
		ch <- payload
	}
	return nil
}

func (b *chanBus) Subscribe(_ context.Context, channel string) (<-chan []byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan []byte, 16)
	b.subs[channel] = append(b.subs[channel], ch)
	return ch, nil
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
	err     error
}

func (a *fakeAudit) Log(_ context.Context, event string, detail map[string]any) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.entries = append(a.entries, domain.AuditEntry{Event: event, Detail: detail})
	return nil
}

func (a *fakeAudit) List(context.Context, domain.ListOpts) ([]domain.AuditEntry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]domain.AuditEntry(nil), a.entries...), nil
}
