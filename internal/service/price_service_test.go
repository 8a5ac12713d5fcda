package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alanyoungcy/collectibles/internal/domain"
	"github.com/alanyoungcy/collectibles/internal/metrics"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdatePriceBroadcastsOnce(t *testing.T) {
	store := newFakePriceStore()
	b := newRecordingBroadcaster()
	svc := NewPriceService(store, b, PriceServiceOptions{Metrics: metrics.New()}, discardLogger())
	fixed := time.UnixMilli(1700000000000)
	svc.now = func() time.Time { return fixed }

	ev, err := svc.UpdatePrice(context.Background(), "item1", decimal.RequireFromString("899.99"))
	require.NoError(t, err)

	assert.Equal(t, "item1", ev.ItemID)
	assert.Equal(t, "$899.99 USD", ev.FormattedPrice)
	assert.True(t, ev.NewPrice.Equal(decimal.RequireFromString("899.99")))
	assert.Equal(t, fixed, ev.Timestamp)
	require.Equal(t, 1, b.count())
	assert.Equal(t, ev, b.events[0])

	p, err := store.GetPrice(context.Background(), "item1")
	require.NoError(t, err)
	assert.Equal(t, "899.99", p.String())
}

func TestUpdatePriceFailuresDoNotBroadcast(t *testing.T) {
	tests := []struct {
		name     string
		itemID   string
		price    string
		storeErr error
		check    func(t *testing.T, err error)
	}{
		{
			name: "empty item id", itemID: " ", price: "1",
			check: func(t *testing.T, err error) {
				var fe *domain.FieldError
				require.ErrorAs(t, err, &fe)
				assert.Equal(t, "itemId", fe.Field)
			},
		},
		{
			name: "zero price", itemID: "item1", price: "0",
			check: func(t *testing.T, err error) { assert.ErrorIs(t, err, domain.ErrInvalidInput) },
		},
		{
			name: "negative price", itemID: "item1", price: "-1",
			check: func(t *testing.T, err error) { assert.ErrorIs(t, err, domain.ErrInvalidInput) },
		},
		{
			name: "unknown item", itemID: "item404", price: "10",
			check: func(t *testing.T, err error) {
				var nf *domain.ItemNotFoundError
				require.ErrorAs(t, err, &nf)
				assert.Equal(t, "item404", nf.ItemID)
				assert.NotErrorIs(t, err, domain.ErrStorage)
			},
		},
		{
			name: "storage failure", itemID: "item1", price: "10", storeErr: errors.New("connection reset"),
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, domain.ErrStorage)
				assert.NotErrorIs(t, err, domain.ErrNotFound)
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakePriceStore()
			store.err = tc.storeErr
			b := newRecordingBroadcaster()
			svc := NewPriceService(store, b, PriceServiceOptions{}, discardLogger())

			_, err := svc.UpdatePrice(context.Background(), tc.itemID, decimal.RequireFromString(tc.price))
			require.Error(t, err)
			tc.check(t, err)
			assert.Equal(t, 0, b.count())
		})
	}
}

func TestUpdatePriceSideEffectsAreBestEffort(t *testing.T) {
	store := newFakePriceStore()
	b := newRecordingBroadcaster()
	bus := newChanBus()
	bus.err = errors.New("redis down")
	cache := &fakeCache{err: errors.New("redis down")}
	audit := &fakeAudit{err: errors.New("pg down")}

	svc := NewPriceService(store, b, PriceServiceOptions{Cache: cache, Bus: bus, Audit: audit}, discardLogger())
	_, err := svc.UpdatePrice(context.Background(), "item1", decimal.NewFromInt(5))
	require.NoError(t, err)
	assert.Equal(t, 1, b.count())
}

func TestUpdatePriceRecordsSideEffects(t *testing.T) {
	store := newFakePriceStore()
	bus := newChanBus()
	published, err := bus.Subscribe(context.Background(), PriceChannel)
	require.NoError(t, err)
	cache := &fakeCache{}
	audit := &fakeAudit{}

	svc := NewPriceService(store, newRecordingBroadcaster(), PriceServiceOptions{
		Cache: cache, Bus: bus, Audit: audit, InstanceID: "node-a",
	}, discardLogger())
	_, err = svc.UpdatePrice(context.Background(), "item1", decimal.RequireFromString("12.5"))
	require.NoError(t, err)

	last, err := svc.LastPrice(context.Background(), "item1")
	require.NoError(t, err)
	assert.Equal(t, "12.5", last.String())

	entries, _ := audit.List(context.Background(), domain.ListOpts{})
	require.Len(t, entries, 1)
	assert.Equal(t, "price_updated", entries[0].Event)

	select {
	case payload := <-published:
		assert.Contains(t, string(payload), `"origin":"node-a"`)
		assert.Contains(t, string(payload), `"itemId":"item1"`)
	default:
		t.Fatal("expected a published price event")
	}
}

func TestLastPriceFallsBackToStore(t *testing.T) {
	svc := NewPriceService(newFakePriceStore(), newRecordingBroadcaster(), PriceServiceOptions{Cache: &fakeCache{}}, discardLogger())
	p, err := svc.LastPrice(context.Background(), "item1")
	require.NoError(t, err)
	assert.Equal(t, "799.99", p.String())

	_, err = svc.LastPrice(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
