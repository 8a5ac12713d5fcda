package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/alanyoungcy/collectibles/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemStorePriceRoundTrip(t *testing.T) {
	t.Parallel()
	s := NewItemStore(DefaultItems())
	ctx := context.Background()

	require.NoError(t, s.SetPrice(ctx, "item1", decimal.RequireFromString("899.99")))
	p, err := s.GetPrice(ctx, "item1")
	require.NoError(t, err)
	assert.Equal(t, "899.99", p.String())

	it, err := s.GetItem(ctx, "item1")
	require.NoError(t, err)
	assert.False(t, it.UpdatedAt.IsZero())
}

func TestItemStoreUnknownItem(t *testing.T) {
	t.Parallel()
	s := NewItemStore(DefaultItems())
	ctx := context.Background()

	assert.ErrorIs(t, s.SetPrice(ctx, "item99", decimal.NewFromInt(1)), domain.ErrNotFound)
	_, err := s.GetPrice(ctx, "item99")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	ok, err := s.Exists(ctx, "item99")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDefaultItems(t *testing.T) {
	t.Parallel()
	items := DefaultItems()
	require.Len(t, items, 7)
	assert.Equal(t, "item1", items[0].ID)
	assert.Equal(t, "item7", items[6].ID)
	for _, it := range items {
		assert.True(t, it.Price.IsPositive(), it.ID)
	}
}

func TestItemStoreConcurrentUpdates(t *testing.T) {
	t.Parallel()
	s := NewItemStore(DefaultItems())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = s.SetPrice(ctx, "item3", decimal.NewFromInt(int64(i)))
		}()
		go func() {
			defer wg.Done()
			_, _ = s.GetPrice(ctx, "item3")
		}()
	}
	wg.Wait()

	p, err := s.GetPrice(ctx, "item3")
	require.NoError(t, err)
	assert.True(t, p.IsPositive())
}
