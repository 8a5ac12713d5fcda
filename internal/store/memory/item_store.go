// Package memory provides an in-process item catalog.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/alanyoungcy/collectibles/internal/domain"
	"github.com/shopspring/decimal"
)

// ItemStore is a mutex-guarded catalog that implements domain.ItemStore.
type ItemStore struct {
	mu    sync.RWMutex
	items map[string]domain.Item
	now   func() time.Time
}

// NewItemStore returns a store seeded with items.
func NewItemStore(items []domain.Item) *ItemStore {
	s := &ItemStore{
		items: make(map[string]domain.Item, len(items)),
		now:   time.Now,
	}
	for _, it := range items {
		s.items[it.ID] = it
	}
	return s
}

func (s *ItemStore) GetItem(_ context.Context, itemID string) (domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.items[itemID]
	if !ok {
		return domain.Item{}, fmt.Errorf("memory: get item %s: %w", itemID, domain.ErrNotFound)
	}
	return it, nil
}

func (s *ItemStore) Exists(_ context.Context, itemID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.items[itemID]
	return ok, nil
}

func (s *ItemStore) GetPrice(ctx context.Context, itemID string) (decimal.Decimal, error) {
	it, err := s.GetItem(ctx, itemID)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return it.Price, nil
}

func (s *ItemStore) SetPrice(_ context.Context, itemID string, price decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[itemID]
	if !ok {
		return fmt.Errorf("memory: set price %s: %w", itemID, domain.ErrNotFound)
	}
	it.Price = price
	it.UpdatedAt = s.now()
	s.items[itemID] = it
	return nil
}

// DefaultItems is the demo catalog used when no items are configured.
func DefaultItems() []domain.Item {
	seed := []struct {
		id, name, desc, price string
	}{
		{"item1", "Rosalía Signed Vinyl", "Motomami LP signed on the cover", "349.99"},
		{"item2", "Peso Pluma Signed Cap", "Tour cap with authenticated signature", "621.34"},
		{"item3", "Coldplay Tour Poster", "Music of the Spheres numbered print", "129.50"},
		{"item4", "Signed Acoustic Guitar", "Stage-played acoustic guitar", "1899.00"},
		{"item5", "Bad Bunny Jacket", "Worn on stage, includes certificate", "521.89"},
		{"item6", "Cardi B Signed Photo", "8x10 photo with signature", "210.00"},
		{"item7", "Snoop Dogg Signed Jersey", "Signed jersey, framed", "450.00"},
	}
	items := make([]domain.Item, 0, len(seed))
	for _, s := range seed {
		items = append(items, domain.Item{
			ID:          s.id,
			Name:        s.name,
			Description: s.desc,
			Price:       decimal.RequireFromString(s.price),
		})
	}
	return items
}
