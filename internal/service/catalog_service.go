package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/alanyoungcy/collectibles/internal/domain"
)

// CatalogService reads items for display.
type CatalogService struct {
	catalog domain.Catalog
}

// NewCatalogService creates a CatalogService over catalog.
func NewCatalogService(catalog domain.Catalog) *CatalogService {
	return &CatalogService{catalog: catalog}
}

// GetItem returns the item or an *domain.ItemNotFoundError.
func (s *CatalogService) GetItem(ctx context.Context, itemID string) (domain.Item, error) {
	item, err := s.catalog.GetItem(ctx, itemID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Item{}, &domain.ItemNotFoundError{ItemID: itemID}
	}
	if err != nil {
		return domain.Item{}, fmt.Errorf("catalog_service: get item %q: %w", itemID, err)
	}
	return item, nil
}
