package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/collectibles/internal/domain"
)

// ItemStore implements domain.ItemStore on the items table.
type ItemStore struct {
	pool *pgxpool.Pool
}

// NewItemStore creates a new ItemStore backed by the given connection pool.
func NewItemStore(pool *pgxpool.Pool) *ItemStore {
	return &ItemStore{pool: pool}
}

// GetItem returns the item with the given id.
func (s *ItemStore) GetItem(ctx context.Context, itemID string) (domain.Item, error) {
	const query = `SELECT id, name, COALESCE(description, ''), price, updated_at
		FROM items WHERE id = $1`

	var it domain.Item
	err := s.pool.QueryRow(ctx, query, itemID).Scan(&it.ID, &it.Name, &it.Description, &it.Price, &it.UpdatedAt)
	if err != nil {
		return domain.Item{}, classify(fmt.Sprintf("get item %s", itemID), err)
	}
	return it, nil
}

// Exists reports whether an item with the given id is in the catalog.
func (s *ItemStore) Exists(ctx context.Context, itemID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM items WHERE id = $1)`, itemID).Scan(&exists)
	if err != nil {
		return false, classify(fmt.Sprintf("check item %s", itemID), err)
	}
	return exists, nil
}

// GetPrice returns the current price of an item.
func (s *ItemStore) GetPrice(ctx context.Context, itemID string) (decimal.Decimal, error) {
	var price decimal.Decimal
	err := s.pool.QueryRow(ctx, `SELECT price FROM items WHERE id = $1`, itemID).Scan(&price)
	if err != nil {
		return decimal.Decimal{}, classify(fmt.Sprintf("get price %s", itemID), err)
	}
	return price, nil
}

// SetPrice updates the price of an existing item. Zero affected rows means
// the item does not exist.
func (s *ItemStore) SetPrice(ctx context.Context, itemID string, price decimal.Decimal) error {
	const query = `UPDATE items SET price = $2, updated_at = NOW() WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, itemID, price)
	if err != nil {
		return classify(fmt.Sprintf("set price %s", itemID), err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: set price %s: %w", itemID, domain.ErrNotFound)
	}
	return nil
}
