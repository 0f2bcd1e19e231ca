package mysql

import (
	"context"
	"fmt"
	"time"

	"github.com/farmerhub/marketplace-api/internal/models"
	"github.com/farmerhub/marketplace-api/internal/store"
)

type cartStore struct{ base }

func (s *cartStore) Items(ctx context.Context, accountID int64) ([]models.CartItem, error) {
	start := time.Now()
	query := "SELECT product_id, quantity, added_at FROM cart_items WHERE account_id = ? ORDER BY added_at, product_id"
	rows, err := s.db.QueryContext(ctx, query, accountID)
	s.record(ctx, "SELECT", "cart_items", query, start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart items: %w", err)
	}
	defer rows.Close()

	items := []models.CartItem{}
	for rows.Next() {
		var item models.CartItem
		if err := rows.Scan(&item.ProductID, &item.Quantity, &item.AddedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *cartStore) Add(ctx context.Context, accountID, productID int64, quantity int) error {
	start := time.Now()
	query := `INSERT INTO cart_items (account_id, product_id, quantity) VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE quantity = quantity + VALUES(quantity)`
	_, err := s.db.ExecContext(ctx, query, accountID, productID, quantity)
	s.record(ctx, "INSERT", "cart_items", query, start, err)
	if isMySQLError(err, errNoReferencedRow2) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to add to cart: %w", err)
	}
	return nil
}

func (s *cartStore) Remove(ctx context.Context, accountID, productID int64) error {
	start := time.Now()
	query := "DELETE FROM cart_items WHERE account_id = ? AND product_id = ?"
	_, err := s.db.ExecContext(ctx, query, accountID, productID)
	s.record(ctx, "DELETE", "cart_items", query, start, err)
	if err != nil {
		return fmt.Errorf("failed to remove from cart: %w", err)
	}
	return nil
}

func (s *cartStore) Clear(ctx context.Context, accountID int64) error {
	start := time.Now()
	query := "DELETE FROM cart_items WHERE account_id = ?"
	_, err := s.db.ExecContext(ctx, query, accountID)
	s.record(ctx, "DELETE", "cart_items", query, start, err)
	if err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}
