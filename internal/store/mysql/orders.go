package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/farmerhub/marketplace-api/internal/models"
	"github.com/farmerhub/marketplace-api/internal/store"
)

const orderColumns = "id, buyer_id, status, total_amount, created_at, updated_at"

type orderStore struct{ base }

// Create decrements stock with conditional updates and inserts the order
// with its items inside one transaction.
func (s *orderStore) Create(ctx context.Context, order *models.Order) error {
	// aggregate repeated lines, keeping first-seen order for stable lock ordering
	var productIDs []int64
	need := make(map[int64]int)
	for _, item := range order.Items {
		if _, seen := need[item.ProductID]; !seen {
			productIDs = append(productIDs, item.ProductID)
		}
		need[item.ProductID] += item.Quantity
	}

	now := time.Now().UTC()
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		stockQuery := "UPDATE products SET stock = stock - ?, updated_at = ? WHERE id = ? AND stock >= ?"
		for _, pid := range productIDs {
			start := time.Now()
			result, err := tx.ExecContext(ctx, stockQuery, need[pid], now, pid, need[pid])
			s.record(ctx, "UPDATE", "products", stockQuery, start, err)
			if err != nil {
				return fmt.Errorf("failed to decrement stock: %w", err)
			}
			if n, _ := result.RowsAffected(); n == 0 {
				return store.ErrInsufficientStock
			}
		}

		start := time.Now()
		orderQuery := "INSERT INTO orders (buyer_id, status, total_amount, created_at, updated_at) VALUES (?, ?, ?, ?, ?)"
		result, err := tx.ExecContext(ctx, orderQuery, order.BuyerID, order.Status, order.TotalAmount, now, now)
		s.record(ctx, "INSERT", "orders", orderQuery, start, err)
		if err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		orderID, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get order ID: %w", err)
		}

		itemQuery := "INSERT INTO order_items (order_id, product_id, name, quantity, price) VALUES (?, ?, ?, ?, ?)"
		for _, item := range order.Items {
			start = time.Now()
			_, err = tx.ExecContext(ctx, itemQuery, orderID, item.ProductID, item.Name, item.Quantity, item.Price)
			s.record(ctx, "INSERT", "order_items", itemQuery, start, err)
			if err != nil {
				return fmt.Errorf("failed to create order item: %w", err)
			}
		}

		order.ID = orderID
		return nil
	})
	if err != nil {
		return err
	}

	order.CreatedAt = now
	order.UpdatedAt = now
	return nil
}

func (s *orderStore) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	orders, err := s.loadOrders(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, store.ErrNotFound
	}
	return &orders[0], nil
}

func (s *orderStore) ListByBuyer(ctx context.Context, buyerID int64) ([]models.Order, error) {
	return s.loadOrders(ctx, "SELECT "+orderColumns+" FROM orders WHERE buyer_id = ? ORDER BY created_at DESC, id DESC", buyerID)
}

func (s *orderStore) ListByProducts(ctx context.Context, productIDs []int64) ([]models.Order, error) {
	if len(productIDs) == 0 {
		return []models.Order{}, nil
	}
	marks, args := inClause(productIDs)
	query := "SELECT " + orderColumns + " FROM orders WHERE id IN (SELECT DISTINCT order_id FROM order_items WHERE product_id IN (" +
		marks + ")) ORDER BY created_at DESC, id DESC"
	return s.loadOrders(ctx, query, args...)
}

func (s *orderStore) ListAll(ctx context.Context) ([]models.Order, error) {
	return s.loadOrders(ctx, "SELECT "+orderColumns+" FROM orders ORDER BY created_at DESC, id DESC")
}

func (s *orderStore) ListExcludingStatus(ctx context.Context, status models.OrderStatus) ([]models.Order, error) {
	return s.loadOrders(ctx, "SELECT "+orderColumns+" FROM orders WHERE status <> ? ORDER BY created_at DESC, id DESC", status)
}

// loadOrders runs an orders query and attaches the items of every returned order
func (s *orderStore) loadOrders(ctx context.Context, query string, args ...any) ([]models.Order, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, query, args...)
	s.record(ctx, "SELECT", "orders", query, start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}

	orders := []models.Order{}
	index := make(map[int64]int)
	var ids []int64
	for rows.Next() {
		var o models.Order
		if err := rows.Scan(&o.ID, &o.BuyerID, &o.Status, &o.TotalAmount, &o.CreatedAt, &o.UpdatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		o.Items = []models.OrderItem{}
		index[o.ID] = len(orders)
		ids = append(ids, o.ID)
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if len(ids) == 0 {
		return orders, nil
	}

	marks, itemArgs := inClause(ids)
	start = time.Now()
	itemQuery := "SELECT order_id, product_id, name, quantity, price FROM order_items WHERE order_id IN (" + marks + ") ORDER BY id"
	itemRows, err := s.db.QueryContext(ctx, itemQuery, itemArgs...)
	s.record(ctx, "SELECT", "order_items", itemQuery, start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var orderID int64
		var item models.OrderItem
		if err := itemRows.Scan(&orderID, &item.ProductID, &item.Name, &item.Quantity, &item.Price); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		if i, ok := index[orderID]; ok {
			orders[i].Items = append(orders[i].Items, item)
		}
	}
	return orders, itemRows.Err()
}

func (s *orderStore) UpdateStatus(ctx context.Context, id int64, from, to models.OrderStatus) error {
	start := time.Now()
	query := "UPDATE orders SET status = ?, updated_at = ? WHERE id = ? AND status = ?"
	result, err := s.db.ExecContext(ctx, query, to, time.Now().UTC(), id, from)
	s.record(ctx, "UPDATE", "orders", query, start, err)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	if n, _ := result.RowsAffected(); n == 0 {
		ok, err := s.exists(ctx, "orders", id)
		if err != nil {
			return err
		}
		if !ok {
			return store.ErrNotFound
		}
		return store.ErrStaleStatus
	}
	return nil
}

func (s *orderStore) Count(ctx context.Context) (int64, error) {
	start := time.Now()
	query := "SELECT COUNT(*) FROM orders"
	var n int64
	err := s.db.QueryRowContext(ctx, query).Scan(&n)
	s.record(ctx, "SELECT", "orders", query, start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}
	return n, nil
}
