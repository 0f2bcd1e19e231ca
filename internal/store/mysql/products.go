package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/farmerhub/marketplace-api/internal/models"
	"github.com/farmerhub/marketplace-api/internal/store"
)

const productColumns = "id, seller_id, name, description, price, category, image_url, stock, created_at, updated_at"

// maxRows stands in for "no limit" since MySQL needs LIMIT before OFFSET
const maxRows = "18446744073709551615"

type productStore struct{ base }

func scanProduct(row scanner) (*models.Product, error) {
	var p models.Product
	var description sql.NullString
	if err := row.Scan(&p.ID, &p.SellerID, &p.Name, &description, &p.Price, &p.Category,
		&p.ImageURL, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Description = description.String
	return &p, nil
}

func (s *productStore) queryProducts(ctx context.Context, query string, args ...any) ([]models.Product, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, query, args...)
	s.record(ctx, "SELECT", "products", query, start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func (s *productStore) Create(ctx context.Context, p *models.Product) error {
	start := time.Now()
	now := start.UTC()
	query := `INSERT INTO products (seller_id, name, description, price, category, image_url, stock, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := s.db.ExecContext(ctx, query, p.SellerID, p.Name, p.Description, p.Price, p.Category, p.ImageURL, p.Stock, now, now)
	s.record(ctx, "INSERT", "products", query, start, err)
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get product ID: %w", err)
	}
	p.ID = id
	p.CreatedAt = now
	p.UpdatedAt = now
	return nil
}

func (s *productStore) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	start := time.Now()
	query := "SELECT " + productColumns + " FROM products WHERE id = ?"
	p, err := scanProduct(s.db.QueryRowContext(ctx, query, id))
	s.record(ctx, "SELECT", "products", query, start, err)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

func (s *productStore) GetByIDs(ctx context.Context, ids []int64) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}
	marks, args := inClause(ids)
	query := "SELECT " + productColumns + " FROM products WHERE id IN (" + marks + ")"
	return s.queryProducts(ctx, query, args...)
}

func (s *productStore) Update(ctx context.Context, p *models.Product) error {
	start := time.Now()
	now := start.UTC()
	query := `UPDATE products SET name = ?, description = ?, price = ?, category = ?, image_url = ?, stock = ?, updated_at = ?
		WHERE id = ?`
	result, err := s.db.ExecContext(ctx, query, p.Name, p.Description, p.Price, p.Category, p.ImageURL, p.Stock, now, p.ID)
	s.record(ctx, "UPDATE", "products", query, start, err)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}

	if n, _ := result.RowsAffected(); n == 0 {
		ok, err := s.exists(ctx, "products", p.ID)
		if err != nil {
			return err
		}
		if !ok {
			return store.ErrNotFound
		}
	}
	p.UpdatedAt = now
	return nil
}

func (s *productStore) Delete(ctx context.Context, id int64) error {
	start := time.Now()
	query := "DELETE FROM products WHERE id = ?"
	result, err := s.db.ExecContext(ctx, query, id)
	s.record(ctx, "DELETE", "products", query, start, err)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *productStore) List(ctx context.Context, filter store.ProductFilter) ([]models.Product, error) {
	var clauses []string
	var args []any
	if filter.SellerID != 0 {
		clauses = append(clauses, "seller_id = ?")
		args = append(args, filter.SellerID)
	}
	if filter.Category != "" {
		clauses = append(clauses, "category = ?")
		args = append(args, filter.Category)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		clauses = append(clauses, "(name LIKE ? OR description LIKE ?)")
		pattern := "%" + search + "%"
		args = append(args, pattern, pattern)
	}

	query := "SELECT " + productColumns + " FROM products"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	switch {
	case filter.Limit > 0:
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	case filter.Offset > 0:
		query += " LIMIT " + maxRows + " OFFSET ?"
		args = append(args, filter.Offset)
	}
	return s.queryProducts(ctx, query, args...)
}

func (s *productStore) IDsBySeller(ctx context.Context, sellerID int64) ([]int64, error) {
	start := time.Now()
	query := "SELECT id FROM products WHERE seller_id = ? ORDER BY id"
	rows, err := s.db.QueryContext(ctx, query, sellerID)
	s.record(ctx, "SELECT", "products", query, start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query seller products: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan product id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *productStore) DeleteBySeller(ctx context.Context, sellerID int64) (int64, error) {
	start := time.Now()
	query := "DELETE FROM products WHERE seller_id = ?"
	result, err := s.db.ExecContext(ctx, query, sellerID)
	s.record(ctx, "DELETE", "products", query, start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to delete seller products: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

func (s *productStore) Count(ctx context.Context) (int64, error) {
	start := time.Now()
	query := "SELECT COUNT(*) FROM products"
	var n int64
	err := s.db.QueryRowContext(ctx, query).Scan(&n)
	s.record(ctx, "SELECT", "products", query, start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return n, nil
}
