package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/farmerhub/marketplace-api/internal/auth"
	"github.com/farmerhub/marketplace-api/internal/metrics"
	"github.com/farmerhub/marketplace-api/internal/models"
	"github.com/farmerhub/marketplace-api/internal/store"
)

// CartService handles cart-related operations
type CartService struct {
	carts    store.CartStore
	products store.ProductStore
	metrics  *metrics.AppMetrics
}

// NewCartService creates a new cart service
func NewCartService(carts store.CartStore, products store.ProductStore, metrics *metrics.AppMetrics) *CartService {
	return &CartService{
		carts:    carts,
		products: products,
		metrics:  metrics,
	}
}

// Get returns the cart priced at current product prices.
// Items whose product has been removed are left out.
func (s *CartService) Get(ctx context.Context, owner auth.Identity) (*models.CartResponse, error) {
	items, err := s.carts.Items(ctx, owner.SubjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart items: %w", err)
	}

	ids := make([]int64, len(items))
	for i, item := range items {
		ids[i] = item.ProductID
	}
	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart products: %w", err)
	}
	byID := make(map[int64]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	resp := &models.CartResponse{Items: []models.CartLine{}}
	total := decimal.Zero
	for _, item := range items {
		product, ok := byID[item.ProductID]
		if !ok {
			continue
		}
		subtotal := decimal.NewFromFloat(product.Price).Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2)
		total = total.Add(subtotal)
		resp.Items = append(resp.Items, models.CartLine{
			Product:  product,
			Quantity: item.Quantity,
			Subtotal: subtotal.InexactFloat64(),
		})
	}
	resp.Total = total.Round(2).InexactFloat64()

	s.metrics.CartItemsCount.Record(ctx, int64(len(resp.Items)),
		metric.WithAttributes(s.metrics.WithServiceName([]attribute.KeyValue{
			attribute.Int64("user.id", owner.SubjectID),
		})...))
	return resp, nil
}

// Add puts quantity units of a product in the cart. A zero quantity means one.
func (s *CartService) Add(ctx context.Context, owner auth.Identity, productID int64, quantity int) (*models.CartResponse, error) {
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 0 {
		return nil, validationError("quantity must be at least 1")
	}
	if quantity > MaxQuantity {
		return nil, validationError("quantity is too large")
	}

	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return nil, notFoundOr(err, "Product")
	}
	if err := s.carts.Add(ctx, owner.SubjectID, productID, quantity); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFoundError("Product not found")
		}
		return nil, fmt.Errorf("failed to add to cart: %w", err)
	}

	log.Printf("[CART] Added product %d x%d for user %d", productID, quantity, owner.SubjectID)
	return s.Get(ctx, owner)
}

// Remove drops a product from the cart
func (s *CartService) Remove(ctx context.Context, owner auth.Identity, productID int64) (*models.CartResponse, error) {
	if err := s.carts.Remove(ctx, owner.SubjectID, productID); err != nil {
		return nil, fmt.Errorf("failed to remove from cart: %w", err)
	}
	return s.Get(ctx, owner)
}

// Clear empties the cart
func (s *CartService) Clear(ctx context.Context, owner auth.Identity) error {
	if err := s.carts.Clear(ctx, owner.SubjectID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}
