package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"slices"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/farmerhub/marketplace-api/internal/auth"
	"github.com/farmerhub/marketplace-api/internal/metrics"
	"github.com/farmerhub/marketplace-api/internal/models"
	"github.com/farmerhub/marketplace-api/internal/store"
)

// orderTransitions lists the statuses reachable from each status.
// Delivered and Cancelled are terminal.
var orderTransitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderPending:    {models.OrderProcessing, models.OrderCancelled},
	models.OrderProcessing: {models.OrderShipped, models.OrderCancelled},
	models.OrderShipped:    {models.OrderDelivered},
	models.OrderDelivered:  nil,
	models.OrderCancelled:  nil,
}

// MaxQuantity bounds a single order line and the summed quantity of one
// product across an order or cart; it matches the INT columns.
const MaxQuantity = math.MaxInt32

// ParseOrderStatus validates a status name
func ParseOrderStatus(s string) (models.OrderStatus, error) {
	status := models.OrderStatus(s)
	if _, ok := orderTransitions[status]; !ok {
		return "", validationError("Invalid order status %q", s)
	}
	return status, nil
}

// CanTransition reports whether an order may move from one status to another
func CanTransition(from, to models.OrderStatus) bool {
	return slices.Contains(orderTransitions[from], to)
}

// OrderService handles order-related operations
type OrderService struct {
	orders      store.OrderStore
	products    store.ProductStore
	carts       store.CartStore
	invalidator store.ProductInvalidator
	metrics     *metrics.AppMetrics
}

// NewOrderService creates a new order service. invalidator may be nil when
// products are not cached.
func NewOrderService(stores store.Stores, invalidator store.ProductInvalidator, metrics *metrics.AppMetrics) *OrderService {
	return &OrderService{
		orders:      stores.Orders,
		products:    stores.Products,
		carts:       stores.Carts,
		invalidator: invalidator,
		metrics:     metrics,
	}
}

// Create places an order priced from the current product records.
// Client-supplied prices and totals are ignored.
func (s *OrderService) Create(ctx context.Context, buyer auth.Identity, req models.CreateOrderRequest) (*models.Order, error) {
	if len(req.Items) == 0 {
		return nil, validationError("Order must contain at least one item")
	}

	var ids []int64
	need := make(map[int64]int)
	for _, item := range req.Items {
		if item.Quantity < 1 {
			return nil, validationError("Quantity for product %d must be at least 1", item.ProductID)
		}
		if item.Quantity > MaxQuantity-need[item.ProductID] {
			return nil, validationError("Quantity for product %d is too large", item.ProductID)
		}
		if _, seen := need[item.ProductID]; !seen {
			ids = append(ids, item.ProductID)
		}
		need[item.ProductID] += item.Quantity
	}

	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load order products: %w", err)
	}
	byID := make(map[int64]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			return nil, notFoundError("Product %d not found", id)
		}
		if p.Stock < need[id] {
			return nil, validationError("Insufficient stock for %s", p.Name)
		}
	}

	order := &models.Order{
		BuyerID: buyer.SubjectID,
		Status:  models.OrderPending,
		Items:   make([]models.OrderItem, 0, len(req.Items)),
	}
	total := decimal.Zero
	for _, item := range req.Items {
		p := byID[item.ProductID]
		order.Items = append(order.Items, models.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			Quantity:  item.Quantity,
			Price:     p.Price,
		})
		total = total.Add(decimal.NewFromFloat(p.Price).Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	order.TotalAmount = total.Round(2).InexactFloat64()

	if err := s.orders.Create(ctx, order); err != nil {
		switch {
		case errors.Is(err, store.ErrInsufficientStock):
			return nil, validationError("Insufficient stock")
		case errors.Is(err, store.ErrNotFound):
			return nil, notFoundError("Product not found")
		}
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	if s.invalidator != nil {
		s.invalidator.InvalidateProducts(ctx, ids...)
	}
	if err := s.carts.Clear(ctx, buyer.SubjectID); err != nil {
		log.Printf("[ORDER] Failed to clear cart for user %d: %v", buyer.SubjectID, err)
	}

	attrs := s.metrics.WithServiceName([]attribute.KeyValue{
		attribute.String("order.status", string(order.Status)),
	})
	s.metrics.OrdersCreated.Add(ctx, 1, metric.WithAttributes(attrs...))
	s.metrics.RevenueTotal.Add(ctx, order.TotalAmount, metric.WithAttributes(attrs...))

	log.Printf("[ORDER] Created order %d for user %d: %d items, total %.2f",
		order.ID, buyer.SubjectID, len(order.Items), order.TotalAmount)
	return order, nil
}

// ListBuyerOrders returns the caller's orders, newest first
func (s *OrderService) ListBuyerOrders(ctx context.Context, buyer auth.Identity) ([]models.Order, error) {
	orders, err := s.orders.ListByBuyer(ctx, buyer.SubjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return nonNilOrders(orders), nil
}

// ListSellerOrders returns every order containing at least one of the
// seller's products
func (s *OrderService) ListSellerOrders(ctx context.Context, seller auth.Identity) ([]models.Order, error) {
	ids, err := s.products.IDsBySeller(ctx, seller.SubjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list seller products: %w", err)
	}
	if len(ids) == 0 {
		return []models.Order{}, nil
	}

	orders, err := s.orders.ListByProducts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list seller orders: %w", err)
	}
	return nonNilOrders(orders), nil
}

// ListAll returns every order
func (s *OrderService) ListAll(ctx context.Context) ([]models.Order, error) {
	orders, err := s.orders.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return nonNilOrders(orders), nil
}

func nonNilOrders(orders []models.Order) []models.Order {
	if orders == nil {
		return []models.Order{}
	}
	return orders
}

// sellerInvolved reports whether order contains a product of seller
func (s *OrderService) sellerInvolved(ctx context.Context, sellerID int64, order *models.Order) (bool, error) {
	ids, err := s.products.IDsBySeller(ctx, sellerID)
	if err != nil {
		return false, fmt.Errorf("failed to list seller products: %w", err)
	}
	for _, item := range order.Items {
		if slices.Contains(ids, item.ProductID) {
			return true, nil
		}
	}
	return false, nil
}

// Get returns an order visible to the caller: its buyer, a seller of one of
// its products or an admin
func (s *OrderService) Get(ctx context.Context, caller auth.Identity, id int64) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "Order")
	}
	if caller.Role == models.RoleAdmin || order.BuyerID == caller.SubjectID {
		return order, nil
	}
	if caller.Role == models.RoleSeller {
		involved, err := s.sellerInvolved(ctx, caller.SubjectID, order)
		if err != nil {
			return nil, err
		}
		if involved {
			return order, nil
		}
	}
	return nil, forbiddenError("You are not allowed to view this order")
}

// UpdateStatus moves an order along its lifecycle. Admins may change any
// order, sellers only orders containing their products, and buyers may
// only cancel their own orders. Setting the current status is a no-op.
func (s *OrderService) UpdateStatus(ctx context.Context, caller auth.Identity, id int64, status string) (*models.Order, error) {
	target, err := ParseOrderStatus(status)
	if err != nil {
		return nil, err
	}

	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "Order")
	}
	if err := s.authorizeStatusChange(ctx, caller, order, target); err != nil {
		return nil, err
	}

	if order.Status == target {
		return order, nil
	}
	if !CanTransition(order.Status, target) {
		return nil, conflictError("Cannot change order status from %s to %s", order.Status, target)
	}

	if err := s.orders.UpdateStatus(ctx, id, order.Status, target); err != nil {
		if errors.Is(err, store.ErrStaleStatus) {
			return nil, conflictError("Order %d was updated by someone else, reload and retry", id)
		}
		return nil, notFoundOr(err, "Order")
	}

	s.metrics.Inc(ctx, s.metrics.OrderStatusTransitions,
		attribute.String("from", string(order.Status)),
		attribute.String("to", string(target)),
		attribute.String("role", string(caller.Role)),
	)
	log.Printf("[ORDER] Order %d: %s -> %s (by %s %d)", id, order.Status, target, caller.Role, caller.SubjectID)

	return s.orders.GetByID(ctx, id)
}

func (s *OrderService) authorizeStatusChange(ctx context.Context, caller auth.Identity, order *models.Order, target models.OrderStatus) error {
	if caller.Role == models.RoleAdmin {
		return nil
	}
	if caller.Role == models.RoleSeller {
		involved, err := s.sellerInvolved(ctx, caller.SubjectID, order)
		if err != nil {
			return err
		}
		if involved {
			return nil
		}
	}
	if order.BuyerID == caller.SubjectID {
		if target == models.OrderCancelled {
			return nil
		}
		return forbiddenError("You can only cancel your own orders")
	}
	return forbiddenError("You are not allowed to update this order")
}
