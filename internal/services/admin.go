package services

import (
	"context"
	"fmt"
	"log"

	"github.com/shopspring/decimal"

	"github.com/farmerhub/marketplace-api/internal/auth"
	"github.com/farmerhub/marketplace-api/internal/models"
	"github.com/farmerhub/marketplace-api/internal/store"
)

// AdminService backs the back-office endpoints
type AdminService struct {
	stores  store.Stores
	orders  *OrderService
	support *SupportService
}

// NewAdminService creates a new admin service
func NewAdminService(stores store.Stores, orders *OrderService, support *SupportService) *AdminService {
	return &AdminService{stores: stores, orders: orders, support: support}
}

// Stats gathers the dashboard counters. Revenue excludes cancelled orders.
func (s *AdminService) Stats(ctx context.Context) (*models.AdminStats, error) {
	var stats models.AdminStats
	var err error

	if stats.UserCount, err = s.stores.Accounts.Count(ctx, store.AccountFilter{Role: models.RoleUser}); err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	if stats.SellerCount, err = s.stores.Accounts.Count(ctx, store.AccountFilter{Role: models.RoleSeller}); err != nil {
		return nil, fmt.Errorf("failed to count sellers: %w", err)
	}
	if stats.PendingSellerCount, err = s.stores.Accounts.Count(ctx, store.AccountFilter{PendingSellersOnly: true}); err != nil {
		return nil, fmt.Errorf("failed to count pending sellers: %w", err)
	}
	if stats.ProductCount, err = s.stores.Products.Count(ctx); err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}
	if stats.OrderCount, err = s.stores.Orders.Count(ctx); err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	orders, err := s.stores.Orders.ListExcludingStatus(ctx, models.OrderCancelled)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	revenue := decimal.Zero
	for _, o := range orders {
		revenue = revenue.Add(decimal.NewFromFloat(o.TotalAmount))
	}
	stats.Revenue = revenue.Round(2).InexactFloat64()

	return &stats, nil
}

func (s *AdminService) listAccounts(ctx context.Context, role models.Role) ([]models.Account, error) {
	accounts, err := s.stores.Accounts.List(ctx, store.AccountFilter{Role: role})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s accounts: %w", role, err)
	}
	if accounts == nil {
		accounts = []models.Account{}
	}
	return accounts, nil
}

func (s *AdminService) ListUsers(ctx context.Context) ([]models.Account, error) {
	return s.listAccounts(ctx, models.RoleUser)
}

func (s *AdminService) ListSellers(ctx context.Context) ([]models.Account, error) {
	return s.listAccounts(ctx, models.RoleSeller)
}

func (s *AdminService) ListProducts(ctx context.Context) ([]models.Product, error) {
	products, err := s.stores.Products.List(ctx, store.ProductFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	if products == nil {
		products = []models.Product{}
	}
	return products, nil
}

func (s *AdminService) ListOrders(ctx context.Context) ([]models.Order, error) {
	return s.orders.ListAll(ctx)
}

// accountWithRole loads an account and reports NotFound when it has another role
func (s *AdminService) accountWithRole(ctx context.Context, id int64, role models.Role, what string) (*models.Account, error) {
	account, err := s.stores.Accounts.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, what)
	}
	if account.Role != role {
		return nil, notFoundError("%s not found", what)
	}
	return account, nil
}

// DeleteUser removes a buyer account
func (s *AdminService) DeleteUser(ctx context.Context, id int64) error {
	if _, err := s.accountWithRole(ctx, id, models.RoleUser, "User"); err != nil {
		return err
	}
	if err := s.stores.Accounts.Delete(ctx, id); err != nil {
		return notFoundOr(err, "User")
	}
	log.Printf("[ADMIN] Deleted user %d", id)
	return nil
}

// DeleteSeller removes a seller account together with its products
func (s *AdminService) DeleteSeller(ctx context.Context, id int64) error {
	if _, err := s.accountWithRole(ctx, id, models.RoleSeller, "Seller"); err != nil {
		return err
	}

	removed, err := s.stores.Products.DeleteBySeller(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete seller products: %w", err)
	}
	if err := s.stores.Accounts.Delete(ctx, id); err != nil {
		return notFoundOr(err, "Seller")
	}
	log.Printf("[ADMIN] Deleted seller %d and %d products", id, removed)
	return nil
}

// ApproveSeller marks a seller as verified
func (s *AdminService) ApproveSeller(ctx context.Context, id int64) (*models.Account, error) {
	seller, err := s.accountWithRole(ctx, id, models.RoleSeller, "Seller")
	if err != nil {
		return nil, err
	}
	if seller.IsSellerVerified {
		return seller, nil
	}

	seller.IsSellerVerified = true
	if err := s.stores.Accounts.Update(ctx, seller); err != nil {
		return nil, notFoundOr(err, "Seller")
	}
	log.Printf("[ADMIN] Approved seller %d", id)
	return seller, nil
}

// DeleteProduct removes any product
func (s *AdminService) DeleteProduct(ctx context.Context, id int64) error {
	if err := s.stores.Products.Delete(ctx, id); err != nil {
		return notFoundOr(err, "Product")
	}
	log.Printf("[ADMIN] Deleted product %d", id)
	return nil
}

func (s *AdminService) UpdateOrderStatus(ctx context.Context, admin auth.Identity, id int64, status string) (*models.Order, error) {
	return s.orders.UpdateStatus(ctx, admin, id, status)
}

func (s *AdminService) ListSupport(ctx context.Context) ([]models.SupportTicket, error) {
	return s.support.List(ctx)
}

func (s *AdminService) UpdateSupportStatus(ctx context.Context, id int64, status string) (*models.SupportTicket, error) {
	return s.support.UpdateStatus(ctx, id, status)
}
