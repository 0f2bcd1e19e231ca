package services

import (
	"context"
	"fmt"

	"github.com/farmerhub/marketplace-api/internal/auth"
	"github.com/farmerhub/marketplace-api/internal/models"
	"github.com/farmerhub/marketplace-api/internal/store"
)

// ToggleResult is the outcome of a wishlist toggle
type ToggleResult struct {
	Added    bool             `json:"added"`
	Wishlist []models.Product `json:"wishlist"`
}

// WishlistService manages the per-account product wishlist
type WishlistService struct {
	accounts store.AccountStore
	products store.ProductStore
}

// NewWishlistService creates a new wishlist service
func NewWishlistService(accounts store.AccountStore, products store.ProductStore) *WishlistService {
	return &WishlistService{accounts: accounts, products: products}
}

// Get returns the wishlisted products
func (s *WishlistService) Get(ctx context.Context, owner auth.Identity) ([]models.Product, error) {
	ids, err := s.accounts.WishlistIDs(ctx, owner.SubjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to get wishlist: %w", err)
	}
	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get wishlist products: %w", err)
	}
	if products == nil {
		products = []models.Product{}
	}
	return products, nil
}

// Toggle adds the product when absent and removes it when present
func (s *WishlistService) Toggle(ctx context.Context, owner auth.Identity, productID int64) (*ToggleResult, error) {
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return nil, notFoundOr(err, "Product")
	}

	added, err := s.accounts.ToggleWishlist(ctx, owner.SubjectID, productID)
	if err != nil {
		return nil, notFoundOr(err, "User")
	}

	wishlist, err := s.Get(ctx, owner)
	if err != nil {
		return nil, err
	}
	return &ToggleResult{Added: added, Wishlist: wishlist}, nil
}
