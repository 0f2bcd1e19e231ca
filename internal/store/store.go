// Package store declares the persistence contracts of the marketplace.
// Implementations live in the mysql and memory subpackages.
package store

import (
	"context"
	"errors"

	"github.com/farmerhub/marketplace-api/internal/models"
)

var (
	ErrNotFound          = errors.New("resource not found")
	ErrDuplicate         = errors.New("duplicate resource")
	ErrInsufficientStock = errors.New("not enough stock available")
	// ErrStaleStatus is returned by status updates when the stored status no
	// longer matches the expected one
	ErrStaleStatus       = errors.New("status changed concurrently")
)

// AccountFilter narrows account counts and listings
type AccountFilter struct {
	Role models.Role
	// PendingSellersOnly limits to sellers awaiting seller verification
	PendingSellersOnly bool
}

// ProductFilter narrows product listings; zero values mean "any"
type ProductFilter struct {
	SellerID int64
	Category string
	Search   string
	Limit    int
	Offset   int
}

type AccountStore interface {
	Create(ctx context.Context, account *models.Account) error
	GetByID(ctx context.Context, id int64) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	GetByVerificationToken(ctx context.Context, token string) (*models.Account, error)
	GetByResetToken(ctx context.Context, token string) (*models.Account, error)
	Update(ctx context.Context, account *models.Account) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter AccountFilter) ([]models.Account, error)
	Count(ctx context.Context, filter AccountFilter) (int64, error)

	WishlistIDs(ctx context.Context, accountID int64) ([]int64, error)
	ToggleWishlist(ctx context.Context, accountID, productID int64) (added bool, err error)
}

type ProductStore interface {
	Create(ctx context.Context, product *models.Product) error
	GetByID(ctx context.Context, id int64) (*models.Product, error)
	GetByIDs(ctx context.Context, ids []int64) ([]models.Product, error)
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter ProductFilter) ([]models.Product, error)
	IDsBySeller(ctx context.Context, sellerID int64) ([]int64, error)
	DeleteBySeller(ctx context.Context, sellerID int64) (int64, error)
	Count(ctx context.Context) (int64, error)
}

// ProductInvalidator is implemented by caching product stores so that
// writers bypassing the product store (stock decrements) can evict entries.
type ProductInvalidator interface {
	InvalidateProducts(ctx context.Context, ids ...int64)
}

type OrderStore interface {
	// Create inserts the order and decrements stock for every item in one
	// unit of work, failing with ErrInsufficientStock if any item cannot be covered.
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id int64) (*models.Order, error)
	ListByBuyer(ctx context.Context, buyerID int64) ([]models.Order, error)
	ListByProducts(ctx context.Context, productIDs []int64) ([]models.Order, error)
	ListAll(ctx context.Context) ([]models.Order, error)
	ListExcludingStatus(ctx context.Context, status models.OrderStatus) ([]models.Order, error)
	// UpdateStatus moves an order from status from to status to, failing with
	// ErrStaleStatus when the order is no longer in from.
	UpdateStatus(ctx context.Context, id int64, from, to models.OrderStatus) error
	Count(ctx context.Context) (int64, error)
}

type CartStore interface {
	Items(ctx context.Context, accountID int64) ([]models.CartItem, error)
	Add(ctx context.Context, accountID, productID int64, quantity int) error
	Remove(ctx context.Context, accountID, productID int64) error
	Clear(ctx context.Context, accountID int64) error
}

type SupportStore interface {
	Create(ctx context.Context, ticket *models.SupportTicket) error
	GetByID(ctx context.Context, id int64) (*models.SupportTicket, error)
	List(ctx context.Context) ([]models.SupportTicket, error)
	UpdateStatus(ctx context.Context, id int64, from, to models.SupportStatus) error
}

// Stores bundles every repository the services need
type Stores struct {
	Accounts AccountStore
	Products ProductStore
	Orders   OrderStore
	Carts    CartStore
	Support  SupportStore
}
