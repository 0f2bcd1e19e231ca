package models

import "time"

// Role tags an account as buyer, seller or back-office admin
type Role string

const (
	RoleUser   Role = "user"
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleSeller || r == RoleAdmin
}

// Account is the single identity record for all roles.
// Seller-only attributes are empty for other roles.
type Account struct {
	ID                    int64      `json:"id"`
	Email                 string     `json:"email"`
	PasswordHash          string     `json:"-"`
	Name                  string     `json:"name"`
	Role                  Role       `json:"role"`
	Location              string     `json:"location,omitempty"`
	IsVerified            bool       `json:"isVerified"`
	VerificationToken     string     `json:"-"`
	VerificationExpiresAt *time.Time `json:"-"`
	ResetToken            string     `json:"-"`
	ResetExpiresAt        *time.Time `json:"-"`
	ShopName              string     `json:"shopName,omitempty"`
	IsSellerVerified      bool       `json:"isSellerVerified"`
	LastLogin             *time.Time `json:"lastLogin,omitempty"`
	CreatedAt             time.Time  `json:"createdAt"`
	UpdatedAt             time.Time  `json:"updatedAt"`
}

// Product represents a listing owned by a seller
type Product struct {
	ID          int64     `json:"id"`
	SellerID    int64     `json:"sellerId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Category    string    `json:"category"`
	ImageURL    string    `json:"imageUrl"`
	Stock       int       `json:"stock"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// OrderStatus is the lifecycle state of an order
type OrderStatus string

const (
	OrderPending    OrderStatus = "Pending"
	OrderProcessing OrderStatus = "Processing"
	OrderShipped    OrderStatus = "Shipped"
	OrderDelivered  OrderStatus = "Delivered"
	OrderCancelled  OrderStatus = "Cancelled"
)

// Order represents a placed order
type Order struct {
	ID          int64       `json:"id"`
	BuyerID     int64       `json:"buyerId"`
	Items       []OrderItem `json:"items"`
	TotalAmount float64     `json:"totalAmount"`
	Status      OrderStatus `json:"status"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// OrderItem is a line of an order with the price snapshot taken at checkout
type OrderItem struct {
	ProductID int64   `json:"productId"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// CartItem represents a product held in a buyer's cart
type CartItem struct {
	ProductID int64     `json:"productId"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"addedAt"`
}

// CartResponse represents a cart with its items priced at current product prices
type CartResponse struct {
	Items []CartLine `json:"items"`
	Total float64    `json:"total"`
}

// CartLine is a cart item joined with its product
type CartLine struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
	Subtotal float64 `json:"subtotal"`
}

// SupportStatus is the resolution state of a support ticket
type SupportStatus string

const (
	SupportOpen       SupportStatus = "Open"
	SupportInProgress SupportStatus = "In Progress"
	SupportResolved   SupportStatus = "Resolved"
	SupportClosed     SupportStatus = "Closed"
)

// SupportTicket is a help request, optionally tied to an account
type SupportTicket struct {
	ID        int64         `json:"id"`
	UserID    *int64        `json:"userId,omitempty"`
	Name      string        `json:"name"`
	Email     string        `json:"email"`
	Subject   string        `json:"subject"`
	Message   string        `json:"message"`
	Status    SupportStatus `json:"status"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// AdminStats are the back-office dashboard counters
type AdminStats struct {
	UserCount          int64   `json:"userCount"`
	SellerCount        int64   `json:"sellerCount"`
	ProductCount       int64   `json:"productCount"`
	OrderCount         int64   `json:"orderCount"`
	Revenue            float64 `json:"revenue"`
	PendingSellerCount int64   `json:"pendingSellerCount"`
}
