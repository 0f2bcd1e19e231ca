package models

// SignupRequest represents a request to create an account
type SignupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Name     string `json:"name" validate:"required"`
	Location string `json:"location"`
	ShopName string `json:"shopName"`
}

// LoginRequest represents a credential check
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// VerifyEmailRequest carries the emailed verification code
type VerifyEmailRequest struct {
	Code string `json:"code" validate:"required"`
}

// ForgotPasswordRequest starts a password reset
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest completes a password reset
type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password" validate:"required,min=6"`
}

// UpdateProfileRequest edits mutable account fields; nil means unchanged
type UpdateProfileRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=1"`
	Location *string `json:"location"`
	ShopName *string `json:"shopName"`
}

// ProductRequest represents a request to create a product
type ProductRequest struct {
	Name        string   `json:"name" validate:"required"`
	Description string   `json:"description"`
	Price       *float64 `json:"price" validate:"required,gte=0"`
	Category    string   `json:"category" validate:"required"`
	ImageURL    string   `json:"imageUrl"`
	Stock       *int     `json:"stock" validate:"required,gte=0"`
}

// ProductUpdateRequest represents a partial product update
type ProductUpdateRequest struct {
	Name        *string  `json:"name" validate:"omitempty,min=1"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price" validate:"omitempty,gte=0"`
	Category    *string  `json:"category" validate:"omitempty,min=1"`
	ImageURL    *string  `json:"imageUrl"`
	Stock       *int     `json:"stock" validate:"omitempty,gte=0"`
}

// CreateOrderRequest represents a checkout. Client prices and totals are
// accepted on the wire but never trusted.
type CreateOrderRequest struct {
	Items       []OrderItemRequest `json:"items" validate:"dive"`
	TotalAmount float64            `json:"totalAmount"`
}

// OrderItemRequest is one requested order line
type OrderItemRequest struct {
	ProductID int64   `json:"productId" validate:"required"`
	Quantity  int     `json:"quantity" validate:"gte=1"`
	Price     float64 `json:"price"`
}

// UpdateStatusRequest carries a target status for orders and tickets
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// AddToCartRequest represents a request to add item to cart
type AddToCartRequest struct {
	ProductID int64 `json:"productId" validate:"required"`
	Quantity  int   `json:"quantity" validate:"gte=0"`
}

// ProductRefRequest names a single product
type ProductRefRequest struct {
	ProductID int64 `json:"productId" validate:"required"`
}

// SupportRequest represents a support ticket submission
type SupportRequest struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Subject string `json:"subject" validate:"required"`
	Message string `json:"message" validate:"required"`
}

// AskRequest is a free-text question for the crop advisor
type AskRequest struct {
	Query string `json:"query" validate:"required"`
}
