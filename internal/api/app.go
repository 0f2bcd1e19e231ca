package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/farmerhub/marketplace-api/internal/auth"
	"github.com/farmerhub/marketplace-api/internal/metrics"
	"github.com/farmerhub/marketplace-api/internal/middleware"
	"github.com/farmerhub/marketplace-api/internal/models"
	"github.com/farmerhub/marketplace-api/internal/services"
	"github.com/farmerhub/marketplace-api/pkg/config"
)

// Services bundles the business services the handlers call
type Services struct {
	Accounts *services.AccountService
	Products *services.ProductService
	Carts    *services.CartService
	Orders   *services.OrderService
	Wishlist *services.WishlistService
	Support  *services.SupportService
	Admin    *services.AdminService
	AI       *services.AIService
	Uploads  *services.UploadService
}

// App holds application dependencies
type App struct {
	config  *config.Config
	metrics *metrics.AppMetrics
	tokens  *auth.Tokens
	svc     Services
}

// NewApp creates a new application instance
func NewApp(cfg *config.Config, m *metrics.AppMetrics, tokens *auth.Tokens, svc Services) *App {
	return &App{
		config:  cfg,
		metrics: m,
		tokens:  tokens,
		svc:     svc,
	}
}

// Handler returns the routed API wrapped in otelhttp server instrumentation
func (a *App) Handler() http.Handler {
	r := mux.NewRouter()
	a.SetupRoutes(r)
	return otelhttp.NewHandler(r, a.config.OTELServiceName)
}

// protect wraps h with session authentication limited to roles; no roles
// means any signed-in account
func (a *App) protect(h http.HandlerFunc, roles ...models.Role) http.Handler {
	return middleware.Authenticate(a.tokens, a.config.CookieName, roles...)(h)
}

// SetupRoutes configures the HTTP routes
func (a *App) SetupRoutes(r *mux.Router) {
	// Middleware
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.CORSMiddleware(a.config.CORSOrigin))
	r.Use(middleware.ErrorHandlerMiddleware)
	r.Use(middleware.MetricsMiddleware(a.metrics))

	// CORS preflight; the middleware answers it once a route matches
	r.PathPrefix("/").Methods(http.MethodOptions).HandlerFunc(func(http.ResponseWriter, *http.Request) {})

	api := r.PathPrefix("/api").Subrouter()

	// Auth, one family per signup role; admins sign in through the user family
	for _, role := range []models.Role{models.RoleUser, models.RoleSeller} {
		authr := api.PathPrefix("/" + string(role) + "/auth").Subrouter()
		authr.HandleFunc("/signup", a.SignupHandler(role)).Methods("POST")
		authr.HandleFunc("/login", a.LoginHandler(role)).Methods("POST")
		authr.HandleFunc("/logout", a.LogoutHandler).Methods("POST")
		authr.HandleFunc("/verify-email", a.VerifyEmailHandler).Methods("POST")
		authr.HandleFunc("/forgot-password", a.ForgotPasswordHandler).Methods("POST")
		authr.HandleFunc("/reset-password", a.ResetPasswordHandler).Methods("POST")
		authr.HandleFunc("/reset-password/{token}", a.ResetPasswordHandler).Methods("POST")
		authr.Handle("/check-auth", a.protect(a.CheckAuthHandler)).Methods("GET")
		authr.Handle("/profile", a.protect(a.UpdateProfileHandler)).Methods("PUT")
	}

	// Products
	api.HandleFunc("/products", a.ListProductsHandler).Methods("GET")
	api.Handle("/products/mine", a.protect(a.ListMyProductsHandler, models.RoleSeller)).Methods("GET")
	api.Handle("/products", a.protect(a.CreateProductHandler, models.RoleSeller)).Methods("POST")
	api.Handle("/products/import", a.protect(a.ImportProductsHandler, models.RoleSeller)).Methods("POST")
	api.HandleFunc("/products/{id:[0-9]+}", a.GetProductHandler).Methods("GET")
	api.Handle("/products/{id:[0-9]+}", a.protect(a.UpdateProductHandler, models.RoleSeller, models.RoleAdmin)).Methods("PUT")
	api.Handle("/products/{id:[0-9]+}", a.protect(a.DeleteProductHandler, models.RoleSeller, models.RoleAdmin)).Methods("DELETE")

	// Cart
	api.Handle("/cart", a.protect(a.GetCartHandler)).Methods("GET")
	api.Handle("/cart", a.protect(a.ClearCartHandler)).Methods("DELETE")
	api.Handle("/cart/add", a.protect(a.AddToCartHandler)).Methods("POST")
	api.Handle("/cart/remove", a.protect(a.RemoveFromCartHandler)).Methods("POST", "DELETE")

	// Orders
	api.Handle("/orders", a.protect(a.CreateOrderHandler)).Methods("POST")
	api.Handle("/orders/my-orders", a.protect(a.ListMyOrdersHandler)).Methods("GET")
	api.Handle("/orders/seller-orders", a.protect(a.ListSellerOrdersHandler, models.RoleSeller)).Methods("GET")
	api.Handle("/orders/{id:[0-9]+}", a.protect(a.GetOrderHandler)).Methods("GET")
	api.Handle("/orders/{id:[0-9]+}/status", a.protect(a.UpdateOrderStatusHandler)).Methods("PUT")

	// Wishlist
	api.Handle("/wishlist", a.protect(a.GetWishlistHandler)).Methods("GET")
	api.Handle("/wishlist/toggle", a.protect(a.ToggleWishlistHandler)).Methods("POST")

	// Support, AI and uploads
	api.Handle("/support/create", a.protect(a.CreateSupportHandler)).Methods("POST")
	api.Handle("/ai/ask", a.protect(a.AskHandler)).Methods("POST")
	api.Handle("/upload/{kind:image|video|audio|image-reduce}", a.protect(a.UploadHandler)).Methods("POST")

	// Admin
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.Authenticate(a.tokens, a.config.CookieName, models.RoleAdmin))
	admin.HandleFunc("/stats", a.AdminStatsHandler).Methods("GET")
	admin.HandleFunc("/users", a.AdminListUsersHandler).Methods("GET")
	admin.HandleFunc("/sellers", a.AdminListSellersHandler).Methods("GET")
	admin.HandleFunc("/products", a.AdminListProductsHandler).Methods("GET")
	admin.HandleFunc("/orders", a.AdminListOrdersHandler).Methods("GET")
	admin.HandleFunc("/support", a.AdminListSupportHandler).Methods("GET")
	admin.HandleFunc("/sellers/{id:[0-9]+}/approve", a.AdminApproveSellerHandler).Methods("PUT")
	admin.HandleFunc("/orders/{id:[0-9]+}/status", a.AdminUpdateOrderStatusHandler).Methods("PUT")
	admin.HandleFunc("/support/{id:[0-9]+}/status", a.AdminUpdateSupportStatusHandler).Methods("PUT")
	admin.HandleFunc("/users/{id:[0-9]+}", a.AdminDeleteUserHandler).Methods("DELETE")
	admin.HandleFunc("/sellers/{id:[0-9]+}", a.AdminDeleteSellerHandler).Methods("DELETE")
	admin.HandleFunc("/products/{id:[0-9]+}", a.AdminDeleteProductHandler).Methods("DELETE")

	// Locally stored uploads
	if a.config.S3Bucket == "" {
		r.PathPrefix("/uploads/").Handler(
			http.StripPrefix("/uploads/", http.FileServer(http.Dir(a.config.UploadDir)))).Methods("GET")
	}

	// Health
	r.HandleFunc("/health", a.HealthHandler).Methods("GET")
}

// HealthHandler handles health check requests
func (a *App) HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}

// identity returns the caller placed in the context by the auth middleware
func identity(r *http.Request) auth.Identity {
	id, _ := middleware.IdentityFrom(r.Context())
	return id
}
