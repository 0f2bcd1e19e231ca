package api

import (
	"net/http"

	"github.com/farmerhub/marketplace-api/internal/models"
)

// GetCartHandler handles GET /api/cart
func (a *App) GetCartHandler(w http.ResponseWriter, r *http.Request) {
	cart, err := a.svc.Carts.Get(r.Context(), identity(r))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

// AddToCartHandler handles POST /api/cart/add
func (a *App) AddToCartHandler(w http.ResponseWriter, r *http.Request) {
	var req models.AddToCartRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	cart, err := a.svc.Carts.Add(r.Context(), identity(r), req.ProductID, req.Quantity)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

// RemoveFromCartHandler handles POST|DELETE /api/cart/remove
func (a *App) RemoveFromCartHandler(w http.ResponseWriter, r *http.Request) {
	var req models.ProductRefRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	cart, err := a.svc.Carts.Remove(r.Context(), identity(r), req.ProductID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

// ClearCartHandler handles DELETE /api/cart
func (a *App) ClearCartHandler(w http.ResponseWriter, r *http.Request) {
	if err := a.svc.Carts.Clear(r.Context(), identity(r)); err != nil {
		handleError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Cart cleared")
}

// CreateOrderHandler handles POST /api/orders
func (a *App) CreateOrderHandler(w http.ResponseWriter, r *http.Request) {
	var req models.CreateOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	order, err := a.svc.Orders.Create(r.Context(), identity(r), req)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

// ListMyOrdersHandler handles GET /api/orders/my-orders
func (a *App) ListMyOrdersHandler(w http.ResponseWriter, r *http.Request) {
	orders, err := a.svc.Orders.ListBuyerOrders(r.Context(), identity(r))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// ListSellerOrdersHandler handles GET /api/orders/seller-orders
func (a *App) ListSellerOrdersHandler(w http.ResponseWriter, r *http.Request) {
	orders, err := a.svc.Orders.ListSellerOrders(r.Context(), identity(r))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// GetOrderHandler handles GET /api/orders/{id}
func (a *App) GetOrderHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}

	order, err := a.svc.Orders.Get(r.Context(), identity(r), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// UpdateOrderStatusHandler handles PUT /api/orders/{id}/status
func (a *App) UpdateOrderStatusHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}
	var req models.UpdateStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	order, err := a.svc.Orders.UpdateStatus(r.Context(), identity(r), id, req.Status)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}
