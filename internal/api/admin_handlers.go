package api

import (
	"net/http"

	"github.com/farmerhub/marketplace-api/internal/models"
)

// AdminStatsHandler handles GET /api/admin/stats
func (a *App) AdminStatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := a.svc.Admin.Stats(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *App) AdminListUsersHandler(w http.ResponseWriter, r *http.Request) {
	users, err := a.svc.Admin.ListUsers(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (a *App) AdminListSellersHandler(w http.ResponseWriter, r *http.Request) {
	sellers, err := a.svc.Admin.ListSellers(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sellers)
}

func (a *App) AdminListProductsHandler(w http.ResponseWriter, r *http.Request) {
	products, err := a.svc.Admin.ListProducts(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (a *App) AdminListOrdersHandler(w http.ResponseWriter, r *http.Request) {
	orders, err := a.svc.Admin.ListOrders(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (a *App) AdminListSupportHandler(w http.ResponseWriter, r *http.Request) {
	tickets, err := a.svc.Admin.ListSupport(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tickets)
}

// AdminApproveSellerHandler handles PUT /api/admin/sellers/{id}/approve
func (a *App) AdminApproveSellerHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}

	seller, err := a.svc.Admin.ApproveSeller(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, seller)
}

// AdminUpdateOrderStatusHandler handles PUT /api/admin/orders/{id}/status
func (a *App) AdminUpdateOrderStatusHandler(w http.ResponseWriter, r *http.Request) {
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

	order, err := a.svc.Admin.UpdateOrderStatus(r.Context(), identity(r), id, req.Status)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// AdminUpdateSupportStatusHandler handles PUT /api/admin/support/{id}/status
func (a *App) AdminUpdateSupportStatusHandler(w http.ResponseWriter, r *http.Request) {
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

	ticket, err := a.svc.Admin.UpdateSupportStatus(r.Context(), id, req.Status)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

// adminDelete runs del for the {id} route variable
func adminDelete(w http.ResponseWriter, r *http.Request, del func(id int64) error, message string) {
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}
	if err := del(id); err != nil {
		handleError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, message)
}

func (a *App) AdminDeleteUserHandler(w http.ResponseWriter, r *http.Request) {
	adminDelete(w, r, func(id int64) error { return a.svc.Admin.DeleteUser(r.Context(), id) }, "User deleted")
}

func (a *App) AdminDeleteSellerHandler(w http.ResponseWriter, r *http.Request) {
	adminDelete(w, r, func(id int64) error { return a.svc.Admin.DeleteSeller(r.Context(), id) }, "Seller and products deleted")
}

func (a *App) AdminDeleteProductHandler(w http.ResponseWriter, r *http.Request) {
	adminDelete(w, r, func(id int64) error { return a.svc.Admin.DeleteProduct(r.Context(), id) }, "Product deleted")
}
