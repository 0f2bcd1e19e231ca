package api

import (
	"net/http"

	"github.com/farmerhub/marketplace-api/internal/models"
)

// GetWishlistHandler handles GET /api/wishlist
func (a *App) GetWishlistHandler(w http.ResponseWriter, r *http.Request) {
	products, err := a.svc.Wishlist.Get(r.Context(), identity(r))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

// ToggleWishlistHandler handles POST /api/wishlist/toggle
func (a *App) ToggleWishlistHandler(w http.ResponseWriter, r *http.Request) {
	var req models.ProductRefRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	result, err := a.svc.Wishlist.Toggle(r.Context(), identity(r), req.ProductID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
