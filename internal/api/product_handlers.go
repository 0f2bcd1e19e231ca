package api

import (
	"net/http"
	"strconv"

	"github.com/farmerhub/marketplace-api/internal/models"
	"github.com/farmerhub/marketplace-api/internal/store"
)

// ListProductsHandler handles GET /api/products?category=&search=&sellerId=&limit=&offset=
func (a *App) ListProductsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.ProductFilter{
		Category: q.Get("category"),
		Search:   q.Get("search"),
	}

	for name, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		if v := q.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				handleError(w, r, badRequest("Invalid %s", name))
				return
			}
			*dst = n
		}
	}
	if v := q.Get("sellerId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			handleError(w, r, badRequest("Invalid sellerId"))
			return
		}
		filter.SellerID = id
	}

	products, err := a.svc.Products.List(r.Context(), filter)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

// GetProductHandler handles GET /api/products/{id}
func (a *App) GetProductHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}

	product, err := a.svc.Products.Get(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// ListMyProductsHandler handles GET /api/products/mine
func (a *App) ListMyProductsHandler(w http.ResponseWriter, r *http.Request) {
	products, err := a.svc.Products.ListMine(r.Context(), identity(r))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

// CreateProductHandler handles POST /api/products
func (a *App) CreateProductHandler(w http.ResponseWriter, r *http.Request) {
	var req models.ProductRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	product, err := a.svc.Products.Create(r.Context(), identity(r), req)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

// UpdateProductHandler handles PUT /api/products/{id}
func (a *App) UpdateProductHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}
	var req models.ProductUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	product, err := a.svc.Products.Update(r.Context(), identity(r), id, req)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// DeleteProductHandler handles DELETE /api/products/{id}
func (a *App) DeleteProductHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}

	if err := a.svc.Products.Delete(r.Context(), identity(r), id); err != nil {
		handleError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Product deleted")
}

// ImportProductsHandler handles POST /api/products/import with a multipart
// "file" field holding an .xlsx workbook
func (a *App) ImportProductsHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxUploadBytes)
	file, _, err := r.FormFile("file")
	if err != nil {
		handleError(w, r, badRequest("file is required"))
		return
	}
	defer file.Close()

	result, err := a.svc.Products.Import(r.Context(), identity(r), file)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
