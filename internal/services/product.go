package services

import (
	"context"
	"fmt"
	"io"
	"log"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/farmerhub/marketplace-api/internal/auth"
	"github.com/farmerhub/marketplace-api/internal/metrics"
	"github.com/farmerhub/marketplace-api/internal/models"
	"github.com/farmerhub/marketplace-api/internal/store"
)

// ProductService handles product-related operations
type ProductService struct {
	products store.ProductStore
	metrics  *metrics.AppMetrics
}

// NewProductService creates a new product service
func NewProductService(products store.ProductStore, metrics *metrics.AppMetrics) *ProductService {
	return &ProductService{
		products: products,
		metrics:  metrics,
	}
}

// List returns products matching filter, newest first
func (s *ProductService) List(ctx context.Context, filter store.ProductFilter) ([]models.Product, error) {
	if filter.Limit < 0 || filter.Offset < 0 {
		return nil, validationError("limit and offset must not be negative")
	}
	filter.Category = strings.TrimSpace(filter.Category)
	filter.Search = strings.TrimSpace(filter.Search)

	products, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	if products == nil {
		products = []models.Product{}
	}
	return products, nil
}

// Get retrieves a product by ID
func (s *ProductService) Get(ctx context.Context, id int64) (*models.Product, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "Product")
	}

	s.metrics.Inc(ctx, s.metrics.ProductsViewed,
		attribute.Int64("product.id", product.ID),
		attribute.String("product.category", product.Category),
	)
	return product, nil
}

// ListMine returns the calling seller's products
func (s *ProductService) ListMine(ctx context.Context, seller auth.Identity) ([]models.Product, error) {
	return s.List(ctx, store.ProductFilter{SellerID: seller.SubjectID})
}

func checkPrice(price float64) error {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return validationError("price must be a number")
	}
	if price < 0 {
		return validationError("price must not be negative")
	}
	return nil
}

func roundPrice(price float64) float64 {
	return decimal.NewFromFloat(price).Round(2).InexactFloat64()
}

// Create adds a product owned by the calling seller
func (s *ProductService) Create(ctx context.Context, seller auth.Identity, req models.ProductRequest) (*models.Product, error) {
	if seller.Role != models.RoleSeller {
		return nil, forbiddenError("Only sellers can create products")
	}
	product, err := newProduct(seller.SubjectID, req)
	if err != nil {
		return nil, err
	}

	if err := s.products.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	log.Printf("[PRODUCT] Created product %d for seller %d", product.ID, seller.SubjectID)
	return product, nil
}

func newProduct(sellerID int64, req models.ProductRequest) (*models.Product, error) {
	name := strings.TrimSpace(req.Name)
	category := strings.TrimSpace(req.Category)
	if name == "" || category == "" || req.Price == nil || req.Stock == nil {
		return nil, validationError("name, price, category and stock are required")
	}
	if err := checkPrice(*req.Price); err != nil {
		return nil, err
	}
	if *req.Stock < 0 || *req.Stock > MaxQuantity {
		return nil, validationError("stock must be between 0 and %d", MaxQuantity)
	}

	return &models.Product{
		SellerID:    sellerID,
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		Price:       roundPrice(*req.Price),
		Category:    category,
		ImageURL:    strings.TrimSpace(req.ImageURL),
		Stock:       *req.Stock,
	}, nil
}

// owned loads a product and checks that caller may modify it
func (s *ProductService) owned(ctx context.Context, caller auth.Identity, id int64) (*models.Product, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "Product")
	}
	if caller.Role == models.RoleAdmin {
		return product, nil
	}
	if caller.Role != models.RoleSeller || product.SellerID != caller.SubjectID {
		return nil, forbiddenError("You can only modify your own products")
	}
	return product, nil
}

// Update applies a partial update for the owning seller or an admin
func (s *ProductService) Update(ctx context.Context, caller auth.Identity, id int64, req models.ProductUpdateRequest) (*models.Product, error) {
	product, err := s.owned(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, validationError("name cannot be empty")
		}
		product.Name = name
	}
	if req.Description != nil {
		product.Description = strings.TrimSpace(*req.Description)
	}
	if req.Price != nil {
		if err := checkPrice(*req.Price); err != nil {
			return nil, err
		}
		product.Price = roundPrice(*req.Price)
	}
	if req.Category != nil {
		category := strings.TrimSpace(*req.Category)
		if category == "" {
			return nil, validationError("category cannot be empty")
		}
		product.Category = category
	}
	if req.ImageURL != nil {
		product.ImageURL = strings.TrimSpace(*req.ImageURL)
	}
	if req.Stock != nil {
		if *req.Stock < 0 || *req.Stock > MaxQuantity {
			return nil, validationError("stock must be between 0 and %d", MaxQuantity)
		}
		product.Stock = *req.Stock
	}

	if err := s.products.Update(ctx, product); err != nil {
		return nil, notFoundOr(err, "Product")
	}
	return product, nil
}

// Delete removes a product for the owning seller or an admin
func (s *ProductService) Delete(ctx context.Context, caller auth.Identity, id int64) error {
	if _, err := s.owned(ctx, caller, id); err != nil {
		return err
	}
	if err := s.products.Delete(ctx, id); err != nil {
		return notFoundOr(err, "Product")
	}
	log.Printf("[PRODUCT] Deleted product %d (by %s %d)", id, caller.Role, caller.SubjectID)
	return nil
}

// ImportRowError reports a spreadsheet row that was skipped
type ImportRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportResult summarises a bulk import
type ImportResult struct {
	Imported []models.Product `json:"imported"`
	Skipped  []ImportRowError `json:"skipped"`
}

// Import column order of the first sheet; the first row is a header
const (
	colName = iota
	colCategory
	colPrice
	colStock
	colDescription
	colImageURL
)

// Import creates products from the first sheet of an Excel workbook.
// Invalid rows are skipped and reported by their 1-based row number.
func (s *ProductService) Import(ctx context.Context, seller auth.Identity, r io.Reader) (*ImportResult, error) {
	if seller.Role != models.RoleSeller {
		return nil, forbiddenError("Only sellers can import products")
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, validationError("file is not a valid Excel workbook")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, validationError("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, validationError("failed to read sheet %q", sheets[0])
	}

	result := &ImportResult{Imported: []models.Product{}, Skipped: []ImportRowError{}}
	for i, row := range rows {
		if i == 0 || blankRow(row) {
			continue
		}
		rowNum := i + 1

		product, err := s.importRow(ctx, seller.SubjectID, row)
		if err == nil {
			result.Imported = append(result.Imported, *product)
			continue
		}
		result.Skipped = append(result.Skipped, ImportRowError{Row: rowNum, Message: err.Error()})
	}

	s.metrics.ProductsImported.Add(ctx, int64(len(result.Imported)),
		metric.WithAttributes(s.metrics.WithServiceName([]attribute.KeyValue{})...))
	log.Printf("[PRODUCT] Import for seller %d: %d imported, %d skipped",
		seller.SubjectID, len(result.Imported), len(result.Skipped))
	return result, nil
}

func (s *ProductService) importRow(ctx context.Context, sellerID int64, row []string) (*models.Product, error) {
	req, err := parseImportRow(row)
	if err != nil {
		return nil, err
	}
	product, err := newProduct(sellerID, req)
	if err != nil {
		return nil, err
	}
	if err := s.products.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return product, nil
}

func cell(row []string, idx int) string {
	if idx < len(row) {
		return strings.TrimSpace(row[idx])
	}
	return ""
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func parseImportRow(row []string) (models.ProductRequest, error) {
	req := models.ProductRequest{
		Name:        cell(row, colName),
		Category:    cell(row, colCategory),
		Description: cell(row, colDescription),
		ImageURL:    cell(row, colImageURL),
	}

	price, err := strconv.ParseFloat(cell(row, colPrice), 64)
	if err != nil {
		return req, validationError("invalid price %q", cell(row, colPrice))
	}
	stock, err := strconv.Atoi(cell(row, colStock))
	if err != nil {
		return req, validationError("invalid stock %q", cell(row, colStock))
	}
	req.Price = &price
	req.Stock = &stock
	return req, nil
}
