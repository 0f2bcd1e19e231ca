package services

import (
	"bytes"
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/farmerhub/marketplace-api/internal/models"
	"github.com/farmerhub/marketplace-api/internal/store"
)

func TestListProductsEmptyIsNotNil(t *testing.T) {
	f := newFixture(t)
	products, err := f.products.List(context.Background(), store.ProductFilter{})
	require.NoError(t, err)
	assert.NotNil(t, products)
	assert.Empty(t, products)
}

func TestCreateProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seller := f.account(t, "s@example.com", models.RoleSeller)
	user := f.account(t, "u@example.com", models.RoleUser)

	price, stock := 12.345, 5
	req := models.ProductRequest{Name: "Kale", Category: "greens", Price: &price, Stock: &stock}

	p, err := f.products.Create(ctx, seller, req)
	require.NoError(t, err)
	assert.Equal(t, seller.SubjectID, p.SellerID)
	assert.Equal(t, 12.35, p.Price)
	assert.False(t, p.CreatedAt.IsZero())

	_, err = f.products.Create(ctx, user, req)
	requireKind(t, err, ErrForbidden)

	negative := -1.0
	req.Price = &negative
	_, err = f.products.Create(ctx, seller, req)
	requireKind(t, err, ErrValidation)

	notANumber := math.NaN()
	req.Price = &notANumber
	_, err = f.products.Create(ctx, seller, req)
	requireKind(t, err, ErrValidation)

	_, err = f.products.Update(ctx, seller, p.ID, models.ProductUpdateRequest{Price: &notANumber})
	requireKind(t, err, ErrValidation)

	req.Price = &price
	req.Category = ""
	_, err = f.products.Create(ctx, seller, req)
	requireKind(t, err, ErrValidation)
}

func TestGetProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seller := f.account(t, "s@example.com", models.RoleSeller)
	p := f.product(t, seller, "Maize", 3, 10)

	got, err := f.products.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Maize", got.Name)

	_, err = f.products.Get(ctx, 999)
	requireKind(t, err, ErrNotFound)
}

func TestUpdateAndDeleteOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.account(t, "owner@example.com", models.RoleSeller)
	other := f.account(t, "other@example.com", models.RoleSeller)
	admin := f.account(t, "admin@example.com", models.RoleAdmin)
	p := f.product(t, owner, "Beans", 4, 10)

	stock := 7
	_, err := f.products.Update(ctx, other, p.ID, models.ProductUpdateRequest{Stock: &stock})
	requireKind(t, err, ErrForbidden)

	updated, err := f.products.Update(ctx, owner, p.ID, models.ProductUpdateRequest{Stock: &stock})
	require.NoError(t, err)
	assert.Equal(t, 7, updated.Stock)
	assert.Equal(t, "Beans", updated.Name)

	negative := -3
	_, err = f.products.Update(ctx, admin, p.ID, models.ProductUpdateRequest{Stock: &negative})
	requireKind(t, err, ErrValidation)

	requireKind(t, f.products.Delete(ctx, other, p.ID), ErrForbidden)
	require.NoError(t, f.products.Delete(ctx, admin, p.ID))
	requireKind(t, f.products.Delete(ctx, owner, p.ID), ErrNotFound)
}

func TestListMine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.account(t, "a@example.com", models.RoleSeller)
	b := f.account(t, "b@example.com", models.RoleSeller)
	f.product(t, a, "Tomato", 1, 1)
	f.product(t, b, "Onion", 1, 1)

	mine, err := f.products.ListMine(ctx, a)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Tomato", mine[0].Name)
}

func workbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	x := excelize.NewFile()
	defer x.Close()
	sheet := x.GetSheetName(0)
	for i, row := range rows {
		cellName, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, x.SetSheetRow(sheet, cellName, &row))
	}
	buf, err := x.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestImportProducts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seller := f.account(t, "s@example.com", models.RoleSeller)

	buf := workbook(t, [][]any{
		{"name", "category", "price", "stock", "description", "imageUrl"},
		{"Avocado", "fruit", 2.5, 40, "Hass", ""},
		{"", "fruit", 1, 1},
		{"Mango", "fruit", "cheap", 3},
		{"Papaya", "fruit", "NaN", 3},
		{"Guava", "fruit", "-Inf", 3},
		{"Lime", "fruit", "1", "99999999999"},
		{"Cassava", "roots", "0.8", "100"},
	})

	res, err := f.products.Import(ctx, seller, buf)
	require.NoError(t, err)
	require.Len(t, res.Imported, 2)
	assert.Equal(t, "Avocado", res.Imported[0].Name)
	assert.Equal(t, 40, res.Imported[0].Stock)
	assert.Equal(t, seller.SubjectID, res.Imported[1].SellerID)

	require.Len(t, res.Skipped, 5)
	for i, row := range []int{3, 4, 5, 6, 7} {
		assert.Equal(t, row, res.Skipped[i].Row)
	}
	assert.Equal(t, "price must be a number", res.Skipped[2].Message)

	mine, err := f.products.ListMine(ctx, seller)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}

func TestImportRejectsNonWorkbook(t *testing.T) {
	f := newFixture(t)
	seller := f.account(t, "s@example.com", models.RoleSeller)

	_, err := f.products.Import(context.Background(), seller, bytes.NewBufferString("name,price\n"))
	requireKind(t, err, ErrValidation)

	user := f.account(t, "u@example.com", models.RoleUser)
	_, err = f.products.Import(context.Background(), user, workbook(t, nil))
	requireKind(t, err, ErrForbidden)
}
