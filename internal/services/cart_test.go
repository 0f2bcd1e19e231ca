package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmerhub/marketplace-api/internal/models"
)

func TestCartAddPricesAtCurrentPrice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seller := f.account(t, "s@example.com", models.RoleSeller)
	buyer := f.account(t, "b@example.com", models.RoleUser)
	p := f.product(t, seller, "Eggs", 0.1, 100)

	_, err := f.carts.Add(ctx, buyer, p.ID, 2)
	require.NoError(t, err)
	cart, err := f.carts.Add(ctx, buyer, p.ID, 0)
	require.NoError(t, err)

	require.Len(t, cart.Items, 1)
	assert.Equal(t, 3, cart.Items[0].Quantity)
	assert.Equal(t, 0.3, cart.Items[0].Subtotal)
	assert.Equal(t, 0.3, cart.Total)

	price := 0.2
	_, err = f.products.Update(ctx, seller, p.ID, models.ProductUpdateRequest{Price: &price})
	require.NoError(t, err)
	cart, err = f.carts.Get(ctx, buyer)
	require.NoError(t, err)
	assert.Equal(t, 0.6, cart.Total)
}

func TestCartAddValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buyer := f.account(t, "b@example.com", models.RoleUser)

	_, err := f.carts.Add(ctx, buyer, 404, 1)
	requireKind(t, err, ErrNotFound)

	seller := f.account(t, "s@example.com", models.RoleSeller)
	p := f.product(t, seller, "Milk", 1, 1)
	_, err = f.carts.Add(ctx, buyer, p.ID, -2)
	requireKind(t, err, ErrValidation)

	_, err = f.carts.Add(ctx, buyer, p.ID, 1<<40)
	requireKind(t, err, ErrValidation)
}

func TestCartRemoveAndClear(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seller := f.account(t, "s@example.com", models.RoleSeller)
	buyer := f.account(t, "b@example.com", models.RoleUser)
	a := f.product(t, seller, "Rice", 1, 10)
	b := f.product(t, seller, "Millet", 2, 10)

	_, err := f.carts.Add(ctx, buyer, a.ID, 1)
	require.NoError(t, err)
	_, err = f.carts.Add(ctx, buyer, b.ID, 1)
	require.NoError(t, err)

	cart, err := f.carts.Remove(ctx, buyer, a.ID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, b.ID, cart.Items[0].Product.ID)

	require.NoError(t, f.carts.Clear(ctx, buyer))
	cart, err = f.carts.Get(ctx, buyer)
	require.NoError(t, err)
	assert.NotNil(t, cart.Items)
	assert.Empty(t, cart.Items)
	assert.Zero(t, cart.Total)
}

func TestCartSkipsDeletedProducts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seller := f.account(t, "s@example.com", models.RoleSeller)
	buyer := f.account(t, "b@example.com", models.RoleUser)
	p := f.product(t, seller, "Sorghum", 1, 10)

	_, err := f.carts.Add(ctx, buyer, p.ID, 1)
	require.NoError(t, err)
	require.NoError(t, f.products.Delete(ctx, seller, p.ID))

	cart, err := f.carts.Get(ctx, buyer)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestWishlistToggle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seller := f.account(t, "s@example.com", models.RoleSeller)
	buyer := f.account(t, "b@example.com", models.RoleUser)
	p := f.product(t, seller, "Honey", 9, 3)

	res, err := f.wishlist.Toggle(ctx, buyer, p.ID)
	require.NoError(t, err)
	assert.True(t, res.Added)
	require.Len(t, res.Wishlist, 1)
	assert.Equal(t, p.ID, res.Wishlist[0].ID)

	res, err = f.wishlist.Toggle(ctx, buyer, p.ID)
	require.NoError(t, err)
	assert.False(t, res.Added)
	assert.NotNil(t, res.Wishlist)
	assert.Empty(t, res.Wishlist)

	_, err = f.wishlist.Toggle(ctx, buyer, 12345)
	requireKind(t, err, ErrNotFound)

	list, err := f.wishlist.Get(ctx, buyer)
	require.NoError(t, err)
	assert.Empty(t, list)
}
