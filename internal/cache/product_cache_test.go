package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmerhub/marketplace-api/internal/metrics"
	"github.com/farmerhub/marketplace-api/internal/models"
	"github.com/farmerhub/marketplace-api/internal/store"
	"github.com/farmerhub/marketplace-api/internal/store/memory"
)

func setupCache(t *testing.T) (*CachedProductStore, store.ProductStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	real := memory.New().Stores().Products
	return NewCachedProductStore(real, client, time.Minute, metrics.NewDiscardMetrics("test")), real, mr
}

func TestGetByIDCachesProduct(t *testing.T) {
	ctx := context.Background()
	c, real, mr := setupCache(t)

	p := &models.Product{Name: "Okra", Price: 30, Stock: 4}
	require.NoError(t, real.Create(ctx, p))

	got, err := c.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Okra", got.Name)
	assert.True(t, mr.Exists(productKey(p.ID)))

	// a write that bypasses the cache is invisible until invalidation
	p.Name = "Bhindi"
	require.NoError(t, real.Update(ctx, p))
	got, err = c.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Okra", got.Name)

	c.InvalidateProducts(ctx, p.ID)
	got, err = c.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bhindi", got.Name)
}

func TestGetByIDCachesNotFound(t *testing.T) {
	ctx := context.Background()
	c, _, mr := setupCache(t)

	_, err := c.GetByID(ctx, 42)
	assert.ErrorIs(t, err, store.ErrNotFound)

	val, err := mr.Get(productKey(42))
	require.NoError(t, err)
	assert.Equal(t, notFoundMarker, val)

	_, err = c.GetByID(ctx, 42)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestWritesInvalidate(t *testing.T) {
	ctx := context.Background()
	c, _, mr := setupCache(t)

	p := &models.Product{SellerID: 7, Name: "Garlic", Stock: 1}
	require.NoError(t, c.Create(ctx, p))
	_, err := c.GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.True(t, mr.Exists(productKey(p.ID)))

	p.Stock = 9
	require.NoError(t, c.Update(ctx, p))
	assert.False(t, mr.Exists(productKey(p.ID)))

	_, err = c.GetByID(ctx, p.ID)
	require.NoError(t, err)
	n, err := c.DeleteBySeller(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.False(t, mr.Exists(productKey(p.ID)))

	_, err = c.GetByID(ctx, p.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRedisDownFallsBackToStore(t *testing.T) {
	ctx := context.Background()
	c, real, mr := setupCache(t)

	p := &models.Product{Name: "Ginger"}
	require.NoError(t, real.Create(ctx, p))
	mr.Close()

	got, err := c.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ginger", got.Name)
}
