// Package cache puts a Redis read-through layer in front of the product store.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"

	"github.com/farmerhub/marketplace-api/internal/metrics"
	"github.com/farmerhub/marketplace-api/internal/models"
	"github.com/farmerhub/marketplace-api/internal/store"
)

const (
	notFoundMarker = "notfound"
	notFoundTTL    = time.Minute
)

// CachedProductStore caches single-product lookups. Listings always go to
// the underlying store so that filters and pagination stay exact.
type CachedProductStore struct {
	store.ProductStore
	redis   *redis.Client
	ttl     time.Duration
	metrics *metrics.AppMetrics
}

// NewCachedProductStore wraps real with a Redis cache
func NewCachedProductStore(real store.ProductStore, client *redis.Client, ttl time.Duration, m *metrics.AppMetrics) *CachedProductStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedProductStore{
		ProductStore: real,
		redis:        client,
		ttl:          ttl,
		metrics:      m,
	}
}

func productKey(id int64) string {
	return fmt.Sprintf("product:%d", id)
}

func (c *CachedProductStore) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	key := productKey(id)
	data, err := c.redis.Get(ctx, key).Bytes()

	switch {
	case err == nil:
		if string(data) == notFoundMarker {
			c.metrics.Inc(ctx, c.metrics.CacheHits, attribute.String("cache", "product"))
			return nil, store.ErrNotFound
		}

		var product models.Product
		if err := json.Unmarshal(data, &product); err != nil {
			log.Printf("[CACHE] Failed to unmarshal cached product (continuing with DB): %v", err)
			break
		}
		c.metrics.Inc(ctx, c.metrics.CacheHits, attribute.String("cache", "product"))
		return &product, nil

	case errors.Is(err, redis.Nil):

	default:
		log.Printf("[CACHE] Redis error (continuing with DB): %v", err)
	}

	c.metrics.Inc(ctx, c.metrics.CacheMisses, attribute.String("cache", "product"))

	product, err := c.ProductStore.GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		if setErr := c.redis.Set(ctx, key, notFoundMarker, notFoundTTL).Err(); setErr != nil {
			log.Printf("[CACHE] Failed to cache notfound: %v", setErr)
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	jsonData, err := json.Marshal(product)
	if err != nil {
		log.Printf("[CACHE] Failed to marshal product: %v", err)
		return product, nil
	}
	if err := c.redis.Set(ctx, key, jsonData, c.ttl).Err(); err != nil {
		log.Printf("[CACHE] Failed to cache product: %v", err)
	}

	return product, nil
}

func (c *CachedProductStore) Create(ctx context.Context, product *models.Product) error {
	if err := c.ProductStore.Create(ctx, product); err != nil {
		return err
	}
	// drop a notfound marker left for the fresh id
	c.InvalidateProducts(ctx, product.ID)
	return nil
}

func (c *CachedProductStore) Update(ctx context.Context, product *models.Product) error {
	defer c.InvalidateProducts(ctx, product.ID)
	return c.ProductStore.Update(ctx, product)
}

func (c *CachedProductStore) Delete(ctx context.Context, id int64) error {
	defer c.InvalidateProducts(ctx, id)
	return c.ProductStore.Delete(ctx, id)
}

func (c *CachedProductStore) DeleteBySeller(ctx context.Context, sellerID int64) (int64, error) {
	ids, err := c.ProductStore.IDsBySeller(ctx, sellerID)
	if err != nil {
		return 0, err
	}
	n, err := c.ProductStore.DeleteBySeller(ctx, sellerID)
	c.InvalidateProducts(ctx, ids...)
	return n, err
}

// InvalidateProducts evicts the given products. Failures are logged only;
// entries expire on their own.
func (c *CachedProductStore) InvalidateProducts(ctx context.Context, ids ...int64) {
	if len(ids) == 0 {
		return
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = productKey(id)
	}
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		log.Printf("[CACHE] Failed to delete product cache %v: %v", keys, err)
	}
}

var (
	_ store.ProductStore       = (*CachedProductStore)(nil)
	_ store.ProductInvalidator = (*CachedProductStore)(nil)
)
