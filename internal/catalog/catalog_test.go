package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/safar/reseller-store/internal/database"
	"github.com/safar/reseller-store/internal/models"
	"github.com/safar/reseller-store/internal/store"
	"github.com/safar/reseller-store/internal/testdb"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func ana() *models.ResellerProfile {
	return &models.ResellerProfile{ID: 1, Slug: "ana", DisplayName: "Ana Store", DefaultMarkup: d(5000)}
}

func TestBuild(t *testing.T) {
	products := []models.Product{
		{ID: 1, SKU: "TEE", Name: "Tee", BasePrice: d(50000), Active: true,
			StockBySize: models.StockBySize{"M": 3, "L": 0, "S": 1}},
		{ID: 2, SKU: "CAP", Name: "Cap", BasePrice: d(20000), Active: true},
		{ID: 3, SKU: "OLD", Name: "Old", BasePrice: d(10000), Active: false},
		{ID: 4, SKU: "MUG", Name: "Mug", BasePrice: d(40000), Active: true},
	}
	overrides := []models.ResellerPriceOverride{
		{ResellerID: 1, ProductID: 2, Price: d(25000)},
		{ResellerID: 1, ProductID: 4, Price: d(30000)},
	}

	sf := Build(ana(), products, overrides)

	assert.Equal(t, "ana", sf.Reseller.Slug)
	require.Len(t, sf.Products, 3)

	tee := sf.Products[0]
	assert.True(t, tee.DisplayPrice.Equal(d(55000)), tee.DisplayPrice.String())
	assert.False(t, tee.Overridden)
	assert.Equal(t, []string{"M", "S"}, tee.Sizes)

	capEntry := sf.Products[1]
	assert.True(t, capEntry.DisplayPrice.Equal(d(25000)))
	assert.True(t, capEntry.Overridden)

	mug := sf.Products[2]
	assert.True(t, mug.DisplayPrice.Equal(d(40000)), "stale pin below base is ignored")
	assert.False(t, mug.Overridden)
}

func TestBuildHidesMarkup(t *testing.T) {
	data, err := json.Marshal(Build(ana(), nil, nil))
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(data), "markup"))
	assert.Contains(t, string(data), `"products":[]`)
}

type fakeCache struct {
	data    map[string][]byte
	deleted []string
	failGet bool
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[string][]byte{}}
}

func (f *fakeCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	if f.failGet {
		return false, errors.New("connection refused")
	}
	raw, ok := f.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (f *fakeCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.data[key] = raw
	return nil
}

func (f *fakeCache) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.data, k)
		f.deleted = append(f.deleted, k)
	}
	return nil
}

func (f *fakeCache) DeletePrefix(_ context.Context, prefix string) error {
	for k := range f.data {
		if strings.HasPrefix(k, prefix) {
			delete(f.data, k)
			f.deleted = append(f.deleted, k)
		}
	}
	return nil
}

func TestStorefrontServedFromCache(t *testing.T) {
	fc := newFakeCache()
	require.NoError(t, fc.Set(context.Background(), "catalog:ana", Build(ana(), []models.Product{
		{ID: 9, Name: "Tee", BasePrice: d(50000), Active: true},
	}, nil), time.Minute))

	svc := NewService(nil, fc, time.Minute)

	sf, err := svc.Storefront(context.Background(), "  ANA ")
	require.NoError(t, err)
	require.Len(t, sf.Products, 1)
	assert.True(t, sf.Products[0].DisplayPrice.Equal(d(55000)))
}

func TestInvalidate(t *testing.T) {
	fc := newFakeCache()
	ctx := context.Background()
	for _, slug := range []string{"ana", "budi"} {
		require.NoError(t, fc.Set(ctx, cacheKey(slug), Storefront{}, time.Minute))
	}
	svc := NewService(nil, fc, time.Minute)

	svc.Invalidate(ctx, "ana")
	assert.Equal(t, []string{"catalog:ana"}, fc.deleted)

	svc.InvalidateAll(ctx)
	assert.Empty(t, fc.data)
}

func TestStorefrontLoadsAndCaches(t *testing.T) {
	db := testdb.New(t)
	ctx := context.Background()

	tee, err := store.CreateProduct(ctx, db, models.CreateProductRequest{SKU: "TEE", Name: "Tee", BasePrice: d(50000)})
	require.NoError(t, err)
	reseller, err := store.CreateReseller(ctx, db, models.CreateResellerRequest{
		UserID: "u-ana", Slug: "ana", DisplayName: "Ana", DefaultMarkup: d(5000),
	})
	require.NoError(t, err)

	fc := newFakeCache()
	svc := NewService(db, fc, time.Minute)

	sf, err := svc.Storefront(ctx, "ana")
	require.NoError(t, err)
	require.Len(t, sf.Products, 1)
	assert.True(t, sf.Products[0].DisplayPrice.Equal(d(55000)))
	assert.Contains(t, fc.data, "catalog:ana")

	_, err = store.UpsertOverride(ctx, db, reseller.ID, tee.ID, d(52000))
	require.NoError(t, err)

	sf, err = svc.Storefront(ctx, "ana")
	require.NoError(t, err)
	assert.True(t, sf.Products[0].DisplayPrice.Equal(d(55000)), "served from cache until invalidated")

	svc.Invalidate(ctx, "ana")
	sf, err = svc.Storefront(ctx, "ana")
	require.NoError(t, err)
	assert.True(t, sf.Products[0].DisplayPrice.Equal(d(52000)))
	assert.True(t, sf.Products[0].Overridden)

	_, err = svc.Storefront(ctx, "nobody")
	assert.ErrorIs(t, err, database.ErrResellerNotFound)
}

func TestOrderPlacedInvalidatesOnSizedItems(t *testing.T) {
	ctx := context.Background()
	seed := func() *fakeCache {
		fc := newFakeCache()
		for _, slug := range []string{"ana", "budi"} {
			require.NoError(t, fc.Set(ctx, cacheKey(slug), Storefront{}, time.Minute))
		}
		return fc
	}

	fc := seed()
	NewService(nil, fc, time.Minute).OrderPlaced(ctx, &models.Order{
		Items: models.LineItems{{ProductID: 9, Quantity: 1}},
	})
	assert.Len(t, fc.data, 2, "unsized items leave stock listings untouched")

	fc = seed()
	NewService(nil, fc, time.Minute).OrderPlaced(ctx, &models.Order{
		Items: models.LineItems{{ProductID: 9, Quantity: 1}, {ProductID: 10, Quantity: 2, Size: "M"}},
	})
	assert.Empty(t, fc.data)
}
