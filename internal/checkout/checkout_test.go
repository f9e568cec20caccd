package checkout_test

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/safar/reseller-store/internal/checkout"
	"github.com/safar/reseller-store/internal/coupon"
	"github.com/safar/reseller-store/internal/database"
	"github.com/safar/reseller-store/internal/models"
	"github.com/safar/reseller-store/internal/store"
	"github.com/safar/reseller-store/internal/testdb"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func intPtr(v int) *int { return &v }

func seedProduct(t *testing.T, db *sql.DB, sku string, price int64, stock models.StockBySize) *models.Product {
	t.Helper()
	p, err := store.CreateProduct(context.Background(), db, models.CreateProductRequest{
		SKU: sku, Name: "Product " + sku, BasePrice: dec(price), StockBySize: stock,
	})
	require.NoError(t, err)
	return p
}

func seedCoupon(t *testing.T, db *sql.DB, req models.CouponRequest) *models.Coupon {
	t.Helper()
	req.Normalize(time.Now().Add(-time.Hour))
	require.NoError(t, req.Validate())
	c, err := store.CreateCoupon(context.Background(), db, req)
	require.NoError(t, err)
	return c
}

func eter10(t *testing.T, db *sql.DB) *models.Coupon {
	t.Helper()
	c := seedCoupon(t, db, models.CouponRequest{
		Code:          "ETER10",
		DiscountKind:  string(models.DiscountPercentage),
		DiscountValue: dec(10),
		UsageLimit:    intPtr(2),
	})
	require.NoError(t, store.IncrementCouponUsage(context.Background(), db, c.ID))
	return c
}

func usedCount(t *testing.T, db *sql.DB, id int64) int {
	t.Helper()
	c, err := store.GetCoupon(context.Background(), db, id)
	require.NoError(t, err)
	return c.UsedCount
}

func cart(productID int64, qty int, email, code string) models.CheckoutRequest {
	return models.CheckoutRequest{
		Customer:   models.Customer{Name: "Buyer", Email: email},
		Items:      []models.CheckoutItem{{ProductID: productID, Quantity: qty}},
		CouponCode: code,
	}
}

func TestPlaceOrderRedeemsCouponUntilLimit(t *testing.T) {
	db := testdb.New(t)
	ctx := context.Background()

	product := seedProduct(t, db, "TEE-1", 25000, nil)
	c := eter10(t, db)

	order, err := checkout.PlaceOrder(ctx, db, cart(product.ID, 2, "", " eter10 "), time.Now())
	require.NoError(t, err)

	assert.True(t, order.Subtotal.Equal(dec(50000)), order.Subtotal.String())
	assert.True(t, order.DiscountAmount.Equal(dec(5000)), order.DiscountAmount.String())
	assert.True(t, order.TotalAmount.Equal(dec(45000)), order.TotalAmount.String())
	require.NotNil(t, order.AppliedCouponID)
	assert.Equal(t, c.ID, *order.AppliedCouponID)
	assert.Equal(t, 2, usedCount(t, db, c.ID))

	_, err = checkout.PlaceOrder(ctx, db, cart(product.ID, 2, "", "ETER10"), time.Now())
	var rejection *coupon.Rejection
	require.ErrorAs(t, err, &rejection)
	assert.Equal(t, coupon.ReasonUsageLimit, rejection.Reason)
	assert.Equal(t, 2, usedCount(t, db, c.ID))
}

func TestPlaceOrderSnapshotsResellerPrice(t *testing.T) {
	db := testdb.New(t)
	ctx := context.Background()

	tee := seedProduct(t, db, "TEE-2", 100000, models.StockBySize{"M": 5})
	capProduct := seedProduct(t, db, "CAP-2", 30000, nil)
	reseller, err := store.CreateReseller(ctx, db, models.CreateResellerRequest{
		UserID: "u-ana", Slug: "ana", DisplayName: "Ana", DefaultMarkup: dec(10000),
	})
	require.NoError(t, err)
	_, err = store.UpsertOverride(ctx, db, reseller.ID, capProduct.ID, dec(35000))
	require.NoError(t, err)

	order, err := checkout.PlaceOrder(ctx, db, models.CheckoutRequest{
		ResellerSlug: "ANA",
		Customer:     models.Customer{Name: "Buyer"},
		Items: []models.CheckoutItem{
			{ProductID: tee.ID, Quantity: 2, Size: "M"},
			{ProductID: capProduct.ID, Quantity: 1},
		},
	}, time.Now())
	require.NoError(t, err)

	require.NotNil(t, order.ResellerID)
	assert.Equal(t, reseller.ID, *order.ResellerID)
	require.Len(t, order.Items, 2)
	assert.True(t, order.Items[0].UnitPrice.Equal(dec(110000)))
	assert.True(t, order.Items[1].UnitPrice.Equal(dec(35000)))
	assert.True(t, order.TotalAmount.Equal(dec(255000)), order.TotalAmount.String())

	after, err := store.GetProduct(ctx, db, tee.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, after.StockBySize["M"])

	stored, err := store.GetOrder(ctx, db, order.ID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 2)
	assert.Equal(t, "Product TEE-2", stored.Items[0].Name)
	assert.Equal(t, "M", stored.Items[0].Size)
	assert.True(t, stored.Items[0].UnitPrice.Equal(dec(110000)))
}

func TestFailedOrderDoesNotConsumeCoupon(t *testing.T) {
	db := testdb.New(t)
	ctx := context.Background()

	tee := seedProduct(t, db, "TEE-3", 25000, models.StockBySize{"M": 1})
	c := eter10(t, db)

	_, err := checkout.PlaceOrder(ctx, db, models.CheckoutRequest{
		Customer:   models.Customer{Name: "Buyer"},
		Items:      []models.CheckoutItem{{ProductID: tee.ID, Quantity: 2, Size: "M"}},
		CouponCode: "ETER10",
	}, time.Now())
	assert.ErrorIs(t, err, database.ErrInsufficientStock)
	assert.Equal(t, 1, usedCount(t, db, c.ID))

	_, err = checkout.PlaceOrder(ctx, db, models.CheckoutRequest{
		Customer:   models.Customer{Name: "Buyer"},
		Items:      []models.CheckoutItem{{ProductID: tee.ID, Quantity: 1}},
		CouponCode: "ETER10",
	}, time.Now())
	var cartErr *checkout.ValidationError
	assert.ErrorAs(t, err, &cartErr)
	assert.Equal(t, 1, usedCount(t, db, c.ID))

	page, err := store.ListOrdersOffset(ctx, db, store.OrderFilter{}, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, page.Total)
}

func TestPlaceOrderRejectsBadCarts(t *testing.T) {
	db := testdb.New(t)
	ctx := context.Background()

	product := seedProduct(t, db, "TEE-4", 25000, nil)
	inactive := false
	_, err := store.UpdateProduct(ctx, db, product.ID, models.UpdateProductRequest{Active: &inactive, Version: product.Version})
	require.NoError(t, err)

	_, err = checkout.PlaceOrder(ctx, db, cart(product.ID, 1, "", ""), time.Now())
	assert.ErrorIs(t, err, database.ErrProductInactive)

	_, err = checkout.PlaceOrder(ctx, db, cart(product.ID, 0, "", ""), time.Now())
	var cartErr *checkout.ValidationError
	assert.ErrorAs(t, err, &cartErr)

	_, err = checkout.PlaceOrder(ctx, db, models.CheckoutRequest{Customer: models.Customer{Name: "Buyer"}}, time.Now())
	assert.ErrorAs(t, err, &cartErr)

	_, err = checkout.PlaceOrder(ctx, db, cart(999999, 1, "", ""), time.Now())
	assert.ErrorIs(t, err, database.ErrProductNotFound)
}

func TestPerCustomerLimit(t *testing.T) {
	db := testdb.New(t)
	ctx := context.Background()

	product := seedProduct(t, db, "TEE-5", 25000, nil)
	c := seedCoupon(t, db, models.CouponRequest{
		Code:             "FIRSTBUY",
		DiscountKind:     string(models.DiscountFixed),
		DiscountValue:    dec(5000),
		PerCustomerLimit: intPtr(1),
	})

	_, err := checkout.PlaceOrder(ctx, db, cart(product.ID, 1, "buyer@example.com", "FIRSTBUY"), time.Now())
	require.NoError(t, err)

	_, err = checkout.PlaceOrder(ctx, db, cart(product.ID, 1, "Buyer@Example.com", "FIRSTBUY"), time.Now())
	var rejection *coupon.Rejection
	require.ErrorAs(t, err, &rejection)
	assert.Equal(t, coupon.ReasonCustomerLimit, rejection.Reason)

	_, err = checkout.PlaceOrder(ctx, db, cart(product.ID, 1, "", "FIRSTBUY"), time.Now())
	require.NoError(t, err, "guest checkout skips the per-customer cap")

	assert.Equal(t, 2, usedCount(t, db, c.ID))
}

func TestConcurrentRedemptionsRespectLimit(t *testing.T) {
	db := testdb.New(t)
	ctx := context.Background()

	c := seedCoupon(t, db, models.CouponRequest{
		Code:          "RUSH3",
		DiscountKind:  string(models.DiscountPercentage),
		DiscountValue: dec(5),
		UsageLimit:    intPtr(3),
	})

	concurrency := 10
	products := make([]*models.Product, concurrency)
	for i := range products {
		products[i] = seedProduct(t, db, fmt.Sprintf("RUSH-%d", i), 10000, nil)
	}

	errs := make([]error, concurrency)
	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(i int, productID int64) {
			defer wg.Done()
			_, errs[i] = checkout.PlaceOrder(ctx, db, cart(productID, 1, "", "RUSH3"), time.Now())
		}(i, products[i].ID)
	}
	wg.Wait()

	placed := 0
	for _, err := range errs {
		if err == nil {
			placed++
			continue
		}
		var rejection *coupon.Rejection
		require.ErrorAs(t, err, &rejection)
		assert.Equal(t, coupon.ReasonUsageLimit, rejection.Reason)
	}

	var redeemed int
	require.NoError(t, db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM orders WHERE applied_coupon_id = $1`, c.ID).Scan(&redeemed))

	assert.Equal(t, 3, placed)
	assert.Equal(t, 3, redeemed)
	assert.Equal(t, 3, usedCount(t, db, c.ID))
}

func TestOrderInsertFailureDoesNotConsumeCoupon(t *testing.T) {
	db := testdb.New(t)
	ctx := context.Background()

	// Ten units at this price total 1e12, one more digit than the order
	// columns hold, so the insert fails after the coupon was accepted.
	product := seedProduct(t, db, "GOLD-1", 100000000000, nil)
	c := eter10(t, db)

	_, err := checkout.PlaceOrder(ctx, db, cart(product.ID, 10, "", "ETER10"), time.Now())
	require.Error(t, err)
	assert.True(t, database.InvalidValue(err), err.Error())
	assert.Equal(t, 1, usedCount(t, db, c.ID))

	var orders int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&orders))
	assert.Zero(t, orders)

	order, err := checkout.PlaceOrder(ctx, db, cart(product.ID, 1, "", "ETER10"), time.Now())
	require.NoError(t, err)
	require.NotNil(t, order.AppliedCouponID)
	assert.Equal(t, 2, usedCount(t, db, c.ID))
}
