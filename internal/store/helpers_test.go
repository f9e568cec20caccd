package store_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/safar/reseller-store/internal/models"
	"github.com/safar/reseller-store/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func createProduct(t *testing.T, db *sql.DB, sku string, price int64, stock models.StockBySize) *models.Product {
	t.Helper()
	product, err := store.CreateProduct(context.Background(), db, models.CreateProductRequest{
		SKU:         sku,
		Name:        "Product " + sku,
		BasePrice:   decimal.NewFromInt(price),
		StockBySize: stock,
	})
	require.NoError(t, err)
	return product
}

func createReseller(t *testing.T, db *sql.DB, slug string, markup int64) *models.ResellerProfile {
	t.Helper()
	reseller, err := store.CreateReseller(context.Background(), db, models.CreateResellerRequest{
		UserID:        "user-" + slug,
		Slug:          slug,
		DisplayName:   "Store " + slug,
		DefaultMarkup: decimal.NewFromInt(markup),
	})
	require.NoError(t, err)
	return reseller
}

func createCoupon(t *testing.T, db *sql.DB, code string, usageLimit *int) *models.Coupon {
	t.Helper()
	req := models.CouponRequest{
		Code:          code,
		DiscountKind:  string(models.DiscountPercentage),
		DiscountValue: decimal.NewFromInt(10),
		UsageLimit:    usageLimit,
	}
	req.Normalize(time.Now().Add(-time.Hour))
	require.NoError(t, req.Validate())

	c, err := store.CreateCoupon(context.Background(), db, req)
	require.NoError(t, err)
	return c
}

var orderSeq int

func insertOrder(t *testing.T, db *sql.DB, email string, couponID *int64) *models.Order {
	t.Helper()
	orderSeq++
	order := &models.Order{
		OrderNumber:     fmt.Sprintf("ORD-TEST-%04d", orderSeq),
		Customer:        models.Customer{Name: "Buyer", Email: email},
		Items:           models.LineItems{{ProductID: 1, Name: "Tee", UnitPrice: decimal.NewFromInt(100), Quantity: 1}},
		Subtotal:        decimal.NewFromInt(100),
		DiscountAmount:  decimal.Zero,
		AppliedCouponID: couponID,
		TotalAmount:     decimal.NewFromInt(100),
	}
	require.NoError(t, store.InsertOrder(context.Background(), db, order))
	return order
}

func intPtr(v int) *int { return &v }
