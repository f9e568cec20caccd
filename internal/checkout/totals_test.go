package checkout

import (
	"strings"
	"testing"
	"time"

	"github.com/safar/reseller-store/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestComputeOrderTotalsWithoutCoupon(t *testing.T) {
	items := []models.LineItem{
		{ProductID: 1, Name: "Tee", UnitPrice: dec(55000), Quantity: 2, Size: "M"},
		{ProductID: 2, Name: "Cap", UnitPrice: dec(20000), Quantity: 1},
	}

	totals, err := ComputeOrderTotals(items, nil)
	require.NoError(t, err)

	assert.True(t, totals.Subtotal.Equal(dec(130000)), totals.Subtotal.String())
	assert.True(t, totals.DiscountAmount.IsZero())
	assert.True(t, totals.Total.Equal(dec(130000)), totals.Total.String())
}

func TestComputeOrderTotalsPercentageCoupon(t *testing.T) {
	items := []models.LineItem{{ProductID: 1, UnitPrice: dec(25000), Quantity: 2}}
	c := &models.Coupon{DiscountKind: models.DiscountPercentage, DiscountValue: dec(10)}

	totals, err := ComputeOrderTotals(items, c)
	require.NoError(t, err)

	assert.True(t, totals.Subtotal.Equal(dec(50000)))
	assert.True(t, totals.DiscountAmount.Equal(dec(5000)), totals.DiscountAmount.String())
	assert.True(t, totals.Total.Equal(dec(45000)), totals.Total.String())
}

func TestComputeOrderTotalsClampsAtZero(t *testing.T) {
	items := []models.LineItem{{ProductID: 1, UnitPrice: dec(8000), Quantity: 1}}
	c := &models.Coupon{DiscountKind: models.DiscountFixed, DiscountValue: dec(10000)}

	totals, err := ComputeOrderTotals(items, c)
	require.NoError(t, err)

	assert.True(t, totals.DiscountAmount.Equal(dec(10000)))
	assert.True(t, totals.Total.IsZero(), totals.Total.String())
}

func TestComputeOrderTotalsRejectsBadCarts(t *testing.T) {
	_, err := ComputeOrderTotals(nil, nil)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "cart is empty", verr.Message)

	_, err = ComputeOrderTotals([]models.LineItem{{ProductID: 1, UnitPrice: dec(100), Quantity: 0}}, nil)
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Message, "quantity must be at least 1")
}

func TestComputeOrderTotalsTotalNeverNegative(t *testing.T) {
	for _, value := range []int64{1, 999, 50000, 1_000_000} {
		items := []models.LineItem{{ProductID: 1, UnitPrice: dec(4999), Quantity: 3}}
		c := &models.Coupon{DiscountKind: models.DiscountFixed, DiscountValue: dec(value)}

		totals, err := ComputeOrderTotals(items, c)
		require.NoError(t, err)
		assert.False(t, totals.Total.IsNegative(), "fixed %d", value)
	}
}

func TestNewOrderNumber(t *testing.T) {
	at := time.Date(2026, 3, 9, 23, 59, 0, 0, time.UTC)

	first := newOrderNumber(at)
	second := newOrderNumber(at)

	assert.True(t, strings.HasPrefix(first, "ORD-20260309-"), first)
	assert.Len(t, first, len("ORD-20260309-")+10)
	assert.NotEqual(t, first, second)
	assert.Equal(t, strings.ToUpper(first), first)
}
