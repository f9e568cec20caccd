package coupon

import (
	"testing"
	"time"

	"github.com/safar/reseller-store/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func intPtr(v int) *int { return &v }

func timePtr(t time.Time) *time.Time { return &t }

func eter10() *models.Coupon {
	return &models.Coupon{
		ID:            1,
		Code:          "ETER10",
		DiscountKind:  models.DiscountPercentage,
		DiscountValue: decimal.NewFromInt(10),
		Scope:         models.ScopeAll,
		MinPurchase:   decimal.Zero,
		UsageLimit:    intPtr(2),
		UsedCount:     1,
		ValidFrom:     now.Add(-24 * time.Hour),
		Active:        true,
	}
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "ETER10", NormalizeCode("  eter10\t"))
	assert.Equal(t, "", NormalizeCode("   "))
}

func TestCheckCodeShape(t *testing.T) {
	assert.Nil(t, checkCodeShape("ETER10"))
	assert.Nil(t, checkCodeShape("SUMMER-2026_X"))

	for _, code := range []string{"", "TEN OFF", "ÜBER", "'; DROP TABLE coupons;--", string(make([]byte, 51))} {
		r := checkCodeShape(NormalizeCode(code))
		require.NotNil(t, r, code)
		assert.Equal(t, ReasonInvalidCode, r.Reason)
	}
}

func TestEvaluateAcceptsAndComputesDiscount(t *testing.T) {
	c := eter10()

	res := Evaluate(c, Input{Subtotal: decimal.NewFromInt(50000), Now: now})
	require.True(t, res.Accepted)
	assert.Same(t, c, res.Coupon)
	assert.Nil(t, res.Rejection)

	discount := Discount(res.Coupon, decimal.NewFromInt(50000))
	assert.True(t, discount.Equal(decimal.NewFromInt(5000)), discount.String())
}

func TestEvaluateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *models.Coupon)
		in     Input
		want   Reason
	}{
		{
			name:   "inactive",
			mutate: func(c *models.Coupon) { c.Active = false },
			in:     Input{Subtotal: decimal.NewFromInt(50000), Now: now},
			want:   ReasonNotFound,
		},
		{
			name:   "not yet valid",
			mutate: func(c *models.Coupon) { c.ValidFrom = now.Add(time.Second) },
			in:     Input{Subtotal: decimal.NewFromInt(50000), Now: now},
			want:   ReasonNotYetValid,
		},
		{
			name:   "expired",
			mutate: func(c *models.Coupon) { c.ValidUntil = timePtr(now.Add(-24 * time.Hour)) },
			in:     Input{Subtotal: decimal.NewFromInt(50000), Now: now},
			want:   ReasonExpired,
		},
		{
			name: "expired wins over usage and minimum",
			mutate: func(c *models.Coupon) {
				c.ValidUntil = timePtr(now.Add(-24 * time.Hour))
				c.UsedCount = 2
				c.MinPurchase = decimal.NewFromInt(1000000)
			},
			in:   Input{Subtotal: decimal.NewFromInt(1), Now: now},
			want: ReasonExpired,
		},
		{
			name:   "usage limit reached",
			mutate: func(c *models.Coupon) { c.UsedCount = 2 },
			in:     Input{Subtotal: decimal.NewFromInt(50000), Now: now},
			want:   ReasonUsageLimit,
		},
		{
			name:   "customer limit reached",
			mutate: func(c *models.Coupon) { c.PerCustomerLimit = intPtr(1) },
			in:     Input{Subtotal: decimal.NewFromInt(50000), CustomerEmail: "ana@example.com", PriorCustomerUses: 1, Now: now},
			want:   ReasonCustomerLimit,
		},
		{
			name:   "minimum not met",
			mutate: func(c *models.Coupon) { c.MinPurchase = decimal.NewFromInt(60000) },
			in:     Input{Subtotal: decimal.NewFromInt(50000), Now: now},
			want:   ReasonMinimumNotMet,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := eter10()
			tt.mutate(c)

			res := Evaluate(c, tt.in)
			assert.False(t, res.Accepted)
			assert.Nil(t, res.Coupon)
			require.NotNil(t, res.Rejection)
			assert.Equal(t, tt.want, res.Rejection.Reason)
			assert.NotEmpty(t, res.Rejection.Message)
		})
	}
}

func TestEvaluateDistinctMessages(t *testing.T) {
	seen := map[string]Reason{}
	c := eter10()

	cases := []Result{
		Evaluate(nil, Input{Now: now}),
		Evaluate(&models.Coupon{Active: true, ValidFrom: now.Add(time.Hour)}, Input{Now: now}),
		Evaluate(&models.Coupon{Active: true, ValidFrom: now.Add(-time.Hour), ValidUntil: timePtr(now.Add(-time.Minute))}, Input{Now: now}),
		Evaluate(&models.Coupon{Active: true, ValidFrom: now, UsageLimit: intPtr(1), UsedCount: 1}, Input{Now: now}),
		Evaluate(&models.Coupon{Active: true, ValidFrom: now, PerCustomerLimit: intPtr(1)}, Input{Now: now, CustomerEmail: "a@b.co", PriorCustomerUses: 3}),
		Evaluate(&models.Coupon{Active: true, ValidFrom: now, MinPurchase: c.DiscountValue}, Input{Now: now}),
	}

	for _, res := range cases {
		require.NotNil(t, res.Rejection)
		if prev, ok := seen[res.Rejection.Message]; ok {
			t.Fatalf("message %q shared by %s and %s", res.Rejection.Message, prev, res.Rejection.Reason)
		}
		seen[res.Rejection.Message] = res.Rejection.Reason
	}
}

func TestEvaluateTemporalBoundaries(t *testing.T) {
	c := eter10()
	c.ValidFrom = now.Add(time.Second)

	assert.False(t, Evaluate(c, Input{Now: now}).Accepted)
	assert.True(t, Evaluate(c, Input{Now: c.ValidFrom}).Accepted, "valid from is inclusive")
	assert.True(t, Evaluate(c, Input{Now: c.ValidFrom.Add(time.Millisecond)}).Accepted)

	c.ValidUntil = timePtr(now.Add(time.Hour))
	assert.True(t, Evaluate(c, Input{Now: *c.ValidUntil}).Accepted, "valid until is inclusive")
	assert.False(t, Evaluate(c, Input{Now: c.ValidUntil.Add(time.Nanosecond)}).Accepted)
}

func TestEvaluateUsageCapExactness(t *testing.T) {
	const limit = 3
	c := eter10()
	c.UsageLimit = intPtr(limit)
	c.UsedCount = 0

	for use := 1; use <= limit; use++ {
		res := Evaluate(c, Input{Subtotal: decimal.NewFromInt(50000), Now: now})
		require.True(t, res.Accepted, "use %d", use)
		c.UsedCount++
	}

	res := Evaluate(c, Input{Subtotal: decimal.NewFromInt(50000), Now: now})
	require.False(t, res.Accepted)
	assert.Equal(t, ReasonUsageLimit, res.Rejection.Reason)
}

func TestEvaluateGuestSkipsCustomerLimit(t *testing.T) {
	c := eter10()
	c.PerCustomerLimit = intPtr(1)

	res := Evaluate(c, Input{Subtotal: decimal.NewFromInt(50000), PriorCustomerUses: 5, Now: now})
	assert.True(t, res.Accepted)
}

func TestEvaluateMinimumIsInclusive(t *testing.T) {
	c := eter10()
	c.MinPurchase = decimal.NewFromInt(50000)

	assert.True(t, Evaluate(c, Input{Subtotal: decimal.NewFromInt(50000), Now: now}).Accepted)
	assert.False(t, Evaluate(c, Input{Subtotal: decimal.RequireFromString("49999.99"), Now: now}).Accepted)
}

func TestDiscount(t *testing.T) {
	percent := &models.Coupon{DiscountKind: models.DiscountPercentage, DiscountValue: decimal.NewFromInt(15)}
	fixed := &models.Coupon{DiscountKind: models.DiscountFixed, DiscountValue: decimal.NewFromInt(70000)}

	assert.True(t, Discount(percent, decimal.RequireFromString("333.33")).Equal(decimal.RequireFromString("50.00")))
	assert.True(t, Discount(fixed, decimal.NewFromInt(50000)).Equal(decimal.NewFromInt(70000)))
	assert.True(t, Discount(nil, decimal.NewFromInt(50000)).IsZero())
	assert.True(t, Discount(&models.Coupon{DiscountKind: "bogus", DiscountValue: decimal.NewFromInt(1)}, decimal.NewFromInt(10)).IsZero())
}
