package checkout

import (
	"fmt"

	"github.com/safar/reseller-store/internal/coupon"
	"github.com/safar/reseller-store/internal/models"
	"github.com/shopspring/decimal"
)

// ValidationError reports a cart that cannot be checked out as submitted.
// Details carries per-field errors when they are available.
type ValidationError struct {
	Message string
	Details error
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Details
}

type Totals struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Total          decimal.Decimal `json:"total"`
}

// ComputeOrderTotals sums unit price times quantity over items and applies
// c when it is non-nil. The total is clamped at zero; the discount amount is
// reported unclamped.
func ComputeOrderTotals(items []models.LineItem, c *models.Coupon) (Totals, error) {
	if len(items) == 0 {
		return Totals{}, &ValidationError{Message: "cart is empty"}
	}

	subtotal := decimal.Zero
	for i, item := range items {
		if item.Quantity < 1 {
			return Totals{}, &ValidationError{
				Message: fmt.Sprintf("item %d: quantity must be at least 1", i+1),
			}
		}
		subtotal = subtotal.Add(item.Total())
	}

	discount := coupon.Discount(c, subtotal)

	return Totals{
		Subtotal:       subtotal,
		DiscountAmount: discount,
		Total:          decimal.Max(decimal.Zero, subtotal.Sub(discount)),
	}, nil
}
