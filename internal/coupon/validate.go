package coupon

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/safar/reseller-store/internal/database"
	"github.com/safar/reseller-store/internal/store"
	"github.com/shopspring/decimal"
)

// Validate looks up code and evaluates it for a cart. Policy outcomes are
// reported in Result; the error is reserved for storage failures.
func Validate(ctx context.Context, q store.Querier, code string, subtotal decimal.Decimal, email string, now time.Time) (Result, error) {
	return validate(ctx, q, code, subtotal, email, now, false)
}

// ValidateLocked is Validate for use inside a checkout transaction: the
// coupon row stays locked until the transaction ends, so concurrent
// checkouts of the same code are serialized.
func ValidateLocked(ctx context.Context, q store.Querier, code string, subtotal decimal.Decimal, email string, now time.Time) (Result, error) {
	return validate(ctx, q, code, subtotal, email, now, true)
}

func validate(ctx context.Context, q store.Querier, code string, subtotal decimal.Decimal, email string, now time.Time, forUpdate bool) (Result, error) {
	normalized := NormalizeCode(code)
	if r := checkCodeShape(normalized); r != nil {
		return rejected(r), nil
	}

	c, err := store.GetActiveCouponByCode(ctx, q, normalized, forUpdate)
	if err != nil {
		if errors.Is(err, database.ErrCouponNotFound) {
			return rejected(notFound()), nil
		}
		return Result{}, err
	}

	email = strings.ToLower(strings.TrimSpace(email))
	in := Input{
		Subtotal:      subtotal,
		CustomerEmail: email,
		Now:           now,
	}

	if c.PerCustomerLimit != nil && email != "" {
		in.PriorCustomerUses, err = store.CountCustomerCouponUsage(ctx, q, c.ID, email)
		if err != nil {
			return Result{}, err
		}
	}

	return Evaluate(c, in), nil
}
