// Package coupon decides whether a coupon code applies to a cart.
//
// Evaluation runs a fixed sequence of checks: temporal window, global usage
// cap, per-customer usage cap, minimum purchase. The first failing check
// produces a Rejection with its own reason; a coupon that passes every check
// is returned to the caller, which computes the discount. Evaluation never
// changes usage counters.
package coupon

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/safar/reseller-store/internal/models"
	"github.com/shopspring/decimal"
)

type Reason string

const (
	ReasonInvalidCode   Reason = "invalid_code"
	ReasonNotFound      Reason = "invalid_or_expired"
	ReasonNotYetValid   Reason = "not_yet_valid"
	ReasonExpired       Reason = "expired"
	ReasonUsageLimit    Reason = "usage_limit_reached"
	ReasonCustomerLimit Reason = "customer_limit_reached"
	ReasonMinimumNotMet Reason = "minimum_not_met"
)

const maxCodeLength = 50

var codePattern = regexp.MustCompile(`^[A-Z0-9_-]+$`)

// Rejection is a user-presentable refusal. It is an expected outcome, not a
// failure of the system.
type Rejection struct {
	Reason  Reason `json:"reason"`
	Message string `json:"message"`
}

func (r *Rejection) Error() string {
	return r.Message
}

func reject(reason Reason, message string) *Rejection {
	return &Rejection{Reason: reason, Message: message}
}

type Result struct {
	Accepted  bool
	Coupon    *models.Coupon
	Rejection *Rejection
}

func accepted(c *models.Coupon) Result {
	return Result{Accepted: true, Coupon: c}
}

func rejected(r *Rejection) Result {
	return Result{Rejection: r}
}

// Input is everything evaluation needs besides the coupon itself.
// PriorCustomerUses is only consulted when CustomerEmail is set.
type Input struct {
	Subtotal          decimal.Decimal
	CustomerEmail     string
	PriorCustomerUses int
	Now               time.Time
}

// NormalizeCode trims and upper-cases a code as entered by a customer.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func checkCodeShape(code string) *Rejection {
	if code == "" || len(code) > maxCodeLength || !codePattern.MatchString(code) {
		return reject(ReasonInvalidCode, "Coupon code is not valid")
	}
	return nil
}

func notFound() *Rejection {
	return reject(ReasonNotFound, "Invalid or expired coupon code")
}

// Evaluate runs the checks after lookup against an already loaded coupon.
func Evaluate(c *models.Coupon, in Input) Result {
	if c == nil || !c.Active {
		return rejected(notFound())
	}

	if in.Now.Before(c.ValidFrom) {
		return rejected(reject(ReasonNotYetValid, "Coupon is not valid yet"))
	}
	if c.ValidUntil != nil && in.Now.After(*c.ValidUntil) {
		return rejected(reject(ReasonExpired, "Coupon has expired"))
	}

	if c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit {
		return rejected(reject(ReasonUsageLimit, "Coupon usage limit reached"))
	}

	// Without an email there is nothing to count against, so the cap is not
	// applied to guest checkouts.
	if c.PerCustomerLimit != nil && in.CustomerEmail != "" && in.PriorCustomerUses >= *c.PerCustomerLimit {
		return rejected(reject(ReasonCustomerLimit, "You have already used this coupon the maximum number of times"))
	}

	if in.Subtotal.LessThan(c.MinPurchase) {
		return rejected(reject(ReasonMinimumNotMet,
			fmt.Sprintf("Minimum purchase of %s required for this coupon", c.MinPurchase.StringFixed(2))))
	}

	return accepted(c)
}

var hundred = decimal.NewFromInt(100)

// Discount is the amount the coupon takes off subtotal: a percentage of it
// rounded to cents, or the fixed value as is. The caller clamps the total.
func Discount(c *models.Coupon, subtotal decimal.Decimal) decimal.Decimal {
	if c == nil {
		return decimal.Zero
	}

	switch c.DiscountKind {
	case models.DiscountPercentage:
		return subtotal.Mul(c.DiscountValue).Div(hundred).Round(2)
	case models.DiscountFixed:
		return c.DiscountValue
	default:
		return decimal.Zero
	}
}
