package models

import (
	"errors"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/shopspring/decimal"
)

var (
	couponCodePattern = regexp.MustCompile(`^[A-Z0-9_-]+$`)
	slugPattern       = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	hundred           = decimal.NewFromInt(100)
)

type CreateProductRequest struct {
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	CategoryID  *string         `json:"category_id"`
	BasePrice   decimal.Decimal `json:"base_price"`
	StockBySize StockBySize     `json:"stock_by_size"`
}

func (r CreateProductRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.SKU, validation.Required, validation.Length(1, 64)),
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.BasePrice,
			validation.By(positiveDecimal("base price must be greater than 0")),
			validation.By(moneyAmount),
		),
		validation.Field(&r.StockBySize, validation.By(nonNegativeStock)),
	)
}

// UpdateProductRequest changes catalog fields. Version guards against
// concurrent edits of the same product.
type UpdateProductRequest struct {
	Name        *string          `json:"name"`
	BasePrice   *decimal.Decimal `json:"base_price"`
	StockBySize StockBySize      `json:"stock_by_size"`
	Active      *bool            `json:"active"`
	Version     int              `json:"version"`
}

func (r UpdateProductRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.When(r.Name != nil, validation.Required, validation.Length(1, 200))),
		validation.Field(&r.BasePrice, validation.When(r.BasePrice != nil,
			validation.By(positiveDecimal("base price must be greater than 0")),
			validation.By(moneyAmount),
		)),
		validation.Field(&r.StockBySize, validation.By(nonNegativeStock)),
		validation.Field(&r.Version, validation.Required, validation.Min(1)),
	)
}

type CreateResellerRequest struct {
	UserID         string          `json:"user_id"`
	Slug           string          `json:"slug"`
	DisplayName    string          `json:"display_name"`
	DefaultMarkup  decimal.Decimal `json:"default_markup"`
	ContactChannel string          `json:"contact_channel"`
}

func (r *CreateResellerRequest) Normalize() {
	r.Slug = strings.ToLower(strings.TrimSpace(r.Slug))
	r.DisplayName = strings.TrimSpace(r.DisplayName)
}

func (r CreateResellerRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.UserID, validation.Required),
		validation.Field(&r.Slug,
			validation.Required,
			validation.Length(3, 64),
			validation.Match(slugPattern).Error("slug may contain lowercase letters, digits and single dashes"),
		),
		validation.Field(&r.DisplayName, validation.Required, validation.Length(1, 120)),
		validation.Field(&r.DefaultMarkup,
			validation.By(nonNegativeDecimal("default markup must not be negative")),
			validation.By(moneyAmount),
		),
		validation.Field(&r.ContactChannel, validation.Length(0, 200)),
	)
}

type SetMarkupRequest struct {
	Markup decimal.Decimal `json:"markup"`
}

type SetOverrideRequest struct {
	Price decimal.Decimal `json:"price"`
}

type CouponRequest struct {
	Code             string          `json:"code"`
	DiscountKind     string          `json:"discount_kind"`
	DiscountValue    decimal.Decimal `json:"discount_value"`
	Scope            string          `json:"scope"`
	ScopeTarget      *string         `json:"scope_target"`
	MinPurchase      decimal.Decimal `json:"min_purchase"`
	UsageLimit       *int            `json:"usage_limit"`
	PerCustomerLimit *int            `json:"per_customer_limit"`
	ValidFrom        *time.Time      `json:"valid_from"`
	ValidUntil       *time.Time      `json:"valid_until"`
	Active           *bool           `json:"active"`
}

// Normalize prepares a new coupon: it cleans the fields like NormalizeUpdate
// and defaults the start time to now and the coupon to active.
func (r *CouponRequest) Normalize(now time.Time) {
	r.NormalizeUpdate()
	if r.ValidFrom == nil {
		from := now
		r.ValidFrom = &from
	}
	if r.Active == nil {
		active := true
		r.Active = &active
	}
}

// NormalizeUpdate upper-cases the code and defaults the scope. ValidFrom and
// Active stay nil when omitted so an edit keeps the stored values.
func (r *CouponRequest) NormalizeUpdate() {
	r.Code = strings.ToUpper(strings.TrimSpace(r.Code))
	r.DiscountKind = strings.ToLower(strings.TrimSpace(r.DiscountKind))
	r.Scope = strings.ToLower(strings.TrimSpace(r.Scope))
	if r.Scope == "" {
		r.Scope = string(ScopeAll)
	}
	if r.ScopeTarget != nil {
		target := strings.TrimSpace(*r.ScopeTarget)
		if target == "" {
			r.ScopeTarget = nil
		} else {
			r.ScopeTarget = &target
		}
	}
}

func (r CouponRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Code,
			validation.Required,
			validation.Length(3, 50),
			validation.Match(couponCodePattern).Error("code may contain letters, digits, dashes and underscores"),
		),
		validation.Field(&r.DiscountKind,
			validation.Required,
			validation.In(string(DiscountPercentage), string(DiscountFixed)),
		),
		validation.Field(&r.DiscountValue, validation.By(r.validateDiscountValue), validation.By(moneyAmount)),
		validation.Field(&r.Scope,
			validation.In(string(ScopeAll), string(ScopeCategory), string(ScopeProduct), string(ScopeShipping)),
		),
		validation.Field(&r.ScopeTarget,
			validation.When(CouponScope(r.Scope).RequiresTarget(),
				validation.Required.Error("scope target is required for category and product coupons")),
		),
		validation.Field(&r.MinPurchase,
			validation.By(nonNegativeDecimal("minimum purchase must not be negative")),
			validation.By(moneyAmount),
		),
		validation.Field(&r.UsageLimit, validation.When(r.UsageLimit != nil,
			validation.Required.Error("usage limit must be at least 1"), validation.Min(1))),
		validation.Field(&r.PerCustomerLimit, validation.When(r.PerCustomerLimit != nil,
			validation.Required.Error("per-customer limit must be at least 1"), validation.Min(1))),
		validation.Field(&r.ValidUntil, validation.By(r.validateWindow)),
	)
}

func (r CouponRequest) validateDiscountValue(_ interface{}) error {
	if !r.DiscountValue.IsPositive() {
		return errors.New("discount value must be greater than 0")
	}
	if DiscountKind(r.DiscountKind) == DiscountPercentage && r.DiscountValue.GreaterThan(hundred) {
		return errors.New("percentage discount cannot exceed 100")
	}
	return nil
}

func (r CouponRequest) validateWindow(_ interface{}) error {
	if r.ValidUntil == nil || r.ValidFrom == nil {
		return nil
	}
	if !r.ValidUntil.After(*r.ValidFrom) {
		return errors.New("valid until must be after valid from")
	}
	return nil
}

// ValidateCouponRequest is the public "does this code apply" query.
type ValidateCouponRequest struct {
	Code     string          `json:"code"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Email    string          `json:"email"`
}

func (r ValidateCouponRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Code, validation.Required, validation.Length(1, 50)),
		validation.Field(&r.Subtotal, validation.By(nonNegativeDecimal("subtotal must not be negative"))),
		validation.Field(&r.Email, is.EmailFormat),
	)
}

type CheckoutRequest struct {
	ResellerSlug string         `json:"reseller_slug"`
	Customer     Customer       `json:"customer"`
	Items        []CheckoutItem `json:"items"`
	CouponCode   string         `json:"coupon_code"`
}

type CheckoutItem struct {
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size"`
}

func (r *CheckoutRequest) Normalize() {
	r.ResellerSlug = strings.ToLower(strings.TrimSpace(r.ResellerSlug))
	r.Customer.Name = strings.TrimSpace(r.Customer.Name)
	r.Customer.Email = strings.ToLower(strings.TrimSpace(r.Customer.Email))
	r.Customer.Phone = strings.TrimSpace(r.Customer.Phone)
	r.CouponCode = strings.TrimSpace(r.CouponCode)
	for i := range r.Items {
		r.Items[i].Size = strings.TrimSpace(r.Items[i].Size)
	}
}

func (r CheckoutRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Customer),
		validation.Field(&r.Items, validation.Required.Error("cart is empty"), validation.Length(1, 100)),
	)
}

func (c Customer) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&c.Email, is.EmailFormat),
		validation.Field(&c.Phone, validation.Length(0, 32)),
	)
}

func (i CheckoutItem) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.ProductID, validation.Required),
		validation.Field(&i.Quantity,
			validation.Required.Error("quantity must be at least 1"),
			validation.Min(1).Error("quantity must be at least 1"),
		),
	)
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status"`
}

func (r UpdateOrderStatusRequest) Validate() error {
	statuses := make([]interface{}, len(OrderStatuses))
	for i, s := range OrderStatuses {
		statuses[i] = s
	}
	return validation.ValidateStruct(&r,
		validation.Field(&r.Status, validation.Required, validation.In(statuses...)),
	)
}

func positiveDecimal(msg string) validation.RuleFunc {
	return func(value interface{}) error {
		d, ok := asDecimal(value)
		if !ok || !d.IsPositive() {
			return errors.New(msg)
		}
		return nil
	}
}

func nonNegativeDecimal(msg string) validation.RuleFunc {
	return func(value interface{}) error {
		d, ok := asDecimal(value)
		if !ok || d.IsNegative() {
			return errors.New(msg)
		}
		return nil
	}
}

func asDecimal(value interface{}) (decimal.Decimal, bool) {
	switch v := value.(type) {
	case decimal.Decimal:
		return v, true
	case *decimal.Decimal:
		if v == nil {
			return decimal.Zero, false
		}
		return *v, true
	default:
		return decimal.Zero, false
	}
}

func nonNegativeStock(value interface{}) error {
	stock, _ := value.(StockBySize)
	for size, units := range stock {
		if strings.TrimSpace(size) == "" {
			return errors.New("size label must not be empty")
		}
		if units < 0 {
			return errors.New("stock for size " + size + " must not be negative")
		}
	}
	return nil
}
