package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          int64           `json:"id"`
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	CategoryID  *string         `json:"category_id,omitempty"`
	BasePrice   decimal.Decimal `json:"base_price"`
	StockBySize StockBySize     `json:"stock_by_size"`
	Active      bool            `json:"active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Version     int             `json:"version"`
}

type ResellerProfile struct {
	ID             int64           `json:"id"`
	UserID         string          `json:"user_id"`
	Slug           string          `json:"slug"`
	DisplayName    string          `json:"display_name"`
	DefaultMarkup  decimal.Decimal `json:"default_markup"`
	ContactChannel string          `json:"contact_channel,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// ResellerPriceOverride pins the price one reseller shows for one product.
type ResellerPriceOverride struct {
	ResellerID int64           `json:"reseller_id"`
	ProductID  int64           `json:"product_id"`
	Price      decimal.Decimal `json:"price"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

type DiscountKind string

const (
	DiscountPercentage DiscountKind = "percentage"
	DiscountFixed      DiscountKind = "fixed"
)

type CouponScope string

const (
	ScopeAll      CouponScope = "all"
	ScopeCategory CouponScope = "category"
	ScopeProduct  CouponScope = "product"
	ScopeShipping CouponScope = "shipping"
)

// RequiresTarget reports whether the scope names a specific category or product.
func (s CouponScope) RequiresTarget() bool {
	return s == ScopeCategory || s == ScopeProduct
}

type Coupon struct {
	ID               int64           `json:"id"`
	Code             string          `json:"code"`
	DiscountKind     DiscountKind    `json:"discount_kind"`
	DiscountValue    decimal.Decimal `json:"discount_value"`
	Scope            CouponScope     `json:"scope"`
	ScopeTarget      *string         `json:"scope_target,omitempty"`
	MinPurchase      decimal.Decimal `json:"min_purchase"`
	UsageLimit       *int            `json:"usage_limit,omitempty"`
	PerCustomerLimit *int            `json:"per_customer_limit,omitempty"`
	UsedCount        int             `json:"used_count"`
	ValidFrom        time.Time       `json:"valid_from"`
	ValidUntil       *time.Time      `json:"valid_until,omitempty"`
	Active           bool            `json:"active"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type Order struct {
	ID              int64           `json:"id"`
	OrderNumber     string          `json:"order_number"`
	ResellerID      *int64          `json:"reseller_id,omitempty"`
	Customer        Customer        `json:"customer"`
	Items           LineItems       `json:"items"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	AppliedCouponID *int64          `json:"applied_coupon_id,omitempty"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Status          string          `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// LineItem is a snapshot of a product at order time. Name and UnitPrice
// never change after the order is written.
type LineItem struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Size      string          `json:"size,omitempty"`
}

func (li LineItem) Total() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusCompleted  = "completed"
	OrderStatusCancelled  = "cancelled"
	OrderStatusReturned   = "returned"
)

var OrderStatuses = []string{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusCompleted,
	OrderStatusCancelled,
	OrderStatusReturned,
}

// ValidOrderStatus reports whether s is a known status. Any known status may
// follow any other.
func ValidOrderStatus(s string) bool {
	for _, status := range OrderStatuses {
		if status == s {
			return true
		}
	}
	return false
}
