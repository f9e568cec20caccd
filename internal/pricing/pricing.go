// Package pricing computes the price a reseller's customers see and guards
// the writes that feed that computation.
package pricing

import (
	"fmt"

	"github.com/safar/reseller-store/internal/models"
	"github.com/shopspring/decimal"
)

// ValidationError rejects a markup or override write. Minimum is set when
// the value fell below the allowed floor.
type ValidationError struct {
	Field   string
	Message string
	Minimum *decimal.Decimal
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ResolveDisplayPrice returns override when present, otherwise base plus
// markup. The result is never below basePrice, whatever the inputs.
func ResolveDisplayPrice(basePrice, markup decimal.Decimal, override *decimal.Decimal) decimal.Decimal {
	candidate := basePrice.Add(markup)
	if override != nil {
		candidate = *override
	}

	return decimal.Max(candidate, basePrice)
}

func ValidateMarkup(markup decimal.Decimal) error {
	if markup.IsNegative() {
		return &ValidationError{
			Field:   "markup",
			Message: "markup must not be negative",
		}
	}
	if err := models.CheckMoney(markup); err != nil {
		return &ValidationError{Field: "markup", Message: "markup " + err.Error()}
	}
	return nil
}

// ValidateOverride refuses prices under the product's base price. The
// value is rejected, not clamped, so the caller can show the minimum.
func ValidateOverride(basePrice, price decimal.Decimal) error {
	if err := models.CheckMoney(price); err != nil {
		return &ValidationError{Field: "price", Message: "price " + err.Error()}
	}
	if price.LessThan(basePrice) {
		minimum := basePrice
		return &ValidationError{
			Field:   "price",
			Message: fmt.Sprintf("price must be at least %s", basePrice.StringFixed(2)),
			Minimum: &minimum,
		}
	}
	return nil
}
