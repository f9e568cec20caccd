package models

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Money columns are NUMERIC(14,2).
const MoneyScale = 2

var maxMoney = decimal.New(1, 12)

var (
	ErrMoneyPrecision = errors.New("amount must have at most 2 decimal places")
	ErrMoneyRange     = errors.New("amount must be less than 1000000000000")
)

// CheckMoney refuses amounts the money columns would round or overflow.
func CheckMoney(d decimal.Decimal) error {
	if !d.Equal(d.Round(MoneyScale)) {
		return ErrMoneyPrecision
	}
	if d.Abs().GreaterThanOrEqual(maxMoney) {
		return ErrMoneyRange
	}
	return nil
}

func moneyAmount(value interface{}) error {
	d, ok := asDecimal(value)
	if !ok {
		return nil
	}
	return CheckMoney(d)
}
