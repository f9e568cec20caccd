package database

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

type ErrorClass int

const (
	ErrorClassPermanent ErrorClass = iota
	ErrorClassTransient
	ErrorClassDeadlock
	ErrorClassSerialization
)

const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeNotNullViolation     = "23502"
	codeCheckViolation       = "23514"
	codeNumericOutOfRange    = "22003"
)

func ClassifyError(err error) ErrorClass {
	if err == nil {
		return ErrorClassPermanent
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeSerializationFailure:
			return ErrorClassSerialization
		case codeDeadlockDetected:
			return ErrorClassDeadlock
		case codeLockNotAvailable:
			return ErrorClassTransient
		case codeUniqueViolation, codeForeignKeyViolation, codeNotNullViolation, codeCheckViolation:
			return ErrorClassPermanent
		}
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ErrorClassPermanent
	}

	return ErrorClassPermanent
}

func IsRetryable(err error) bool {
	class := ClassifyError(err)
	return class == ErrorClassTransient ||
		class == ErrorClassDeadlock ||
		class == ErrorClassSerialization
}

// UniqueViolation reports whether err is a unique constraint violation and,
// if so, the name of the violated constraint.
func UniqueViolation(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == codeUniqueViolation {
		return pqErr.Constraint, true
	}
	return "", false
}

// ForeignKeyViolation reports whether err references a missing row and, if
// so, the name of the violated constraint.
func ForeignKeyViolation(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == codeForeignKeyViolation {
		return pqErr.Constraint, true
	}
	return "", false
}

// CheckViolation reports whether err is a failed CHECK constraint and, if
// so, the name of the constraint.
func CheckViolation(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == codeCheckViolation {
		return pqErr.Constraint, true
	}
	return "", false
}

// InvalidValue reports whether the database refused a value: a failed CHECK
// or a number that does not fit its column.
func InvalidValue(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == codeCheckViolation || pqErr.Code == codeNumericOutOfRange
}

var (
	ErrProductNotFound      = errors.New("product not found")
	ErrProductInactive      = errors.New("product is not available")
	ErrResellerNotFound     = errors.New("reseller not found")
	ErrOverrideNotFound     = errors.New("price override not found")
	ErrCouponNotFound       = errors.New("coupon not found")
	ErrOrderNotFound        = errors.New("order not found")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrUnknownSize          = errors.New("unknown size for product")
	ErrCouponExhausted      = errors.New("coupon usage limit reached")
	ErrDuplicateCode        = errors.New("coupon code already exists")
	ErrDuplicateSlug        = errors.New("reseller slug already taken")
	ErrDuplicateSKU         = errors.New("product sku already exists")
	ErrResellerExists       = errors.New("user already has a reseller profile")
	ErrCouponInUse          = errors.New("coupon has been redeemed and cannot be deleted")
	ErrUsageLimitBelowUsed  = errors.New("usage limit is below the coupon's redemption count")
	ErrOptimisticLockFailed = errors.New("optimistic lock failed")
	ErrInvalidCouponWindow  = errors.New("valid until must be after valid from")
)
