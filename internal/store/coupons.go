package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/reseller-store/internal/database"
	"github.com/safar/reseller-store/internal/models"
)

const couponColumns = `id, code, discount_kind, discount_value, scope, scope_target, min_purchase,
	usage_limit, per_customer_limit, used_count, valid_from, valid_until, active, created_at, updated_at`

func scanCoupon(row rowScanner) (*models.Coupon, error) {
	coupon := &models.Coupon{}
	var (
		scopeTarget      sql.NullString
		usageLimit       sql.NullInt64
		perCustomerLimit sql.NullInt64
		validUntil       sql.NullTime
	)

	err := row.Scan(
		&coupon.ID,
		&coupon.Code,
		&coupon.DiscountKind,
		&coupon.DiscountValue,
		&coupon.Scope,
		&scopeTarget,
		&coupon.MinPurchase,
		&usageLimit,
		&perCustomerLimit,
		&coupon.UsedCount,
		&coupon.ValidFrom,
		&validUntil,
		&coupon.Active,
		&coupon.CreatedAt,
		&coupon.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	coupon.ScopeTarget = stringPtr(scopeTarget)
	coupon.UsageLimit = intPtr(usageLimit)
	coupon.PerCustomerLimit = intPtr(perCustomerLimit)
	coupon.ValidUntil = timePtr(validUntil)

	return coupon, nil
}

// CreateCoupon expects req to be normalized: upper-cased code and a set
// ValidFrom and Active.
func CreateCoupon(ctx context.Context, q Querier, req models.CouponRequest) (*models.Coupon, error) {
	query := `
		INSERT INTO coupons (code, discount_kind, discount_value, scope, scope_target, min_purchase,
		                     usage_limit, per_customer_limit, used_count, valid_from, valid_until, active,
		                     created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, $9, $10, $11, NOW(), NOW())
		RETURNING ` + couponColumns

	coupon, err := scanCoupon(q.QueryRowContext(ctx, query,
		req.Code,
		req.DiscountKind,
		req.DiscountValue,
		req.Scope,
		nullStringPtr(req.ScopeTarget),
		req.MinPurchase,
		nullIntPtr(req.UsageLimit),
		nullIntPtr(req.PerCustomerLimit),
		*req.ValidFrom,
		nullTimePtr(req.ValidUntil),
		*req.Active,
	))
	if err != nil {
		if _, ok := database.UniqueViolation(err); ok {
			return nil, database.ErrDuplicateCode
		}
		if constraint, ok := database.CheckViolation(err); ok && constraint == "coupons_window_check" {
			return nil, database.ErrInvalidCouponWindow
		}
		return nil, fmt.Errorf("create coupon: %w", err)
	}

	return coupon, nil
}

// UpdateCoupon replaces the editable fields of a coupon. A nil ValidFrom or
// Active keeps the stored value. used_count is never written here, and a
// usage limit below it is refused.
func UpdateCoupon(ctx context.Context, q Querier, id int64, req models.CouponRequest) (*models.Coupon, error) {
	query := `
		UPDATE coupons
		SET code = $1, discount_kind = $2, discount_value = $3, scope = $4, scope_target = $5,
		    min_purchase = $6, usage_limit = $7, per_customer_limit = $8,
		    valid_from = COALESCE($9::timestamptz, valid_from),
		    valid_until = $10, active = COALESCE($11::boolean, active), updated_at = NOW()
		WHERE id = $12
		  AND ($7::int IS NULL OR used_count <= $7::int)
		RETURNING ` + couponColumns

	coupon, err := scanCoupon(q.QueryRowContext(ctx, query,
		req.Code,
		req.DiscountKind,
		req.DiscountValue,
		req.Scope,
		nullStringPtr(req.ScopeTarget),
		req.MinPurchase,
		nullIntPtr(req.UsageLimit),
		nullIntPtr(req.PerCustomerLimit),
		nullTimePtr(req.ValidFrom),
		nullTimePtr(req.ValidUntil),
		nullBoolPtr(req.Active),
		id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if _, getErr := GetCoupon(ctx, q, id); getErr != nil {
				return nil, getErr
			}
			return nil, database.ErrUsageLimitBelowUsed
		}
		if _, ok := database.UniqueViolation(err); ok {
			return nil, database.ErrDuplicateCode
		}
		if constraint, ok := database.CheckViolation(err); ok && constraint == "coupons_window_check" {
			return nil, database.ErrInvalidCouponWindow
		}
		return nil, fmt.Errorf("update coupon: %w", err)
	}

	return coupon, nil
}

// DeleteCoupon removes a coupon that no order references. Redeemed coupons
// must be deactivated instead so per-customer history stays intact.
func DeleteCoupon(ctx context.Context, q Querier, id int64) error {
	result, err := q.ExecContext(ctx,
		`DELETE FROM coupons
		 WHERE id = $1
		   AND NOT EXISTS (SELECT 1 FROM orders WHERE applied_coupon_id = $1)`,
		id)
	if err != nil {
		return fmt.Errorf("delete coupon: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if affected == 0 {
		if _, err := GetCoupon(ctx, q, id); err != nil {
			return err
		}
		return database.ErrCouponInUse
	}

	return nil
}

func GetCoupon(ctx context.Context, q Querier, id int64) (*models.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE id = $1`

	coupon, err := scanCoupon(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrCouponNotFound
		}
		return nil, fmt.Errorf("get coupon: %w", err)
	}

	return coupon, nil
}

// GetActiveCouponByCode looks up an active coupon by its normalized code.
// With forUpdate the row stays locked until the caller's transaction ends.
func GetActiveCouponByCode(ctx context.Context, q Querier, code string, forUpdate bool) (*models.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1 AND active`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	coupon, err := scanCoupon(q.QueryRowContext(ctx, query, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrCouponNotFound
		}
		return nil, fmt.Errorf("get coupon by code: %w", err)
	}

	return coupon, nil
}

func ListCoupons(ctx context.Context, q Querier, page, pageSize int) (*Page[models.Coupon], error) {
	var total int64
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM coupons`).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count coupons: %w", err)
	}

	offset := (page - 1) * pageSize
	query := `
		SELECT ` + couponColumns + `
		FROM coupons
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2`

	rows, err := q.QueryContext(ctx, query, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	defer rows.Close()

	coupons := []models.Coupon{}
	for rows.Next() {
		coupon, err := scanCoupon(rows)
		if err != nil {
			return nil, fmt.Errorf("scan coupon: %w", err)
		}
		coupons = append(coupons, *coupon)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return numberedPage(coupons, total, page, pageSize), nil
}

// CountCustomerCouponUsage counts orders that applied the coupon for the
// given email, compared case-insensitively.
func CountCustomerCouponUsage(ctx context.Context, q Querier, couponID int64, email string) (int, error) {
	var count int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*)
		 FROM orders
		 WHERE applied_coupon_id = $1
		   AND LOWER(customer_email) = LOWER($2)`,
		couponID, email).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count coupon usage: %w", err)
	}

	return count, nil
}

// IncrementCouponUsage adds one redemption in a single statement. It returns
// ErrCouponExhausted when the usage limit is already reached, leaving the
// counter untouched.
func IncrementCouponUsage(ctx context.Context, q Querier, couponID int64) error {
	result, err := q.ExecContext(ctx,
		`UPDATE coupons
		 SET used_count = used_count + 1,
		     updated_at = NOW()
		 WHERE id = $1
		   AND (usage_limit IS NULL OR used_count < usage_limit)`,
		couponID)
	if err != nil {
		return fmt.Errorf("increment coupon usage: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if affected == 0 {
		if _, err := GetCoupon(ctx, q, couponID); err != nil {
			return err
		}
		return database.ErrCouponExhausted
	}

	return nil
}
