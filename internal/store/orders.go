package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/reseller-store/internal/database"
	"github.com/safar/reseller-store/internal/models"
)

const orderColumns = `id, order_number, reseller_id, customer_name, customer_email, customer_phone, line_items,
	subtotal, discount_amount, applied_coupon_id, total_amount, status, created_at, updated_at`

func scanOrder(row rowScanner) (*models.Order, error) {
	order := &models.Order{}
	var (
		resellerID      sql.NullInt64
		customerEmail   sql.NullString
		customerPhone   sql.NullString
		appliedCouponID sql.NullInt64
	)

	err := row.Scan(
		&order.ID,
		&order.OrderNumber,
		&resellerID,
		&order.Customer.Name,
		&customerEmail,
		&customerPhone,
		&order.Items,
		&order.Subtotal,
		&order.DiscountAmount,
		&appliedCouponID,
		&order.TotalAmount,
		&order.Status,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	order.ResellerID = int64Ptr(resellerID)
	order.Customer.Email = customerEmail.String
	order.Customer.Phone = customerPhone.String
	order.AppliedCouponID = int64Ptr(appliedCouponID)

	return order, nil
}

// InsertOrder writes order and fills in its ID and timestamps. Monetary
// fields and line item snapshots are stored exactly as given.
func InsertOrder(ctx context.Context, q Querier, order *models.Order) error {
	if order.Status == "" {
		order.Status = models.OrderStatusPending
	}

	err := q.QueryRowContext(ctx,
		`INSERT INTO orders (order_number, reseller_id, customer_name, customer_email, customer_phone, line_items,
		                     subtotal, discount_amount, applied_coupon_id, total_amount, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
		 RETURNING id, created_at, updated_at`,
		order.OrderNumber,
		nullInt64Ptr(order.ResellerID),
		order.Customer.Name,
		nullString(order.Customer.Email),
		nullString(order.Customer.Phone),
		order.Items,
		order.Subtotal,
		order.DiscountAmount,
		nullInt64Ptr(order.AppliedCouponID),
		order.TotalAmount,
		order.Status,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}

	return nil
}

func GetOrder(ctx context.Context, q Querier, id int64) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	return order, nil
}

type OrderFilter struct {
	ResellerID *int64
	Status     string
}

// ListOrdersCursor pages through orders newest first using (created_at, id)
// as the keyset.
func ListOrdersCursor(ctx context.Context, q Querier, filter OrderFilter, cursor string, limit int) (*KeysetPage[models.Order], error) {
	cursorData, err := DecodeCursor(cursor)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}

	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE ($1::bigint IS NULL OR reseller_id = $1::bigint)
		  AND ($2 = '' OR status = $2)
		  AND (created_at, id) < ($3, $4)
		ORDER BY created_at DESC, id DESC
		LIMIT $5`

	rows, err := q.QueryContext(ctx, query,
		nullInt64Ptr(filter.ResellerID), filter.Status, cursorData.CreatedAt, cursorData.ID, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return keysetPage(orders, limit, func(o models.Order) OrderCursor {
		return OrderCursor{CreatedAt: o.CreatedAt, ID: o.ID}
	}), nil
}

// ListOrdersOffset is the dashboard listing: numbered pages, newest first,
// optionally narrowed to one status or reseller.
func ListOrdersOffset(ctx context.Context, q Querier, filter OrderFilter, page, pageSize int) (*Page[models.Order], error) {
	var total int64
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM orders
		 WHERE ($1::bigint IS NULL OR reseller_id = $1::bigint)
		   AND ($2 = '' OR status = $2)`,
		nullInt64Ptr(filter.ResellerID), filter.Status).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}

	offset := (page - 1) * pageSize
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE ($1::bigint IS NULL OR reseller_id = $1::bigint)
		  AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4`

	rows, err := q.QueryContext(ctx, query, nullInt64Ptr(filter.ResellerID), filter.Status, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return numberedPage(orders, total, page, pageSize), nil
}

// UpdateOrderStatus sets any known status regardless of the current one.
func UpdateOrderStatus(ctx context.Context, q Querier, id int64, status string) (*models.Order, error) {
	if !models.ValidOrderStatus(status) {
		return nil, fmt.Errorf("update order status: unknown status %q", status)
	}

	query := `
		UPDATE orders
		SET status = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING ` + orderColumns

	order, err := scanOrder(q.QueryRowContext(ctx, query, status, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("update order status: %w", err)
	}

	return order, nil
}

// ClaimNextPendingOrder moves the oldest pending order to processing.
// Concurrent fulfilment workers skip rows another worker already holds.
func ClaimNextPendingOrder(ctx context.Context, tx *sql.Tx) (*models.Order, error) {
	query := `
		UPDATE orders
		SET status = $1, updated_at = NOW()
		WHERE id = (
			SELECT id FROM orders
			WHERE status = $2
			ORDER BY created_at, id
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING ` + orderColumns

	order, err := scanOrder(tx.QueryRowContext(ctx, query, models.OrderStatusProcessing, models.OrderStatusPending))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("claim next pending order: %w", err)
	}

	return order, nil
}

// NormalizeLegacyLineItems rewrites orders whose line items were stored as
// {"products": [...]} into the plain array form. It returns the number of
// rows rewritten.
func NormalizeLegacyLineItems(ctx context.Context, q Querier) (int64, error) {
	result, err := q.ExecContext(ctx,
		`UPDATE orders
		 SET line_items = COALESCE(line_items->'products', '[]'::jsonb),
		     updated_at = NOW()
		 WHERE jsonb_typeof(line_items) = 'object'`)
	if err != nil {
		return 0, fmt.Errorf("normalize line items: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}

	return affected, nil
}
