// Package checkout turns a cart into a persisted order.
package checkout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/safar/reseller-store/internal/coupon"
	"github.com/safar/reseller-store/internal/database"
	"github.com/safar/reseller-store/internal/metrics"
	"github.com/safar/reseller-store/internal/models"
	"github.com/safar/reseller-store/internal/pricing"
	"github.com/safar/reseller-store/internal/store"
)

func newOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
	return fmt.Sprintf("ORD-%s-%s", now.UTC().Format("20060102"), suffix)
}

// PlaceOrder prices the cart for the reseller named in req, applies the
// coupon if one is given and writes the order.
//
// Everything happens in one serializable transaction: unit prices are
// snapshotted from the current catalog, sized stock is decremented, the
// coupon row is locked and re-validated, the order is inserted and the
// coupon's used count is incremented. If any step fails nothing is written,
// so an order that was not saved never consumes a coupon use, and a retried
// transaction increments at most once.
//
// Errors are *ValidationError for a malformed cart, *coupon.Rejection when
// the coupon does not apply, database sentinels for missing rows or stock,
// and wrapped storage errors otherwise.
func PlaceOrder(ctx context.Context, db *sql.DB, req models.CheckoutRequest, now time.Time) (*models.Order, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, &ValidationError{Message: "invalid checkout request", Details: err}
	}

	var order *models.Order

	err := database.WithRetry(ctx, db, database.CheckoutTxOptions(), func(tx *sql.Tx) error {
		var err error
		order, err = placeOrderTx(ctx, tx, req, now)
		return err
	})
	if err != nil {
		var rejection *coupon.Rejection
		if errors.As(err, &rejection) {
			metrics.ObserveCouponValidation(string(rejection.Reason))
			log.Info().
				Str("coupon_code", coupon.NormalizeCode(req.CouponCode)).
				Str("reason", string(rejection.Reason)).
				Msg("checkout coupon rejected")
		}
		return nil, err
	}

	if order.AppliedCouponID != nil {
		metrics.ObserveCouponValidation("accepted")
	}
	metrics.ObserveOrderPlaced(order)

	log.Info().
		Str("order_number", order.OrderNumber).
		Str("subtotal", order.Subtotal.String()).
		Str("discount", order.DiscountAmount.String()).
		Str("total", order.TotalAmount.String()).
		Bool("coupon_applied", order.AppliedCouponID != nil).
		Msg("order placed")

	return order, nil
}

func placeOrderTx(ctx context.Context, tx *sql.Tx, req models.CheckoutRequest, now time.Time) (*models.Order, error) {
	var reseller *models.ResellerProfile
	if req.ResellerSlug != "" {
		var err error
		reseller, err = store.GetResellerBySlug(ctx, tx, req.ResellerSlug)
		if err != nil {
			return nil, err
		}
	}

	items, err := snapshotItems(ctx, tx, reseller, req.Items)
	if err != nil {
		return nil, err
	}

	totals, err := ComputeOrderTotals(items, nil)
	if err != nil {
		return nil, err
	}

	var applied *models.Coupon
	if req.CouponCode != "" {
		res, err := coupon.ValidateLocked(ctx, tx, req.CouponCode, totals.Subtotal, req.Customer.Email, now)
		if err != nil {
			return nil, err
		}
		if !res.Accepted {
			return nil, res.Rejection
		}
		applied = res.Coupon

		totals, err = ComputeOrderTotals(items, applied)
		if err != nil {
			return nil, err
		}
	}

	order := &models.Order{
		OrderNumber:    newOrderNumber(now),
		Customer:       req.Customer,
		Items:          items,
		Subtotal:       totals.Subtotal,
		DiscountAmount: totals.DiscountAmount,
		TotalAmount:    totals.Total,
		Status:         models.OrderStatusPending,
	}
	if reseller != nil {
		order.ResellerID = &reseller.ID
	}
	if applied != nil {
		order.AppliedCouponID = &applied.ID
	}

	if err := store.InsertOrder(ctx, tx, order); err != nil {
		return nil, err
	}

	if applied != nil {
		if err := store.IncrementCouponUsage(ctx, tx, applied.ID); err != nil {
			if errors.Is(err, database.ErrCouponExhausted) {
				return nil, &coupon.Rejection{Reason: coupon.ReasonUsageLimit, Message: "Coupon usage limit reached"}
			}
			return nil, err
		}
		applied.UsedCount++
	}

	return order, nil
}

func snapshotItems(ctx context.Context, tx *sql.Tx, reseller *models.ResellerProfile, requested []models.CheckoutItem) (models.LineItems, error) {
	items := make(models.LineItems, 0, len(requested))

	for _, item := range requested {
		if item.Quantity < 1 {
			return nil, &ValidationError{Message: fmt.Sprintf("product %d: quantity must be at least 1", item.ProductID)}
		}

		product, err := store.GetProductForUpdateNoWait(ctx, tx, item.ProductID)
		if err != nil {
			return nil, err
		}
		if !product.Active {
			return nil, database.ErrProductInactive
		}

		if item.Size == "" && len(product.StockBySize) > 0 {
			return nil, &ValidationError{Message: fmt.Sprintf("%s: size is required", product.Name)}
		}
		if item.Size != "" {
			if err := store.DecrementSizeStock(ctx, tx, product.ID, item.Size, item.Quantity); err != nil {
				return nil, err
			}
		}

		price, err := pricing.DisplayPrice(ctx, tx, reseller, product)
		if err != nil {
			return nil, err
		}

		items = append(items, models.LineItem{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: price,
			Quantity:  item.Quantity,
			Size:      item.Size,
		})
	}

	return items, nil
}
