package pricing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/safar/reseller-store/internal/database"
	"github.com/safar/reseller-store/internal/models"
	"github.com/safar/reseller-store/internal/store"
	"github.com/shopspring/decimal"
)

// SetResellerMarkup validates and stores a reseller's default markup.
func SetResellerMarkup(ctx context.Context, db *sql.DB, resellerID int64, markup decimal.Decimal) (*models.ResellerProfile, error) {
	if err := ValidateMarkup(markup); err != nil {
		return nil, err
	}

	reseller, err := store.UpdateResellerMarkup(ctx, db, resellerID, markup)
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("reseller_id", resellerID).
		Str("markup", markup.String()).
		Msg("reseller markup updated")

	return reseller, nil
}

// SetProductOverride pins price for one product in one reseller's catalog.
// The base price is read under a share lock in the same transaction as the
// upsert, so the floor check cannot race a catalog price change.
func SetProductOverride(ctx context.Context, db *sql.DB, resellerID, productID int64, price decimal.Decimal) (*models.ResellerPriceOverride, error) {
	var override *models.ResellerPriceOverride

	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		if _, err := store.GetReseller(ctx, tx, resellerID); err != nil {
			return err
		}

		product, err := store.GetProductForShare(ctx, tx, productID)
		if err != nil {
			return err
		}

		if err := ValidateOverride(product.BasePrice, price); err != nil {
			return err
		}

		override, err = store.UpsertOverride(ctx, tx, resellerID, productID, price)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("set product override: %w", err)
	}

	log.Info().
		Int64("reseller_id", resellerID).
		Int64("product_id", productID).
		Str("price", price.String()).
		Msg("price override set")

	return override, nil
}

// ClearProductOverride drops a pin so the product falls back to the
// reseller's default markup.
func ClearProductOverride(ctx context.Context, db *sql.DB, resellerID, productID int64) error {
	if err := store.DeleteOverride(ctx, db, resellerID, productID); err != nil {
		return err
	}

	log.Info().
		Int64("reseller_id", resellerID).
		Int64("product_id", productID).
		Msg("price override cleared")

	return nil
}

// DisplayPrice resolves the price of one product for one reseller, reading
// the reseller's markup and any override through q.
func DisplayPrice(ctx context.Context, q store.Querier, reseller *models.ResellerProfile, product *models.Product) (decimal.Decimal, error) {
	if reseller == nil {
		return product.BasePrice, nil
	}

	var pinned *decimal.Decimal
	override, err := store.GetOverride(ctx, q, reseller.ID, product.ID)
	switch {
	case err == nil:
		pinned = &override.Price
	case !errors.Is(err, database.ErrOverrideNotFound):
		return decimal.Zero, err
	}

	return ResolveDisplayPrice(product.BasePrice, reseller.DefaultMarkup, pinned), nil
}
