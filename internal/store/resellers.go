package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/reseller-store/internal/database"
	"github.com/safar/reseller-store/internal/models"
	"github.com/shopspring/decimal"
)

const resellerColumns = `id, user_id, slug, display_name, default_markup, contact_channel, created_at, updated_at`

func scanReseller(row rowScanner) (*models.ResellerProfile, error) {
	reseller := &models.ResellerProfile{}

	err := row.Scan(
		&reseller.ID,
		&reseller.UserID,
		&reseller.Slug,
		&reseller.DisplayName,
		&reseller.DefaultMarkup,
		&reseller.ContactChannel,
		&reseller.CreatedAt,
		&reseller.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return reseller, nil
}

func CreateReseller(ctx context.Context, q Querier, req models.CreateResellerRequest) (*models.ResellerProfile, error) {
	query := `
		INSERT INTO reseller_profiles (user_id, slug, display_name, default_markup, contact_channel, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING ` + resellerColumns

	reseller, err := scanReseller(q.QueryRowContext(ctx, query,
		req.UserID, req.Slug, req.DisplayName, req.DefaultMarkup, req.ContactChannel))
	if err != nil {
		if constraint, ok := database.UniqueViolation(err); ok {
			if constraint == "reseller_profiles_slug_key" {
				return nil, database.ErrDuplicateSlug
			}
			return nil, database.ErrResellerExists
		}
		return nil, fmt.Errorf("create reseller: %w", err)
	}

	return reseller, nil
}

func GetReseller(ctx context.Context, q Querier, id int64) (*models.ResellerProfile, error) {
	query := `SELECT ` + resellerColumns + ` FROM reseller_profiles WHERE id = $1`

	reseller, err := scanReseller(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrResellerNotFound
		}
		return nil, fmt.Errorf("get reseller: %w", err)
	}

	return reseller, nil
}

func GetResellerBySlug(ctx context.Context, q Querier, slug string) (*models.ResellerProfile, error) {
	query := `SELECT ` + resellerColumns + ` FROM reseller_profiles WHERE slug = $1`

	reseller, err := scanReseller(q.QueryRowContext(ctx, query, slug))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrResellerNotFound
		}
		return nil, fmt.Errorf("get reseller by slug: %w", err)
	}

	return reseller, nil
}

// UpdateResellerMarkup stores a new default markup. Existing overrides are
// left untouched.
func UpdateResellerMarkup(ctx context.Context, q Querier, id int64, markup decimal.Decimal) (*models.ResellerProfile, error) {
	query := `
		UPDATE reseller_profiles
		SET default_markup = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING ` + resellerColumns

	reseller, err := scanReseller(q.QueryRowContext(ctx, query, markup, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrResellerNotFound
		}
		return nil, fmt.Errorf("update markup: %w", err)
	}

	return reseller, nil
}

func UpsertOverride(ctx context.Context, q Querier, resellerID, productID int64, price decimal.Decimal) (*models.ResellerPriceOverride, error) {
	override := &models.ResellerPriceOverride{}

	query := `
		INSERT INTO reseller_price_overrides (reseller_id, product_id, price, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (reseller_id, product_id)
		DO UPDATE SET price = EXCLUDED.price, updated_at = NOW()
		RETURNING reseller_id, product_id, price, updated_at`

	err := q.QueryRowContext(ctx, query, resellerID, productID, price).Scan(
		&override.ResellerID,
		&override.ProductID,
		&override.Price,
		&override.UpdatedAt,
	)
	if err != nil {
		if constraint, ok := database.ForeignKeyViolation(err); ok {
			if constraint == "reseller_price_overrides_product_id_fkey" {
				return nil, database.ErrProductNotFound
			}
			return nil, database.ErrResellerNotFound
		}
		return nil, fmt.Errorf("upsert override: %w", err)
	}

	return override, nil
}

func GetOverride(ctx context.Context, q Querier, resellerID, productID int64) (*models.ResellerPriceOverride, error) {
	override := &models.ResellerPriceOverride{}

	err := q.QueryRowContext(ctx,
		`SELECT reseller_id, product_id, price, updated_at
		 FROM reseller_price_overrides
		 WHERE reseller_id = $1 AND product_id = $2`,
		resellerID, productID).Scan(
		&override.ResellerID,
		&override.ProductID,
		&override.Price,
		&override.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrOverrideNotFound
		}
		return nil, fmt.Errorf("get override: %w", err)
	}

	return override, nil
}

func DeleteOverride(ctx context.Context, q Querier, resellerID, productID int64) error {
	result, err := q.ExecContext(ctx,
		`DELETE FROM reseller_price_overrides WHERE reseller_id = $1 AND product_id = $2`,
		resellerID, productID)
	if err != nil {
		return fmt.Errorf("delete override: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if affected == 0 {
		return database.ErrOverrideNotFound
	}

	return nil
}

func ListOverrides(ctx context.Context, q Querier, resellerID int64) ([]models.ResellerPriceOverride, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT reseller_id, product_id, price, updated_at
		 FROM reseller_price_overrides
		 WHERE reseller_id = $1
		 ORDER BY product_id`,
		resellerID)
	if err != nil {
		return nil, fmt.Errorf("list overrides: %w", err)
	}
	defer rows.Close()

	overrides := []models.ResellerPriceOverride{}
	for rows.Next() {
		var override models.ResellerPriceOverride
		if err := rows.Scan(
			&override.ResellerID,
			&override.ProductID,
			&override.Price,
			&override.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan override: %w", err)
		}
		overrides = append(overrides, override)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return overrides, nil
}
