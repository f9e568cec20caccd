package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/reseller-store/internal/database"
	"github.com/safar/reseller-store/internal/models"
)

const productColumns = `id, sku, name, description, category_id, base_price, stock_by_size, active, created_at, updated_at, version`

func scanProduct(row rowScanner) (*models.Product, error) {
	product := &models.Product{}
	var categoryID sql.NullString

	err := row.Scan(
		&product.ID,
		&product.SKU,
		&product.Name,
		&product.Description,
		&categoryID,
		&product.BasePrice,
		&product.StockBySize,
		&product.Active,
		&product.CreatedAt,
		&product.UpdatedAt,
		&product.Version,
	)
	if err != nil {
		return nil, err
	}
	product.CategoryID = stringPtr(categoryID)

	return product, nil
}

func CreateProduct(ctx context.Context, q Querier, req models.CreateProductRequest) (*models.Product, error) {
	stock := req.StockBySize
	if stock == nil {
		stock = models.StockBySize{}
	}

	query := `
		INSERT INTO products (sku, name, description, category_id, base_price, stock_by_size, active, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE, NOW(), NOW(), 1)
		RETURNING ` + productColumns

	product, err := scanProduct(q.QueryRowContext(ctx, query,
		req.SKU, req.Name, req.Description, nullStringPtr(req.CategoryID), req.BasePrice, stock))
	if err != nil {
		if _, ok := database.UniqueViolation(err); ok {
			return nil, database.ErrDuplicateSKU
		}
		return nil, fmt.Errorf("create product: %w", err)
	}

	return product, nil
}

func GetProduct(ctx context.Context, q Querier, id int64) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	product, err := scanProduct(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	return product, nil
}

// GetProductForShare reads a product and holds a share lock until the
// transaction ends, so its base price cannot change underneath a price
// override write.
func GetProductForShare(ctx context.Context, tx *sql.Tx, id int64) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 FOR SHARE`

	product, err := scanProduct(tx.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("lock product: %w", err)
	}

	return product, nil
}

// GetProductForUpdateNoWait locks a product row for checkout. A row held by
// another checkout fails immediately with a retryable lock error instead of
// queueing.
func GetProductForUpdateNoWait(ctx context.Context, tx *sql.Tx, id int64) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 FOR UPDATE NOWAIT`

	product, err := scanProduct(tx.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("lock product %d (nowait): %w", id, err)
	}

	return product, nil
}

func ListProducts(ctx context.Context, q Querier, activeOnly bool, page, pageSize int) (*Page[models.Product], error) {
	var total int64
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM products WHERE ($1 = FALSE OR active)`, activeOnly).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	offset := (page - 1) * pageSize
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE ($1 = FALSE OR active)
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`

	rows, err := q.QueryContext(ctx, query, activeOnly, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return numberedPage(products, total, page, pageSize), nil
}

// ListActiveProducts returns the whole sellable catalog, newest first.
func ListActiveProducts(ctx context.Context, q Querier) ([]models.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE active
		ORDER BY created_at DESC, id DESC`

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list active products: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return products, nil
}

// UpdateProduct applies the non-nil fields of req when req.Version still
// matches the stored version.
func UpdateProduct(ctx context.Context, q Querier, id int64, req models.UpdateProductRequest) (*models.Product, error) {
	var stock interface{}
	if req.StockBySize != nil {
		stock = req.StockBySize
	}
	var basePrice interface{}
	if req.BasePrice != nil {
		basePrice = *req.BasePrice
	}

	query := `
		UPDATE products
		SET name          = COALESCE($1, name),
		    base_price    = COALESCE($2::numeric, base_price),
		    stock_by_size = COALESCE($3::jsonb, stock_by_size),
		    active        = COALESCE($4, active),
		    version       = version + 1,
		    updated_at    = NOW()
		WHERE id = $5 AND version = $6
		RETURNING ` + productColumns

	product, err := scanProduct(q.QueryRowContext(ctx, query,
		nullStringPtr(req.Name), basePrice, stock, nullBoolPtr(req.Active), id, req.Version))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if _, getErr := GetProduct(ctx, q, id); getErr != nil {
				return nil, getErr
			}
			return nil, database.ErrOptimisticLockFailed
		}
		return nil, fmt.Errorf("update product: %w", err)
	}

	return product, nil
}

// DecrementSizeStock removes quantity units of one size. It fails with
// ErrUnknownSize when the product does not stock that size and with
// ErrInsufficientStock when fewer units remain.
func DecrementSizeStock(ctx context.Context, q Querier, productID int64, size string, quantity int) error {
	result, err := q.ExecContext(ctx,
		`UPDATE products
		 SET stock_by_size = jsonb_set(stock_by_size, ARRAY[$2::text], to_jsonb((stock_by_size->>($2::text))::int - $3)),
		     version = version + 1,
		     updated_at = NOW()
		 WHERE id = $1
		   AND stock_by_size ? ($2::text)
		   AND (stock_by_size->>($2::text))::int >= $3`,
		productID, size, quantity)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if affected == 0 {
		var known bool
		err := q.QueryRowContext(ctx,
			`SELECT stock_by_size ? ($2::text) FROM products WHERE id = $1`,
			productID, size).Scan(&known)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return database.ErrProductNotFound
			}
			return fmt.Errorf("check size: %w", err)
		}
		if !known {
			return database.ErrUnknownSize
		}
		return database.ErrInsufficientStock
	}

	return nil
}
