package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rakib/go-commerce-store/internal/database"
	"github.com/shopspring/decimal"
)

// VariantSnapshot captures the variant row as it stood when a reservation
// was applied. Stock is the value after the decrement.
type VariantSnapshot struct {
	Value        string
	Price        decimal.Decimal
	SellingPrice decimal.Decimal
	Stock        int
}

// ReserveStock decrements a primary-variant item's stock and bumps the
// product's sales count, both guarded so stock can never go negative. The
// decrement and the existence checks run inside the caller's transaction;
// on any error the caller is expected to abort it.
func ReserveStock(ctx context.Context, tx *sql.Tx, productID int64, primaryValue string, quantity int) (*VariantSnapshot, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("reserve stock: quantity must be at least 1, got %d", quantity)
	}

	snap := &VariantSnapshot{Value: primaryValue}

	err := tx.QueryRowContext(ctx,
		`UPDATE product_variants
		 SET stock = stock - $1
		 WHERE product_id = $2
		   AND value = $3
		   AND stock >= $1
		 RETURNING price, selling_price, stock`,
		quantity, productID, primaryValue).Scan(
		&snap.Price,
		&snap.SellingPrice,
		&snap.Stock,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, diagnoseVariantMiss(ctx, tx, productID, primaryValue, database.ErrInsufficientStock)
		}
		return nil, fmt.Errorf("decrement stock: %w", err)
	}

	if err := bumpSalesCount(ctx, tx, productID, quantity); err != nil {
		return nil, err
	}

	return snap, nil
}

// ReleaseStock is the exact inverse of a prior ReserveStock for the same
// product, value and quantity. A missing product or variant is a hard
// failure; the enclosing cancel/delete transaction aborts rather than
// leaving the sales counters skewed.
func ReleaseStock(ctx context.Context, tx *sql.Tx, productID int64, primaryValue string, quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("release stock: quantity must be at least 1, got %d", quantity)
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE product_variants
		 SET stock = stock + $1
		 WHERE product_id = $2
		   AND value = $3`,
		quantity, productID, primaryValue)
	if err != nil {
		return fmt.Errorf("restore stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return diagnoseVariantMiss(ctx, tx, productID, primaryValue, database.ErrVariantNotFound)
	}

	return bumpSalesCount(ctx, tx, productID, -quantity)
}

func bumpSalesCount(ctx context.Context, tx *sql.Tx, productID int64, delta int) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE products
		 SET sales_count = sales_count + $1,
		     updated_at = NOW(),
		     version = version + 1
		 WHERE id = $2`,
		delta, productID)
	if err != nil {
		return fmt.Errorf("update sales count: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrProductNotFound
	}

	return nil
}

// diagnoseVariantMiss tells apart the three reasons a guarded variant
// update can match nothing: missing product, missing variant item, or the
// stock predicate (the fallthrough error supplied by the caller).
func diagnoseVariantMiss(ctx context.Context, tx *sql.Tx, productID int64, primaryValue string, fallthroughErr error) error {
	var productExists bool
	err := tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM products WHERE id = $1 AND is_deleted = FALSE)`,
		productID).Scan(&productExists)
	if err != nil {
		return fmt.Errorf("check product exists: %w", err)
	}
	if !productExists {
		return database.ErrProductNotFound
	}

	var variantExists bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM product_variants WHERE product_id = $1 AND value = $2)`,
		productID, primaryValue).Scan(&variantExists)
	if err != nil {
		return fmt.Errorf("check variant exists: %w", err)
	}
	if !variantExists {
		return database.ErrVariantNotFound
	}

	return fallthroughErr
}
