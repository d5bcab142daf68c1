package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/rakib/go-commerce-store/internal/database"
	"github.com/rakib/go-commerce-store/internal/models"
)

type CreateProductRequest struct {
	Name               string
	Slug               string
	Description        string
	Category           string
	Tags               []string
	Images             []string
	PrimaryVariantType string
	PrimaryVariants    []models.PrimaryVariantItem
	SecondaryVariants  *models.SecondaryVariants
}

type UpdateProductRequest struct {
	Name        *string
	Description *string
	Category    *string
	Tags        []string
	Images      []string
}

const productColumns = `id, name, slug, description, category, tags, images,
	primary_variant_type, secondary_variants, sales_count, total_reviews,
	average_ratings, is_deleted, created_at, updated_at, version`

func validateVariants(req CreateProductRequest) error {
	if !models.ValidVariantType(req.PrimaryVariantType) {
		return fmt.Errorf("unknown primary variant type %q", req.PrimaryVariantType)
	}
	if len(req.PrimaryVariants) == 0 {
		return fmt.Errorf("primary variant %q must contain at least one item", req.PrimaryVariantType)
	}

	seen := make(map[string]bool)
	for _, item := range req.PrimaryVariants {
		value := strings.TrimSpace(item.Value)
		if value == "" {
			return fmt.Errorf("primary variant %q has an item with empty value", req.PrimaryVariantType)
		}
		if seen[value] {
			return fmt.Errorf("duplicate primary variant value %q", value)
		}
		seen[value] = true

		if !item.Price.IsPositive() {
			return fmt.Errorf("invalid price for primary variant %q", value)
		}
		if !item.SellingPrice.IsPositive() {
			return fmt.Errorf("invalid selling price for primary variant %q", value)
		}
		if item.Stock < 0 {
			return fmt.Errorf("invalid stock for primary variant %q", value)
		}
	}

	if req.SecondaryVariants != nil {
		groups := map[string][]string{
			models.VariantTypeSize:   req.SecondaryVariants.Size,
			models.VariantTypeColor:  req.SecondaryVariants.Color,
			models.VariantTypeWeight: req.SecondaryVariants.Weight,
		}
		for name, values := range groups {
			for _, v := range values {
				if strings.TrimSpace(v) == "" {
					return fmt.Errorf("secondary variant %q contains an empty value", name)
				}
			}
		}
	}

	return nil
}

// CreateProduct inserts a product and its primary-variant rows atomically.
func CreateProduct(ctx context.Context, db *sql.DB, req CreateProductRequest) (*models.Product, error) {
	if err := validateVariants(req); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	var secondary []byte
	if req.SecondaryVariants != nil {
		var err error
		secondary, err = json.Marshal(req.SecondaryVariants)
		if err != nil {
			return nil, fmt.Errorf("marshal secondary variants: %w", err)
		}
	}

	product := &models.Product{
		Name:               req.Name,
		Slug:               req.Slug,
		Description:        req.Description,
		Category:           req.Category,
		Tags:               req.Tags,
		Images:             req.Images,
		PrimaryVariantType: req.PrimaryVariantType,
		PrimaryVariants:    req.PrimaryVariants,
		SecondaryVariants:  req.SecondaryVariants,
	}

	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`INSERT INTO products (name, slug, description, category, tags, images,
			     primary_variant_type, secondary_variants, sales_count, total_reviews,
			     average_ratings, is_deleted, created_at, updated_at, version)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, 0, 0, FALSE, NOW(), NOW(), 1)
			 RETURNING id, created_at, updated_at, version`,
			req.Name, req.Slug, req.Description, req.Category,
			pq.Array(req.Tags), pq.Array(req.Images),
			req.PrimaryVariantType, secondary,
		).Scan(&product.ID, &product.CreatedAt, &product.UpdatedAt, &product.Version)
		if err != nil {
			if database.IsUniqueViolation(err, "products_slug_key") {
				return fmt.Errorf("%w: %s", database.ErrSlugConflict, req.Slug)
			}
			return fmt.Errorf("create product: %w", err)
		}

		for i, item := range req.PrimaryVariants {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO product_variants (product_id, value, price, selling_price, stock, position)
				 VALUES ($1, $2, $3, $4, $5, $6)`,
				product.ID, item.Value, item.Price, item.SellingPrice, item.Stock, i)
			if err != nil {
				return fmt.Errorf("create variant %q: %w", item.Value, err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return product, nil
}

func GetProduct(ctx context.Context, db *sql.DB, id int64) (*models.Product, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1 AND is_deleted = FALSE`, id)
	return finishProductScan(ctx, db, row)
}

func GetProductBySlug(ctx context.Context, db *sql.DB, slug string) (*models.Product, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE slug = $1 AND is_deleted = FALSE`, slug)
	return finishProductScan(ctx, db, row)
}

func finishProductScan(ctx context.Context, db *sql.DB, row rowScanner) (*models.Product, error) {
	product, err := scanProduct(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	variants, err := loadVariants(ctx, db, []int64{product.ID})
	if err != nil {
		return nil, err
	}
	product.PrimaryVariants = variants[product.ID]

	return product, nil
}

// getProductsByIDs fetches products for order population; soft-deleted
// products are included so old orders keep their references resolvable.
func getProductsByIDs(ctx context.Context, db *sql.DB, ids []int64) (map[int64]*models.Product, error) {
	products := make(map[int64]*models.Product)
	if len(ids) == 0 {
		return products, nil
	}

	rows, err := db.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products[product.ID] = product
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	variants, err := loadVariants(ctx, db, ids)
	if err != nil {
		return nil, err
	}
	for id, p := range products {
		p.PrimaryVariants = variants[id]
	}

	return products, nil
}

func ListProducts(ctx context.Context, db *sql.DB, page, pageSize int, category string) (*OffsetPage, error) {
	where := `WHERE is_deleted = FALSE`
	args := []interface{}{}
	if category != "" {
		where += ` AND category = $1`
		args = append(args, category)
	}

	var total int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products `+where, args...).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	offset := (page - 1) * pageSize
	query := fmt.Sprintf(`SELECT %s FROM products %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		productColumns, where, len(args)+1, len(args)+2)
	args = append(args, pageSize, offset)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	var ids []int64
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *product)
		ids = append(ids, product.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	variants, err := loadVariants(ctx, db, ids)
	if err != nil {
		return nil, err
	}
	for i := range products {
		products[i].PrimaryVariants = variants[products[i].ID]
	}

	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}

	return &OffsetPage{
		Items:      products,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// UpdateProduct patches catalog fields. Variant stock and sales count are
// only ever touched through the reservation path.
func UpdateProduct(ctx context.Context, db *sql.DB, id int64, req UpdateProductRequest) (*models.Product, error) {
	existing, err := GetProduct(ctx, db, id)
	if err != nil {
		return nil, err
	}

	name := existing.Name
	if req.Name != nil {
		name = *req.Name
	}
	description := existing.Description
	if req.Description != nil {
		description = *req.Description
	}
	category := existing.Category
	if req.Category != nil {
		category = *req.Category
	}
	tags := []string(existing.Tags)
	if req.Tags != nil {
		tags = req.Tags
	}
	images := []string(existing.Images)
	if req.Images != nil {
		images = req.Images
	}

	_, err = db.ExecContext(ctx,
		`UPDATE products
		 SET name = $1, description = $2, category = $3, tags = $4, images = $5,
		     updated_at = NOW(), version = version + 1
		 WHERE id = $6 AND is_deleted = FALSE`,
		name, description, category, pq.Array(tags), pq.Array(images), id)
	if err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	return GetProduct(ctx, db, id)
}

// DeleteProduct soft-deletes. Variant rows stay so existing orders can
// still be cancelled and release against them.
func DeleteProduct(ctx context.Context, db *sql.DB, id int64) error {
	result, err := db.ExecContext(ctx,
		`UPDATE products
		 SET is_deleted = TRUE, updated_at = NOW(), version = version + 1
		 WHERE id = $1 AND is_deleted = FALSE`,
		id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
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

func scanProduct(row rowScanner) (*models.Product, error) {
	product := &models.Product{}
	var secondary []byte
	err := row.Scan(
		&product.ID,
		&product.Name,
		&product.Slug,
		&product.Description,
		&product.Category,
		&product.Tags,
		&product.Images,
		&product.PrimaryVariantType,
		&secondary,
		&product.SalesCount,
		&product.TotalReviews,
		&product.AverageRatings,
		&product.IsDeleted,
		&product.CreatedAt,
		&product.UpdatedAt,
		&product.Version,
	)
	if err != nil {
		return nil, err
	}
	if len(secondary) > 0 {
		product.SecondaryVariants = &models.SecondaryVariants{}
		if err := json.Unmarshal(secondary, product.SecondaryVariants); err != nil {
			return nil, fmt.Errorf("unmarshal secondary variants: %w", err)
		}
	}
	return product, nil
}

func loadVariants(ctx context.Context, q querier, productIDs []int64) (map[int64][]models.PrimaryVariantItem, error) {
	variants := make(map[int64][]models.PrimaryVariantItem)
	if len(productIDs) == 0 {
		return variants, nil
	}

	rows, err := q.QueryContext(ctx,
		`SELECT product_id, value, price, selling_price, stock
		 FROM product_variants
		 WHERE product_id = ANY($1)
		 ORDER BY product_id, position`,
		pq.Array(productIDs))
	if err != nil {
		return nil, fmt.Errorf("get variants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var productID int64
		var item models.PrimaryVariantItem
		err := rows.Scan(&productID, &item.Value, &item.Price, &item.SellingPrice, &item.Stock)
		if err != nil {
			return nil, fmt.Errorf("scan variant: %w", err)
		}
		variants[productID] = append(variants[productID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return variants, nil
}
