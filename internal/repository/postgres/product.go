package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ritikvr/GenieBazaar-backend/internal/domain"
	"github.com/ritikvr/GenieBazaar-backend/internal/repository"
	"github.com/ritikvr/GenieBazaar-backend/pkg/database"
	apperrors "github.com/ritikvr/GenieBazaar-backend/pkg/errors"
)

const productColumns = `id, name, description, price, category, stock, rating, num_reviews, created_by, created_at, updated_at`

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	pool database.DBTX
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool database.DBTX) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// Create inserts a new product and its image rows atomically.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO products (id, name, description, price, category, stock, rating, num_reviews, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = tx.Exec(ctx, query,
		p.ID,
		p.Name,
		p.Description,
		p.Price,
		p.Category,
		p.Stock,
		p.Rating,
		p.NumReviews,
		p.CreatedBy,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}

	imageQuery := `
		INSERT INTO product_images (id, product_id, blob_id, url, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	for _, img := range p.Images {
		_, err = tx.Exec(ctx, imageQuery,
			img.ID,
			img.ProductID,
			img.BlobID,
			img.URL,
			img.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert product image: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// GetByID retrieves a product by its ID with its images.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE id = $1`, productColumns)

	var p domain.Product
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.Category,
		&p.Stock,
		&p.Rating,
		&p.NumReviews,
		&p.CreatedBy,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}

	images, err := r.imagesForProducts(ctx, []string{p.ID})
	if err != nil {
		return nil, err
	}
	p.Images = images[p.ID]
	if p.Images == nil {
		p.Images = []domain.ProductImage{}
	}

	return &p, nil
}

// List returns products matching the given filter with the filtered count.
func (r *ProductRepository) List(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, int, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.Keyword != nil {
		conditions = append(conditions, fmt.Sprintf("name ILIKE $%d", argIndex))
		args = append(args, "%"+*filter.Keyword+"%")
		argIndex++
	}

	if filter.Category != nil {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argIndex))
		args = append(args, *filter.Category)
		argIndex++
	}

	if filter.MinPrice != nil {
		conditions = append(conditions, fmt.Sprintf("price >= $%d", argIndex))
		args = append(args, *filter.MinPrice)
		argIndex++
	}

	if filter.MaxPrice != nil {
		conditions = append(conditions, fmt.Sprintf("price <= $%d", argIndex))
		args = append(args, *filter.MaxPrice)
		argIndex++
	}

	if filter.MinRating != nil {
		conditions = append(conditions, fmt.Sprintf("rating >= $%d", argIndex))
		args = append(args, *filter.MinRating)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	// Use count(*) OVER() for the filtered total in a single query.
	query := fmt.Sprintf(`
		SELECT %s,
			   count(*) OVER() AS total_count
		FROM products
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		productColumns, whereClause, argIndex, argIndex+1,
	)

	limit := filter.PerPage
	if limit <= 0 {
		limit = 8
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * limit
	}

	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products, totalCount, err := scanProductRows(rows, true)
	if err != nil {
		return nil, 0, err
	}

	if err := r.attachImages(ctx, products); err != nil {
		return nil, 0, err
	}

	return products, totalCount, nil
}

// ListAll returns every product, newest first.
func (r *ProductRepository) ListAll(ctx context.Context) ([]domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products ORDER BY created_at DESC`, productColumns)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list all products: %w", err)
	}
	defer rows.Close()

	products, _, err := scanProductRows(rows, false)
	if err != nil {
		return nil, err
	}

	if err := r.attachImages(ctx, products); err != nil {
		return nil, err
	}

	return products, nil
}

// Count returns the total number of products in the catalog.
func (r *ProductRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM products`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return count, nil
}

// Update modifies an existing product in the database.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) error {
	p.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE products
		SET name = $1, description = $2, price = $3, category = $4, stock = $5, updated_at = $6
		WHERE id = $7`

	ct, err := r.pool.Exec(ctx, query,
		p.Name,
		p.Description,
		p.Price,
		p.Category,
		p.Stock,
		p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", p.ID)
	}

	return nil
}

// UpdateAggregates persists the derived rating and review count.
func (r *ProductRepository) UpdateAggregates(ctx context.Context, productID string, rating float64, numReviews int) error {
	query := `
		UPDATE products
		SET rating = $1, num_reviews = $2, updated_at = $3
		WHERE id = $4`

	ct, err := r.pool.Exec(ctx, query, rating, numReviews, time.Now().UTC(), productID)
	if err != nil {
		return fmt.Errorf("update product aggregates: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", productID)
	}

	return nil
}

// ReplaceImages deletes a product's image rows and inserts the given set.
func (r *ProductRepository) ReplaceImages(ctx context.Context, productID string, images []domain.ProductImage) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM product_images WHERE product_id = $1`, productID); err != nil {
		return fmt.Errorf("delete product images: %w", err)
	}

	imageQuery := `
		INSERT INTO product_images (id, product_id, blob_id, url, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	for _, img := range images {
		if _, err := tx.Exec(ctx, imageQuery, img.ID, img.ProductID, img.BlobID, img.URL, img.CreatedAt); err != nil {
			return fmt.Errorf("insert product image: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// DecrementStock atomically subtracts quantity from a product's stock using a
// single guarded UPDATE. The stock >= quantity predicate keeps concurrent
// decrements from racing below zero.
func (r *ProductRepository) DecrementStock(ctx context.Context, productID string, quantity int) error {
	query := `
		UPDATE products
		SET stock = stock - $1, updated_at = $2
		WHERE id = $3 AND stock >= $1`

	ct, err := r.pool.Exec(ctx, query, quantity, time.Now().UTC(), productID)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}

	if ct.RowsAffected() == 0 {
		// Zero rows means either a missing product or not enough stock.
		var stock int
		err := r.pool.QueryRow(ctx, `SELECT stock FROM products WHERE id = $1`, productID).Scan(&stock)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NotFound("product", productID)
		}
		if err != nil {
			return fmt.Errorf("check product stock: %w", err)
		}
		return apperrors.Conflict(fmt.Sprintf("insufficient stock for product %s: have %d, need %d", productID, stock, quantity))
	}

	return nil
}

// Delete removes a product from the database; images and reviews cascade.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", id)
	}

	return nil
}

// scanProductRows collects product rows, optionally reading the trailing
// count(*) OVER() column.
func scanProductRows(rows pgx.Rows, withCount bool) ([]domain.Product, int, error) {
	var (
		products   []domain.Product
		totalCount int
	)

	for rows.Next() {
		var p domain.Product

		dest := []any{
			&p.ID,
			&p.Name,
			&p.Description,
			&p.Price,
			&p.Category,
			&p.Stock,
			&p.Rating,
			&p.NumReviews,
			&p.CreatedBy,
			&p.CreatedAt,
			&p.UpdatedAt,
		}
		if withCount {
			dest = append(dest, &totalCount)
		}

		if err := rows.Scan(dest...); err != nil {
			return nil, 0, fmt.Errorf("scan product row: %w", err)
		}

		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate product rows: %w", err)
	}

	if products == nil {
		products = []domain.Product{}
	}

	return products, totalCount, nil
}

// attachImages batch-loads images for the given products.
func (r *ProductRepository) attachImages(ctx context.Context, products []domain.Product) error {
	if len(products) == 0 {
		return nil
	}

	ids := make([]string, len(products))
	for i := range products {
		ids[i] = products[i].ID
	}

	byProduct, err := r.imagesForProducts(ctx, ids)
	if err != nil {
		return err
	}

	for i := range products {
		products[i].Images = byProduct[products[i].ID]
		if products[i].Images == nil {
			products[i].Images = []domain.ProductImage{}
		}
	}

	return nil
}

// imagesForProducts loads image rows for the given product IDs in one query.
func (r *ProductRepository) imagesForProducts(ctx context.Context, productIDs []string) (map[string][]domain.ProductImage, error) {
	query := `
		SELECT id, product_id, blob_id, url, created_at
		FROM product_images
		WHERE product_id = ANY($1)
		ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, productIDs)
	if err != nil {
		return nil, fmt.Errorf("load product images: %w", err)
	}
	defer rows.Close()

	byProduct := make(map[string][]domain.ProductImage)
	for rows.Next() {
		var img domain.ProductImage
		if err := rows.Scan(&img.ID, &img.ProductID, &img.BlobID, &img.URL, &img.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan product image row: %w", err)
		}
		byProduct[img.ProductID] = append(byProduct[img.ProductID], img)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product image rows: %w", err)
	}

	return byProduct, nil
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
