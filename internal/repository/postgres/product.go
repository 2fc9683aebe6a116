package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/storehaus/review-engine/internal/domain"
)

// ProductRepository implements domain.ProductRepository for PostgreSQL.
// The catalog subsystem owns product rows; this repository only reads
// them and maintains the review aggregates.
type ProductRepository struct {
	db *sqlx.DB
}

// NewProductRepository creates a new PostgreSQL product repository
func NewProductRepository(db *sqlx.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// GetByID retrieves a product by ID
func (r *ProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := `
		SELECT id, name, description, price, rating, num_reviews, created_at, updated_at
		FROM products
		WHERE id = $1
	`

	var product domain.Product
	err := r.db.GetContext(ctx, &product, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	return &product, nil
}

// Exists reports whether a product with the given ID exists
func (r *ProductRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)`
	if err := r.db.GetContext(ctx, &exists, query, id); err != nil {
		return false, err
	}
	return exists, nil
}

// Latest retrieves the most recently created product. Exact created_at
// ties are broken by id so the result is deterministic.
func (r *ProductRepository) Latest(ctx context.Context) (*domain.Product, error) {
	query := `
		SELECT id, name, description, price, rating, num_reviews, created_at, updated_at
		FROM products
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	var product domain.Product
	err := r.db.GetContext(ctx, &product, query)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	return &product, nil
}

// RecomputeAggregates recalculates rating and num_reviews from the
// product's current reviews in a single statement. Rows with a missing
// rating are counted as 0, not skipped.
func (r *ProductRepository) RecomputeAggregates(ctx context.Context, productID uuid.UUID) error {
	query := `
		UPDATE products
		SET
			rating = COALESCE(
				(SELECT ROUND(AVG(COALESCE(rating, 0))::numeric, 1)
				 FROM reviews
				 WHERE product_id = $1),
				0
			),
			num_reviews = (SELECT COUNT(*) FROM reviews WHERE product_id = $1),
			updated_at = $2
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, productID, time.Now())
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return domain.ErrNotFound
	}

	return nil
}
