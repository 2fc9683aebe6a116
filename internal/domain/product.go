package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Product represents a catalog product. The catalog subsystem owns the
// entity; this engine only reads it and writes the two aggregate fields.
type Product struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description *string   `json:"description,omitempty" db:"description"`
	Price       float64   `json:"price" db:"price"`
	Rating      float64   `json:"rating" db:"rating"`
	NumReviews  int       `json:"num_reviews" db:"num_reviews"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// ProductRepository defines the read and aggregate-write surface this
// engine needs from the catalog store
type ProductRepository interface {
	// GetByID retrieves a product by ID
	GetByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// Exists reports whether a product with the given ID exists
	Exists(ctx context.Context, id uuid.UUID) (bool, error)

	// Latest retrieves the most recently created product
	Latest(ctx context.Context) (*Product, error)

	// RecomputeAggregates recalculates rating and num_reviews from the
	// product's current reviews in a single atomic statement
	RecomputeAggregates(ctx context.Context, productID uuid.UUID) error
}
