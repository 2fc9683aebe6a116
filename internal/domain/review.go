package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Review represents a product review in the system. Likes hold the set
// of user IDs that currently like the review; Replies are hydrated in
// insertion order.
type Review struct {
	ID        uuid.UUID   `json:"id" db:"id"`
	ProductID uuid.UUID   `json:"product_id" db:"product_id" validate:"required"`
	UserID    uuid.UUID   `json:"user_id" db:"user_id" validate:"required"`
	UserName  string      `json:"user_name" db:"user_name" validate:"required,min=1,max=100"`
	Rating    int         `json:"rating" db:"rating" validate:"required,min=1,max=5"`
	Comment   string      `json:"comment" db:"comment" validate:"required,min=1,max=5000"`
	Likes     []uuid.UUID `json:"likes"`
	Replies   []Reply     `json:"replies"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt time.Time   `json:"updated_at" db:"updated_at"`
}

// Reply is an owned child of exactly one review. Its like-set is an
// independent namespace from the parent review's likes.
type Reply struct {
	ID        uuid.UUID   `json:"id" db:"id"`
	ReviewID  uuid.UUID   `json:"review_id" db:"review_id" validate:"required"`
	UserID    uuid.UUID   `json:"user_id" db:"user_id" validate:"required"`
	UserName  string      `json:"user_name" db:"user_name" validate:"required,min=1,max=100"`
	Comment   string      `json:"comment" db:"comment" validate:"required,min=1,max=5000"`
	Likes     []uuid.UUID `json:"likes"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
}

// ReviewRepository defines the interface for review data access
type ReviewRepository interface {
	// Create creates a new review
	Create(ctx context.Context, review *Review) error

	// GetByID retrieves a review with its likes and replies hydrated
	GetByID(ctx context.Context, id uuid.UUID) (*Review, error)

	// GetByProductID retrieves reviews for a product, newest first,
	// with likes and replies hydrated
	GetByProductID(ctx context.Context, productID uuid.UUID, limit, offset int) ([]*Review, error)

	// ExistsByUserAndProduct reports whether the user already reviewed the product
	ExistsByUserAndProduct(ctx context.Context, userID, productID uuid.UUID) (bool, error)

	// Delete removes a review by ID along with its replies and likes
	Delete(ctx context.Context, id uuid.UUID) error

	// CountByProductID returns the total number of reviews for a product
	CountByProductID(ctx context.Context, productID uuid.UUID) (int, error)

	// ToggleLike flips the user's membership in the review's like-set
	// and returns the updated set
	ToggleLike(ctx context.Context, reviewID, userID uuid.UUID) ([]uuid.UUID, error)

	// CreateReply appends a reply to the review's reply sequence
	CreateReply(ctx context.Context, reply *Reply) error

	// GetReplyByID retrieves a reply by ID within the given review
	GetReplyByID(ctx context.Context, reviewID, replyID uuid.UUID) (*Reply, error)

	// GetRepliesByReviewID retrieves a review's replies in insertion order
	GetRepliesByReviewID(ctx context.Context, reviewID uuid.UUID) ([]Reply, error)

	// ToggleReplyLike flips the user's membership in the reply's
	// like-set and returns the updated set
	ToggleReplyLike(ctx context.Context, replyID, userID uuid.UUID) ([]uuid.UUID, error)
}
