package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/storehaus/review-engine/internal/domain"
)

// uniqueViolation is the PostgreSQL error code for unique constraint violations
const uniqueViolation = "23505"

// ReviewRepository implements domain.ReviewRepository for PostgreSQL.
// Replies live in their own table keyed by id with a back-reference to
// the owning review; like-sets are rows in dedicated join tables so a
// membership flip is a single atomic statement.
type ReviewRepository struct {
	db *sqlx.DB
}

// NewReviewRepository creates a new PostgreSQL review repository
func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create creates a new review
func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	// Surface a missing product as ErrNotFound, not a foreign key error
	var exists bool
	checkQuery := `SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)`
	err := r.db.GetContext(ctx, &exists, checkQuery, review.ProductID)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrNotFound
	}

	query := `
		INSERT INTO reviews (product_id, user_id, user_name, rating, comment)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	err = r.db.QueryRowxContext(
		ctx,
		query,
		review.ProductID,
		review.UserID,
		review.UserName,
		review.Rating,
		review.Comment,
	).Scan(
		&review.ID,
		&review.CreatedAt,
		&review.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return domain.ErrAlreadyExists
		}
		return err
	}

	review.Likes = []uuid.UUID{}
	review.Replies = []domain.Reply{}

	return nil
}

// GetByID retrieves a review with its likes and replies hydrated
func (r *ReviewRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Review, error) {
	query := `
		SELECT id, product_id, user_id, user_name, rating, comment, created_at, updated_at
		FROM reviews
		WHERE id = $1
	`

	var review domain.Review
	err := r.db.GetContext(ctx, &review, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	if err := r.hydrate(ctx, []*domain.Review{&review}); err != nil {
		return nil, err
	}

	return &review, nil
}

// GetByProductID retrieves reviews for a product, newest first
func (r *ReviewRepository) GetByProductID(ctx context.Context, productID uuid.UUID, limit, offset int) ([]*domain.Review, error) {
	query := `
		SELECT id, product_id, user_id, user_name, rating, comment, created_at, updated_at
		FROM reviews
		WHERE product_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	var reviews []*domain.Review
	err := r.db.SelectContext(ctx, &reviews, query, productID, limit, offset)
	if err != nil {
		return nil, err
	}

	if err := r.hydrate(ctx, reviews); err != nil {
		return nil, err
	}

	return reviews, nil
}

// ExistsByUserAndProduct reports whether the user already reviewed the product
func (r *ReviewRepository) ExistsByUserAndProduct(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM reviews WHERE user_id = $1 AND product_id = $2)`
	if err := r.db.GetContext(ctx, &exists, query, userID, productID); err != nil {
		return false, err
	}
	return exists, nil
}

// Delete removes a review by ID. Replies and like rows go with it via
// ON DELETE CASCADE.
func (r *ReviewRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM reviews WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
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

// CountByProductID returns the total number of reviews for a product
func (r *ReviewRepository) CountByProductID(ctx context.Context, productID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM reviews WHERE product_id = $1`

	var count int
	err := r.db.GetContext(ctx, &count, query, productID)
	if err != nil {
		return 0, err
	}

	return count, nil
}

// ToggleLike flips the user's membership in the review's like-set and
// returns the updated set. Each branch is a single statement, so
// concurrent toggles by different users cannot lose an update.
func (r *ReviewRepository) ToggleLike(ctx context.Context, reviewID, userID uuid.UUID) ([]uuid.UUID, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM review_likes WHERE review_id = $1 AND user_id = $2`,
		reviewID, userID,
	)
	if err != nil {
		return nil, err
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}

	if removed == 0 {
		_, err = r.db.ExecContext(ctx,
			`INSERT INTO review_likes (review_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			reviewID, userID,
		)
		if err != nil {
			return nil, err
		}
	}

	return r.likeSet(ctx, "review_likes", "review_id", reviewID)
}

// CreateReply appends a reply to the review's reply sequence
func (r *ReviewRepository) CreateReply(ctx context.Context, reply *domain.Reply) error {
	query := `
		INSERT INTO replies (review_id, user_id, user_name, comment)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.db.QueryRowxContext(
		ctx,
		query,
		reply.ReviewID,
		reply.UserID,
		reply.UserName,
		reply.Comment,
	).Scan(
		&reply.ID,
		&reply.CreatedAt,
	)
	if err != nil {
		return err
	}

	reply.Likes = []uuid.UUID{}

	return nil
}

// GetReplyByID retrieves a reply by ID within the given review
func (r *ReviewRepository) GetReplyByID(ctx context.Context, reviewID, replyID uuid.UUID) (*domain.Reply, error) {
	query := `
		SELECT id, review_id, user_id, user_name, comment, created_at
		FROM replies
		WHERE id = $1 AND review_id = $2
	`

	var reply domain.Reply
	err := r.db.GetContext(ctx, &reply, query, replyID, reviewID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	likes, err := r.likeSet(ctx, "reply_likes", "reply_id", replyID)
	if err != nil {
		return nil, err
	}
	reply.Likes = likes

	return &reply, nil
}

// GetRepliesByReviewID retrieves a review's replies in insertion order
func (r *ReviewRepository) GetRepliesByReviewID(ctx context.Context, reviewID uuid.UUID) ([]domain.Reply, error) {
	query := `
		SELECT id, review_id, user_id, user_name, comment, created_at
		FROM replies
		WHERE review_id = $1
		ORDER BY created_at ASC, id ASC
	`

	var replies []domain.Reply
	if err := r.db.SelectContext(ctx, &replies, query, reviewID); err != nil {
		return nil, err
	}

	if err := r.hydrateReplyLikes(ctx, replies); err != nil {
		return nil, err
	}

	return replies, nil
}

// ToggleReplyLike flips the user's membership in the reply's like-set
// and returns the updated set
func (r *ReviewRepository) ToggleReplyLike(ctx context.Context, replyID, userID uuid.UUID) ([]uuid.UUID, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM reply_likes WHERE reply_id = $1 AND user_id = $2`,
		replyID, userID,
	)
	if err != nil {
		return nil, err
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}

	if removed == 0 {
		_, err = r.db.ExecContext(ctx,
			`INSERT INTO reply_likes (reply_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			replyID, userID,
		)
		if err != nil {
			return nil, err
		}
	}

	return r.likeSet(ctx, "reply_likes", "reply_id", replyID)
}

// likeSet returns the current like-set for a review or reply, ordered
// by when each like was added
func (r *ReviewRepository) likeSet(ctx context.Context, table, column string, targetID uuid.UUID) ([]uuid.UUID, error) {
	query := `SELECT user_id FROM ` + table + ` WHERE ` + column + ` = $1 ORDER BY created_at ASC`

	likes := []uuid.UUID{}
	if err := r.db.SelectContext(ctx, &likes, query, targetID); err != nil {
		return nil, err
	}

	return likes, nil
}

// hydrate fills likes and replies for a page of reviews in two queries
// per relation instead of one per row
func (r *ReviewRepository) hydrate(ctx context.Context, reviews []*domain.Review) error {
	if len(reviews) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, 0, len(reviews))
	byID := make(map[uuid.UUID]*domain.Review, len(reviews))
	for _, review := range reviews {
		review.Likes = []uuid.UUID{}
		review.Replies = []domain.Reply{}
		ids = append(ids, review.ID)
		byID[review.ID] = review
	}

	likeQuery, likeArgs, err := sqlx.In(
		`SELECT review_id, user_id FROM review_likes WHERE review_id IN (?) ORDER BY created_at ASC`,
		ids,
	)
	if err != nil {
		return err
	}

	var likeRows []struct {
		ReviewID uuid.UUID `db:"review_id"`
		UserID   uuid.UUID `db:"user_id"`
	}
	if err := r.db.SelectContext(ctx, &likeRows, r.db.Rebind(likeQuery), likeArgs...); err != nil {
		return err
	}
	for _, row := range likeRows {
		review := byID[row.ReviewID]
		review.Likes = append(review.Likes, row.UserID)
	}

	replyQuery, replyArgs, err := sqlx.In(
		`SELECT id, review_id, user_id, user_name, comment, created_at
		 FROM replies
		 WHERE review_id IN (?)
		 ORDER BY created_at ASC, id ASC`,
		ids,
	)
	if err != nil {
		return err
	}

	var replies []domain.Reply
	if err := r.db.SelectContext(ctx, &replies, r.db.Rebind(replyQuery), replyArgs...); err != nil {
		return err
	}

	if err := r.hydrateReplyLikes(ctx, replies); err != nil {
		return err
	}

	for _, reply := range replies {
		review := byID[reply.ReviewID]
		review.Replies = append(review.Replies, reply)
	}

	return nil
}

// hydrateReplyLikes fills like-sets for a slice of replies
func (r *ReviewRepository) hydrateReplyLikes(ctx context.Context, replies []domain.Reply) error {
	if len(replies) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, 0, len(replies))
	for i := range replies {
		replies[i].Likes = []uuid.UUID{}
		ids = append(ids, replies[i].ID)
	}

	query, args, err := sqlx.In(
		`SELECT reply_id, user_id FROM reply_likes WHERE reply_id IN (?) ORDER BY created_at ASC`,
		ids,
	)
	if err != nil {
		return err
	}

	var rows []struct {
		ReplyID uuid.UUID `db:"reply_id"`
		UserID  uuid.UUID `db:"user_id"`
	}
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return err
	}

	index := make(map[uuid.UUID]int, len(replies))
	for i := range replies {
		index[replies[i].ID] = i
	}
	for _, row := range rows {
		i := index[row.ReplyID]
		replies[i].Likes = append(replies[i].Likes, row.UserID)
	}

	return nil
}
