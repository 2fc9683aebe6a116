package review

import (
	"context"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/storehaus/review-engine/internal/domain"
	"github.com/storehaus/review-engine/internal/pkg/logger"
	"github.com/storehaus/review-engine/internal/pkg/validator"
)

// ReviewCache defines the caching interface the service needs
type ReviewCache interface {
	GetReviewsList(ctx context.Context, productID uuid.UUID, limit, offset int) ([]*domain.Review, error)
	SetReviewsList(ctx context.Context, productID uuid.UUID, limit, offset int, reviews []*domain.Review) error
	InvalidateProductReviews(ctx context.Context, productID uuid.UUID) error
}

// Notifier dispatches the targeted notification for a new reply
type Notifier interface {
	NotifyReply(ctx context.Context, review *domain.Review, reply *domain.Reply) error
}

// CreateReviewInput holds the parameters for submitting a review
type CreateReviewInput struct {
	ProductID uuid.UUID
	UserID    uuid.UUID
	UserName  string
	Rating    int
	Comment   string
}

// CreateReplyInput holds the parameters for replying to a review
type CreateReplyInput struct {
	ReviewID uuid.UUID
	UserID   uuid.UUID
	UserName string
	Comment  string
}

// Service handles review business logic: creation with aggregate
// recompute, like toggles, and threaded replies
type Service struct {
	repo        domain.ReviewRepository
	productRepo domain.ProductRepository
	cache       ReviewCache
	notifier    Notifier
	validate    *validatorv10.Validate
	logger      *logger.Logger
}

// NewService creates a new review service
func NewService(
	repo domain.ReviewRepository,
	productRepo domain.ProductRepository,
	cache ReviewCache,
	notifier Notifier,
	log *logger.Logger,
) *Service {
	return &Service{
		repo:        repo,
		productRepo: productRepo,
		cache:       cache,
		notifier:    notifier,
		validate:    validator.Get(),
		logger:      log,
	}
}

// Create submits a new review and recomputes the product's rating and
// num_reviews. A user may review a given product at most once.
func (s *Service) Create(ctx context.Context, input CreateReviewInput) (*domain.Review, error) {
	review := &domain.Review{
		ProductID: input.ProductID,
		UserID:    input.UserID,
		UserName:  input.UserName,
		Rating:    input.Rating,
		Comment:   input.Comment,
	}

	if err := s.validate.Struct(review); err != nil {
		s.logger.Error("Review validation failed", err)
		return nil, domain.ErrInvalidInput
	}

	exists, err := s.productRepo.Exists(ctx, input.ProductID)
	if err != nil {
		s.logger.Error("Failed to check product existence", err)
		return nil, err
	}
	if !exists {
		return nil, domain.ErrNotFound
	}

	dup, err := s.repo.ExistsByUserAndProduct(ctx, input.UserID, input.ProductID)
	if err != nil {
		s.logger.Error("Failed to check for existing review", err)
		return nil, err
	}
	if dup {
		s.logger.Debugf("User %s already reviewed product %s", input.UserID, input.ProductID)
		return nil, domain.ErrAlreadyExists
	}

	if err := s.repo.Create(ctx, review); err != nil {
		s.logger.Error("Failed to create review", err)
		return nil, err
	}

	if err := s.productRepo.RecomputeAggregates(ctx, input.ProductID); err != nil {
		s.logger.Errorf(err, "Failed to recompute aggregates for product %s", input.ProductID)
		return nil, err
	}

	// Stale cache would show incorrect ratings and review lists
	if err := s.cache.InvalidateProductReviews(ctx, input.ProductID); err != nil {
		s.logger.Warnf("Failed to invalidate cache for product %s: %v", input.ProductID, err)
	}

	s.logger.WithFields(map[string]interface{}{
		"review_id":  review.ID,
		"product_id": review.ProductID,
		"user_id":    review.UserID,
		"rating":     review.Rating,
	}).Info("Review created successfully")

	return review, nil
}

// GetByProductID retrieves reviews for a product, newest first, with caching
func (s *Service) GetByProductID(ctx context.Context, productID uuid.UUID, limit, offset int) ([]*domain.Review, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	reviews, err := s.cache.GetReviewsList(ctx, productID, limit, offset)
	if err == nil {
		s.logger.Debugf("Cache hit for product %s reviews (limit=%d, offset=%d)", productID, limit, offset)
		total, err := s.repo.CountByProductID(ctx, productID)
		if err != nil {
			s.logger.Error("Failed to count reviews", err)
			return nil, 0, err
		}
		return reviews, total, nil
	}

	s.logger.Debugf("Cache miss for product %s reviews (limit=%d, offset=%d)", productID, limit, offset)
	reviews, err = s.repo.GetByProductID(ctx, productID, limit, offset)
	if err != nil {
		s.logger.Error("Failed to get reviews by product ID", err)
		return nil, 0, err
	}

	total, err := s.repo.CountByProductID(ctx, productID)
	if err != nil {
		s.logger.Error("Failed to count reviews", err)
		return nil, 0, err
	}

	if err := s.cache.SetReviewsList(ctx, productID, limit, offset, reviews); err != nil {
		s.logger.Warnf("Failed to cache reviews for product %s (limit=%d, offset=%d): %v", productID, limit, offset, err)
	}

	return reviews, total, nil
}

// Delete removes a review by ID (administrative) and recomputes the
// owning product's aggregates from the surviving reviews
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	// Product ID is needed for the recompute and cache invalidation
	review, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if err == domain.ErrNotFound {
			s.logger.Debugf("Review not found: %s", id)
		} else {
			s.logger.Error("Failed to get review for deletion", err)
		}
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("Failed to delete review", err)
		return err
	}

	if err := s.productRepo.RecomputeAggregates(ctx, review.ProductID); err != nil {
		s.logger.Errorf(err, "Failed to recompute aggregates for product %s", review.ProductID)
		return err
	}

	if err := s.cache.InvalidateProductReviews(ctx, review.ProductID); err != nil {
		s.logger.Warnf("Failed to invalidate cache for product %s: %v", review.ProductID, err)
	}

	s.logger.WithFields(map[string]interface{}{
		"review_id":  id,
		"product_id": review.ProductID,
	}).Info("Review deleted successfully")

	return nil
}

// ToggleLike flips the acting user's like on a review. Liking one's own
// review is rejected outright, not treated as a no-op.
func (s *Service) ToggleLike(ctx context.Context, reviewID, userID uuid.UUID) ([]uuid.UUID, error) {
	review, err := s.repo.GetByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}

	if review.UserID == userID {
		s.logger.Debugf("User %s attempted to like own review %s", userID, reviewID)
		return nil, domain.ErrSelfAction
	}

	likes, err := s.repo.ToggleLike(ctx, reviewID, userID)
	if err != nil {
		s.logger.Error("Failed to toggle review like", err)
		return nil, err
	}

	if err := s.cache.InvalidateProductReviews(ctx, review.ProductID); err != nil {
		s.logger.Warnf("Failed to invalidate cache for product %s: %v", review.ProductID, err)
	}

	return likes, nil
}

// CreateReply appends a reply to a review and notifies the review's
// author. Replying to one's own review is rejected.
func (s *Service) CreateReply(ctx context.Context, input CreateReplyInput) ([]domain.Reply, error) {
	review, err := s.repo.GetByID(ctx, input.ReviewID)
	if err != nil {
		return nil, err
	}

	if review.UserID == input.UserID {
		s.logger.Debugf("User %s attempted to reply to own review %s", input.UserID, input.ReviewID)
		return nil, domain.ErrSelfAction
	}

	reply := &domain.Reply{
		ReviewID: input.ReviewID,
		UserID:   input.UserID,
		UserName: input.UserName,
		Comment:  input.Comment,
	}

	if err := s.validate.Struct(reply); err != nil {
		s.logger.Error("Reply validation failed", err)
		return nil, domain.ErrInvalidInput
	}

	if err := s.repo.CreateReply(ctx, reply); err != nil {
		s.logger.Error("Failed to create reply", err)
		return nil, err
	}

	if err := s.notifier.NotifyReply(ctx, review, reply); err != nil {
		// The reply itself is committed; surface the dispatch failure
		s.logger.Errorf(err, "Failed to notify author of review %s", review.ID)
		return nil, err
	}

	if err := s.cache.InvalidateProductReviews(ctx, review.ProductID); err != nil {
		s.logger.Warnf("Failed to invalidate cache for product %s: %v", review.ProductID, err)
	}

	s.logger.WithFields(map[string]interface{}{
		"reply_id":  reply.ID,
		"review_id": review.ID,
		"user_id":   reply.UserID,
	}).Info("Reply created successfully")

	return s.repo.GetRepliesByReviewID(ctx, input.ReviewID)
}

// ToggleReplyLike flips the acting user's like on a reply within a
// review. The reply's like-set is independent from the parent review's.
func (s *Service) ToggleReplyLike(ctx context.Context, reviewID, replyID, userID uuid.UUID) ([]uuid.UUID, error) {
	review, err := s.repo.GetByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}

	reply, err := s.repo.GetReplyByID(ctx, reviewID, replyID)
	if err != nil {
		return nil, err
	}

	if reply.UserID == userID {
		s.logger.Debugf("User %s attempted to like own reply %s", userID, replyID)
		return nil, domain.ErrSelfAction
	}

	likes, err := s.repo.ToggleReplyLike(ctx, replyID, userID)
	if err != nil {
		s.logger.Error("Failed to toggle reply like", err)
		return nil, err
	}

	if err := s.cache.InvalidateProductReviews(ctx, review.ProductID); err != nil {
		s.logger.Warnf("Failed to invalidate cache for product %s: %v", review.ProductID, err)
	}

	return likes, nil
}
