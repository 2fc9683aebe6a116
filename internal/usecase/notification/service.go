package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/storehaus/review-engine/internal/domain"
	"github.com/storehaus/review-engine/internal/pkg/logger"
)

// listLimit caps how many notifications a user sees at once
const listLimit = 20

// EventsSubject is the JetStream subject notification delivery events
// are published to
const EventsSubject = "notifications.events"

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// NotificationCache defines the caching interface the service needs
type NotificationCache interface {
	GetUnreadCount(ctx context.Context, userID uuid.UUID) (int, error)
	SetUnreadCount(ctx context.Context, userID uuid.UUID, count int) error
	InvalidateUnreadCount(ctx context.Context, userID uuid.UUID) error
	InvalidateUnreadCounts(ctx context.Context, userIDs []uuid.UUID) error
}

// NotificationEvent is the payload handed to the delivery worker
type NotificationEvent struct {
	NotificationID uuid.UUID `json:"notification_id"`
	UserID         uuid.UUID `json:"user_id"`
	Type           string    `json:"type"`
	Message        string    `json:"message"`
	ProductID      uuid.UUID `json:"product_id"`
	Timestamp      time.Time `json:"timestamp"`
}

// BroadcastResult reports the outcome of a broadcast wave
type BroadcastResult struct {
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Recipients  int       `json:"recipients"`
}

// Service handles notification dispatch and read-state transitions
type Service struct {
	repo        domain.NotificationRepository
	productRepo domain.ProductRepository
	userRepo    domain.UserRepository
	cache       NotificationCache
	publisher   EventPublisher
	logger      *logger.Logger
}

// NewService creates a new notification service
func NewService(
	repo domain.NotificationRepository,
	productRepo domain.ProductRepository,
	userRepo domain.UserRepository,
	cache NotificationCache,
	publisher EventPublisher,
	log *logger.Logger,
) *Service {
	return &Service{
		repo:        repo,
		productRepo: productRepo,
		userRepo:    userRepo,
		cache:       cache,
		publisher:   publisher,
		logger:      log,
	}
}

// NotifyReply creates exactly one notification targeted at the review's
// author. The message is rendered here, at creation time, and never
// recomputed.
func (s *Service) NotifyReply(ctx context.Context, review *domain.Review, reply *domain.Reply) error {
	reviewID := review.ID
	notification := &domain.Notification{
		UserID:    review.UserID,
		Type:      domain.NotificationTypeReply,
		Message:   fmt.Sprintf("%s replied to your review", reply.UserName),
		ProductID: review.ProductID,
		ReviewID:  &reviewID,
	}

	if err := s.repo.Create(ctx, notification); err != nil {
		return fmt.Errorf("create reply notification: %w", err)
	}

	if err := s.cache.InvalidateUnreadCount(ctx, review.UserID); err != nil {
		s.logger.Warnf("Failed to invalidate unread count for user %s: %v", review.UserID, err)
	}

	s.publishEvents(ctx, []*domain.Notification{notification})

	s.logger.WithFields(map[string]interface{}{
		"notification_id": notification.ID,
		"user_id":         notification.UserID,
		"review_id":       review.ID,
	}).Info("Reply notification created")

	return nil
}

// GetForUser retrieves the user's most recent notifications, newest
// first, capped at 20
func (s *Service) GetForUser(ctx context.Context, userID uuid.UUID) ([]*domain.Notification, error) {
	notifications, err := s.repo.GetByUserID(ctx, userID, listLimit)
	if err != nil {
		s.logger.Error("Failed to list notifications", err)
		return nil, err
	}

	return notifications, nil
}

// UnreadCount returns the number of the user's unread notifications with caching
func (s *Service) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	count, err := s.cache.GetUnreadCount(ctx, userID)
	if err == nil {
		s.logger.Debugf("Cache hit for user %s unread count", userID)
		return count, nil
	}

	count, err = s.repo.CountUnreadByUserID(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to count unread notifications", err)
		return 0, err
	}

	if err := s.cache.SetUnreadCount(ctx, userID, count); err != nil {
		s.logger.Warnf("Failed to cache unread count for user %s: %v", userID, err)
	}

	return count, nil
}

// MarkRead marks one notification as read. Only the recipient may do so.
func (s *Service) MarkRead(ctx context.Context, id, actingUserID uuid.UUID) error {
	notification, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if err == domain.ErrNotFound {
			s.logger.Debugf("Notification not found: %s", id)
		} else {
			s.logger.Error("Failed to get notification", err)
		}
		return err
	}

	if notification.UserID != actingUserID {
		s.logger.Debugf("User %s is not the recipient of notification %s", actingUserID, id)
		return domain.ErrUnauthorized
	}

	if err := s.repo.MarkRead(ctx, id); err != nil {
		s.logger.Error("Failed to mark notification read", err)
		return err
	}

	if err := s.cache.InvalidateUnreadCount(ctx, actingUserID); err != nil {
		s.logger.Warnf("Failed to invalidate unread count for user %s: %v", actingUserID, err)
	}

	return nil
}

// MarkAllRead marks all of the acting user's unread notifications as
// read. Already-read rows are left untouched; other users' rows are
// never affected.
func (s *Service) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	flipped, err := s.repo.MarkAllRead(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to mark all notifications read", err)
		return err
	}

	if err := s.cache.InvalidateUnreadCount(ctx, userID); err != nil {
		s.logger.Warnf("Failed to invalidate unread count for user %s: %v", userID, err)
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id": userID,
		"flipped": flipped,
	}).Info("Marked all notifications read")

	return nil
}

// Broadcast announces the most recently created product to every
// non-administrator user, one notification per recipient.
//
// There is no de-duplication key: invoking this twice creates two full
// waves referencing the same product. Callers own that decision.
func (s *Service) Broadcast(ctx context.Context) (*BroadcastResult, error) {
	product, err := s.productRepo.Latest(ctx)
	if err != nil {
		if err == domain.ErrNotFound {
			s.logger.Debug("Broadcast requested with no products in catalog")
		} else {
			s.logger.Error("Failed to locate latest product", err)
		}
		return nil, err
	}

	users, err := s.userRepo.ListNonAdmins(ctx)
	if err != nil {
		s.logger.Error("Failed to enumerate users", err)
		return nil, err
	}

	message := fmt.Sprintf("New product available: %s", product.Name)
	notifications := make([]*domain.Notification, 0, len(users))
	recipients := make([]uuid.UUID, 0, len(users))
	for _, user := range users {
		notifications = append(notifications, &domain.Notification{
			UserID:    user.ID,
			Type:      domain.NotificationTypeNewProduct,
			Message:   message,
			ProductID: product.ID,
		})
		recipients = append(recipients, user.ID)
	}

	if len(notifications) > 0 {
		if err := s.repo.CreateBatch(ctx, notifications); err != nil {
			s.logger.Error("Failed to insert broadcast batch", err)
			return nil, err
		}

		if err := s.cache.InvalidateUnreadCounts(ctx, recipients); err != nil {
			s.logger.Warnf("Failed to invalidate unread counts after broadcast: %v", err)
		}

		s.publishEvents(ctx, notifications)
	}

	s.logger.WithFields(map[string]interface{}{
		"product_id":   product.ID,
		"product_name": product.Name,
		"recipients":   len(notifications),
	}).Info("Broadcast wave created")

	return &BroadcastResult{
		ProductID:   product.ID,
		ProductName: product.Name,
		Recipients:  len(notifications),
	}, nil
}

// publishEvents hands notifications to the delivery worker (non-blocking)
func (s *Service) publishEvents(ctx context.Context, notifications []*domain.Notification) {
	events := make([][]byte, 0, len(notifications))
	for _, n := range notifications {
		event := NotificationEvent{
			NotificationID: n.ID,
			UserID:         n.UserID,
			Type:           n.Type,
			Message:        n.Message,
			ProductID:      n.ProductID,
			Timestamp:      time.Now(),
		}

		data, err := json.Marshal(event)
		if err != nil {
			s.logger.Errorf(err, "Failed to marshal event for notification %s", n.ID)
			continue
		}
		events = append(events, data)
	}

	// Publish in background to avoid blocking the request
	go func() {
		for _, data := range events {
			if err := s.publisher.Publish(context.Background(), EventsSubject, data); err != nil {
				s.logger.Error("Failed to publish notification event", err)
			}
		}
	}()
}
