package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Notification types. The message is rendered at creation time and
// never recomputed afterwards.
const (
	// NotificationTypeReply targets a single review author
	NotificationTypeReply = "REPLY"

	// NotificationTypeNewProduct is the broadcast kind for new-product announcements
	NotificationTypeNewProduct = "NEW_PRODUCT"
)

// Notification represents a stored notification for a single recipient
type Notification struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	UserID    uuid.UUID  `json:"user_id" db:"user_id" validate:"required"`
	Type      string     `json:"type" db:"type" validate:"required,oneof=REPLY NEW_PRODUCT"`
	Message   string     `json:"message" db:"message" validate:"required,min=1"`
	ProductID uuid.UUID  `json:"product_id" db:"product_id" validate:"required"`
	ReviewID  *uuid.UUID `json:"review_id,omitempty" db:"review_id"`
	Read      bool       `json:"read" db:"read"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// NotificationRepository defines the interface for notification data access
type NotificationRepository interface {
	// Create inserts a single notification
	Create(ctx context.Context, notification *Notification) error

	// CreateBatch inserts a batch of notifications. Partial completion
	// on failure is acceptable; already-inserted rows are not rolled back.
	CreateBatch(ctx context.Context, notifications []*Notification) error

	// GetByID retrieves a notification by ID
	GetByID(ctx context.Context, id uuid.UUID) (*Notification, error)

	// GetByUserID retrieves a user's notifications, newest first
	GetByUserID(ctx context.Context, userID uuid.UUID, limit int) ([]*Notification, error)

	// CountUnreadByUserID returns the number of unread notifications for a user
	CountUnreadByUserID(ctx context.Context, userID uuid.UUID) (int, error)

	// MarkRead marks a single notification as read
	MarkRead(ctx context.Context, id uuid.UUID) error

	// MarkAllRead marks all of the user's unread notifications as read
	// and returns how many rows were flipped
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int, error)
}
