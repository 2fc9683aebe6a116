package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/storehaus/review-engine/internal/domain"
)

// batchChunkSize bounds multi-row inserts so a large fan-out does not
// exceed the driver's parameter limit
const batchChunkSize = 500

// NotificationRepository implements domain.NotificationRepository for PostgreSQL
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository creates a new PostgreSQL notification repository
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts a single notification
func (r *NotificationRepository) Create(ctx context.Context, notification *domain.Notification) error {
	query := `
		INSERT INTO notifications (user_id, type, message, product_id, review_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, read, created_at
	`

	err := r.db.QueryRowxContext(
		ctx,
		query,
		notification.UserID,
		notification.Type,
		notification.Message,
		notification.ProductID,
		notification.ReviewID,
	).Scan(
		&notification.ID,
		&notification.Read,
		&notification.CreatedAt,
	)
	if err != nil {
		return err
	}

	return nil
}

// CreateBatch inserts notifications in chunks. There is no transaction
// across the batch: a crash mid-way leaves the already-inserted rows in
// place, which is acceptable for fan-out delivery.
func (r *NotificationRepository) CreateBatch(ctx context.Context, notifications []*domain.Notification) error {
	for start := 0; start < len(notifications); start += batchChunkSize {
		end := start + batchChunkSize
		if end > len(notifications) {
			end = len(notifications)
		}

		if err := r.insertChunk(ctx, notifications[start:end]); err != nil {
			return err
		}
	}

	return nil
}

func (r *NotificationRepository) insertChunk(ctx context.Context, chunk []*domain.Notification) error {
	query := `
		INSERT INTO notifications (user_id, type, message, product_id, review_id)
		VALUES (:user_id, :type, :message, :product_id, :review_id)
	`

	rows := make([]map[string]interface{}, 0, len(chunk))
	for _, n := range chunk {
		rows = append(rows, map[string]interface{}{
			"user_id":    n.UserID,
			"type":       n.Type,
			"message":    n.Message,
			"product_id": n.ProductID,
			"review_id":  n.ReviewID,
		})
	}

	_, err := r.db.NamedExecContext(ctx, query, rows)
	return err
}

// GetByID retrieves a notification by ID
func (r *NotificationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	query := `
		SELECT id, user_id, type, message, product_id, review_id, read, created_at
		FROM notifications
		WHERE id = $1
	`

	var notification domain.Notification
	err := r.db.GetContext(ctx, &notification, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	return &notification, nil
}

// GetByUserID retrieves a user's notifications, newest first
func (r *NotificationRepository) GetByUserID(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Notification, error) {
	query := `
		SELECT id, user_id, type, message, product_id, review_id, read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	var notifications []*domain.Notification
	err := r.db.SelectContext(ctx, &notifications, query, userID, limit)
	if err != nil {
		return nil, err
	}

	return notifications, nil
}

// CountUnreadByUserID returns the number of unread notifications for a user
func (r *NotificationRepository) CountUnreadByUserID(ctx context.Context, userID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read = FALSE`

	var count int
	err := r.db.GetContext(ctx, &count, query, userID)
	if err != nil {
		return 0, err
	}

	return count, nil
}

// MarkRead marks a single notification as read
func (r *NotificationRepository) MarkRead(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE notifications SET read = TRUE WHERE id = $1`

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

// MarkAllRead marks all of the user's unread notifications as read.
// Already-read rows are left untouched.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID uuid.UUID) (int, error) {
	query := `UPDATE notifications SET read = TRUE WHERE user_id = $1 AND read = FALSE`

	result, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	return int(rowsAffected), nil
}
