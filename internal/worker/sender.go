package worker

import (
	"context"

	"github.com/storehaus/review-engine/internal/pkg/logger"
)

// Sender performs one outbound delivery attempt for a notification.
// Actual channels (email, push) are external collaborators behind this
// interface.
type Sender interface {
	Deliver(ctx context.Context, event NotificationEvent) error
}

// LogSender writes delivery attempts to the log. Used until a real
// outbound channel is wired in.
type LogSender struct {
	logger *logger.Logger
}

// NewLogSender creates a sender that logs each delivery
func NewLogSender(log *logger.Logger) *LogSender {
	return &LogSender{logger: log}
}

// Deliver logs the notification as delivered
func (s *LogSender) Deliver(ctx context.Context, event NotificationEvent) error {
	s.logger.WithFields(map[string]any{
		"notification_id": event.NotificationID.String(),
		"user_id":         event.UserID.String(),
		"type":            event.Type,
		"message":         event.Message,
	}).Info("Delivered notification")
	return nil
}
