package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/storehaus/review-engine/internal/pkg/logger"
)

const (
	// Retry configuration for a single delivery attempt cycle
	maxRetries     = 3
	initialBackoff = 100 * time.Millisecond

	// Per-attempt delivery timeout
	deliverTimeout = 5 * time.Second
)

// NotificationEvent represents a notification delivery event from NATS
type NotificationEvent struct {
	NotificationID uuid.UUID `json:"notification_id"`
	UserID         uuid.UUID `json:"user_id"`
	Type           string    `json:"type"`
	Message        string    `json:"message"`
	ProductID      uuid.UUID `json:"product_id"`
	Timestamp      time.Time `json:"timestamp"`
}

// Dispatcher consumes notification events and hands them to a Sender.
// Delivery is at-least-once: a failed cycle surfaces an error so the
// message is redelivered by JetStream, and repeated triggers are not
// de-duplicated.
type Dispatcher struct {
	sender Sender
	logger *logger.Logger

	mu         sync.Mutex
	inFlight   int
	shutdownCh chan struct{}
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewDispatcher creates a new delivery dispatcher
func NewDispatcher(sender Sender, logger *logger.Logger) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())

	return &Dispatcher{
		sender:     sender,
		logger:     logger,
		shutdownCh: make(chan struct{}),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// HandleEvent processes one notification event. An error return means
// the caller should NAK the message for redelivery.
func (d *Dispatcher) HandleEvent(data []byte) error {
	var event NotificationEvent
	if err := json.Unmarshal(data, &event); err != nil {
		d.logger.WithFields(map[string]any{
			"error": err.Error(),
		}).Error("Failed to unmarshal notification event", err)
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}

	select {
	case <-d.shutdownCh:
		d.logger.Info("Dispatcher shutting down, rejecting new event")
		return fmt.Errorf("dispatcher is shutting down")
	default:
	}

	d.logger.WithFields(map[string]any{
		"notification_id": event.NotificationID.String(),
		"user_id":         event.UserID.String(),
		"type":            event.Type,
	}).Info("Received notification event")

	d.track(1)
	defer d.track(-1)
	d.wg.Add(1)
	defer d.wg.Done()

	return d.deliver(event)
}

// deliver executes the delivery with retry logic
func (d *Dispatcher) deliver(event NotificationEvent) error {
	var lastErr error
	backoff := initialBackoff

	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			d.logger.WithFields(map[string]any{
				"notification_id": event.NotificationID.String(),
				"attempt":         attempt + 1,
				"backoff_ms":      backoff.Milliseconds(),
			}).Warn("Retrying notification delivery")

			select {
			case <-time.After(backoff):
				// Continue with retry
			case <-d.ctx.Done():
				d.logger.Info("Dispatcher context cancelled, aborting retry")
				return d.ctx.Err()
			}

			backoff *= 2
		}

		ctx, cancel := context.WithTimeout(d.ctx, deliverTimeout)
		err := d.sender.Deliver(ctx, event)
		cancel()

		if err == nil {
			return nil
		}

		lastErr = err
		d.logger.WithFields(map[string]any{
			"notification_id": event.NotificationID.String(),
			"attempt":         attempt + 1,
			"error":           err.Error(),
		}).Error("Failed to deliver notification", err)
	}

	// All retries exhausted; the message is NAKed for JetStream redelivery
	d.logger.WithFields(map[string]any{
		"notification_id": event.NotificationID.String(),
		"max_retries":     maxRetries,
		"error":           lastErr.Error(),
	}).Error("Notification delivery failed after all retries", lastErr)

	return lastErr
}

// Shutdown gracefully shuts down the dispatcher, waiting for in-flight
// deliveries to complete
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.logger.Info("Shutting down dispatcher...")

	// Reject new events and stop retry sleeps
	close(d.shutdownCh)
	d.cancel()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("All in-flight deliveries completed")
		return nil
	case <-ctx.Done():
		d.logger.Warn("Shutdown timeout reached, forcing exit")
		return ctx.Err()
	}
}

// InFlight returns the number of deliveries currently in progress
// (used for monitoring/testing)
func (d *Dispatcher) InFlight() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inFlight
}

func (d *Dispatcher) track(delta int) {
	d.mu.Lock()
	d.inFlight += delta
	d.mu.Unlock()
}
