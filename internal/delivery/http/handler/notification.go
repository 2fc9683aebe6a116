package handler

import (
	"errors"
	"net/http"

	"github.com/storehaus/review-engine/internal/delivery/http/middleware"
	"github.com/storehaus/review-engine/internal/delivery/http/request"
	"github.com/storehaus/review-engine/internal/delivery/http/response"
	"github.com/storehaus/review-engine/internal/domain"
	"github.com/storehaus/review-engine/internal/pkg/logger"
	"github.com/storehaus/review-engine/internal/usecase/notification"
)

// NotificationHandler handles HTTP requests for notifications
type NotificationHandler struct {
	service *notification.Service
	logger  *logger.Logger
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(service *notification.Service, log *logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		service: service,
		logger:  log,
	}
}

// List handles GET /api/v1/notifications
// @Summary List own notifications
// @Description Get the caller's 20 most recent notifications, newest first.
// @Tags Notifications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "List of notifications"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /notifications [get]
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Missing or invalid token")
		return
	}

	notifications, err := h.service.GetForUser(r.Context(), identity.UserID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Success(w, notifications)
}

// UnreadCount handles GET /api/v1/notifications/unread-count
// @Summary Unread notification count
// @Description Get the caller's number of unread notifications. Result is cached briefly.
// @Tags Notifications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "Unread count"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /notifications/unread-count [get]
func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Missing or invalid token")
		return
	}

	count, err := h.service.UnreadCount(r.Context(), identity.UserID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Success(w, map[string]int{
		"unread": count,
	})
}

// MarkRead handles POST /api/v1/notifications/:id/read
// @Summary Mark one notification read
// @Description Mark a single notification as read. Only the recipient may do so.
// @Tags Notifications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Notification ID (UUID)"
// @Success 200 {object} map[string]interface{} "Marked read"
// @Failure 401 {object} map[string]string "Not the recipient"
// @Failure 404 {object} map[string]string "Notification not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /notifications/{id}/read [post]
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Missing or invalid token")
		return
	}

	id, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid notification ID")
		return
	}

	if err := h.service.MarkRead(r.Context(), id, identity.UserID); err != nil {
		h.handleError(w, err)
		return
	}

	response.Success(w, map[string]bool{
		"read": true,
	})
}

// MarkAllRead handles POST /api/v1/notifications/read-all
// @Summary Mark all notifications read
// @Description Mark all of the caller's unread notifications as read. Idempotent; other users' notifications are untouched.
// @Tags Notifications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "All marked read"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /notifications/read-all [post]
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Missing or invalid token")
		return
	}

	if err := h.service.MarkAllRead(r.Context(), identity.UserID); err != nil {
		h.handleError(w, err)
		return
	}

	response.Success(w, map[string]bool{
		"read": true,
	})
}

// Broadcast handles POST /api/v1/notifications/broadcast
// @Summary Broadcast the newest product
// @Description Create one notification per non-administrator user announcing the most recently created product. Not idempotent: calling twice creates two full waves.
// @Tags Notifications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 201 {object} map[string]interface{} "Recipient count and product name"
// @Failure 404 {object} map[string]string "No product exists"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /notifications/broadcast [post]
func (h *NotificationHandler) Broadcast(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Broadcast(r.Context())
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Created(w, result)
}

// handleError handles service layer errors and returns appropriate HTTP responses
func (h *NotificationHandler) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		response.Error(w, http.StatusNotFound, "Notification or product not found")
	case errors.Is(err, domain.ErrUnauthorized):
		response.Error(w, http.StatusUnauthorized, "Not the recipient of this notification")
	case errors.Is(err, domain.ErrInvalidInput):
		response.Error(w, http.StatusBadRequest, "Invalid input")
	default:
		h.logger.Error("Internal error in notification handler", err)
		response.Error(w, http.StatusInternalServerError, "Internal server error")
	}
}
