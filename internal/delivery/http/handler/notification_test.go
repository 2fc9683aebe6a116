package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/storehaus/review-engine/internal/delivery/http/middleware"
	"github.com/storehaus/review-engine/internal/domain"
	"github.com/storehaus/review-engine/internal/pkg/logger"
	"github.com/storehaus/review-engine/internal/usecase/notification"
)

// MockNotificationRepository is a mock implementation of domain.NotificationRepository
type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *MockNotificationRepository) CreateBatch(ctx context.Context, notifications []*domain.Notification) error {
	args := m.Called(ctx, notifications)
	return args.Error(0)
}

func (m *MockNotificationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Notification), args.Error(1)
}

func (m *MockNotificationRepository) GetByUserID(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Notification, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Notification), args.Error(1)
}

func (m *MockNotificationRepository) CountUnreadByUserID(ctx context.Context, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockNotificationRepository) MarkRead(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockNotificationRepository) MarkAllRead(ctx context.Context, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

// MockUserRepository is a mock implementation of domain.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) ListNonAdmins(ctx context.Context) ([]*domain.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.User), args.Error(1)
}

// MockNotificationCache is a mock implementation of notification.NotificationCache
type MockNotificationCache struct {
	mock.Mock
}

func (m *MockNotificationCache) GetUnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockNotificationCache) SetUnreadCount(ctx context.Context, userID uuid.UUID, count int) error {
	args := m.Called(ctx, userID, count)
	return args.Error(0)
}

func (m *MockNotificationCache) InvalidateUnreadCount(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockNotificationCache) InvalidateUnreadCounts(ctx context.Context, userIDs []uuid.UUID) error {
	args := m.Called(ctx, userIDs)
	return args.Error(0)
}

// MockEventPublisher is a mock implementation of notification.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	args := m.Called(ctx, subject, data)
	return args.Error(0)
}

func newNotificationHandler() (*NotificationHandler, *MockNotificationRepository, *MockProductRepository, *MockUserRepository, *MockNotificationCache, *MockEventPublisher) {
	mockRepo := new(MockNotificationRepository)
	mockProducts := new(MockProductRepository)
	mockUsers := new(MockUserRepository)
	mockCache := new(MockNotificationCache)
	mockPublisher := new(MockEventPublisher)
	log := logger.New("test")
	service := notification.NewService(mockRepo, mockProducts, mockUsers, mockCache, mockPublisher, log)
	return NewNotificationHandler(service, log), mockRepo, mockProducts, mockUsers, mockCache, mockPublisher
}

func TestNotificationHandler_List_Success(t *testing.T) {
	handler, mockRepo, _, _, _, _ := newNotificationHandler()

	identity := &middleware.Identity{UserID: uuid.New(), Name: "John Doe"}
	notifications := []*domain.Notification{
		{ID: uuid.New(), UserID: identity.UserID, Type: domain.NotificationTypeNewProduct, Message: "New product available: Widget"},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
	req = withURLParams(req, identity, nil)
	w := httptest.NewRecorder()

	mockRepo.On("GetByUserID", mock.Anything, identity.UserID, 20).Return(notifications, nil)

	handler.List(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var response map[string]any
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Contains(t, response, "data")
	mockRepo.AssertExpectations(t)
}

func TestNotificationHandler_List_Unauthenticated(t *testing.T) {
	handler, mockRepo, _, _, _, _ := newNotificationHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
	w := httptest.NewRecorder()

	handler.List(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	mockRepo.AssertNotCalled(t, "GetByUserID")
}

func TestNotificationHandler_UnreadCount_Success(t *testing.T) {
	handler, _, _, _, mockCache, _ := newNotificationHandler()

	identity := &middleware.Identity{UserID: uuid.New(), Name: "John Doe"}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications/unread-count", nil)
	req = withURLParams(req, identity, nil)
	w := httptest.NewRecorder()

	mockCache.On("GetUnreadCount", mock.Anything, identity.UserID).Return(4, nil)

	handler.UnreadCount(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var response map[string]any
	json.Unmarshal(w.Body.Bytes(), &response)
	data := response["data"].(map[string]any)
	assert.Equal(t, float64(4), data["unread"])
}

func TestNotificationHandler_MarkRead_Success(t *testing.T) {
	handler, mockRepo, _, _, mockCache, _ := newNotificationHandler()

	identity := &middleware.Identity{UserID: uuid.New(), Name: "John Doe"}
	notificationID := uuid.New()
	existing := &domain.Notification{
		ID:      notificationID,
		UserID:  identity.UserID,
		Type:    domain.NotificationTypeNewProduct,
		Message: "New product available: Widget",
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications/"+notificationID.String()+"/read", nil)
	req = withURLParams(req, identity, map[string]string{"id": notificationID.String()})
	w := httptest.NewRecorder()

	mockRepo.On("GetByID", mock.Anything, notificationID).Return(existing, nil)
	mockRepo.On("MarkRead", mock.Anything, notificationID).Return(nil)
	mockCache.On("InvalidateUnreadCount", mock.Anything, identity.UserID).Return(nil)

	handler.MarkRead(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockRepo.AssertExpectations(t)
}

func TestNotificationHandler_MarkRead_NotRecipient(t *testing.T) {
	handler, mockRepo, _, _, _, _ := newNotificationHandler()

	identity := &middleware.Identity{UserID: uuid.New(), Name: "John Doe"}
	notificationID := uuid.New()
	existing := &domain.Notification{
		ID:      notificationID,
		UserID:  uuid.New(),
		Type:    domain.NotificationTypeNewProduct,
		Message: "New product available: Widget",
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications/"+notificationID.String()+"/read", nil)
	req = withURLParams(req, identity, map[string]string{"id": notificationID.String()})
	w := httptest.NewRecorder()

	mockRepo.On("GetByID", mock.Anything, notificationID).Return(existing, nil)

	handler.MarkRead(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	var response map[string]string
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Contains(t, response["error"], "recipient")
	mockRepo.AssertNotCalled(t, "MarkRead")
}

func TestNotificationHandler_MarkRead_NotFound(t *testing.T) {
	handler, mockRepo, _, _, _, _ := newNotificationHandler()

	identity := &middleware.Identity{UserID: uuid.New(), Name: "John Doe"}
	notificationID := uuid.New()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications/"+notificationID.String()+"/read", nil)
	req = withURLParams(req, identity, map[string]string{"id": notificationID.String()})
	w := httptest.NewRecorder()

	mockRepo.On("GetByID", mock.Anything, notificationID).Return(nil, domain.ErrNotFound)

	handler.MarkRead(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNotificationHandler_MarkAllRead_Success(t *testing.T) {
	handler, mockRepo, _, _, mockCache, _ := newNotificationHandler()

	identity := &middleware.Identity{UserID: uuid.New(), Name: "John Doe"}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications/read-all", nil)
	req = withURLParams(req, identity, nil)
	w := httptest.NewRecorder()

	mockRepo.On("MarkAllRead", mock.Anything, identity.UserID).Return(3, nil)
	mockCache.On("InvalidateUnreadCount", mock.Anything, identity.UserID).Return(nil)

	handler.MarkAllRead(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockRepo.AssertExpectations(t)
}

func TestNotificationHandler_Broadcast_Success(t *testing.T) {
	handler, mockRepo, mockProducts, mockUsers, mockCache, mockPublisher := newNotificationHandler()

	identity := &middleware.Identity{UserID: uuid.New(), Name: "Admin", IsAdmin: true}
	product := &domain.Product{ID: uuid.New(), Name: "Widget"}
	users := []*domain.User{
		{ID: uuid.New(), Name: "Alice"},
		{ID: uuid.New(), Name: "Bob"},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications/broadcast", nil)
	req = withURLParams(req, identity, nil)
	w := httptest.NewRecorder()

	mockProducts.On("Latest", mock.Anything).Return(product, nil)
	mockUsers.On("ListNonAdmins", mock.Anything).Return(users, nil)
	mockRepo.On("CreateBatch", mock.Anything, mock.AnythingOfType("[]*domain.Notification")).Return(nil)
	mockCache.On("InvalidateUnreadCounts", mock.Anything, mock.AnythingOfType("[]uuid.UUID")).Return(nil)
	mockPublisher.On("Publish", mock.Anything, notification.EventsSubject, mock.Anything).Return(nil).Maybe()

	handler.Broadcast(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	var response map[string]any
	json.Unmarshal(w.Body.Bytes(), &response)
	data := response["data"].(map[string]any)
	assert.Equal(t, float64(2), data["recipients"])
	assert.Equal(t, "Widget", data["product_name"])
	mockRepo.AssertExpectations(t)
}

func TestNotificationHandler_Broadcast_NoProducts(t *testing.T) {
	handler, mockRepo, mockProducts, _, _, _ := newNotificationHandler()

	identity := &middleware.Identity{UserID: uuid.New(), Name: "Admin", IsAdmin: true}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications/broadcast", nil)
	req = withURLParams(req, identity, nil)
	w := httptest.NewRecorder()

	mockProducts.On("Latest", mock.Anything).Return(nil, domain.ErrNotFound)

	handler.Broadcast(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	mockRepo.AssertNotCalled(t, "CreateBatch")
}
