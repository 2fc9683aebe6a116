package notification

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/storehaus/review-engine/internal/domain"
	"github.com/storehaus/review-engine/internal/pkg/logger"
)

// MockNotificationRepository is a mock implementation of domain.NotificationRepository
type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) Create(ctx context.Context, notification *domain.Notification) error {
	args := m.Called(ctx, notification)
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

// MockProductRepository is a mock implementation of domain.ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *MockProductRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockProductRepository) Latest(ctx context.Context) (*domain.Product, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *MockProductRepository) RecomputeAggregates(ctx context.Context, productID uuid.UUID) error {
	args := m.Called(ctx, productID)
	return args.Error(0)
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

// MockNotificationCache is a mock implementation of NotificationCache
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

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	args := m.Called(ctx, subject, data)
	return args.Error(0)
}

func newTestService() (*Service, *MockNotificationRepository, *MockProductRepository, *MockUserRepository, *MockNotificationCache, *MockEventPublisher) {
	mockRepo := new(MockNotificationRepository)
	mockProducts := new(MockProductRepository)
	mockUsers := new(MockUserRepository)
	mockCache := new(MockNotificationCache)
	mockPublisher := new(MockEventPublisher)
	log := logger.New("test")
	service := NewService(mockRepo, mockProducts, mockUsers, mockCache, mockPublisher, log)
	return service, mockRepo, mockProducts, mockUsers, mockCache, mockPublisher
}

func TestService_NotifyReply_TargetsReviewAuthor(t *testing.T) {
	service, mockRepo, _, _, mockCache, mockPublisher := newTestService()

	authorID := uuid.New()
	reviewID := uuid.New()
	productID := uuid.New()
	review := &domain.Review{
		ID:        reviewID,
		ProductID: productID,
		UserID:    authorID,
		UserName:  "John Doe",
		Rating:    5,
		Comment:   "Great product!",
	}
	reply := &domain.Reply{
		ID:       uuid.New(),
		ReviewID: reviewID,
		UserID:   uuid.New(),
		UserName: "Jane Smith",
		Comment:  "Agreed!",
	}

	var created *domain.Notification
	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Notification")).
		Run(func(args mock.Arguments) {
			created = args.Get(1).(*domain.Notification)
		}).
		Return(nil)
	mockCache.On("InvalidateUnreadCount", mock.Anything, authorID).Return(nil)
	mockPublisher.On("Publish", mock.Anything, EventsSubject, mock.Anything).Return(nil).Maybe()

	err := service.NotifyReply(context.Background(), review, reply)

	assert.NoError(t, err)
	assert.NotNil(t, created)
	assert.Equal(t, authorID, created.UserID)
	assert.Equal(t, domain.NotificationTypeReply, created.Type)
	assert.Equal(t, "Jane Smith replied to your review", created.Message)
	assert.Equal(t, productID, created.ProductID)
	if assert.NotNil(t, created.ReviewID) {
		assert.Equal(t, reviewID, *created.ReviewID)
	}
	mockRepo.AssertNumberOfCalls(t, "Create", 1)
	mockRepo.AssertExpectations(t)
	mockCache.AssertExpectations(t)
}

func TestService_NotifyReply_RepositoryFailure(t *testing.T) {
	service, mockRepo, _, _, mockCache, _ := newTestService()

	review := &domain.Review{
		ID:        uuid.New(),
		ProductID: uuid.New(),
		UserID:    uuid.New(),
		UserName:  "John Doe",
		Rating:    5,
		Comment:   "Great product!",
	}
	reply := &domain.Reply{
		ID:       uuid.New(),
		ReviewID: review.ID,
		UserID:   uuid.New(),
		UserName: "Jane Smith",
		Comment:  "Agreed!",
	}

	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Notification")).Return(assert.AnError)

	err := service.NotifyReply(context.Background(), review, reply)

	assert.Error(t, err)
	mockCache.AssertNotCalled(t, "InvalidateUnreadCount")
}

func TestService_GetForUser_CapsAtTwenty(t *testing.T) {
	service, mockRepo, _, _, _, _ := newTestService()

	userID := uuid.New()
	expected := make([]*domain.Notification, 20)
	for i := range expected {
		expected[i] = &domain.Notification{ID: uuid.New(), UserID: userID, Type: domain.NotificationTypeNewProduct}
	}

	mockRepo.On("GetByUserID", mock.Anything, userID, 20).Return(expected, nil)

	notifications, err := service.GetForUser(context.Background(), userID)

	assert.NoError(t, err)
	assert.Len(t, notifications, 20)
	mockRepo.AssertExpectations(t)
}

func TestService_UnreadCount_CacheHit(t *testing.T) {
	service, mockRepo, _, _, mockCache, _ := newTestService()

	userID := uuid.New()

	mockCache.On("GetUnreadCount", mock.Anything, userID).Return(7, nil)

	count, err := service.UnreadCount(context.Background(), userID)

	assert.NoError(t, err)
	assert.Equal(t, 7, count)
	mockRepo.AssertNotCalled(t, "CountUnreadByUserID")
	mockCache.AssertExpectations(t)
}

func TestService_UnreadCount_CacheMiss(t *testing.T) {
	service, mockRepo, _, _, mockCache, _ := newTestService()

	userID := uuid.New()

	mockCache.On("GetUnreadCount", mock.Anything, userID).Return(0, assert.AnError)
	mockRepo.On("CountUnreadByUserID", mock.Anything, userID).Return(3, nil)
	mockCache.On("SetUnreadCount", mock.Anything, userID, 3).Return(nil)

	count, err := service.UnreadCount(context.Background(), userID)

	assert.NoError(t, err)
	assert.Equal(t, 3, count)
	mockRepo.AssertExpectations(t)
	mockCache.AssertExpectations(t)
}

func TestService_MarkRead_Success(t *testing.T) {
	service, mockRepo, _, _, mockCache, _ := newTestService()

	notificationID := uuid.New()
	recipientID := uuid.New()
	notification := &domain.Notification{
		ID:      notificationID,
		UserID:  recipientID,
		Type:    domain.NotificationTypeNewProduct,
		Message: "New product available: Widget",
	}

	mockRepo.On("GetByID", mock.Anything, notificationID).Return(notification, nil)
	mockRepo.On("MarkRead", mock.Anything, notificationID).Return(nil)
	mockCache.On("InvalidateUnreadCount", mock.Anything, recipientID).Return(nil)

	err := service.MarkRead(context.Background(), notificationID, recipientID)

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockCache.AssertExpectations(t)
}

func TestService_MarkRead_NotRecipient(t *testing.T) {
	service, mockRepo, _, _, _, _ := newTestService()

	notificationID := uuid.New()
	notification := &domain.Notification{
		ID:      notificationID,
		UserID:  uuid.New(),
		Type:    domain.NotificationTypeNewProduct,
		Message: "New product available: Widget",
	}

	mockRepo.On("GetByID", mock.Anything, notificationID).Return(notification, nil)

	err := service.MarkRead(context.Background(), notificationID, uuid.New())

	assert.Error(t, err)
	assert.Equal(t, domain.ErrUnauthorized, err)
	mockRepo.AssertNotCalled(t, "MarkRead")
}

func TestService_MarkRead_NotFound(t *testing.T) {
	service, mockRepo, _, _, _, _ := newTestService()

	notificationID := uuid.New()

	mockRepo.On("GetByID", mock.Anything, notificationID).Return(nil, domain.ErrNotFound)

	err := service.MarkRead(context.Background(), notificationID, uuid.New())

	assert.Error(t, err)
	assert.Equal(t, domain.ErrNotFound, err)
	mockRepo.AssertNotCalled(t, "MarkRead")
}

func TestService_MarkAllRead_ScopedToUser(t *testing.T) {
	service, mockRepo, _, _, mockCache, _ := newTestService()

	userID := uuid.New()

	mockRepo.On("MarkAllRead", mock.Anything, userID).Return(5, nil)
	mockCache.On("InvalidateUnreadCount", mock.Anything, userID).Return(nil)

	err := service.MarkAllRead(context.Background(), userID)

	assert.NoError(t, err)
	mockRepo.AssertCalled(t, "MarkAllRead", mock.Anything, userID)
	mockRepo.AssertExpectations(t)
	mockCache.AssertExpectations(t)
}

func TestService_Broadcast_FansOutToNonAdmins(t *testing.T) {
	service, mockRepo, mockProducts, mockUsers, mockCache, mockPublisher := newTestService()

	product := &domain.Product{ID: uuid.New(), Name: "Widget"}
	users := []*domain.User{
		{ID: uuid.New(), Name: "Alice", IsAdmin: false},
		{ID: uuid.New(), Name: "Bob", IsAdmin: false},
		{ID: uuid.New(), Name: "Carol", IsAdmin: false},
	}

	var batch []*domain.Notification
	mockProducts.On("Latest", mock.Anything).Return(product, nil)
	mockUsers.On("ListNonAdmins", mock.Anything).Return(users, nil)
	mockRepo.On("CreateBatch", mock.Anything, mock.AnythingOfType("[]*domain.Notification")).
		Run(func(args mock.Arguments) {
			batch = args.Get(1).([]*domain.Notification)
		}).
		Return(nil)
	mockCache.On("InvalidateUnreadCounts", mock.Anything, mock.AnythingOfType("[]uuid.UUID")).Return(nil)
	mockPublisher.On("Publish", mock.Anything, EventsSubject, mock.Anything).Return(nil).Maybe()

	result, err := service.Broadcast(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 3, result.Recipients)
	assert.Equal(t, "Widget", result.ProductName)
	assert.Len(t, batch, 3)
	for i, n := range batch {
		assert.Equal(t, users[i].ID, n.UserID)
		assert.Equal(t, domain.NotificationTypeNewProduct, n.Type)
		assert.Equal(t, fmt.Sprintf("New product available: %s", product.Name), n.Message)
		assert.Equal(t, product.ID, n.ProductID)
		assert.Nil(t, n.ReviewID)
	}
	mockRepo.AssertExpectations(t)
	mockProducts.AssertExpectations(t)
	mockUsers.AssertExpectations(t)
}

func TestService_Broadcast_NoProducts(t *testing.T) {
	service, mockRepo, mockProducts, mockUsers, _, _ := newTestService()

	mockProducts.On("Latest", mock.Anything).Return(nil, domain.ErrNotFound)

	result, err := service.Broadcast(context.Background())

	assert.Error(t, err)
	assert.Equal(t, domain.ErrNotFound, err)
	assert.Nil(t, result)
	mockUsers.AssertNotCalled(t, "ListNonAdmins")
	mockRepo.AssertNotCalled(t, "CreateBatch")
}

func TestService_Broadcast_NoRecipients(t *testing.T) {
	service, mockRepo, mockProducts, mockUsers, _, _ := newTestService()

	product := &domain.Product{ID: uuid.New(), Name: "Widget"}

	mockProducts.On("Latest", mock.Anything).Return(product, nil)
	mockUsers.On("ListNonAdmins", mock.Anything).Return([]*domain.User{}, nil)

	result, err := service.Broadcast(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 0, result.Recipients)
	mockRepo.AssertNotCalled(t, "CreateBatch")
}

func TestService_Broadcast_NotIdempotent(t *testing.T) {
	service, mockRepo, mockProducts, mockUsers, mockCache, mockPublisher := newTestService()

	product := &domain.Product{ID: uuid.New(), Name: "Widget"}
	users := []*domain.User{{ID: uuid.New(), Name: "Alice"}}

	mockProducts.On("Latest", mock.Anything).Return(product, nil)
	mockUsers.On("ListNonAdmins", mock.Anything).Return(users, nil)
	mockRepo.On("CreateBatch", mock.Anything, mock.AnythingOfType("[]*domain.Notification")).Return(nil)
	mockCache.On("InvalidateUnreadCounts", mock.Anything, mock.AnythingOfType("[]uuid.UUID")).Return(nil)
	mockPublisher.On("Publish", mock.Anything, EventsSubject, mock.Anything).Return(nil).Maybe()

	// Two invocations produce two full waves for the same product
	_, err := service.Broadcast(context.Background())
	assert.NoError(t, err)
	_, err = service.Broadcast(context.Background())
	assert.NoError(t, err)

	mockRepo.AssertNumberOfCalls(t, "CreateBatch", 2)
}
