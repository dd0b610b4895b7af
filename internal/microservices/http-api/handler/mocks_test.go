package handler

import (
	"context"

	"animehub/internal/microservices/http-api/dto"
	"animehub/internal/microservices/http-api/middleware"
	"animehub/internal/microservices/http-api/models"
	"animehub/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
)

type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) Send(ctx context.Context, input service.NotificationInput) (*models.Notification, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Notification), args.Error(1)
}

func (m *MockNotificationService) SendBulk(ctx context.Context, inputs []service.NotificationInput) []*models.Notification {
	args := m.Called(ctx, inputs)
	return args.Get(0).([]*models.Notification)
}

func (m *MockNotificationService) SendSystem(ctx context.Context, title, message string, data map[string]any) ([]*models.Notification, error) {
	args := m.Called(ctx, title, message, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Notification), args.Error(1)
}

func (m *MockNotificationService) List(ctx context.Context, p service.Principal, limit, offset int) ([]models.Notification, error) {
	args := m.Called(ctx, p, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Notification), args.Error(1)
}

func (m *MockNotificationService) MarkAsRead(ctx context.Context, p service.Principal, notificationID int64) (*models.Notification, error) {
	args := m.Called(ctx, p, notificationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Notification), args.Error(1)
}

func (m *MockNotificationService) MarkAllAsRead(ctx context.Context, p service.Principal) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockNotificationService) UnreadCount(ctx context.Context, p service.Principal) (int64, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationService) Delete(ctx context.Context, p service.Principal, notificationID int64) error {
	args := m.Called(ctx, p, notificationID)
	return args.Error(0)
}

func (m *MockNotificationService) SendCommentNotification(ctx context.Context, commentID, animeID int64, commenterID string) (*models.Notification, error) {
	args := m.Called(ctx, commentID, animeID, commenterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Notification), args.Error(1)
}

func (m *MockNotificationService) SendBadgeNotification(ctx context.Context, userID string, badgeID int64) (*models.Notification, error) {
	args := m.Called(ctx, userID, badgeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Notification), args.Error(1)
}

func (m *MockNotificationService) SendTaskCompletionNotification(ctx context.Context, userID string, taskID int64) (*models.Notification, error) {
	args := m.Called(ctx, userID, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Notification), args.Error(1)
}

func (m *MockNotificationService) Settings(ctx context.Context, p service.Principal) ([]models.NotificationSetting, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.NotificationSetting), args.Error(1)
}

func (m *MockNotificationService) UpdateSettings(ctx context.Context, p service.Principal, settings []service.SettingInput) ([]models.NotificationSetting, error) {
	args := m.Called(ctx, p, settings)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.NotificationSetting), args.Error(1)
}

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(username, password, email string) (*models.User, error) {
	args := m.Called(username, password, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockAuthService) Login(username, password string) (string, string, *models.User, error) {
	args := m.Called(username, password)
	var user *models.User
	if u := args.Get(2); u != nil {
		user = u.(*models.User)
	}
	return args.String(0), args.String(1), user, args.Error(3)
}

func (m *MockAuthService) RefreshAccessToken(refreshToken string) (string, error) {
	args := m.Called(refreshToken)
	return args.String(0), args.Error(1)
}

func (m *MockAuthService) ValidateToken(tokenString string) (*service.Claims, error) {
	args := m.Called(tokenString)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Claims), args.Error(1)
}

type MockCommentService struct {
	mock.Mock
}

func (m *MockCommentService) CreateComment(ctx context.Context, userID string, animeID int64, content string) (*dto.CommentResponse, error) {
	args := m.Called(ctx, userID, animeID, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.CommentResponse), args.Error(1)
}

func (m *MockCommentService) DeleteComment(ctx context.Context, commentID int64, userID string) error {
	args := m.Called(ctx, commentID, userID)
	return args.Error(0)
}

func (m *MockCommentService) GetAnimeComments(ctx context.Context, animeID int64, page, pageSize int) (*dto.PaginatedCommentResponse, error) {
	args := m.Called(ctx, animeID, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.PaginatedCommentResponse), args.Error(1)
}

func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

// withPrincipal stands in for AuthMiddleware.
func withPrincipal(p service.Principal) gin.HandlerFunc {
	return func(c *gin.Context) {
		middleware.SetPrincipal(c, p)
		c.Next()
	}
}
