package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/socialpulse/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockNotificationRepository struct {
	mock.Mock
}

func (m *mockNotificationRepository) CreateNotification(notification *models.Notification) error {
	args := m.Called(notification)
	return args.Error(0)
}

func (m *mockNotificationRepository) GetByUserID(userID uint) ([]models.Notification, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Notification), args.Error(1)
}

func (m *mockNotificationRepository) GetByID(id uint) (*models.Notification, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Notification), args.Error(1)
}

func (m *mockNotificationRepository) GetUnreadCount(userID uint) (int64, error) {
	args := m.Called(userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockNotificationRepository) MarkSeen(notificationID uint) error {
	args := m.Called(notificationID)
	return args.Error(0)
}

// newAuthedContext builds an echo context carrying the claims the JWT
// middleware would have set for the given user.
func newAuthedContext(t *testing.T, method, target string, userID uint) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if userID != 0 {
		c.Set("user", &models.JwtCustomClaims{UserID: userID})
	}
	return c, rec
}

func uintPtr(v uint) *uint { return &v }

func TestGetNotifications_ReturnsEnrichedList(t *testing.T) {
	repo := new(mockNotificationRepository)
	handler := NewNotificationHandler(repo)

	author := &models.User{Name: "Alice"}
	post := &models.Post{ID: 5, AuthorID: 3, Author: author, Title: "Hello", Content: "First post", CreatedAt: time.Now()}

	// Repository returns newest first; handler must preserve that order.
	repo.On("GetByUserID", uint(7)).Return([]models.Notification{
		{
			ID:      2,
			UserID:  7,
			Type:    models.NotificationTypeNewPost,
			Content: "New post by alice@example.com",
			PostID:  uintPtr(5),
			Post:    post,
		},
		{
			ID:      1,
			UserID:  7,
			Type:    models.NotificationTypeWelcome,
			Content: "Welcome to our service",
		},
	}, nil)

	c, rec := newAuthedContext(t, http.MethodGet, "/api/v1/notifications", 7)
	require.NoError(t, handler.GetNotifications(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success bool `json:"success"`
		Data    struct {
			Notifications []struct {
				ID      uint   `json:"id"`
				Type    string `json:"type"`
				Content string `json:"content"`
				Trigger *struct {
					Post *struct {
						Title      string `json:"title"`
						AuthorName string `json:"author_name"`
					} `json:"post"`
				} `json:"trigger"`
			} `json:"notifications"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	require.Len(t, body.Data.Notifications, 2)

	first := body.Data.Notifications[0]
	assert.Equal(t, uint(2), first.ID)
	assert.Equal(t, models.NotificationTypeNewPost, first.Type)
	require.NotNil(t, first.Trigger)
	require.NotNil(t, first.Trigger.Post)
	assert.Equal(t, "Hello", first.Trigger.Post.Title)
	assert.Equal(t, "Alice", first.Trigger.Post.AuthorName)

	second := body.Data.Notifications[1]
	assert.Equal(t, uint(1), second.ID)
	assert.Equal(t, "Welcome to our service", second.Content)
	assert.Nil(t, second.Trigger)

	repo.AssertExpectations(t)
}

func TestGetNotifications_RequiresAuth(t *testing.T) {
	repo := new(mockNotificationRepository)
	handler := NewNotificationHandler(repo)

	c, _ := newAuthedContext(t, http.MethodGet, "/api/v1/notifications", 0)
	err := handler.GetNotifications(c)

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
	repo.AssertNotCalled(t, "GetByUserID", mock.Anything)
}

func TestGetUnreadCount(t *testing.T) {
	repo := new(mockNotificationRepository)
	handler := NewNotificationHandler(repo)

	repo.On("GetUnreadCount", uint(7)).Return(int64(3), nil)

	c, rec := newAuthedContext(t, http.MethodGet, "/api/v1/notifications/unread-count", 7)
	require.NoError(t, handler.GetUnreadCount(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data struct {
			Count int64 `json:"count"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(3), body.Data.Count)
}

func markSeenContext(t *testing.T, notifID string, userID uint) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	c, rec := newAuthedContext(t, http.MethodPatch, "/api/v1/notifications/"+notifID+"/seen", userID)
	c.SetParamNames("id")
	c.SetParamValues(notifID)
	return c, rec
}

func TestMarkSeen_FlipsUnseenNotification(t *testing.T) {
	repo := new(mockNotificationRepository)
	handler := NewNotificationHandler(repo)

	repo.On("GetByID", uint(42)).Return(&models.Notification{ID: 42, UserID: 7, Seen: false}, nil)
	repo.On("MarkSeen", uint(42)).Return(nil)

	c, rec := markSeenContext(t, "42", 7)
	require.NoError(t, handler.MarkSeen(c))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Notification marked as seen")
	repo.AssertExpectations(t)
}

func TestMarkSeen_AlreadySeenIsNoop(t *testing.T) {
	repo := new(mockNotificationRepository)
	handler := NewNotificationHandler(repo)

	repo.On("GetByID", uint(42)).Return(&models.Notification{ID: 42, UserID: 7, Seen: true}, nil)

	c, rec := markSeenContext(t, "42", 7)
	require.NoError(t, handler.MarkSeen(c))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "already been marked as seen")
	repo.AssertNotCalled(t, "MarkSeen", mock.Anything)
}

func TestMarkSeen_UnknownNotificationIs404(t *testing.T) {
	repo := new(mockNotificationRepository)
	handler := NewNotificationHandler(repo)

	repo.On("GetByID", uint(99)).Return(nil, fmt.Errorf("notification 99: %w", models.ErrNotFound))

	c, _ := markSeenContext(t, "99", 7)
	err := handler.MarkSeen(c)

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.Code)
}

func TestMarkSeen_OtherUsersNotificationIs403(t *testing.T) {
	repo := new(mockNotificationRepository)
	handler := NewNotificationHandler(repo)

	repo.On("GetByID", uint(42)).Return(&models.Notification{ID: 42, UserID: 8, Seen: false}, nil)

	c, _ := markSeenContext(t, "42", 7)
	err := handler.MarkSeen(c)

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusForbidden, httpErr.Code)
	repo.AssertNotCalled(t, "MarkSeen", mock.Anything)
}

func TestMarkSeen_InvalidIDIs400(t *testing.T) {
	repo := new(mockNotificationRepository)
	handler := NewNotificationHandler(repo)

	c, _ := markSeenContext(t, "not-a-number", 7)
	err := handler.MarkSeen(c)

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
}
