package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/socialpulse/backend/internal/events"
	"github.com/socialpulse/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockNotificationStore struct{ mock.Mock }

func (m *mockNotificationStore) CreateNotification(n *models.Notification) error {
	return m.Called(n).Error(0)
}
func (m *mockNotificationStore) GetByUserID(userID uint) ([]models.Notification, error) {
	args := m.Called(userID)
	return args.Get(0).([]models.Notification), args.Error(1)
}
func (m *mockNotificationStore) GetByID(id uint) (*models.Notification, error) {
	args := m.Called(id)
	if n, _ := args.Get(0).(*models.Notification); n != nil {
		return n, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockNotificationStore) GetUnreadCount(userID uint) (int64, error) {
	args := m.Called(userID)
	return args.Get(0).(int64), args.Error(1)
}
func (m *mockNotificationStore) MarkSeen(notificationID uint) error {
	return m.Called(notificationID).Error(0)
}

type mockPostStore struct{ mock.Mock }

func (m *mockPostStore) CreatePost(p *models.Post) error { return m.Called(p).Error(0) }
func (m *mockPostStore) GetPostByID(id uint) (*models.Post, error) {
	args := m.Called(id)
	if p, _ := args.Get(0).(*models.Post); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockPostStore) GetPostsByAuthorID(authorID uint, offset, limit int) ([]models.Post, error) {
	args := m.Called(authorID, offset, limit)
	return args.Get(0).([]models.Post), args.Error(1)
}
func (m *mockPostStore) GetAllPosts(offset, limit int) ([]models.Post, error) {
	args := m.Called(offset, limit)
	return args.Get(0).([]models.Post), args.Error(1)
}
func (m *mockPostStore) DeletePost(id uint) error { return m.Called(id).Error(0) }
func (m *mockPostStore) FindAuthorEmail(postID uint) (string, error) {
	args := m.Called(postID)
	return args.String(0), args.Error(1)
}

type mockFollowStore struct{ mock.Mock }

func (m *mockFollowStore) CreateFollow(f *models.Follow) error { return m.Called(f).Error(0) }
func (m *mockFollowStore) DeleteFollow(followerID, followingID uint) error {
	return m.Called(followerID, followingID).Error(0)
}
func (m *mockFollowStore) IsFollowing(followerID, followingID uint) (bool, error) {
	args := m.Called(followerID, followingID)
	return args.Bool(0), args.Error(1)
}
func (m *mockFollowStore) GetFollowers(userID uint) ([]models.User, error) {
	args := m.Called(userID)
	return args.Get(0).([]models.User), args.Error(1)
}
func (m *mockFollowStore) GetFollowersCount(userID uint) (int64, error) {
	args := m.Called(userID)
	return args.Get(0).(int64), args.Error(1)
}

type mockReportStore struct{ mock.Mock }

func (m *mockReportStore) SaveReport(ctx context.Context, report *models.FanoutReport) error {
	return m.Called(ctx, report).Error(0)
}
func (m *mockReportStore) GetReportByEventID(ctx context.Context, eventID string) (*models.FanoutReport, error) {
	args := m.Called(ctx, eventID)
	if r, _ := args.Get(0).(*models.FanoutReport); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

// --- helpers ---

func newTestEngine(ns *mockNotificationStore, ps *mockPostStore, fs *mockFollowStore, rs *mockReportStore) *Engine {
	e := NewEngine(ns, ps, fs, nil, 4)
	if rs != nil {
		e.reports = rs
	}
	e.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return e
}

func eventBody(t *testing.T, topic string, payload any) []byte {
	t.Helper()
	env, err := events.NewEnvelope(topic, payload)
	require.NoError(t, err)
	body, err := env.Encode()
	require.NoError(t, err)
	return body
}

// --- user.created tests ---

func TestHandleUserCreated_SendsWelcome(t *testing.T) {
	ns := &mockNotificationStore{}
	var created *models.Notification
	ns.On("CreateNotification", mock.Anything).Run(func(args mock.Arguments) {
		created = args.Get(0).(*models.Notification)
	}).Return(nil)

	e := newTestEngine(ns, nil, nil, nil)
	body := eventBody(t, events.TopicUserCreated, events.UserCreated{ID: 7, Email: "a@x.com"})

	require.NoError(t, e.HandleUserCreated(context.Background(), body))

	require.NotNil(t, created)
	assert.Equal(t, uint(7), created.UserID)
	assert.Equal(t, models.NotificationTypeWelcome, created.Type)
	assert.Equal(t, "Welcome to our service", created.Content)
	assert.False(t, created.Seen)
	assert.NotEmpty(t, created.EventKey)
	ns.AssertNumberOfCalls(t, "CreateNotification", 1)
}

func TestHandleUserCreated_DuplicateDeliveryIsNoop(t *testing.T) {
	ns := &mockNotificationStore{}
	ns.On("CreateNotification", mock.Anything).Return(models.ErrDuplicateEvent)

	e := newTestEngine(ns, nil, nil, nil)
	body := eventBody(t, events.TopicUserCreated, events.UserCreated{ID: 7, Email: "a@x.com"})

	assert.NoError(t, e.HandleUserCreated(context.Background(), body))
}

func TestHandleUserCreated_MissingRecipientIsSkipped(t *testing.T) {
	ns := &mockNotificationStore{}
	ns.On("CreateNotification", mock.Anything).Return(models.ErrNotFound)

	e := newTestEngine(ns, nil, nil, nil)
	body := eventBody(t, events.TopicUserCreated, events.UserCreated{ID: 99, Email: "gone@x.com"})

	assert.NoError(t, e.HandleUserCreated(context.Background(), body))
}

func TestHandleUserCreated_MalformedPayloadIsDropped(t *testing.T) {
	ns := &mockNotificationStore{}
	e := newTestEngine(ns, nil, nil, nil)

	assert.NoError(t, e.HandleUserCreated(context.Background(), []byte("not json")))

	env := events.Envelope{ID: "e1", Topic: events.TopicUserCreated, Payload: json.RawMessage(`{"id":"seven"}`)}
	body, err := env.Encode()
	require.NoError(t, err)
	assert.NoError(t, e.HandleUserCreated(context.Background(), body))

	ns.AssertNotCalled(t, "CreateNotification", mock.Anything)
}

func TestHandleUserCreated_TransientStoreErrorRequeues(t *testing.T) {
	ns := &mockNotificationStore{}
	ns.On("CreateNotification", mock.Anything).Return(errors.New("connection refused"))

	e := newTestEngine(ns, nil, nil, nil)
	body := eventBody(t, events.TopicUserCreated, events.UserCreated{ID: 7, Email: "a@x.com"})

	assert.Error(t, e.HandleUserCreated(context.Background(), body))
}

// --- post.created tests ---

func TestHandlePostCreated_NotifiesEveryFollower(t *testing.T) {
	ns := &mockNotificationStore{}
	ps := &mockPostStore{}
	fs := &mockFollowStore{}
	rs := &mockReportStore{}

	ps.On("FindAuthorEmail", uint(5)).Return("a@x.com", nil)
	fs.On("GetFollowers", uint(3)).Return([]models.User{
		{ID: 10, Email: "f10@x.com"},
		{ID: 11, Email: "f11@x.com"},
	}, nil)

	var created []*models.Notification
	ns.On("CreateNotification", mock.Anything).Run(func(args mock.Arguments) {
		created = append(created, args.Get(0).(*models.Notification))
	}).Return(nil)

	var report *models.FanoutReport
	rs.On("SaveReport", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		report = args.Get(1).(*models.FanoutReport)
	}).Return(nil)

	e := newTestEngine(ns, ps, fs, rs)
	body := eventBody(t, events.TopicPostCreated, events.PostCreated{ID: 5, AuthorID: 3})

	require.NoError(t, e.HandlePostCreated(context.Background(), body))

	require.Len(t, created, 2)
	recipients := map[uint]bool{}
	for _, n := range created {
		recipients[n.UserID] = true
		assert.Equal(t, models.NotificationTypeNewPost, n.Type)
		assert.Equal(t, "New post by a@x.com", n.Content)
		assert.False(t, n.Seen)
		require.NotNil(t, n.PostID)
		assert.Equal(t, uint(5), *n.PostID)
	}
	assert.Equal(t, map[uint]bool{10: true, 11: true}, recipients)

	require.NotNil(t, report)
	assert.Equal(t, 2, report.Attempted)
	assert.Equal(t, 2, report.Delivered)
	assert.Empty(t, report.Failures)
}

func TestHandlePostCreated_MissingPostProducesNothing(t *testing.T) {
	ns := &mockNotificationStore{}
	ps := &mockPostStore{}
	fs := &mockFollowStore{}
	rs := &mockReportStore{}

	ps.On("FindAuthorEmail", uint(42)).Return("", models.ErrNotFound)

	e := newTestEngine(ns, ps, fs, rs)
	body := eventBody(t, events.TopicPostCreated, events.PostCreated{ID: 42, AuthorID: 3})

	assert.NoError(t, e.HandlePostCreated(context.Background(), body))
	ns.AssertNotCalled(t, "CreateNotification", mock.Anything)
	fs.AssertNotCalled(t, "GetFollowers", mock.Anything)
	rs.AssertNotCalled(t, "SaveReport", mock.Anything, mock.Anything)
}

func TestHandlePostCreated_FollowerFailuresAreIsolated(t *testing.T) {
	ns := &mockNotificationStore{}
	ps := &mockPostStore{}
	fs := &mockFollowStore{}
	rs := &mockReportStore{}

	ps.On("FindAuthorEmail", uint(5)).Return("a@x.com", nil)
	fs.On("GetFollowers", uint(3)).Return([]models.User{{ID: 10}, {ID: 11}}, nil)

	ns.On("CreateNotification", mock.MatchedBy(func(n *models.Notification) bool {
		return n.UserID == 10
	})).Return(errors.New("insert failed"))
	ns.On("CreateNotification", mock.MatchedBy(func(n *models.Notification) bool {
		return n.UserID == 11
	})).Return(nil)

	var report *models.FanoutReport
	rs.On("SaveReport", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		report = args.Get(1).(*models.FanoutReport)
	}).Return(nil)

	e := newTestEngine(ns, ps, fs, rs)
	body := eventBody(t, events.TopicPostCreated, events.PostCreated{ID: 5, AuthorID: 3})

	require.NoError(t, e.HandlePostCreated(context.Background(), body))
	ns.AssertNumberOfCalls(t, "CreateNotification", 2)

	require.NotNil(t, report)
	assert.Equal(t, 2, report.Attempted)
	assert.Equal(t, 1, report.Delivered)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, uint(10), report.Failures[0].FollowerID)
}

func TestHandlePostCreated_RedeliveryCountsDuplicates(t *testing.T) {
	ns := &mockNotificationStore{}
	ps := &mockPostStore{}
	fs := &mockFollowStore{}
	rs := &mockReportStore{}

	ps.On("FindAuthorEmail", uint(5)).Return("a@x.com", nil)
	fs.On("GetFollowers", uint(3)).Return([]models.User{{ID: 10}, {ID: 11}}, nil)
	ns.On("CreateNotification", mock.Anything).Return(models.ErrDuplicateEvent)

	var report *models.FanoutReport
	rs.On("SaveReport", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		report = args.Get(1).(*models.FanoutReport)
	}).Return(nil)

	e := newTestEngine(ns, ps, fs, rs)
	body := eventBody(t, events.TopicPostCreated, events.PostCreated{ID: 5, AuthorID: 3})

	require.NoError(t, e.HandlePostCreated(context.Background(), body))

	require.NotNil(t, report)
	assert.Equal(t, 2, report.Duplicates)
	assert.Equal(t, 0, report.Delivered)
	assert.Empty(t, report.Failures)
}

func TestHandlePostCreated_MalformedPayloadIsDropped(t *testing.T) {
	ns := &mockNotificationStore{}
	ps := &mockPostStore{}
	e := newTestEngine(ns, ps, nil, nil)

	env := events.Envelope{ID: "e2", Topic: events.TopicPostCreated, Payload: json.RawMessage(`{"id":{}}`)}
	body, err := env.Encode()
	require.NoError(t, err)

	assert.NoError(t, e.HandlePostCreated(context.Background(), body))
	ps.AssertNotCalled(t, "FindAuthorEmail", mock.Anything)
	ns.AssertNotCalled(t, "CreateNotification", mock.Anything)
}

func TestHandlePostCreated_TransientLookupErrorRequeues(t *testing.T) {
	ns := &mockNotificationStore{}
	ps := &mockPostStore{}
	ps.On("FindAuthorEmail", uint(5)).Return("", errors.New("connection refused"))

	e := newTestEngine(ns, ps, nil, nil)
	body := eventBody(t, events.TopicPostCreated, events.PostCreated{ID: 5, AuthorID: 3})

	assert.Error(t, e.HandlePostCreated(context.Background(), body))
}

// --- idempotency key ---

func TestEventKey_DeterministicPerEventAndRecipient(t *testing.T) {
	assert.Equal(t, eventKey("e1", 10), eventKey("e1", 10))
	assert.NotEqual(t, eventKey("e1", 10), eventKey("e1", 11))
	assert.NotEqual(t, eventKey("e1", 10), eventKey("e2", 10))
	assert.Len(t, eventKey("e1", 10), 64)
}
