package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"animehub/internal/microservices/http-api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type notificationFixture struct {
	svc      NotificationService
	repo     *memNotificationRepo
	settings *memSettingRepo
	cache    *memCache
}

func newNotificationFixture(t *testing.T, workers int, userIDs ...string) *notificationFixture {
	t.Helper()
	creator := "user-owner"
	repo := newMemNotificationRepo(append(userIDs, creator, "user-commenter")...)
	settings := newMemSettingRepo()
	cache := newMemCache()

	svc := NewNotificationService(NotificationServiceDeps{
		Notifications: repo,
		Settings:      settings,
		Users:         staticUsers(userIDs),
		Anime: memAnime{
			1: {ID: 1, Title: "Frieren", CreatedByID: &creator},
			2: {ID: 2, Title: "Orphaned"},
		},
		Comments: memComments{
			10: {ID: 10, UserID: "user-commenter", AnimeID: 1, Content: "What a finale", User: models.User{Username: "mika"}},
			11: {ID: 11, UserID: creator, AnimeID: 1, Content: "thanks all"},
			12: {ID: 12, UserID: "user-commenter", AnimeID: 2, Content: "hello?"},
			13: {ID: 13, UserID: "user-commenter", AnimeID: 1, Content: strings.Repeat("あ", 150), User: models.User{Username: "mika"}},
		},
		Gamification: memGamification{
			badges: map[int64]*models.Badge{7: {ID: 7, Name: "Binge Watcher"}},
			tasks:  map[int64]*models.Task{3: {ID: 3, Title: "Rate 10 anime", Points: 50}},
		},
		Cache:         cache,
		Logger:        discardLogger(),
		FanoutWorkers: workers,
	})
	return &notificationFixture{svc: svc, repo: repo, settings: settings, cache: cache}
}

func userInput(userID, title string) NotificationInput {
	return NotificationInput{
		Type:    models.NotificationUser,
		Title:   title,
		Message: "message for " + userID,
		UserID:  userID,
	}
}

func TestSend_CreatesUnread(t *testing.T) {
	f := newNotificationFixture(t, 1, "alice")
	ctx := context.Background()

	n, err := f.svc.Send(ctx, NotificationInput{
		Type:    models.NotificationSystem,
		Title:   "Welcome",
		Message: "Glad you're here",
		UserID:  "alice",
		Data:    map[string]any{"version": 2},
	})

	require.NoError(t, err)
	assert.NotZero(t, n.ID)
	assert.False(t, n.IsRead)
	assert.False(t, n.CreatedAt.IsZero())
	assert.JSONEq(t, `{"version":2}`, string(n.Data))
	assert.Equal(t, []string{"alice"}, f.cache.invalidated)
}

func TestSend_Invalid(t *testing.T) {
	f := newNotificationFixture(t, 1, "alice")
	ctx := context.Background()

	cases := []NotificationInput{
		{Type: "PROMO", Title: "t", Message: "m", UserID: "alice"},
		{Type: models.NotificationUser, Title: " ", Message: "m", UserID: "alice"},
		{Type: models.NotificationUser, Title: "t", Message: "", UserID: "alice"},
		{Type: models.NotificationUser, Title: "t", Message: "m"},
	}
	for _, in := range cases {
		n, err := f.svc.Send(ctx, in)
		assert.ErrorIs(t, err, ErrInvalidNotification)
		assert.Nil(t, n)
	}
	assert.Zero(t, f.repo.count())
}

func TestSend_UnknownRecipient(t *testing.T) {
	f := newNotificationFixture(t, 1, "alice")

	n, err := f.svc.Send(context.Background(), userInput("ghost", "hi"))

	assert.Nil(t, n)
	assert.ErrorIs(t, err, ErrRecipientNotFound)
	var persistErr *PersistenceError
	require.ErrorAs(t, err, &persistErr)
	assert.Equal(t, "send notification", persistErr.Op)
	assert.Empty(t, f.cache.invalidated)
}

// MockNotificationRepository injects gateway failures.
type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	return m.Called(ctx, n).Error(0)
}

func (m *MockNotificationRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Notification, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Notification), args.Error(1)
}

func (m *MockNotificationRepository) MarkAsRead(ctx context.Context, id int64, userID string) (*models.Notification, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Notification), args.Error(1)
}

func (m *MockNotificationRepository) MarkAllAsRead(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationRepository) Delete(ctx context.Context, id int64, userID string) error {
	return m.Called(ctx, id, userID).Error(0)
}

func TestGatewayFailures_WrappedAsPersistenceError(t *testing.T) {
	repo := new(MockNotificationRepository)
	cache := newMemCache()
	svc := NewNotificationService(NotificationServiceDeps{
		Notifications: repo,
		Cache:         cache,
		Logger:        discardLogger(),
	})
	ctx := context.Background()
	p := Principal{UserID: "alice", Role: models.RoleUser}
	boom := errors.New("connection refused")

	repo.On("Create", mock.Anything, mock.Anything).Return(boom)
	repo.On("ListByUser", mock.Anything, "alice", 20, 0).Return(nil, boom)
	repo.On("MarkAsRead", mock.Anything, int64(1), "alice").Return(nil, boom)
	repo.On("MarkAllAsRead", mock.Anything, "alice").Return(int64(0), boom)
	repo.On("CountUnread", mock.Anything, "alice").Return(int64(0), boom)
	repo.On("Delete", mock.Anything, int64(1), "alice").Return(boom)

	_, err := svc.Send(ctx, userInput("alice", "hi"))
	assertPersistence(t, err, boom)
	_, err = svc.List(ctx, p, 0, 0)
	assertPersistence(t, err, boom)
	_, err = svc.MarkAsRead(ctx, p, 1)
	assertPersistence(t, err, boom)
	assertPersistence(t, svc.MarkAllAsRead(ctx, p), boom)
	_, err = svc.UnreadCount(ctx, p)
	assertPersistence(t, err, boom)
	assertPersistence(t, svc.Delete(ctx, p, 1), boom)

	// no successful write, nothing to invalidate
	assert.Empty(t, cache.invalidated)
	repo.AssertExpectations(t)
}

func assertPersistence(t *testing.T, err, cause error) {
	t.Helper()
	var persistErr *PersistenceError
	require.ErrorAs(t, err, &persistErr)
	assert.ErrorIs(t, err, cause)
	assert.NotEmpty(t, persistErr.Op)
}

func TestSendBulk_FailedEntriesAreNil(t *testing.T) {
	for _, workers := range []int{1, 4} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			f := newNotificationFixture(t, workers, "a", "c")

			results := f.svc.SendBulk(context.Background(), []NotificationInput{
				userInput("a", "one"),
				{Type: "BOGUS", Title: "two", Message: "m", UserID: "a"},
				userInput("c", "three"),
				{Type: models.NotificationUser, Message: "untitled", UserID: "c"},
			})

			require.Len(t, results, 4)
			require.NotNil(t, results[0])
			assert.Nil(t, results[1])
			require.NotNil(t, results[2])
			assert.Nil(t, results[3])
			assert.Equal(t, "a", results[0].UserID)
			assert.Equal(t, "c", results[2].UserID)
			assert.Equal(t, 2, f.repo.count())
		})
	}
}

func TestSendBulk_KeepsOrderUnderConcurrency(t *testing.T) {
	users := make([]string, 50)
	for i := range users {
		users[i] = fmt.Sprintf("user-%02d", i)
	}
	f := newNotificationFixture(t, 8, users...)

	inputs := make([]NotificationInput, 0, len(users)+1)
	for _, u := range users {
		inputs = append(inputs, userInput(u, "hello"))
	}
	inputs = append(inputs, userInput("ghost", "hello"))

	results := f.svc.SendBulk(context.Background(), inputs)

	require.Len(t, results, len(inputs))
	for i, u := range users {
		require.NotNil(t, results[i], "index %d", i)
		assert.Equal(t, u, results[i].UserID)
	}
	assert.Nil(t, results[len(users)])
}

func TestSendBulk_Empty(t *testing.T) {
	f := newNotificationFixture(t, 4)

	results := f.svc.SendBulk(context.Background(), nil)

	assert.Empty(t, results)
}

func TestSendSystem_EveryActiveUser(t *testing.T) {
	active := make([]string, 100)
	for i := range active {
		active[i] = fmt.Sprintf("active-%03d", i)
	}
	f := newNotificationFixture(t, 4, active...)

	results, err := f.svc.SendSystem(context.Background(), "Maintenance", "Down at 2am", nil)

	require.NoError(t, err)
	assert.Len(t, results, 100)
	assert.Equal(t, 100, f.repo.count())
	for _, n := range results {
		require.NotNil(t, n)
		assert.Equal(t, models.NotificationSystem, n.Type)
		assert.Nil(t, n.SenderID)
	}
}

func TestList_NewestFirstWithPaging(t *testing.T) {
	f := newNotificationFixture(t, 1, "alice", "bob")
	ctx := context.Background()
	alice := Principal{UserID: "alice"}

	for i := 1; i <= 5; i++ {
		_, err := f.svc.Send(ctx, userInput("alice", fmt.Sprintf("n%d", i)))
		require.NoError(t, err)
	}
	_, err := f.svc.Send(ctx, userInput("bob", "not yours"))
	require.NoError(t, err)

	page, err := f.svc.List(ctx, alice, 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "n5", page[0].Title)
	assert.Equal(t, "n4", page[1].Title)

	page, err = f.svc.List(ctx, alice, 2, 4)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "n1", page[0].Title)

	all, err := f.svc.List(ctx, alice, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	empty, err := f.svc.List(ctx, Principal{UserID: "nobody"}, 10, 0)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestMarkAsRead_IdempotentAndOwnerScoped(t *testing.T) {
	f := newNotificationFixture(t, 1, "alice", "bob")
	ctx := context.Background()
	alice := Principal{UserID: "alice"}

	n, err := f.svc.Send(ctx, userInput("alice", "hi"))
	require.NoError(t, err)

	_, err = f.svc.MarkAsRead(ctx, Principal{UserID: "bob"}, n.ID)
	assert.ErrorIs(t, err, ErrNotificationNotFound)

	count, err := f.svc.UnreadCount(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "bob must not change alice's notification")

	got, err := f.svc.MarkAsRead(ctx, alice, n.ID)
	require.NoError(t, err)
	assert.True(t, got.IsRead)

	got, err = f.svc.MarkAsRead(ctx, alice, n.ID)
	require.NoError(t, err)
	assert.True(t, got.IsRead)

	count, err = f.svc.UnreadCount(ctx, alice)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = f.svc.MarkAsRead(ctx, alice, 9999)
	assert.ErrorIs(t, err, ErrNotificationNotFound)
}

func TestMarkAllAsRead_ZeroesUnreadCount(t *testing.T) {
	f := newNotificationFixture(t, 1, "alice", "bob")
	ctx := context.Background()
	alice := Principal{UserID: "alice"}

	for i := 0; i < 3; i++ {
		_, err := f.svc.Send(ctx, userInput("alice", "hi"))
		require.NoError(t, err)
	}
	_, err := f.svc.Send(ctx, userInput("bob", "hi"))
	require.NoError(t, err)

	count, err := f.svc.UnreadCount(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	require.NoError(t, f.svc.MarkAllAsRead(ctx, alice))

	count, err = f.svc.UnreadCount(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	count, err = f.svc.UnreadCount(ctx, Principal{UserID: "bob"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestUnreadCount_ReadThroughCache(t *testing.T) {
	f := newNotificationFixture(t, 1, "alice")
	ctx := context.Background()
	alice := Principal{UserID: "alice"}

	_, err := f.svc.Send(ctx, userInput("alice", "one"))
	require.NoError(t, err)

	count, err := f.svc.UnreadCount(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	cached, ok := f.cache.cached("alice")
	assert.True(t, ok)
	assert.Equal(t, int64(1), cached)

	// a stale cached value is served until a write invalidates it
	f.cache.overwrite("alice", 42)
	count, err = f.svc.UnreadCount(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(42), count)

	_, err = f.svc.Send(ctx, userInput("alice", "two"))
	require.NoError(t, err)
	count, err = f.svc.UnreadCount(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestUnreadCount_CacheErrorFallsBack(t *testing.T) {
	f := newNotificationFixture(t, 1, "alice")
	ctx := context.Background()

	_, err := f.svc.Send(ctx, userInput("alice", "one"))
	require.NoError(t, err)
	f.cache.getErr = errors.New("redis: connection pool timeout")

	count, err := f.svc.UnreadCount(ctx, Principal{UserID: "alice"})

	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	f.cache.getErr = nil
	_, ok := f.cache.cached("alice")
	assert.False(t, ok)
}

func TestUnreadCount_FillRacingMarkAllAsRead(t *testing.T) {
	repo := &gatedCountRepo{
		memNotificationRepo: newMemNotificationRepo("alice"),
		counted:             make(chan struct{}),
		release:             make(chan struct{}),
	}
	cache := newMemCache()
	svc := NewNotificationService(NotificationServiceDeps{
		Notifications: repo,
		Cache:         cache,
		Logger:        discardLogger(),
	})
	ctx := context.Background()
	alice := Principal{UserID: "alice"}

	for i := 0; i < 3; i++ {
		_, err := svc.Send(ctx, userInput("alice", "hi"))
		require.NoError(t, err)
	}

	type result struct {
		count int64
		err   error
	}
	done := make(chan result, 1)
	go func() {
		count, err := svc.UnreadCount(ctx, alice)
		done <- result{count, err}
	}()

	<-repo.counted
	require.NoError(t, svc.MarkAllAsRead(ctx, alice))
	close(repo.release)

	stale := <-done
	require.NoError(t, stale.err)
	assert.Equal(t, int64(3), stale.count)

	count, err := svc.UnreadCount(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestUnreadCount_NoCache(t *testing.T) {
	repo := newMemNotificationRepo("alice")
	svc := NewNotificationService(NotificationServiceDeps{Notifications: repo, Logger: discardLogger()})
	ctx := context.Background()

	_, err := svc.Send(ctx, userInput("alice", "one"))
	require.NoError(t, err)

	count, err := svc.UnreadCount(ctx, Principal{UserID: "alice"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestWritesInvalidateCache(t *testing.T) {
	f := newNotificationFixture(t, 1, "alice")
	ctx := context.Background()
	alice := Principal{UserID: "alice"}

	n, err := f.svc.Send(ctx, userInput("alice", "one"))
	require.NoError(t, err)
	_, err = f.svc.MarkAsRead(ctx, alice, n.ID)
	require.NoError(t, err)
	require.NoError(t, f.svc.MarkAllAsRead(ctx, alice))
	require.NoError(t, f.svc.Delete(ctx, alice, n.ID))

	assert.Equal(t, []string{"alice", "alice", "alice", "alice"}, f.cache.invalidated)
}

func TestDelete_OwnerScoped(t *testing.T) {
	f := newNotificationFixture(t, 1, "alice", "bob")
	ctx := context.Background()

	n, err := f.svc.Send(ctx, userInput("alice", "hi"))
	require.NoError(t, err)

	err = f.svc.Delete(ctx, Principal{UserID: "bob"}, n.ID)
	assert.ErrorIs(t, err, ErrNotificationNotFound)
	assert.Equal(t, 1, f.repo.count())

	require.NoError(t, f.svc.Delete(ctx, Principal{UserID: "alice"}, n.ID))
	assert.Zero(t, f.repo.count())

	err = f.svc.Delete(ctx, Principal{UserID: "alice"}, n.ID)
	assert.ErrorIs(t, err, ErrNotificationNotFound)
}

func TestSendCommentNotification(t *testing.T) {
	f := newNotificationFixture(t, 1)
	ctx := context.Background()

	n, err := f.svc.SendCommentNotification(ctx, 10, 1, "user-commenter")

	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, models.NotificationComment, n.Type)
	assert.Equal(t, "user-owner", n.UserID)
	assert.Equal(t, "New comment on Frieren", n.Title)
	assert.Equal(t, "mika commented: What a finale", n.Message)
	require.NotNil(t, n.SenderID)
	assert.Equal(t, "user-commenter", *n.SenderID)
	require.NotNil(t, n.AnimeID)
	assert.Equal(t, int64(1), *n.AnimeID)
	require.NotNil(t, n.Link)
	assert.Equal(t, "/anime/1#comment-10", *n.Link)
	assert.JSONEq(t, `{"commentId":10,"animeId":1}`, string(n.Data))
}

func TestSendCommentNotification_Excerpt(t *testing.T) {
	f := newNotificationFixture(t, 1)

	n, err := f.svc.SendCommentNotification(context.Background(), 13, 1, "user-commenter")

	require.NoError(t, err)
	assert.Equal(t, "mika commented: "+strings.Repeat("あ", 100)+"...", n.Message)
}

func TestSendCommentNotification_EdgeCases(t *testing.T) {
	f := newNotificationFixture(t, 1)
	ctx := context.Background()

	// owner commenting on their own anime
	n, err := f.svc.SendCommentNotification(ctx, 11, 1, "user-owner")
	assert.NoError(t, err)
	assert.Nil(t, n)

	_, err = f.svc.SendCommentNotification(ctx, 12, 2, "user-commenter")
	assert.ErrorIs(t, err, ErrRecipientNotFound)

	_, err = f.svc.SendCommentNotification(ctx, 10, 99, "user-commenter")
	assert.ErrorIs(t, err, ErrEntityNotFound)

	_, err = f.svc.SendCommentNotification(ctx, 99, 1, "user-commenter")
	assert.ErrorIs(t, err, ErrEntityNotFound)

	assert.Zero(t, f.repo.count())
}

func TestSendBadgeNotification(t *testing.T) {
	f := newNotificationFixture(t, 1, "alice")
	ctx := context.Background()

	n, err := f.svc.SendBadgeNotification(ctx, "alice", 7)
	require.NoError(t, err)
	assert.Equal(t, models.NotificationBadge, n.Type)
	assert.Equal(t, "New badge earned!", n.Title)
	assert.Equal(t, `You earned the "Binge Watcher" badge.`, n.Message)
	assert.Equal(t, "/profile/badges", *n.Link)
	assert.JSONEq(t, `{"badgeId":7,"badgeName":"Binge Watcher"}`, string(n.Data))

	_, err = f.svc.SendBadgeNotification(ctx, "alice", 8)
	assert.ErrorIs(t, err, ErrEntityNotFound)
}

func TestSendTaskCompletionNotification(t *testing.T) {
	f := newNotificationFixture(t, 1, "alice")
	ctx := context.Background()

	n, err := f.svc.SendTaskCompletionNotification(ctx, "alice", 3)
	require.NoError(t, err)
	assert.Equal(t, models.NotificationTask, n.Type)
	assert.Equal(t, "Task completed!", n.Title)
	assert.Equal(t, `You completed "Rate 10 anime" and earned 50 points.`, n.Message)
	assert.JSONEq(t, `{"taskId":3,"points":50}`, string(n.Data))

	_, err = f.svc.SendTaskCompletionNotification(ctx, "alice", 4)
	assert.ErrorIs(t, err, ErrEntityNotFound)

	_, err = f.svc.SendTaskCompletionNotification(ctx, "ghost", 3)
	assert.ErrorIs(t, err, ErrRecipientNotFound)
}

func TestUpdateSettings_UpsertKeepsOneRowPerType(t *testing.T) {
	f := newNotificationFixture(t, 1, "alice")
	ctx := context.Background()
	alice := Principal{UserID: "alice"}

	_, err := f.svc.UpdateSettings(ctx, alice, []SettingInput{{Type: models.NotificationComment, Enabled: false}})
	require.NoError(t, err)
	settings, err := f.svc.UpdateSettings(ctx, alice, []SettingInput{
		{Type: models.NotificationComment, Enabled: true},
		{Type: models.NotificationBadge, Enabled: false},
	})
	require.NoError(t, err)

	require.Len(t, settings, 2)
	assert.Equal(t, models.NotificationBadge, settings[0].Type)
	assert.False(t, settings[0].Enabled)
	assert.Equal(t, models.NotificationComment, settings[1].Type)
	assert.True(t, settings[1].Enabled)
}

func TestUpdateSettings_RejectsUnknownType(t *testing.T) {
	f := newNotificationFixture(t, 1, "alice")
	ctx := context.Background()
	alice := Principal{UserID: "alice"}

	_, err := f.svc.UpdateSettings(ctx, alice, []SettingInput{
		{Type: models.NotificationComment, Enabled: false},
		{Type: "PROMO", Enabled: true},
	})
	assert.ErrorIs(t, err, ErrInvalidNotification)

	settings, err := f.svc.Settings(ctx, alice)
	require.NoError(t, err)
	assert.NotNil(t, settings)
	assert.Empty(t, settings)
}
