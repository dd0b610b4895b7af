package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"animehub/internal/metrics"
	"animehub/internal/microservices/http-api/models"
	"animehub/internal/microservices/http-api/repository"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultNotificationLimit = 20
	commentExcerptLength     = 100
)

// NotificationInput describes one notification to create.
type NotificationInput struct {
	Type     models.NotificationType
	Title    string
	Message  string
	UserID   string
	SenderID *string
	AnimeID  *int64
	Link     *string
	Data     map[string]any
}

func (in NotificationInput) validate() error {
	if !in.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidNotification, in.Type)
	}
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Message) == "" {
		return fmt.Errorf("%w: title and message are required", ErrInvalidNotification)
	}
	if in.UserID == "" {
		return fmt.Errorf("%w: recipient is required", ErrInvalidNotification)
	}
	return nil
}

// SettingInput toggles one notification type for the caller.
type SettingInput struct {
	Type    models.NotificationType
	Enabled bool
}

type NotificationService interface {
	Send(ctx context.Context, input NotificationInput) (*models.Notification, error)
	SendBulk(ctx context.Context, inputs []NotificationInput) []*models.Notification
	SendSystem(ctx context.Context, title, message string, data map[string]any) ([]*models.Notification, error)

	List(ctx context.Context, p Principal, limit, offset int) ([]models.Notification, error)
	MarkAsRead(ctx context.Context, p Principal, notificationID int64) (*models.Notification, error)
	MarkAllAsRead(ctx context.Context, p Principal) error
	UnreadCount(ctx context.Context, p Principal) (int64, error)
	Delete(ctx context.Context, p Principal, notificationID int64) error

	SendCommentNotification(ctx context.Context, commentID, animeID int64, commenterID string) (*models.Notification, error)
	SendBadgeNotification(ctx context.Context, userID string, badgeID int64) (*models.Notification, error)
	SendTaskCompletionNotification(ctx context.Context, userID string, taskID int64) (*models.Notification, error)

	Settings(ctx context.Context, p Principal) ([]models.NotificationSetting, error)
	UpdateSettings(ctx context.Context, p Principal, settings []SettingInput) ([]models.NotificationSetting, error)
}

// ActiveUserLister supplies the recipients of a system broadcast.
type ActiveUserLister interface {
	ListActiveIDs(ctx context.Context) ([]string, error)
}

type AnimeLookup interface {
	GetByID(ctx context.Context, id int64) (*models.Anime, error)
}

type CommentLookup interface {
	GetByID(ctx context.Context, commentID int64) (*models.Comment, error)
}

// UnreadCounter caches unread counts. Implementations must tolerate being
// disabled, and Set must not publish a count once Invalidate has moved past
// the generation it was read under.
type UnreadCounter interface {
	Get(ctx context.Context, userID string) (repository.CachedCount, error)
	Set(ctx context.Context, userID string, generation, count int64) error
	Invalidate(ctx context.Context, userID string) error
}

// NotificationServiceDeps groups the collaborators of the notification service.
type NotificationServiceDeps struct {
	Notifications repository.NotificationRepository
	Settings      repository.NotificationSettingRepository
	Users         ActiveUserLister
	Anime         AnimeLookup
	Comments      CommentLookup
	Gamification  repository.GamificationRepository
	Cache         UnreadCounter
	Logger        *slog.Logger
	// FanoutWorkers bounds concurrent inserts in SendBulk; 1 keeps it sequential.
	FanoutWorkers int
}

type notificationService struct {
	notifications repository.NotificationRepository
	settings      repository.NotificationSettingRepository
	users         ActiveUserLister
	anime         AnimeLookup
	comments      CommentLookup
	gamification  repository.GamificationRepository
	cache         UnreadCounter
	logger        *slog.Logger
	workers       int
}

func NewNotificationService(deps NotificationServiceDeps) NotificationService {
	cache := deps.Cache
	if cache == nil {
		cache = (*repository.UnreadCache)(nil)
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	workers := deps.FanoutWorkers
	if workers < 1 {
		workers = 1
	}
	return &notificationService{
		notifications: deps.Notifications,
		settings:      deps.Settings,
		users:         deps.Users,
		anime:         deps.Anime,
		comments:      deps.Comments,
		gamification:  deps.Gamification,
		cache:         cache,
		logger:        logger.With("component", "notification_service"),
		workers:       workers,
	}
}

// Send inserts one unread notification.
func (s *notificationService) Send(ctx context.Context, input NotificationInput) (*models.Notification, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	notification := &models.Notification{
		Type:     input.Type,
		Title:    input.Title,
		Message:  input.Message,
		UserID:   input.UserID,
		SenderID: input.SenderID,
		AnimeID:  input.AnimeID,
		Link:     input.Link,
		IsRead:   false,
	}
	if input.Data != nil {
		raw, err := json.Marshal(input.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: data: %v", ErrInvalidNotification, err)
		}
		notification.Data = datatypes.JSON(raw)
	}

	err := s.notifications.Create(ctx, notification)
	metrics.RecordNotification(string(input.Type), err)
	if err != nil {
		s.logger.Error("notification_create_failed",
			"user_id", input.UserID,
			"title", input.Title,
			"error", err,
		)
		if errors.Is(err, repository.ErrForeignKeyViolation) {
			err = errors.Join(ErrRecipientNotFound, err)
		}
		return nil, persistenceError("send notification", err)
	}

	s.invalidateUnread(ctx, input.UserID)
	s.logger.Debug("notification_created",
		"notification_id", notification.ID,
		"user_id", notification.UserID,
		"type", notification.Type,
	)
	return notification, nil
}

// SendBulk creates every input independently. A failed item leaves a nil at its
// index and never stops the rest of the batch; results keep input order.
func (s *notificationService) SendBulk(ctx context.Context, inputs []NotificationInput) []*models.Notification {
	results := make([]*models.Notification, len(inputs))
	metrics.RecordFanout(len(inputs))

	if s.workers <= 1 || len(inputs) <= 1 {
		for i, input := range inputs {
			notification, err := s.Send(ctx, input)
			if err != nil {
				s.logger.Warn("bulk_notification_skipped", "index", i, "user_id", input.UserID, "error", err)
				continue
			}
			results[i] = notification
		}
		return results
	}

	pool := newFanoutPool(ctx, min(s.workers, len(inputs)), s.logger)
	pool.Start()
	for i := range inputs {
		idx := i
		accepted := pool.Submit(func(ctx context.Context) error {
			notification, err := s.Send(ctx, inputs[idx])
			if err != nil {
				return fmt.Errorf("bulk index %d user %s: %w", idx, inputs[idx].UserID, err)
			}
			// each task owns exactly one slot
			results[idx] = notification
			return nil
		})
		if !accepted {
			s.logger.Warn("bulk_notification_dropped", "index", idx, "user_id", inputs[idx].UserID)
		}
	}
	pool.Wait()

	return results
}

// SendSystem broadcasts a SYSTEM notification to every ACTIVE user.
func (s *notificationService) SendSystem(ctx context.Context, title, message string, data map[string]any) ([]*models.Notification, error) {
	userIDs, err := s.users.ListActiveIDs(ctx)
	if err != nil {
		s.logger.Error("system_notification_recipients_failed", "title", title, "error", err)
		return nil, persistenceError("list active users", err)
	}

	inputs := make([]NotificationInput, 0, len(userIDs))
	for _, userID := range userIDs {
		inputs = append(inputs, NotificationInput{
			Type:    models.NotificationSystem,
			Title:   title,
			Message: message,
			UserID:  userID,
			Data:    data,
		})
	}

	results := s.SendBulk(ctx, inputs)

	delivered := 0
	for _, n := range results {
		if n != nil {
			delivered++
		}
	}
	s.logger.Info("system_notification_sent",
		"title", title,
		"recipients", len(inputs),
		"delivered", delivered,
	)
	return results, nil
}

// List returns the caller's notifications newest first.
func (s *notificationService) List(ctx context.Context, p Principal, limit, offset int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = defaultNotificationLimit
	}
	if offset < 0 {
		offset = 0
	}

	notifications, err := s.notifications.ListByUser(ctx, p.UserID, limit, offset)
	if err != nil {
		s.logger.Error("notification_list_failed", "user_id", p.UserID, "error", err)
		return nil, persistenceError("list notifications", err)
	}
	if notifications == nil {
		notifications = []models.Notification{}
	}
	return notifications, nil
}

// MarkAsRead is owner scoped: another user's notification reads as not found.
func (s *notificationService) MarkAsRead(ctx context.Context, p Principal, notificationID int64) (*models.Notification, error) {
	notification, err := s.notifications.MarkAsRead(ctx, notificationID, p.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotificationNotFound
		}
		s.logger.Error("notification_mark_read_failed",
			"user_id", p.UserID,
			"notification_id", notificationID,
			"error", err,
		)
		return nil, persistenceError("mark notification read", err)
	}

	s.invalidateUnread(ctx, p.UserID)
	return notification, nil
}

func (s *notificationService) MarkAllAsRead(ctx context.Context, p Principal) error {
	updated, err := s.notifications.MarkAllAsRead(ctx, p.UserID)
	if err != nil {
		s.logger.Error("notification_mark_all_read_failed", "user_id", p.UserID, "error", err)
		return persistenceError("mark all notifications read", err)
	}

	s.invalidateUnread(ctx, p.UserID)
	s.logger.Info("notifications_marked_read", "user_id", p.UserID, "updated", updated)
	return nil
}

// UnreadCount reads through the cache; cache failures fall back to the database.
func (s *notificationService) UnreadCount(ctx context.Context, p Principal) (int64, error) {
	cached, cacheErr := s.cache.Get(ctx, p.UserID)
	switch {
	case cacheErr != nil:
		metrics.RecordCacheLookup("error")
		s.logger.Warn("unread_cache_get_failed", "user_id", p.UserID, "error", cacheErr)
	case cached.Hit:
		metrics.RecordCacheLookup("hit")
		return cached.Count, nil
	default:
		metrics.RecordCacheLookup("miss")
	}

	count, err := s.notifications.CountUnread(ctx, p.UserID)
	if err != nil {
		s.logger.Error("notification_count_failed", "user_id", p.UserID, "error", err)
		return 0, persistenceError("count unread notifications", err)
	}

	// without a generation there is no safe slot to fill
	if cacheErr != nil {
		return count, nil
	}
	if err := s.cache.Set(ctx, p.UserID, cached.Generation, count); err != nil {
		s.logger.Warn("unread_cache_set_failed", "user_id", p.UserID, "error", err)
	}
	return count, nil
}

func (s *notificationService) Delete(ctx context.Context, p Principal, notificationID int64) error {
	if err := s.notifications.Delete(ctx, notificationID, p.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotificationNotFound
		}
		s.logger.Error("notification_delete_failed",
			"user_id", p.UserID,
			"notification_id", notificationID,
			"error", err,
		)
		return persistenceError("delete notification", err)
	}

	s.invalidateUnread(ctx, p.UserID)
	return nil
}

// SendCommentNotification tells the anime's creator about a new comment.
// The recipient is anime.CreatedByID; anime without a creator cannot be notified.
// Commenting on your own anime produces no notification and returns nil, nil.
func (s *notificationService) SendCommentNotification(ctx context.Context, commentID, animeID int64, commenterID string) (*models.Notification, error) {
	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return nil, s.lookupError("comment", commentID, err)
	}
	anime, err := s.anime.GetByID(ctx, animeID)
	if err != nil {
		return nil, s.lookupError("anime", animeID, err)
	}
	if anime.CreatedByID == nil || *anime.CreatedByID == "" {
		return nil, fmt.Errorf("%w: anime %d has no owner", ErrRecipientNotFound, animeID)
	}
	if *anime.CreatedByID == commenterID {
		return nil, nil
	}

	commenter := comment.User.Username
	if commenter == "" {
		commenter = "Someone"
	}
	link := fmt.Sprintf("/anime/%d#comment-%d", animeID, commentID)

	return s.Send(ctx, NotificationInput{
		Type:     models.NotificationComment,
		Title:    fmt.Sprintf("New comment on %s", anime.Title),
		Message:  fmt.Sprintf("%s commented: %s", commenter, excerpt(comment.Content, commentExcerptLength)),
		UserID:   *anime.CreatedByID,
		SenderID: &commenterID,
		AnimeID:  &animeID,
		Link:     &link,
		Data: map[string]any{
			"commentId": commentID,
			"animeId":   animeID,
		},
	})
}

func (s *notificationService) SendBadgeNotification(ctx context.Context, userID string, badgeID int64) (*models.Notification, error) {
	badge, err := s.gamification.GetBadgeByID(ctx, badgeID)
	if err != nil {
		return nil, s.lookupError("badge", badgeID, err)
	}

	link := "/profile/badges"
	return s.Send(ctx, NotificationInput{
		Type:    models.NotificationBadge,
		Title:   "New badge earned!",
		Message: fmt.Sprintf("You earned the %q badge.", badge.Name),
		UserID:  userID,
		Link:    &link,
		Data: map[string]any{
			"badgeId":   badge.ID,
			"badgeName": badge.Name,
		},
	})
}

func (s *notificationService) SendTaskCompletionNotification(ctx context.Context, userID string, taskID int64) (*models.Notification, error) {
	task, err := s.gamification.GetTaskByID(ctx, taskID)
	if err != nil {
		return nil, s.lookupError("task", taskID, err)
	}

	link := "/profile/tasks"
	return s.Send(ctx, NotificationInput{
		Type:    models.NotificationTask,
		Title:   "Task completed!",
		Message: fmt.Sprintf("You completed %q and earned %d points.", task.Title, task.Points),
		UserID:  userID,
		Link:    &link,
		Data: map[string]any{
			"taskId": task.ID,
			"points": task.Points,
		},
	})
}

func (s *notificationService) Settings(ctx context.Context, p Principal) ([]models.NotificationSetting, error) {
	settings, err := s.settings.ListByUser(ctx, p.UserID)
	if err != nil {
		s.logger.Error("notification_settings_list_failed", "user_id", p.UserID, "error", err)
		return nil, persistenceError("list notification settings", err)
	}
	if settings == nil {
		settings = []models.NotificationSetting{}
	}
	return settings, nil
}

// UpdateSettings upserts each entry in order. Entries written before a failure
// stay written; there is no transaction across entries.
func (s *notificationService) UpdateSettings(ctx context.Context, p Principal, settings []SettingInput) ([]models.NotificationSetting, error) {
	for _, setting := range settings {
		if !setting.Type.Valid() {
			return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidNotification, setting.Type)
		}
	}

	for _, setting := range settings {
		row := &models.NotificationSetting{
			UserID:  p.UserID,
			Type:    setting.Type,
			Enabled: setting.Enabled,
		}
		if err := s.settings.Upsert(ctx, row); err != nil {
			s.logger.Error("notification_setting_upsert_failed",
				"user_id", p.UserID,
				"type", setting.Type,
				"error", err,
			)
			return nil, persistenceError("update notification settings", err)
		}
	}

	return s.Settings(ctx, p)
}

func (s *notificationService) lookupError(entity string, id int64, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s %d", ErrEntityNotFound, entity, id)
	}
	s.logger.Error("notification_lookup_failed", "entity", entity, "id", id, "error", err)
	return persistenceError("load "+entity, err)
}

func (s *notificationService) invalidateUnread(ctx context.Context, userID string) {
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.logger.Warn("unread_cache_invalidate_failed", "user_id", userID, "error", err)
	}
}

func excerpt(text string, max int) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return string(runes[:max]) + "..."
}
