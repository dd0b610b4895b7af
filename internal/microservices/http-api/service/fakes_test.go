package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"animehub/internal/microservices/http-api/models"
	"animehub/internal/microservices/http-api/repository"

	"gorm.io/gorm"
)

// memNotificationRepo honors owner scoping and rejects unknown recipients the
// way the foreign key does in postgres.
type memNotificationRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*models.Notification
	users  map[string]bool
	clock  time.Time
}

func newMemNotificationRepo(userIDs ...string) *memNotificationRepo {
	users := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		users[id] = true
	}
	return &memNotificationRepo{
		rows:  make(map[int64]*models.Notification),
		users: users,
		clock: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (r *memNotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.users[n.UserID] {
		return fmt.Errorf("insert notification: %w", repository.ErrForeignKeyViolation)
	}
	r.nextID++
	r.clock = r.clock.Add(time.Second)
	n.ID = r.nextID
	n.CreatedAt = r.clock
	cp := *n
	r.rows[n.ID] = &cp
	return nil
}

func (r *memNotificationRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.Notification
	for _, n := range r.rows {
		if n.UserID == userID {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memNotificationRepo) MarkAsRead(ctx context.Context, id int64, userID string) (*models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.rows[id]
	if !ok || n.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	n.IsRead = true
	cp := *n
	return &cp, nil
}

func (r *memNotificationRepo) MarkAllAsRead(ctx context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var updated int64
	for _, n := range r.rows {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			updated++
		}
	}
	return updated, nil
}

func (r *memNotificationRepo) CountUnread(ctx context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var count int64
	for _, n := range r.rows {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (r *memNotificationRepo) Delete(ctx context.Context, id int64, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.rows[id]
	if !ok || n.UserID != userID {
		return gorm.ErrRecordNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *memNotificationRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

type settingKey struct {
	userID string
	typ    models.NotificationType
}

type memSettingRepo struct {
	mu   sync.Mutex
	rows map[settingKey]models.NotificationSetting
}

func newMemSettingRepo() *memSettingRepo {
	return &memSettingRepo{rows: make(map[settingKey]models.NotificationSetting)}
}

func (r *memSettingRepo) ListByUser(ctx context.Context, userID string) ([]models.NotificationSetting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.NotificationSetting
	for k, s := range r.rows {
		if k.userID == userID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out, nil
}

func (r *memSettingRepo) Upsert(ctx context.Context, s *models.NotificationSetting) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rows[settingKey{s.UserID, s.Type}] = *s
	return nil
}

type staticUsers []string

func (u staticUsers) ListActiveIDs(ctx context.Context) ([]string, error) {
	return u, nil
}

type memAnime map[int64]*models.Anime

func (m memAnime) GetByID(ctx context.Context, id int64) (*models.Anime, error) {
	if a, ok := m[id]; ok {
		return a, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type memComments map[int64]*models.Comment

func (m memComments) GetByID(ctx context.Context, id int64) (*models.Comment, error) {
	if c, ok := m[id]; ok {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type memGamification struct {
	badges map[int64]*models.Badge
	tasks  map[int64]*models.Task
}

func (m memGamification) GetBadgeByID(ctx context.Context, id int64) (*models.Badge, error) {
	if b, ok := m.badges[id]; ok {
		return b, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m memGamification) GetTaskByID(ctx context.Context, id int64) (*models.Task, error) {
	if t, ok := m.tasks[id]; ok {
		return t, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type cacheEntry struct {
	generation int64
	count      int64
}

// memCache mirrors the generation scheme of the redis cache and records every
// invalidation.
type memCache struct {
	mu          sync.Mutex
	generations map[string]int64
	entries     map[string]cacheEntry
	invalidated []string
	getErr      error
}

func newMemCache() *memCache {
	return &memCache{
		generations: make(map[string]int64),
		entries:     make(map[string]cacheEntry),
	}
}

func (c *memCache) Get(ctx context.Context, userID string) (repository.CachedCount, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return repository.CachedCount{}, c.getErr
	}
	gen := c.generations[userID]
	e, ok := c.entries[userID]
	if !ok || e.generation != gen {
		return repository.CachedCount{Generation: gen}, nil
	}
	return repository.CachedCount{Count: e.count, Generation: gen, Hit: true}, nil
}

func (c *memCache) Set(ctx context.Context, userID string, generation, count int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[userID] = cacheEntry{generation: generation, count: count}
	return nil
}

func (c *memCache) Invalidate(ctx context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generations[userID]++
	c.invalidated = append(c.invalidated, userID)
	return nil
}

// cached returns the count a Get would serve.
func (c *memCache) cached(userID string) (int64, bool) {
	got, _ := c.Get(context.Background(), userID)
	return got.Count, got.Hit
}

// overwrite replaces the count under the current generation.
func (c *memCache) overwrite(userID string, count int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[userID] = cacheEntry{generation: c.generations[userID], count: count}
}

// gatedCountRepo parks CountUnread after it has read the database until
// release is closed.
type gatedCountRepo struct {
	*memNotificationRepo
	counted chan struct{}
	release chan struct{}
	once    sync.Once
}

func (r *gatedCountRepo) CountUnread(ctx context.Context, userID string) (int64, error) {
	count, err := r.memNotificationRepo.CountUnread(ctx, userID)
	gated := false
	r.once.Do(func() { gated = true })
	if gated {
		close(r.counted)
		<-r.release
	}
	return count, err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
