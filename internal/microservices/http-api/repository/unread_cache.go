package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// UnreadCache holds per-user unread counts in redis. A nil *UnreadCache, or one
// built without a client, turns every call into a no-op so the caller always
// falls back to the database.
type UnreadCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewUnreadCache dials redisURL (redis://host:port/db) and verifies the connection.
func NewUnreadCache(redisURL, password string, ttl time.Duration) (*UnreadCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if password != "" {
		opts.Password = password
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewUnreadCacheWithClient(rdb, ttl), nil
}

// NewUnreadCacheWithClient wraps an existing client.
func NewUnreadCacheWithClient(client *redis.Client, ttl time.Duration) *UnreadCache {
	return &UnreadCache{client: client, ttl: ttl}
}

// CachedCount is a cache lookup result. Generation must be handed back to Set
// so a fill computed before an invalidation never lands.
type CachedCount struct {
	Count      int64
	Generation int64
	Hit        bool
}

func unreadGenerationKey(userID string) string {
	return fmt.Sprintf("notifications:unread:gen:%s", userID)
}

func unreadKey(userID string, generation int64) string {
	return fmt.Sprintf("notifications:unread:%s:%d", userID, generation)
}

// generationTTL outlives every count written under a generation, so an
// expired generation never resurrects a stale count.
func generationTTL(ttl time.Duration) time.Duration {
	if ttl*2 > 24*time.Hour {
		return ttl * 2
	}
	return 24 * time.Hour
}

// Get returns the count cached under the user's current generation. Hit is
// false on a miss or when caching is disabled.
func (c *UnreadCache) Get(ctx context.Context, userID string) (CachedCount, error) {
	if c == nil || c.client == nil {
		return CachedCount{}, nil
	}
	gen, err := c.client.Get(ctx, unreadGenerationKey(userID)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return CachedCount{}, err
	}

	val, err := c.client.Get(ctx, unreadKey(userID, gen)).Result()
	if errors.Is(err, redis.Nil) {
		return CachedCount{Generation: gen}, nil
	}
	if err != nil {
		return CachedCount{}, err
	}
	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return CachedCount{}, fmt.Errorf("invalid unread count in redis for user %s: %w", userID, err)
	}
	return CachedCount{Count: count, Generation: gen, Hit: true}, nil
}

// Set stores count under generation. Once Invalidate has moved the user to a
// newer generation the write is unreachable and simply expires.
func (c *UnreadCache) Set(ctx context.Context, userID string, generation, count int64) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Set(ctx, unreadKey(userID, generation), count, c.ttl).Err()
}

// Invalidate bumps the user's generation; the next read recomputes the count.
func (c *UnreadCache) Invalidate(ctx context.Context, userID string) error {
	if c == nil || c.client == nil {
		return nil
	}
	key := unreadGenerationKey(userID)
	pipe := c.client.TxPipeline()
	pipe.Incr(ctx, key)
	if c.ttl > 0 {
		pipe.Expire(ctx, key, generationTTL(c.ttl))
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Ping reports redis health; a disabled cache is always healthy.
func (c *UnreadCache) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

func (c *UnreadCache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
