package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/storehaus/review-engine/internal/domain"
)

// RedisCache implements caching for review lists and unread notification counts
type RedisCache struct {
	client         *redis.Client
	reviewsListTTL time.Duration
	unreadCountTTL time.Duration
}

// NewRedisCache creates a new Redis cache instance
func NewRedisCache(client *redis.Client, reviewsListTTL, unreadCountTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:         client,
		reviewsListTTL: reviewsListTTL,
		unreadCountTTL: unreadCountTTL,
	}
}

// Reviews list cache keys and methods

func (c *RedisCache) reviewsListKey(productID uuid.UUID, limit, offset int) string {
	return fmt.Sprintf("product:%s:reviews:limit:%d:offset:%d", productID.String(), limit, offset)
}

func (c *RedisCache) productCacheKeysSet(productID uuid.UUID) string {
	return fmt.Sprintf("product:%s:cache_keys", productID.String())
}

// GetReviewsList retrieves a cached reviews page for a product
func (c *RedisCache) GetReviewsList(ctx context.Context, productID uuid.UUID, limit, offset int) ([]*domain.Review, error) {
	key := c.reviewsListKey(productID, limit, offset)
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	var reviews []*domain.Review
	if err := json.Unmarshal([]byte(val), &reviews); err != nil {
		return nil, err
	}

	return reviews, nil
}

// SetReviewsList stores a reviews page in cache and tracks the key in a SET
func (c *RedisCache) SetReviewsList(ctx context.Context, productID uuid.UUID, limit, offset int, reviews []*domain.Review) error {
	key := c.reviewsListKey(productID, limit, offset)
	trackingKey := c.productCacheKeysSet(productID)

	data, err := json.Marshal(reviews)
	if err != nil {
		return err
	}

	pipe := c.client.Pipeline()
	pipe.Set(ctx, key, data, c.reviewsListTTL)
	pipe.SAdd(ctx, trackingKey, key)
	pipe.Expire(ctx, trackingKey, c.reviewsListTTL)
	_, err = pipe.Exec(ctx)
	return err
}

// InvalidateProductReviews removes all cached review pages for a product
// using SET-based key tracking
func (c *RedisCache) InvalidateProductReviews(ctx context.Context, productID uuid.UUID) error {
	trackingKey := c.productCacheKeysSet(productID)

	keys, err := c.client.SMembers(ctx, trackingKey).Result()
	if err != nil && err != redis.Nil {
		return err
	}

	if len(keys) > 0 {
		keys = append(keys, trackingKey)
		return c.client.Unlink(ctx, keys...).Err()
	}

	return nil
}

// Unread notification count cache keys and methods

func (c *RedisCache) unreadCountKey(userID uuid.UUID) string {
	return fmt.Sprintf("user:%s:unread_count", userID.String())
}

// GetUnreadCount retrieves a cached unread notification count
func (c *RedisCache) GetUnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	key := c.unreadCountKey(userID)
	val, err := c.client.Get(ctx, key).Int()
	if err != nil {
		if err == redis.Nil {
			return 0, domain.ErrNotFound
		}
		return 0, err
	}
	return val, nil
}

// SetUnreadCount stores an unread notification count in cache
func (c *RedisCache) SetUnreadCount(ctx context.Context, userID uuid.UUID, count int) error {
	key := c.unreadCountKey(userID)
	return c.client.Set(ctx, key, count, c.unreadCountTTL).Err()
}

// InvalidateUnreadCount removes a user's unread count from cache
func (c *RedisCache) InvalidateUnreadCount(ctx context.Context, userID uuid.UUID) error {
	key := c.unreadCountKey(userID)
	return c.client.Del(ctx, key).Err()
}

// InvalidateUnreadCounts removes unread counts for many users at once,
// used after a broadcast wave
func (c *RedisCache) InvalidateUnreadCounts(ctx context.Context, userIDs []uuid.UUID) error {
	if len(userIDs) == 0 {
		return nil
	}

	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, c.unreadCountKey(id))
	}
	return c.client.Unlink(ctx, keys...).Err()
}
