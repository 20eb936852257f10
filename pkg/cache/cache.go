// Package cache provides a thin JSON cache over Redis with typed key builders.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache wraps a Redis client with JSON serialization
type Cache struct {
	client *redis.Client
	logger *slog.Logger
}

// New connects to Redis and verifies connectivity
func New(addr, password string, db int, logger *slog.Logger) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &Cache{client: client, logger: logger}, nil
}

// Get unmarshals the cached JSON payload into dest. Returns false on a miss.
func (c *Cache) Get(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read cache key %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("failed to decode cache key %s: %w", key, err)
	}
	return true, nil
}

// Set stores value as JSON. A zero TTL means no expiry.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache key %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache key %s: %w", key, err)
	}
	return nil
}

// DeletePatterns removes every key matching each glob pattern via SCAN
func (c *Cache) DeletePatterns(ctx context.Context, patterns ...string) {
	for _, pattern := range patterns {
		var cursor uint64
		for {
			keys, next, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
			if err != nil {
				c.logger.Warn("cache invalidation scan failed",
					slog.String("pattern", pattern),
					slog.Any("error", err),
				)
				break
			}
			if len(keys) > 0 {
				if err := c.client.Del(ctx, keys...).Err(); err != nil {
					c.logger.Warn("cache invalidation delete failed",
						slog.String("pattern", pattern),
						slog.Any("error", err),
					)
				}
			}
			cursor = next
			if cursor == 0 {
				break
			}
		}
	}
}

// Close releases the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

// Key builders. Keys are shared across domains so they live in one place.

func MonthlySummaryKey(userID int64, ym string) string {
	return fmt.Sprintf("user:%d:monthly_summary:%s", userID, ym)
}

func CategoriesKey(userID int64) string {
	return fmt.Sprintf("user:%d:categories", userID)
}

func UpcomingBillsKey(userID int64) string {
	return fmt.Sprintf("user:%d:upcoming_bills", userID)
}

func InsightsKey(userID int64, ym string) string {
	return fmt.Sprintf("insights:%d:%s", userID, ym)
}

func DashboardSummaryKey(userID int64, ym string) string {
	return fmt.Sprintf("user:%d:dashboard_summary:%s", userID, ym)
}

func InsightsPattern(userID int64) string {
	return fmt.Sprintf("insights:%d:*", userID)
}

func DashboardSummaryPattern(userID int64) string {
	return fmt.Sprintf("user:%d:dashboard_summary:*", userID)
}

func UpcomingBillsPattern(userID int64) string {
	return fmt.Sprintf("user:%d:upcoming_bills*", userID)
}
