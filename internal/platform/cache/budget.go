package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisBudget tracks AI token usage per user in Redis so limits hold across
// server instances. Every user shares the same limit.
type RedisBudget struct {
	client *redis.Client
	limit  int64
}

// NewRedisBudget creates a budget tracker. A limit of 0 means unlimited.
func NewRedisBudget(c *Cache, limit int64) *RedisBudget {
	return &RedisBudget{client: c.Client, limit: limit}
}

func usageKey(userID string) string {
	return Key("budget", userID)
}

// Check returns true if the user has budget remaining.
func (b *RedisBudget) Check(ctx context.Context, userID string) (bool, error) {
	if b.limit <= 0 {
		return true, nil
	}
	used, err := b.used(ctx, userID)
	if err != nil {
		return false, err
	}
	return used < b.limit, nil
}

// Record adds tokens to the user's usage.
func (b *RedisBudget) Record(ctx context.Context, userID string, tokens int) error {
	if tokens < 0 {
		return fmt.Errorf("tokens must be non-negative, got %d", tokens)
	}
	if err := b.client.IncrBy(ctx, usageKey(userID), int64(tokens)).Err(); err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	return nil
}

// Usage returns the tokens used and the configured limit.
func (b *RedisBudget) Usage(ctx context.Context, userID string) (int64, int64, error) {
	used, err := b.used(ctx, userID)
	if err != nil {
		return 0, 0, err
	}
	return used, b.limit, nil
}

func (b *RedisBudget) used(ctx context.Context, userID string) (int64, error) {
	used, err := b.client.Get(ctx, usageKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read usage: %w", err)
	}
	return used, nil
}
