// internal/pkg/ratelimit/limiter.go
package ratelimit

import (
	"context"
	"fmt"
	"time"

	ca "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// Limiter allows at most a fixed number of hits per key in each window.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RedisLimiter counts hits with INCR and lets the key expire after the
// window, so every replica shares the same budget.
type RedisLimiter struct {
	client      redis.Cmdable
	maxRequests int64
	window      time.Duration
}

func NewRedisLimiter(client redis.Cmdable, maxRequests int64, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, maxRequests: maxRequests, window: window}
}

func (r *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	key = "ratelimit:api:" + key

	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment API rate limit: %w", err)
	}

	// Set expiration on first hit
	if count == 1 {
		if err := r.client.Expire(ctx, key, r.window).Err(); err != nil {
			return false, fmt.Errorf("failed to set rate limit window: %w", err)
		}
	}

	return count <= r.maxRequests, nil
}

// MemoryLimiter is the single process variant of RedisLimiter.
type MemoryLimiter struct {
	counters    *ca.Cache
	maxRequests int64
	window      time.Duration
}

func NewMemoryLimiter(maxRequests int64, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		counters:    ca.New(window, 2*window),
		maxRequests: maxRequests,
		window:      window,
	}
}

func (m *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	if err := m.counters.Add(key, int64(1), m.window); err == nil {
		return m.maxRequests >= 1, nil
	}

	count, err := m.counters.IncrementInt64(key, 1)
	if err != nil {
		// expired between Add and Increment
		m.counters.Set(key, int64(1), m.window)
		return m.maxRequests >= 1, nil
	}
	return count <= m.maxRequests, nil
}
