// internal/service/featureflag/redis_gate.go
package featureflag

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	ca "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	flagsKey       = "feature_flags"
	defaultTimeout = 2 * time.Second
	// how long a default served during a Redis failure is reused
	fallbackTTL = 5 * time.Second
)

// RedisGate reads flags from the feature_flags hash. Lookups are cached
// locally for ttl. Missing fields and Redis failures fall back to the
// static defaults.
type RedisGate struct {
	client      redis.Cmdable
	defaults    *StaticGate
	cache       *ca.Cache
	fallbackTTL time.Duration
	logger      *zap.Logger
}

func NewRedisGate(client redis.Cmdable, defaults *StaticGate, ttl time.Duration, logger *zap.Logger) *RedisGate {
	if defaults == nil {
		defaults = NewStaticGate()
	}
	fallback := fallbackTTL
	if ttl > 0 && ttl < fallback {
		fallback = ttl
	}
	return &RedisGate{
		client:      client,
		defaults:    defaults,
		cache:       ca.New(ttl, 2*ttl),
		fallbackTTL: fallback,
		logger:      logger,
	}
}

func (g *RedisGate) IsEnabled(feature string) bool {
	if v, ok := g.cache.Get(feature); ok {
		return v.(bool)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	raw, err := g.client.HGet(ctx, flagsKey, feature).Result()
	if errors.Is(err, redis.Nil) {
		enabled := g.defaults.IsEnabled(feature)
		g.cache.SetDefault(feature, enabled)
		return enabled
	}
	if err != nil {
		// kept briefly so an outage does not cost every caller a round trip
		enabled := g.defaults.IsEnabled(feature)
		g.logger.Warn("feature flag lookup failed, using default",
			zap.String("feature", feature),
			zap.Bool("enabled", enabled),
			zap.Error(err),
		)
		g.cache.Set(feature, enabled, g.fallbackTTL)
		return enabled
	}

	enabled, err := strconv.ParseBool(raw)
	if err != nil {
		g.logger.Warn("malformed feature flag value",
			zap.String("feature", feature),
			zap.String("value", raw),
		)
		enabled = g.defaults.IsEnabled(feature)
	}
	g.cache.SetDefault(feature, enabled)
	return enabled
}

func (g *RedisGate) SetEnabled(ctx context.Context, feature string, enabled bool) error {
	if err := g.client.HSet(ctx, flagsKey, feature, strconv.FormatBool(enabled)).Err(); err != nil {
		return fmt.Errorf("failed to store feature flag: %w", err)
	}
	g.cache.SetDefault(feature, enabled)
	return nil
}
