package repository

import (
	"context"
	"fmt"
	"time"

	"customer-auth/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const rateLimitKeyPrefix = "rate_limit:"

// RedisRateLimitRepository implements rate limiting using Redis counters
type RedisRateLimitRepository struct {
	client redis.Cmdable
	logger *logger.Logger
}

// NewRedisRateLimitRepository creates a new Redis rate limit repository
func NewRedisRateLimitRepository(client redis.Cmdable, log *logger.Logger) RateLimitRepository {
	return &RedisRateLimitRepository{
		client: client,
		logger: log.Named("rate_limit"),
	}
}

// Hit increments the counter of key. The first hit of a window sets its TTL;
// a counter found without TTL gets one so it cannot pin a key forever.
func (r *RedisRateLimitRepository) Hit(ctx context.Context, key string, window time.Duration) (*RateLimitInfo, error) {
	redisKey := rateLimitKeyPrefix + key

	// Use pipeline to increment and read TTL in one round trip
	pipe := r.client.TxPipeline()
	incrCmd := pipe.Incr(ctx, redisKey)
	ttlCmd := pipe.TTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}

	count := incrCmd.Val()
	ttl := ttlCmd.Val()

	// TTL reports -1 for a key without expiration
	if count == 1 || ttl < 0 {
		if err := r.client.Expire(ctx, redisKey, window).Err(); err != nil {
			return nil, fmt.Errorf("failed to set rate limit window: %w", err)
		}
		if count > 1 {
			r.logger.Warnw("Set missing TTL for rate limit key", "key", redisKey, "ttl_seconds", int(window.Seconds()))
		}
		ttl = window
	}

	r.logger.Debugw("Rate limit hit",
		"key", redisKey,
		"request_count", count,
		"ttl_seconds", int(ttl.Seconds()))

	return &RateLimitInfo{
		Key:          key,
		RequestCount: count,
		ResetIn:      ttl,
	}, nil
}
