// Package redislimiter implements the broadcast-surface rate limiter on
// Redis ZSET sliding windows, for deployments where several relay
// processes share one limit.
package redislimiter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sofolpay/realtime/ratelimit"
)

const keyPrefix = "realtime:rl:"

// Limiter is a Redis-backed sliding window limiter.
type Limiter struct {
	rdb    *redis.Client
	limits map[string]ratelimit.Limit
}

// New constructs a limiter over the given client and per-bucket limits.
func New(rdb *redis.Client, limits map[string]ratelimit.Limit) *Limiter {
	if limits == nil {
		limits = ratelimit.DefaultLimits()
	}
	return &Limiter{rdb: rdb, limits: limits}
}

func (l *Limiter) get(bucket string) ratelimit.Limit {
	if v, ok := l.limits[bucket]; ok {
		return v
	}
	if v, ok := l.limits["default"]; ok {
		return v
	}
	return ratelimit.Limit{Limit: 100, Window: time.Minute}
}

// Allow records one attempt in the bucket's window and reports whether it
// fits. A nil limiter allows everything.
func (l *Limiter) Allow(ctx context.Context, bucket, key string) (bool, error) {
	if l == nil || l.rdb == nil {
		return true, nil
	}
	if bucket == "" || key == "" {
		return false, fmt.Errorf("bucket and key required")
	}

	lim := l.get(bucket)
	now := time.Now().UnixMilli()
	windowStart := now - lim.Window.Milliseconds()
	limitKey := fmt.Sprintf("%s%s:%s", keyPrefix, bucket, key)

	pipe := l.rdb.TxPipeline()
	pipe.ZAdd(ctx, limitKey, redis.Z{Score: float64(now), Member: now})
	pipe.ZRemRangeByScore(ctx, limitKey, "0", fmt.Sprintf("%d", windowStart))
	countCmd := pipe.ZCard(ctx, limitKey)
	pipe.Expire(ctx, limitKey, lim.Window+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	count, err := countCmd.Result()
	if err != nil {
		return false, err
	}
	if count > int64(lim.Limit) {
		// Undo this attempt so a rejected caller does not extend its own ban.
		l.rdb.ZRem(ctx, limitKey, now)
		return false, nil
	}
	return true, nil
}
