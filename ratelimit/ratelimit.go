// Package ratelimit defines the limiter interface and the named buckets
// guarding the broadcast surface. Two implementations exist: redis-backed
// for deployments with shared state, and in-memory as a single-node
// fallback.
package ratelimit

import (
	"context"
	"time"
)

// Limit defines window and max count for a bucket.
type Limit struct {
	Limit  int
	Window time.Duration
}

// Buckets used by the broadcast handlers.
const (
	BucketBroadcastPayment = "broadcast_payment"
	BucketBroadcastQR      = "broadcast_qr"
)

// Limiter is a sliding-window rate limiter keyed by bucket plus caller key.
type Limiter interface {
	Allow(ctx context.Context, bucket, key string) (bool, error)
}

// DefaultLimits returns the broadcast-surface limits. Pushes come from
// trusted backend services, so the window is generous; it exists to
// contain a runaway caller, not to meter usage.
func DefaultLimits() map[string]Limit {
	return map[string]Limit{
		BucketBroadcastPayment: {Limit: 300, Window: time.Minute},
		BucketBroadcastQR:      {Limit: 300, Window: time.Minute},
		"default":              {Limit: 120, Window: time.Minute},
	}
}
