// Package memorylimiter is the single-node fallback limiter used when no
// Redis is configured.
package memorylimiter

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sofolpay/realtime/ratelimit"
)

// Limiter is an in-memory sliding-window rate limiter.
type Limiter struct {
	mu      sync.Mutex
	limits  map[string]ratelimit.Limit
	buckets map[string][]int64 // bucket:key -> attempt times in unix ms, newest last
}

// New constructs an in-memory limiter with the provided per-bucket limits.
func New(limits map[string]ratelimit.Limit) *Limiter {
	if limits == nil {
		limits = ratelimit.DefaultLimits()
	}
	return &Limiter{
		limits:  limits,
		buckets: make(map[string][]int64),
	}
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

// Allow reports whether one more attempt fits the bucket's window.
// Expired entries are pruned on each call and empty buckets dropped so
// memory stays bounded. A nil limiter allows everything.
func (l *Limiter) Allow(_ context.Context, bucket, key string) (bool, error) {
	if l == nil {
		return true, nil
	}
	if bucket == "" || key == "" {
		return false, fmt.Errorf("bucket and key required")
	}

	lim := l.get(bucket)
	now := time.Now().UnixMilli()
	windowStart := now - lim.Window.Milliseconds()
	limitKey := bucket + ":" + key

	l.mu.Lock()
	defer l.mu.Unlock()

	ts := l.buckets[limitKey]
	prune := 0
	for prune < len(ts) && ts[prune] < windowStart {
		prune++
	}
	if prune > 0 {
		ts = ts[prune:]
	}

	if len(ts) >= lim.Limit {
		l.buckets[limitKey] = ts
		return false, nil
	}

	ts = append(ts, now)
	l.buckets[limitKey] = ts
	return true, nil
}

// Prune removes buckets whose entries have all expired. Intended for
// callers that want to bound idle memory explicitly; Allow already prunes
// the buckets it touches.
func (l *Limiter) Prune() {
	now := time.Now().UnixMilli()
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, ts := range l.buckets {
		bucket := key
		if i := strings.IndexByte(key, ':'); i >= 0 {
			bucket = key[:i]
		}
		windowStart := now - l.get(bucket).Window.Milliseconds()
		keep := ts[:0]
		for _, t := range ts {
			if t >= windowStart {
				keep = append(keep, t)
			}
		}
		if len(keep) == 0 {
			delete(l.buckets, key)
		} else {
			l.buckets[key] = keep
		}
	}
}
