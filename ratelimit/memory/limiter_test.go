package memorylimiter

import (
	"context"
	"testing"
	"time"

	"github.com/sofolpay/realtime/ratelimit"
)

func TestAllowWithinLimit(t *testing.T) {
	l := New(map[string]ratelimit.Limit{
		"push": {Limit: 3, Window: time.Minute},
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "push", "1.2.3.4")
		if err != nil || !ok {
			t.Fatalf("attempt %d: ok=%v err=%v", i, ok, err)
		}
	}
	ok, err := l.Allow(ctx, "push", "1.2.3.4")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if ok {
		t.Error("fourth attempt should be denied")
	}
}

func TestKeysAreIndependent(t *testing.T) {
	l := New(map[string]ratelimit.Limit{"push": {Limit: 1, Window: time.Minute}})
	ctx := context.Background()

	if ok, _ := l.Allow(ctx, "push", "a"); !ok {
		t.Fatal("first key should be allowed")
	}
	if ok, _ := l.Allow(ctx, "push", "b"); !ok {
		t.Error("second key must have its own window")
	}
	if ok, _ := l.Allow(ctx, "push", "a"); ok {
		t.Error("first key should now be denied")
	}
}

func TestWindowSlides(t *testing.T) {
	l := New(map[string]ratelimit.Limit{"push": {Limit: 1, Window: 30 * time.Millisecond}})
	ctx := context.Background()

	if ok, _ := l.Allow(ctx, "push", "k"); !ok {
		t.Fatal("first attempt should pass")
	}
	if ok, _ := l.Allow(ctx, "push", "k"); ok {
		t.Fatal("second attempt inside the window should be denied")
	}
	time.Sleep(40 * time.Millisecond)
	if ok, _ := l.Allow(ctx, "push", "k"); !ok {
		t.Error("attempt after the window should pass again")
	}
}

func TestDefaultBucketFallback(t *testing.T) {
	l := New(map[string]ratelimit.Limit{"default": {Limit: 1, Window: time.Minute}})
	ctx := context.Background()
	if ok, _ := l.Allow(ctx, "unknown", "k"); !ok {
		t.Fatal("first attempt should use the default limit")
	}
	if ok, _ := l.Allow(ctx, "unknown", "k"); ok {
		t.Error("default limit of 1 should deny the second attempt")
	}
}

func TestEmptyBucketOrKeyIsAnError(t *testing.T) {
	l := New(nil)
	if _, err := l.Allow(context.Background(), "", "k"); err == nil {
		t.Error("empty bucket must error")
	}
	if _, err := l.Allow(context.Background(), "b", ""); err == nil {
		t.Error("empty key must error")
	}
}

func TestPruneDropsExpiredBuckets(t *testing.T) {
	l := New(map[string]ratelimit.Limit{"push": {Limit: 5, Window: 10 * time.Millisecond}})
	l.Allow(context.Background(), "push", "k")
	time.Sleep(20 * time.Millisecond)
	l.Prune()
	l.mu.Lock()
	n := len(l.buckets)
	l.mu.Unlock()
	if n != 0 {
		t.Errorf("buckets remaining after prune: %d", n)
	}
}
