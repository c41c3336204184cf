package rate

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	redrepo "github.com/optrixtrades/funnelbot/internal/repo/redis"
)

func TestLimiterBlocksAfterBudget(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	repo := redrepo.NewRateRepo(client)
	limiter := NewLimiter(repo, 5, time.Minute)

	ctx := context.Background()
	userID := int64(42)

	for i := 0; i < 5; i++ {
		retryAfter, allowed, err := limiter.Allow(ctx, "start", userID)
		if err != nil {
			t.Fatalf("allow #%d: %v", i+1, err)
		}
		if !allowed || retryAfter != 0 {
			t.Fatalf("unexpected result on allow #%d: allowed=%v retry_after=%d", i+1, allowed, retryAfter)
		}
	}

	retryAfter, allowed, err := limiter.Allow(ctx, "start", userID)
	if err != nil {
		t.Fatalf("allow #6: %v", err)
	}
	if allowed {
		t.Fatalf("expected limiter block on sixth action in window")
	}
	if retryAfter <= 0 {
		t.Fatalf("expected positive retry_after, got %d", retryAfter)
	}

	currentRetry, err := limiter.RetryAfter(ctx, "start", userID)
	if err != nil {
		t.Fatalf("retry_after state: %v", err)
	}
	if currentRetry <= 0 {
		t.Fatalf("expected positive retry_after state, got %d", currentRetry)
	}

	mr.FastForward(61 * time.Second)

	retryAfter, allowed, err = limiter.Allow(ctx, "start", userID)
	if err != nil {
		t.Fatalf("allow after window reset: %v", err)
	}
	if !allowed || retryAfter != 0 {
		t.Fatalf("unexpected result after fast forward: allowed=%v retry_after=%d", allowed, retryAfter)
	}
}

func TestLimiterKeysActionsIndependently(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	repo := redrepo.NewRateRepo(client)
	limiter := NewLimiter(repo, 1, time.Minute)

	ctx := context.Background()
	userID := int64(77)

	if _, allowed, err := limiter.Allow(ctx, "start", userID); err != nil || !allowed {
		t.Fatalf("first start action should pass: allowed=%v err=%v", allowed, err)
	}
	if _, allowed, err := limiter.Allow(ctx, "start", userID); err != nil || allowed {
		t.Fatalf("second start action should block: allowed=%v err=%v", allowed, err)
	}

	if _, allowed, err := limiter.Allow(ctx, "photo", userID); err != nil || !allowed {
		t.Fatalf("different action should not share the window: allowed=%v err=%v", allowed, err)
	}
}

func TestLimiterDisabledWithZeroBudget(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	repo := redrepo.NewRateRepo(client)
	limiter := NewLimiter(repo, 0, time.Minute)

	ctx := context.Background()
	for i := 0; i < 20; i++ {
		if _, allowed, err := limiter.Allow(ctx, "start", 5); err != nil || !allowed {
			t.Fatalf("disabled limiter should always allow: allowed=%v err=%v", allowed, err)
		}
	}
}

func newMiniRedisClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}

	client := goredis.NewClient(&goredis.Options{
		Addr: mr.Addr(),
	})

	return mr, client
}
