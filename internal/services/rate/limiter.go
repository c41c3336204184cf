package rate

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

type WindowStore interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	Peek(ctx context.Context, key string) (int64, time.Duration, error)
}

// Limiter throttles inbound funnel actions per user with a fixed redis
// window. A zero request budget disables the limiter.
type Limiter struct {
	store    WindowStore
	requests int
	window   time.Duration
}

func NewLimiter(store WindowStore, requests int, window time.Duration) *Limiter {
	if requests < 0 {
		requests = 0
	}
	if window <= 0 {
		window = time.Minute
	}

	return &Limiter{
		store:    store,
		requests: requests,
		window:   window,
	}
}

// Allow counts one event for the action and reports whether it fits the
// window. When blocked, retry-after is the seconds until the window resets.
func (l *Limiter) Allow(ctx context.Context, action string, userID int64) (int64, bool, error) {
	if userID <= 0 {
		return 0, false, fmt.Errorf("invalid user id")
	}
	if action == "" {
		return 0, false, fmt.Errorf("action is required")
	}
	if l.store == nil {
		return 0, false, fmt.Errorf("rate limiter store is nil")
	}
	if l.requests == 0 {
		return 0, true, nil
	}

	count, ttl, err := l.store.Hit(ctx, windowKey(action, userID), l.window)
	if err != nil {
		return 0, false, err
	}
	if count > int64(l.requests) {
		return ceilSeconds(ttl), false, nil
	}

	return 0, true, nil
}

// RetryAfter reads the current block without counting an event.
func (l *Limiter) RetryAfter(ctx context.Context, action string, userID int64) (int64, error) {
	if userID <= 0 {
		return 0, fmt.Errorf("invalid user id")
	}
	if action == "" {
		return 0, fmt.Errorf("action is required")
	}
	if l.store == nil {
		return 0, fmt.Errorf("rate limiter store is nil")
	}
	if l.requests == 0 {
		return 0, nil
	}

	count, ttl, err := l.store.Peek(ctx, windowKey(action, userID))
	if err != nil {
		return 0, err
	}
	if count >= int64(l.requests) {
		return ceilSeconds(ttl), nil
	}

	return 0, nil
}

func windowKey(action string, userID int64) string {
	return "rate:funnel:" + action + ":" + strconv.FormatInt(userID, 10)
}

func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	sec := int64(d / time.Second)
	if d%time.Second != 0 {
		sec++
	}
	if sec <= 0 {
		sec = 1
	}
	return sec
}
