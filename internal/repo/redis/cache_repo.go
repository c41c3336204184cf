package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/optrixtrades/funnelbot/internal/domain/model"
)

const snapshotPrefix = "user_snapshot:"

// CacheRepo is a read-through cache of user funnel snapshots. Writers must
// invalidate after every state change; readers fall back to postgres on a
// miss.
type CacheRepo struct {
	client *goredis.Client

	hits   atomic.Int64
	misses atomic.Int64
}

func NewCacheRepo(client *goredis.Client) *CacheRepo {
	return &CacheRepo{client: client}
}

func (r *CacheRepo) GetUser(ctx context.Context, userID int64) (model.User, bool, error) {
	if r.client == nil {
		return model.User{}, false, nil
	}
	if userID <= 0 {
		return model.User{}, false, fmt.Errorf("invalid user id")
	}

	raw, err := r.client.Get(ctx, snapshotKey(userID)).Bytes()
	if err == goredis.Nil {
		r.misses.Add(1)
		return model.User{}, false, nil
	}
	if err != nil {
		return model.User{}, false, fmt.Errorf("get user snapshot: %w", err)
	}

	var user model.User
	if err := json.Unmarshal(raw, &user); err != nil {
		r.misses.Add(1)
		return model.User{}, false, nil
	}

	r.hits.Add(1)
	return user, true, nil
}

func (r *CacheRepo) SetUser(ctx context.Context, user model.User, ttl time.Duration) error {
	if r.client == nil {
		return nil
	}
	if user.UserID <= 0 {
		return fmt.Errorf("invalid user id")
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshal user snapshot: %w", err)
	}

	if err := r.client.Set(ctx, snapshotKey(user.UserID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("set user snapshot: %w", err)
	}

	return nil
}

func (r *CacheRepo) InvalidateUser(ctx context.Context, userID int64) error {
	if r.client == nil {
		return nil
	}
	if userID <= 0 {
		return nil
	}

	if err := r.client.Del(ctx, snapshotKey(userID)).Err(); err != nil {
		return fmt.Errorf("invalidate user snapshot: %w", err)
	}

	return nil
}

// Stats returns cumulative hit/miss counters since process start.
func (r *CacheRepo) Stats() (hits, misses int64) {
	return r.hits.Load(), r.misses.Load()
}

func snapshotKey(userID int64) string {
	return snapshotPrefix + strconv.FormatInt(userID, 10)
}
