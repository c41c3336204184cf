package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/optrixtrades/funnelbot/internal/domain/enums"
	"github.com/optrixtrades/funnelbot/internal/domain/model"
)

var ErrStateNotFound = errors.New("conversation state not found")

const statePrefix = "conv_state:"

// StateRepo keeps the per-user conversation position (awaiting a broker UID,
// awaiting a screenshot, composing a broadcast) out of process memory so a
// restart does not strand users mid-flow.
type StateRepo struct {
	client *goredis.Client
}

func NewStateRepo(client *goredis.Client) *StateRepo {
	return &StateRepo{client: client}
}

func (r *StateRepo) Set(ctx context.Context, state model.ConversationState, ttl time.Duration) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if state.UserID <= 0 || state.Stage == "" {
		return fmt.Errorf("invalid conversation state payload")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	updatedAt := state.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	fields := map[string]interface{}{
		"stage":      string(state.Stage),
		"uid":        state.UID,
		"vip":        strconv.FormatBool(state.VIP),
		"updated_at": updatedAt.Unix(),
	}

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, stateKey(state.UserID), fields)
	pipe.Expire(ctx, stateKey(state.UserID), ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("set conversation state: %w", err)
	}

	return nil
}

func (r *StateRepo) Get(ctx context.Context, userID int64) (model.ConversationState, error) {
	if r.client == nil {
		return model.ConversationState{}, fmt.Errorf("redis client is nil")
	}
	if userID <= 0 {
		return model.ConversationState{}, fmt.Errorf("invalid user id")
	}

	values, err := r.client.HGetAll(ctx, stateKey(userID)).Result()
	if err != nil {
		return model.ConversationState{}, fmt.Errorf("get conversation state hash: %w", err)
	}
	if len(values) == 0 {
		return model.ConversationState{}, ErrStateNotFound
	}

	state := parseStateRecord(values)
	state.UserID = userID
	return state, nil
}

func (r *StateRepo) Clear(ctx context.Context, userID int64) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if userID <= 0 {
		return nil
	}

	if err := r.client.Del(ctx, stateKey(userID)).Err(); err != nil {
		return fmt.Errorf("clear conversation state: %w", err)
	}

	return nil
}

func parseStateRecord(values map[string]string) model.ConversationState {
	state := model.ConversationState{
		Stage: enums.ConversationStage(values["stage"]),
		UID:   values["uid"],
	}
	if state.Stage == "" {
		state.Stage = enums.ConversationStageIdle
	}

	if vip, err := strconv.ParseBool(values["vip"]); err == nil {
		state.VIP = vip
	}
	if unix, err := strconv.ParseInt(values["updated_at"], 10, 64); err == nil {
		state.UpdatedAt = time.Unix(unix, 0).UTC()
	}

	return state
}

func stateKey(userID int64) string {
	return statePrefix + strconv.FormatInt(userID, 10)
}
