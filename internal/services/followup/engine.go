package followup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/optrixtrades/funnelbot/internal/domain/model"
	tginfra "github.com/optrixtrades/funnelbot/internal/infra/telegram"
	pgrepo "github.com/optrixtrades/funnelbot/internal/repo/postgres"
)

type UserStore interface {
	ListDueForFollowUp(ctx context.Context, day int, before time.Time) ([]model.User, error)
	AdvanceFollowUp(ctx context.Context, userID int64, fromDay, toDay int) error
}

type InteractionStore interface {
	InsertBatch(ctx context.Context, items []model.Interaction) error
}

type MetricsStore interface {
	Increment(ctx context.Context, at time.Time, delta pgrepo.DailyMetricsDelta) error
}

type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string, keyboard [][]tginfra.Button) error
}

type Config struct {
	SendPerSecond float64
	SendBurst     int
}

// Engine advances users through the drip plan. One cycle walks the day
// buckets in ascending order; a user advances at most one day per cycle
// because thresholds count from last_interaction, which resets on send.
type Engine struct {
	plan         *Plan
	users        UserStore
	interactions InteractionStore
	metrics      MetricsStore
	sender       Sender
	limiter      *rate.Limiter
	now          func() time.Time
	logger       *zap.Logger
}

type CycleResult struct {
	Eligible int
	Sent     int
	Failed   int
	Stale    int
}

func NewEngine(plan *Plan, users UserStore, interactions InteractionStore, metrics MetricsStore, sender Sender, cfg Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	var limiter *rate.Limiter
	if cfg.SendPerSecond > 0 {
		burst := cfg.SendBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.SendPerSecond), burst)
	}

	return &Engine{
		plan:         plan,
		users:        users,
		interactions: interactions,
		metrics:      metrics,
		sender:       sender,
		limiter:      limiter,
		now:          time.Now,
		logger:       logger,
	}
}

// RunCycle performs one poll over every day bucket. A send failure skips the
// user without touching state, so the user is retried on the next cycle. The
// bucket list error aborts the cycle; the caller's loop retries it whole.
func (e *Engine) RunCycle(ctx context.Context) (CycleResult, error) {
	var result CycleResult
	if e.plan == nil || e.users == nil || e.sender == nil {
		return result, fmt.Errorf("follow-up engine is not wired")
	}

	now := e.now().UTC()
	var sent []model.Interaction

	for day := 1; day <= e.plan.MaxDay(); day++ {
		tpl, ok := e.plan.Template(day)
		if !ok {
			continue
		}

		due, err := e.users.ListDueForFollowUp(ctx, day-1, now.Add(-tpl.Threshold))
		if err != nil {
			return result, fmt.Errorf("list follow-up bucket for day %d: %w", day, err)
		}
		result.Eligible += len(due)

		for _, user := range due {
			if err := e.waitSend(ctx); err != nil {
				return result, err
			}

			text, keyboard, ok := e.plan.Render(day, displayName(user))
			if !ok {
				continue
			}

			if err := e.sender.SendMessage(ctx, user.UserID, text, keyboard); err != nil {
				result.Failed++
				e.logger.Warn("follow-up send failed",
					zap.Int64("user_id", user.UserID),
					zap.Int("day", day),
					zap.Error(err))
				continue
			}

			if err := e.users.AdvanceFollowUp(ctx, user.UserID, day-1, day); err != nil {
				if errors.Is(err, pgrepo.ErrFollowUpStale) {
					result.Stale++
					continue
				}
				result.Failed++
				e.logger.Warn("follow-up advance failed",
					zap.Int64("user_id", user.UserID),
					zap.Int("day", day),
					zap.Error(err))
				continue
			}

			result.Sent++
			sent = append(sent, model.Interaction{
				UserID:    user.UserID,
				Type:      fmt.Sprintf("follow_up_%d", day),
				CreatedAt: now,
			})
		}
	}

	if len(sent) > 0 && e.interactions != nil {
		if err := e.interactions.InsertBatch(ctx, sent); err != nil {
			e.logger.Warn("log follow-up interactions failed", zap.Error(err))
		}
	}
	if result.Sent > 0 && e.metrics != nil {
		if err := e.metrics.Increment(ctx, now, pgrepo.DailyMetricsDelta{FollowUpsSent: result.Sent}); err != nil {
			e.logger.Warn("record follow-up metrics failed", zap.Error(err))
		}
	}

	e.logger.Info("follow-up cycle completed",
		zap.String("plan", e.plan.Name()),
		zap.Int("eligible", result.Eligible),
		zap.Int("sent", result.Sent),
		zap.Int("failed", result.Failed))

	return result, nil
}

func (e *Engine) waitSend(ctx context.Context) error {
	if e.limiter == nil {
		return nil
	}
	return e.limiter.Wait(ctx)
}

func displayName(user model.User) string {
	if name := strings.TrimSpace(user.FirstName); name != "" {
		return name
	}
	return strings.TrimSpace(user.Username)
}
