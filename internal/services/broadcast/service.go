package broadcast

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

var ErrEmptyMessage = errors.New("broadcast message is empty")

type UserStore interface {
	ListActiveIDs(ctx context.Context) ([]int64, error)
}

type RecordStore interface {
	Create(ctx context.Context, messageText string, totalUsers int) (model.Broadcast, error)
	Finish(ctx context.Context, id int64, sent, failed int) error
	List(ctx context.Context, limit int) ([]model.Broadcast, error)
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

// Service fans an admin message out to every active user. Sends are paced by
// the same limiter settings as follow-ups so a broadcast cannot trip the
// Telegram flood control.
type Service struct {
	users   UserStore
	records RecordStore
	metrics MetricsStore
	sender  Sender
	limiter *rate.Limiter
	now     func() time.Time
	logger  *zap.Logger
}

type Result struct {
	BroadcastID int64
	Total       int
	Sent        int
	Failed      int
}

func NewService(users UserStore, records RecordStore, metrics MetricsStore, sender Sender, cfg Config, logger *zap.Logger) *Service {
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

	return &Service{
		users:   users,
		records: records,
		metrics: metrics,
		sender:  sender,
		limiter: limiter,
		now:     time.Now,
		logger:  logger,
	}
}

// SendToActive delivers the message to every active user. Individual send
// failures are counted and skipped; blocked or deleted accounts must not stop
// the rest of the run. The recorded totals are final, a broadcast is never
// retried.
func (s *Service) SendToActive(ctx context.Context, messageText string) (Result, error) {
	var result Result
	if s.users == nil || s.records == nil || s.sender == nil {
		return result, fmt.Errorf("broadcast dependencies are not configured")
	}

	text := strings.TrimSpace(messageText)
	if text == "" {
		return result, ErrEmptyMessage
	}

	ids, err := s.users.ListActiveIDs(ctx)
	if err != nil {
		return result, fmt.Errorf("list broadcast recipients: %w", err)
	}
	result.Total = len(ids)

	record, err := s.records.Create(ctx, text, len(ids))
	if err != nil {
		return result, fmt.Errorf("record broadcast: %w", err)
	}
	result.BroadcastID = record.ID

	for _, userID := range ids {
		if err := s.waitSend(ctx); err != nil {
			s.finish(ctx, record.ID, result)
			return result, err
		}

		if err := s.sender.SendMessage(ctx, userID, text, nil); err != nil {
			result.Failed++
			s.logger.Warn("broadcast send failed",
				zap.Int64("user_id", userID),
				zap.Int64("broadcast_id", record.ID),
				zap.Error(err))
			continue
		}
		result.Sent++
	}

	s.finish(ctx, record.ID, result)

	if s.metrics != nil {
		if err := s.metrics.Increment(ctx, s.now().UTC(), pgrepo.DailyMetricsDelta{Broadcasts: 1}); err != nil {
			s.logger.Warn("record broadcast metrics failed", zap.Error(err))
		}
	}

	s.logger.Info("broadcast completed",
		zap.Int64("broadcast_id", record.ID),
		zap.Int("total", result.Total),
		zap.Int("sent", result.Sent),
		zap.Int("failed", result.Failed))

	return result, nil
}

func (s *Service) History(ctx context.Context, limit int) ([]model.Broadcast, error) {
	if s.records == nil {
		return nil, fmt.Errorf("broadcast record store is nil")
	}
	return s.records.List(ctx, limit)
}

func (s *Service) finish(ctx context.Context, id int64, result Result) {
	if err := s.records.Finish(ctx, id, result.Sent, result.Failed); err != nil {
		s.logger.Warn("finish broadcast record failed",
			zap.Int64("broadcast_id", id),
			zap.Error(err))
	}
}

func (s *Service) waitSend(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	return s.limiter.Wait(ctx)
}
