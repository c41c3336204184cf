package cleanup

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/optrixtrades/funnelbot/internal/domain/model"
)

const decidedBatchSize = 200

type VerificationStore interface {
	ListDecidedBefore(ctx context.Context, cutoff time.Time, limit int) ([]model.VerificationRequest, error)
	ClearScreenshot(ctx context.Context, id int64) error
}

type InteractionStore interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type ScreenshotStorage interface {
	Delete(ctx context.Context, key string) error
}

// Job drops data the funnel no longer needs: archived deposit screenshots of
// requests decided long ago, and old interaction log rows.
type Job struct {
	verifications        VerificationStore
	interactions         InteractionStore
	storage              ScreenshotStorage
	screenshotRetention  time.Duration
	interactionRetention time.Duration
	now                  func() time.Time
	logger               *zap.Logger
}

func New(verifications VerificationStore, interactions InteractionStore, storage ScreenshotStorage, screenshotRetention, interactionRetention time.Duration, logger *zap.Logger) *Job {
	if screenshotRetention <= 0 {
		screenshotRetention = 90 * 24 * time.Hour
	}
	if interactionRetention <= 0 {
		interactionRetention = 180 * 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Job{
		verifications:        verifications,
		interactions:         interactions,
		storage:              storage,
		screenshotRetention:  screenshotRetention,
		interactionRetention: interactionRetention,
		now:                  time.Now,
		logger:               logger,
	}
}

func (j *Job) Run(ctx context.Context) error {
	if err := j.purgeScreenshots(ctx); err != nil {
		return err
	}
	return j.pruneInteractions(ctx)
}

// purgeScreenshots removes archived screenshots once their request has been
// decided and the retention window passed. A failed object delete leaves the
// key on the request so the next run retries it.
func (j *Job) purgeScreenshots(ctx context.Context) error {
	if j.verifications == nil {
		return nil
	}

	cutoff := j.now().UTC().Add(-j.screenshotRetention)
	decided, err := j.verifications.ListDecidedBefore(ctx, cutoff, decidedBatchSize)
	if err != nil {
		return fmt.Errorf("list decided verification requests: %w", err)
	}

	cleared := 0
	for _, req := range decided {
		if req.ScreenshotObjectKey == "" {
			continue
		}

		if j.storage != nil {
			if err := j.storage.Delete(ctx, req.ScreenshotObjectKey); err != nil {
				j.logger.Warn("delete archived screenshot failed",
					zap.Int64("request_id", req.ID),
					zap.String("object_key", req.ScreenshotObjectKey),
					zap.Error(err))
				continue
			}
		}

		if err := j.verifications.ClearScreenshot(ctx, req.ID); err != nil {
			return fmt.Errorf("clear screenshot reference: %w", err)
		}
		cleared++
	}

	if cleared > 0 {
		j.logger.Info("screenshot retention cleanup completed", zap.Int("cleared", cleared))
	}
	return nil
}

func (j *Job) pruneInteractions(ctx context.Context) error {
	if j.interactions == nil {
		return nil
	}

	cutoff := j.now().UTC().Add(-j.interactionRetention)
	removed, err := j.interactions.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune interaction log: %w", err)
	}

	if removed > 0 {
		j.logger.Info("interaction log cleanup completed", zap.Int64("removed", removed))
	}
	return nil
}
