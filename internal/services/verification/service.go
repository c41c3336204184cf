package verification

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/optrixtrades/funnelbot/internal/domain/enums"
	"github.com/optrixtrades/funnelbot/internal/domain/model"
	"github.com/optrixtrades/funnelbot/internal/domain/rules"
	pgrepo "github.com/optrixtrades/funnelbot/internal/repo/postgres"
	storagesvc "github.com/optrixtrades/funnelbot/internal/services/storage"
)

var (
	ErrInvalidUID = errors.New("invalid broker uid")
	ErrMissingUID = errors.New("uid not submitted yet")
	ErrValidation = errors.New("validation error")
)

type UserStore interface {
	Get(ctx context.Context, userID int64) (model.User, error)
	SetUID(ctx context.Context, userID int64, uid string) error
	SetRegistrationStatus(ctx context.Context, tx pgx.Tx, userID int64, status enums.RegistrationStatus) error
	ConfirmDeposit(ctx context.Context, tx pgx.Tx, userID int64) error
}

type RequestStore interface {
	Create(ctx context.Context, tx pgx.Tx, req model.VerificationRequest) (model.VerificationRequest, error)
	Get(ctx context.Context, id int64) (model.VerificationRequest, error)
	LatestByUser(ctx context.Context, userID int64) (model.VerificationRequest, error)
	ListPending(ctx context.Context, limit int) ([]model.VerificationRequest, error)
	Decide(ctx context.Context, tx pgx.Tx, id int64, status enums.VerificationStatus, adminResponse string) (model.VerificationRequest, error)
}

type InteractionStore interface {
	Insert(ctx context.Context, userID int64, interactionType, data string) error
}

type MetricsStore interface {
	Increment(ctx context.Context, at time.Time, delta pgrepo.DailyMetricsDelta) error
}

type ScreenshotStorage interface {
	EnsureBucket(ctx context.Context) error
	PutScreenshot(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
}

type Config struct {
	UIDMinLength int
	UIDMaxLength int
}

// Submission carries everything the photo handler extracted from an update.
// Body/Size may be zero when the original file could not be downloaded; the
// request is still recorded against the Telegram file id.
type Submission struct {
	UserID      int64
	UID         string
	FileID      string
	Tier        enums.AccessTier
	Body        io.Reader
	Size        int64
	ContentType string
}

// Decision is the outcome of an admin review, bundled for the caller that
// notifies the user.
type Decision struct {
	Request model.VerificationRequest
	User    model.User
}

type Service struct {
	users        UserStore
	requests     RequestStore
	interactions InteractionStore
	metrics      MetricsStore
	storage      ScreenshotStorage
	cfg          Config
	runTx        func(context.Context, func(context.Context, pgx.Tx) error) error
	now          func() time.Time
	logger       *zap.Logger
}

func NewService(pool *pgxpool.Pool, users UserStore, requests RequestStore, interactions InteractionStore, metrics MetricsStore, storage ScreenshotStorage, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.UIDMinLength <= 0 {
		cfg.UIDMinLength = rules.DefaultUIDMinLength
	}
	if cfg.UIDMaxLength < cfg.UIDMinLength {
		cfg.UIDMaxLength = rules.DefaultUIDMaxLength
	}

	return &Service{
		users:        users,
		requests:     requests,
		interactions: interactions,
		metrics:      metrics,
		storage:      storage,
		cfg:          cfg,
		runTx: func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
			return pgrepo.WithTx(ctx, pool, fn)
		},
		now:    time.Now,
		logger: logger,
	}
}

// RegisterUID validates and stores the broker account id a user typed in.
func (s *Service) RegisterUID(ctx context.Context, userID int64, raw string) (string, error) {
	if s.users == nil {
		return "", fmt.Errorf("verification user store is nil")
	}

	uid := strings.TrimSpace(raw)
	if !rules.ValidUID(uid, s.cfg.UIDMinLength, s.cfg.UIDMaxLength) {
		return "", ErrInvalidUID
	}

	if err := s.users.SetUID(ctx, userID, uid); err != nil {
		return "", fmt.Errorf("store uid: %w", err)
	}

	s.logInteraction(ctx, userID, "uid_submission", "User submitted UID: "+uid)
	return uid, nil
}

// SubmitScreenshot archives the deposit proof and opens a pending request.
// The archive copy is best effort: a storage outage must not block the
// funnel, the Telegram file id alone is enough for review.
func (s *Service) SubmitScreenshot(ctx context.Context, sub Submission) (model.VerificationRequest, error) {
	if s.users == nil || s.requests == nil {
		return model.VerificationRequest{}, fmt.Errorf("verification stores are not configured")
	}
	if sub.UserID <= 0 || strings.TrimSpace(sub.FileID) == "" {
		return model.VerificationRequest{}, ErrValidation
	}

	uid := strings.TrimSpace(sub.UID)
	if uid == "" {
		user, err := s.users.Get(ctx, sub.UserID)
		if err != nil {
			return model.VerificationRequest{}, fmt.Errorf("load user for submission: %w", err)
		}
		uid = strings.TrimSpace(user.UID)
	}
	if uid == "" {
		return model.VerificationRequest{}, ErrMissingUID
	}

	tier := sub.Tier
	if tier == "" {
		tier = enums.AccessTierPremium
	}

	objectKey := s.archiveScreenshot(ctx, sub)

	req := model.VerificationRequest{
		UserID:              sub.UserID,
		UID:                 uid,
		ScreenshotFileID:    sub.FileID,
		ScreenshotObjectKey: objectKey,
		Reference:           uuid.NewString(),
		Tier:                tier,
		Status:              enums.VerificationStatusPending,
	}

	var created model.VerificationRequest
	err := s.runTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		var txErr error
		created, txErr = s.requests.Create(txCtx, tx, req)
		if txErr != nil {
			return txErr
		}
		return s.users.SetRegistrationStatus(txCtx, tx, sub.UserID, enums.RegistrationStatusPending)
	})
	if err != nil {
		if objectKey != "" && s.storage != nil {
			_ = s.storage.Delete(ctx, objectKey)
		}
		return model.VerificationRequest{}, fmt.Errorf("create verification request: %w", err)
	}

	s.logInteraction(ctx, sub.UserID, "screenshot_upload", "User uploaded verification screenshot for UID: "+uid)
	s.bumpMetrics(ctx, pgrepo.DailyMetricsDelta{Submissions: 1})

	return created, nil
}

// Approve marks the request approved and flips the user to converted, which
// permanently removes them from follow-up eligibility.
func (s *Service) Approve(ctx context.Context, requestID int64, adminResponse string) (Decision, error) {
	decision, err := s.decide(ctx, requestID, enums.VerificationStatusApproved, adminResponse)
	if err != nil {
		return Decision{}, err
	}

	s.logInteraction(ctx, decision.Request.UserID, "verification_approved", "Admin approved verification request")
	s.bumpMetrics(ctx, pgrepo.DailyMetricsDelta{Approvals: 1, Conversions: 1})

	return decision, nil
}

// Reject marks the request rejected; the user may resubmit.
func (s *Service) Reject(ctx context.Context, requestID int64, adminResponse string) (Decision, error) {
	decision, err := s.decide(ctx, requestID, enums.VerificationStatusRejected, adminResponse)
	if err != nil {
		return Decision{}, err
	}

	s.logInteraction(ctx, decision.Request.UserID, "verification_rejected", "Admin rejected verification request")
	s.bumpMetrics(ctx, pgrepo.DailyMetricsDelta{Rejections: 1})

	return decision, nil
}

func (s *Service) decide(ctx context.Context, requestID int64, status enums.VerificationStatus, adminResponse string) (Decision, error) {
	if s.users == nil || s.requests == nil {
		return Decision{}, fmt.Errorf("verification stores are not configured")
	}
	if requestID <= 0 {
		return Decision{}, ErrValidation
	}

	var decided model.VerificationRequest
	err := s.runTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		var txErr error
		decided, txErr = s.requests.Decide(txCtx, tx, requestID, status, adminResponse)
		if txErr != nil {
			return txErr
		}
		if status == enums.VerificationStatusApproved {
			return s.users.ConfirmDeposit(txCtx, tx, decided.UserID)
		}
		return s.users.SetRegistrationStatus(txCtx, tx, decided.UserID, enums.RegistrationStatusRejected)
	})
	if err != nil {
		return Decision{}, err
	}

	user, err := s.users.Get(ctx, decided.UserID)
	if err != nil {
		return Decision{}, fmt.Errorf("load user after decision: %w", err)
	}

	return Decision{Request: decided, User: user}, nil
}

func (s *Service) Get(ctx context.Context, requestID int64) (model.VerificationRequest, error) {
	if s.requests == nil {
		return model.VerificationRequest{}, fmt.Errorf("verification request store is nil")
	}
	return s.requests.Get(ctx, requestID)
}

func (s *Service) LatestByUser(ctx context.Context, userID int64) (model.VerificationRequest, error) {
	if s.requests == nil {
		return model.VerificationRequest{}, fmt.Errorf("verification request store is nil")
	}
	return s.requests.LatestByUser(ctx, userID)
}

func (s *Service) ListPending(ctx context.Context, limit int) ([]model.VerificationRequest, error) {
	if s.requests == nil {
		return nil, fmt.Errorf("verification request store is nil")
	}
	return s.requests.ListPending(ctx, limit)
}

func (s *Service) archiveScreenshot(ctx context.Context, sub Submission) string {
	if s.storage == nil || sub.Body == nil || sub.Size <= 0 {
		return ""
	}

	if err := s.storage.EnsureBucket(ctx); err != nil {
		s.logger.Warn("ensure screenshot bucket failed", zap.Error(err))
		return ""
	}

	key := storagesvc.ScreenshotKey(sub.UserID, sub.ContentType)
	if err := s.storage.PutScreenshot(ctx, key, sub.Body, sub.Size, sub.ContentType); err != nil {
		s.logger.Warn("archive screenshot failed", zap.Error(err), zap.Int64("user_id", sub.UserID))
		return ""
	}

	return key
}

func (s *Service) logInteraction(ctx context.Context, userID int64, interactionType, data string) {
	if s.interactions == nil {
		return
	}
	if err := s.interactions.Insert(ctx, userID, interactionType, data); err != nil {
		s.logger.Warn("log interaction failed", zap.Error(err), zap.String("type", interactionType))
	}
}

func (s *Service) bumpMetrics(ctx context.Context, delta pgrepo.DailyMetricsDelta) {
	if s.metrics == nil {
		return
	}
	if err := s.metrics.Increment(ctx, s.now().UTC(), delta); err != nil {
		s.logger.Warn("record funnel metrics failed", zap.Error(err))
	}
}
