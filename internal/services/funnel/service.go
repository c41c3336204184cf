package funnel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/optrixtrades/funnelbot/internal/domain/enums"
	"github.com/optrixtrades/funnelbot/internal/domain/model"
	pgrepo "github.com/optrixtrades/funnelbot/internal/repo/postgres"
	redisrepo "github.com/optrixtrades/funnelbot/internal/repo/redis"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrDependenciesNil = errors.New("funnel dependencies are not configured")
)

type TooFastError struct {
	RetryAfterSec int64
}

func (e TooFastError) Error() string {
	return "too fast"
}

func (e TooFastError) RetryAfter() int64 {
	if e.RetryAfterSec <= 0 {
		return 1
	}
	return e.RetryAfterSec
}

func IsTooFast(err error) (*TooFastError, bool) {
	var tf TooFastError
	if errors.As(err, &tf) {
		return &tf, true
	}
	return nil, false
}

type UserStore interface {
	Get(ctx context.Context, userID int64) (model.User, error)
	Upsert(ctx context.Context, userID int64, firstName, username string) (model.User, error)
	Deactivate(ctx context.Context, userID int64) error
}

type StateStore interface {
	Set(ctx context.Context, state model.ConversationState, ttl time.Duration) error
	Get(ctx context.Context, userID int64) (model.ConversationState, error)
	Clear(ctx context.Context, userID int64) error
}

type SnapshotCache interface {
	GetUser(ctx context.Context, userID int64) (model.User, bool, error)
	SetUser(ctx context.Context, user model.User, ttl time.Duration) error
	InvalidateUser(ctx context.Context, userID int64) error
}

type InteractionStore interface {
	Insert(ctx context.Context, userID int64, interactionType, data string) error
}

type MetricsStore interface {
	Increment(ctx context.Context, at time.Time, delta pgrepo.DailyMetricsDelta) error
}

// UIDRegistrar validates and persists a broker account id. Implemented by the
// verification service.
type UIDRegistrar interface {
	RegisterUID(ctx context.Context, userID int64, raw string) (string, error)
}

type RateLimiter interface {
	Allow(ctx context.Context, action string, userID int64) (int64, bool, error)
}

type Config struct {
	StateTTL    time.Duration
	SnapshotTTL time.Duration
}

type Dependencies struct {
	Users        UserStore
	States       StateStore
	Cache        SnapshotCache
	Interactions InteractionStore
	Metrics      MetricsStore
	Registrar    UIDRegistrar
	RateLimiter  RateLimiter
}

// Service drives the registration funnel: it records who entered, tracks the
// UID/screenshot conversation stage in Redis, and keeps the interaction log
// and daily metrics current. Rendering lives in Views; transports decide what
// to show after each transition.
type Service struct {
	users        UserStore
	states       StateStore
	cache        SnapshotCache
	interactions InteractionStore
	metrics      MetricsStore
	registrar    UIDRegistrar
	rateLimiter  RateLimiter
	cfg          Config
	now          func() time.Time
	logger       *zap.Logger
}

func NewService(deps Dependencies, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.StateTTL <= 0 {
		cfg.StateTTL = 24 * time.Hour
	}
	if cfg.SnapshotTTL <= 0 {
		cfg.SnapshotTTL = 5 * time.Minute
	}

	return &Service{
		users:        deps.Users,
		states:       deps.States,
		cache:        deps.Cache,
		interactions: deps.Interactions,
		metrics:      deps.Metrics,
		registrar:    deps.Registrar,
		rateLimiter:  deps.RateLimiter,
		cfg:          cfg,
		now:          time.Now,
		logger:       logger,
	}
}

// Start registers the user (or refreshes their record on a repeat /start) and
// counts a funnel entry.
func (s *Service) Start(ctx context.Context, userID int64, firstName, username string) (model.User, error) {
	if s.users == nil {
		return model.User{}, ErrDependenciesNil
	}
	if userID <= 0 {
		return model.User{}, ErrValidation
	}

	if s.rateLimiter != nil {
		retryAfter, allowed, err := s.rateLimiter.Allow(ctx, "start", userID)
		if err != nil {
			return model.User{}, fmt.Errorf("apply start rate limiter: %w", err)
		}
		if !allowed {
			return model.User{}, TooFastError{RetryAfterSec: retryAfter}
		}
	}

	user, err := s.users.Upsert(ctx, userID, firstName, username)
	if err != nil {
		return model.User{}, fmt.Errorf("upsert user: %w", err)
	}
	s.invalidateSnapshot(ctx, userID)

	s.logInteraction(ctx, userID, "start_verification", "User started verification process")
	s.bumpMetrics(ctx, pgrepo.DailyMetricsDelta{Starts: 1})

	return user, nil
}

// EnsureUser refreshes the user record for any inbound message so the
// follow-up clock restarts from their latest activity.
func (s *Service) EnsureUser(ctx context.Context, userID int64, firstName, username string) (model.User, error) {
	if s.users == nil {
		return model.User{}, ErrDependenciesNil
	}
	if userID <= 0 {
		return model.User{}, ErrValidation
	}

	user, err := s.users.Upsert(ctx, userID, firstName, username)
	if err != nil {
		return model.User{}, fmt.Errorf("upsert user: %w", err)
	}
	s.invalidateSnapshot(ctx, userID)

	return user, nil
}

// Activation records that the user opened the broker signup instructions.
func (s *Service) Activation(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return ErrValidation
	}
	s.logInteraction(ctx, userID, "activation_instructions", "User viewed activation instructions")
	return nil
}

// Registered moves the conversation to the UID prompt after the user claims
// they signed up with the broker.
func (s *Service) Registered(ctx context.Context, userID int64) error {
	if s.states == nil {
		return ErrDependenciesNil
	}
	if userID <= 0 {
		return ErrValidation
	}

	state := model.ConversationState{
		UserID:    userID,
		Stage:     enums.ConversationStageAwaitingUID,
		UpdatedAt: s.now().UTC(),
	}
	if err := s.states.Set(ctx, state, s.cfg.StateTTL); err != nil {
		return fmt.Errorf("set conversation state: %w", err)
	}

	s.logInteraction(ctx, userID, "registered_confirmation", "User confirmed registration")
	return nil
}

// VIPRequirements records that the user opened the VIP tier overview.
func (s *Service) VIPRequirements(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return ErrValidation
	}
	s.logInteraction(ctx, userID, "vip_verification_requirements", "User viewed VIP verification requirements")
	return nil
}

// VIPContinue starts the VIP variant of the UID/screenshot flow. The VIP flag
// rides on the conversation state so the eventual submission lands in the VIP
// review queue.
func (s *Service) VIPContinue(ctx context.Context, userID int64) error {
	if s.states == nil {
		return ErrDependenciesNil
	}
	if userID <= 0 {
		return ErrValidation
	}

	state := model.ConversationState{
		UserID:    userID,
		Stage:     enums.ConversationStageAwaitingUID,
		VIP:       true,
		UpdatedAt: s.now().UTC(),
	}
	if err := s.states.Set(ctx, state, s.cfg.StateTTL); err != nil {
		return fmt.Errorf("set conversation state: %w", err)
	}

	s.logInteraction(ctx, userID, "vip_continue_registration", "User started VIP verification process")
	return nil
}

// SubmitUID stores the broker id and advances the conversation to the
// screenshot prompt. The VIP flag from the current state is preserved.
func (s *Service) SubmitUID(ctx context.Context, userID int64, raw string) (string, error) {
	if s.registrar == nil || s.states == nil {
		return "", ErrDependenciesNil
	}
	if userID <= 0 {
		return "", ErrValidation
	}

	uid, err := s.registrar.RegisterUID(ctx, userID, raw)
	if err != nil {
		return "", err
	}
	s.invalidateSnapshot(ctx, userID)

	current, err := s.states.Get(ctx, userID)
	if err != nil && !errors.Is(err, redisrepo.ErrStateNotFound) {
		return "", fmt.Errorf("read conversation state: %w", err)
	}

	next := model.ConversationState{
		UserID:    userID,
		Stage:     enums.ConversationStageAwaitingScreenshot,
		UID:       uid,
		VIP:       current.VIP,
		UpdatedAt: s.now().UTC(),
	}
	if err := s.states.Set(ctx, next, s.cfg.StateTTL); err != nil {
		return "", fmt.Errorf("set conversation state: %w", err)
	}

	return uid, nil
}

// FlowState reports where the user currently is in the conversation. A
// missing or expired state reads as idle.
func (s *Service) FlowState(ctx context.Context, userID int64) (model.ConversationState, error) {
	if s.states == nil {
		return model.ConversationState{}, ErrDependenciesNil
	}
	if userID <= 0 {
		return model.ConversationState{}, ErrValidation
	}

	state, err := s.states.Get(ctx, userID)
	if errors.Is(err, redisrepo.ErrStateNotFound) {
		return model.ConversationState{UserID: userID, Stage: enums.ConversationStageIdle}, nil
	}
	if err != nil {
		return model.ConversationState{}, fmt.Errorf("read conversation state: %w", err)
	}
	return state, nil
}

// FinishSubmission clears the conversation once the screenshot made it into
// the review queue.
func (s *Service) FinishSubmission(ctx context.Context, userID int64) error {
	if s.states == nil {
		return ErrDependenciesNil
	}
	if userID <= 0 {
		return ErrValidation
	}

	if err := s.states.Clear(ctx, userID); err != nil {
		return fmt.Errorf("clear conversation state: %w", err)
	}
	s.invalidateSnapshot(ctx, userID)
	return nil
}

// OptOut deactivates the user so the follow-up scheduler skips them, and
// drops any conversation in progress.
func (s *Service) OptOut(ctx context.Context, userID int64) error {
	if s.users == nil {
		return ErrDependenciesNil
	}
	if userID <= 0 {
		return ErrValidation
	}

	if err := s.users.Deactivate(ctx, userID); err != nil {
		return fmt.Errorf("deactivate user: %w", err)
	}
	s.invalidateSnapshot(ctx, userID)

	if s.states != nil {
		if err := s.states.Clear(ctx, userID); err != nil {
			s.logger.Warn("clear conversation state failed", zap.Error(err), zap.Int64("user_id", userID))
		}
	}
	return nil
}

// Profile loads the user, serving repeat reads from the snapshot cache.
func (s *Service) Profile(ctx context.Context, userID int64) (model.User, error) {
	if s.users == nil {
		return model.User{}, ErrDependenciesNil
	}
	if userID <= 0 {
		return model.User{}, ErrValidation
	}

	if s.cache != nil {
		cached, ok, err := s.cache.GetUser(ctx, userID)
		if err != nil {
			s.logger.Warn("read user snapshot failed", zap.Error(err), zap.Int64("user_id", userID))
		} else if ok {
			return cached, nil
		}
	}

	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return model.User{}, err
	}

	if s.cache != nil {
		if err := s.cache.SetUser(ctx, user, s.cfg.SnapshotTTL); err != nil {
			s.logger.Warn("store user snapshot failed", zap.Error(err), zap.Int64("user_id", userID))
		}
	}
	return user, nil
}

func (s *Service) invalidateSnapshot(ctx context.Context, userID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateUser(ctx, userID); err != nil {
		s.logger.Warn("invalidate user snapshot failed", zap.Error(err), zap.Int64("user_id", userID))
	}
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
