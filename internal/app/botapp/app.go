package botapp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/optrixtrades/funnelbot/internal/config"
	"github.com/optrixtrades/funnelbot/internal/infra/httpclient"
	s3infra "github.com/optrixtrades/funnelbot/internal/infra/s3"
	tginfra "github.com/optrixtrades/funnelbot/internal/infra/telegram"
	"github.com/optrixtrades/funnelbot/internal/jobs/cleanup"
	pgrepo "github.com/optrixtrades/funnelbot/internal/repo/postgres"
	redisrepo "github.com/optrixtrades/funnelbot/internal/repo/redis"
	broadcastsvc "github.com/optrixtrades/funnelbot/internal/services/broadcast"
	channelsvc "github.com/optrixtrades/funnelbot/internal/services/channel"
	"github.com/optrixtrades/funnelbot/internal/services/followup"
	funnelsvc "github.com/optrixtrades/funnelbot/internal/services/funnel"
	ratesvc "github.com/optrixtrades/funnelbot/internal/services/rate"
	statssvc "github.com/optrixtrades/funnelbot/internal/services/stats"
	storagesvc "github.com/optrixtrades/funnelbot/internal/services/storage"
	verifsvc "github.com/optrixtrades/funnelbot/internal/services/verification"
)

const (
	throttleMessageReply  = "⚠️ Rate limit exceeded. Please try again later."
	throttleCallbackReply = "Rate limit exceeded. Please try again later."
	adminCommandDenied    = "⛔ You are not authorized to use admin commands."
	adminCallbackDenied   = "⛔ You are not authorized to use this feature."
)

type App struct {
	cfg      config.Config
	logger   *zap.Logger
	postgres *pgxpool.Pool
	redis    *goredis.Client
	s3       *minio.Client
	bot      *tginfra.Bot

	views   funnelsvc.Views
	limiter *ratesvc.Limiter
	states  *redisrepo.StateRepo

	funnel        *funnelsvc.Service
	verifications *verifsvc.Service
	channel       *channelsvc.Service
	broadcasts    *broadcastsvc.Service
	stats         *statssvc.Service
	engine        *followup.Engine
	cleanupJob    *cleanup.Job
}

func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	pool, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConns)
	if err != nil {
		return nil, fmt.Errorf("init postgres for bot app: %w", err)
	}

	redisClient := redisrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)

	s3Client, err := s3infra.NewClient(s3infra.Config{
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		UseSSL:    cfg.S3.UseSSL,
	})
	if err != nil {
		_ = redisClient.Close()
		pool.Close()
		return nil, fmt.Errorf("init s3 for bot app: %w", err)
	}

	storage := storagesvc.NewS3Storage(s3Client, cfg.S3.Bucket)

	userRepo := pgrepo.NewUserRepo(pool)
	interactionRepo := pgrepo.NewInteractionRepo(pool)
	verificationRepo := pgrepo.NewVerificationRepo(pool)
	broadcastRepo := pgrepo.NewBroadcastRepo(pool)
	metricsRepo := pgrepo.NewDailyMetricsRepo(pool)

	stateRepo := redisrepo.NewStateRepo(redisClient)
	cacheRepo := redisrepo.NewCacheRepo(redisClient)
	rateRepo := redisrepo.NewRateRepo(redisClient)

	limiter := ratesvc.NewLimiter(rateRepo, cfg.Bot.Rate.Requests, cfg.Bot.Rate.Window)

	verifications := verifsvc.NewService(pool, userRepo, verificationRepo, interactionRepo, metricsRepo, storage, verifsvc.Config{
		UIDMinLength: cfg.Bot.UIDMinLength,
		UIDMaxLength: cfg.Bot.UIDMaxLength,
	}, logger)

	funnel := funnelsvc.NewService(funnelsvc.Dependencies{
		Users:        userRepo,
		States:       stateRepo,
		Cache:        cacheRepo,
		Interactions: interactionRepo,
		Metrics:      metricsRepo,
		Registrar:    verifications,
		RateLimiter:  limiter,
	}, funnelsvc.Config{StateTTL: cfg.Bot.SessionTTL}, logger)

	plan, err := followup.PlanByName(cfg.Bot.FollowUp.Plan, cfg.Bot.SupportUsername)
	if err != nil {
		_ = redisClient.Close()
		pool.Close()
		return nil, fmt.Errorf("load follow-up plan: %w", err)
	}

	var bot *tginfra.Bot
	if strings.TrimSpace(cfg.Bot.Token) != "" {
		bot, err = tginfra.NewBot(cfg.Bot.Token, httpclient.New(60*time.Second))
		if err != nil {
			_ = redisClient.Close()
			pool.Close()
			return nil, fmt.Errorf("init telegram bot: %w", err)
		}
	} else {
		logger.Warn("BOT_TOKEN is empty, telegram listener disabled")
	}

	// Everything that sends through Telegram is wired only when the bot
	// exists, otherwise a typed nil sneaks into the interface fields.
	var (
		channel    *channelsvc.Service
		engine     *followup.Engine
		broadcasts *broadcastsvc.Service
	)
	if bot != nil {
		channel = channelsvc.NewService(bot, cfg.Bot.PremiumChannelID, cfg.Bot.InviteTTL, logger)
		engine = followup.NewEngine(plan, userRepo, interactionRepo, metricsRepo, bot, followup.Config{
			SendPerSecond: float64(cfg.Bot.FollowUp.SendPerSecond),
			SendBurst:     cfg.Bot.FollowUp.SendBurst,
		}, logger)
		broadcasts = broadcastsvc.NewService(userRepo, broadcastRepo, metricsRepo, bot, broadcastsvc.Config{
			SendPerSecond: float64(cfg.Bot.FollowUp.SendPerSecond),
			SendBurst:     cfg.Bot.FollowUp.SendBurst,
		}, logger)
	}

	stats := statssvc.NewService(userRepo, verificationRepo, interactionRepo, metricsRepo)
	stats.AttachCacheStats(cacheRepo)

	cleanupJob := cleanup.New(verificationRepo, interactionRepo, storage,
		cfg.Bot.Cleanup.ScreenshotRetention, cfg.Bot.Cleanup.InteractionRetention, logger)

	return &App{
		cfg:           cfg,
		logger:        logger,
		postgres:      pool,
		redis:         redisClient,
		s3:            s3Client,
		bot:           bot,
		views:         funnelsvc.NewViews(cfg.Bot.SupportUsername, cfg.Bot.BrokerLink),
		limiter:       limiter,
		states:        stateRepo,
		funnel:        funnel,
		verifications: verifications,
		channel:       channel,
		broadcasts:    broadcasts,
		stats:         stats,
		engine:        engine,
		cleanupJob:    cleanupJob,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.logger.Info("bot app started")

	errCh := make(chan error, 3)
	go func() {
		errCh <- a.runCleanupLoop(ctx)
	}()
	go func() {
		errCh <- a.runFollowUpLoop(ctx)
	}()

	if a.bot != nil {
		go func() {
			errCh <- a.bot.Listen(ctx, tginfra.Handlers{
				OnPhoto:    a.handlePhoto,
				OnCommand:  a.handleCommand,
				OnText:     a.handleText,
				OnCallback: a.handleCallback,
			})
		}()
	}

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("bot app stopped")
			return nil
		case err := <-errCh:
			if err == nil || errors.Is(err, context.Canceled) {
				continue
			}
			return err
		}
	}
}

func (a *App) runCleanupLoop(ctx context.Context) error {
	if a.cleanupJob == nil {
		return nil
	}

	interval := a.cfg.Bot.Cleanup.Interval
	if interval <= 0 {
		interval = 6 * time.Hour
	}

	if err := a.cleanupJob.Run(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := a.cleanupJob.Run(ctx); err != nil {
				return err
			}
		}
	}
}

func (a *App) runFollowUpLoop(ctx context.Context) error {
	if a.engine == nil {
		return nil
	}

	interval := a.cfg.Bot.FollowUp.Interval
	if interval <= 0 {
		interval = time.Hour
	}

	if _, err := a.engine.RunCycle(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := a.engine.RunCycle(ctx); err != nil {
				return err
			}
		}
	}
}

func (a *App) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("close redis client", zap.Error(err))
		}
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
}

func (a *App) isAdmin(userID int64) bool {
	return a.cfg.Bot.AdminUserID != 0 && userID == a.cfg.Bot.AdminUserID
}

func (a *App) sendView(ctx context.Context, chatID int64, view funnelsvc.View) error {
	if view.Markdown {
		return a.bot.SendMarkdown(ctx, chatID, view.Text, view.Keyboard)
	}
	return a.bot.SendMessage(ctx, chatID, view.Text, view.Keyboard)
}

// gateMessage charges one message against the per-user window. A limiter
// outage is returned as an error so the app restarts instead of serving
// unmetered traffic.
func (a *App) gateMessage(ctx context.Context, chatID, userID int64) (bool, error) {
	_, ok, err := a.limiter.Allow(ctx, "message", userID)
	if err != nil {
		return false, fmt.Errorf("apply message rate limiter: %w", err)
	}
	if !ok {
		return false, a.bot.SendMessage(ctx, chatID, throttleMessageReply, nil)
	}
	return true, nil
}

func (a *App) gateCallback(ctx context.Context, update tginfra.CallbackUpdate) (bool, error) {
	_, ok, err := a.limiter.Allow(ctx, "callback", update.UserID)
	if err != nil {
		return false, fmt.Errorf("apply callback rate limiter: %w", err)
	}
	if !ok {
		return false, a.bot.AnswerCallback(ctx, update.CallbackID, throttleCallbackReply)
	}
	return true, nil
}
