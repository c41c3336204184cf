package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/optrixtrades/funnelbot/internal/config"
	"github.com/optrixtrades/funnelbot/internal/infra/httpclient"
	s3infra "github.com/optrixtrades/funnelbot/internal/infra/s3"
	tginfra "github.com/optrixtrades/funnelbot/internal/infra/telegram"
	pgrepo "github.com/optrixtrades/funnelbot/internal/repo/postgres"
	redisrepo "github.com/optrixtrades/funnelbot/internal/repo/redis"
	apiauthsvc "github.com/optrixtrades/funnelbot/internal/services/apiauth"
	broadcastsvc "github.com/optrixtrades/funnelbot/internal/services/broadcast"
	"github.com/optrixtrades/funnelbot/internal/services/followup"
	funnelsvc "github.com/optrixtrades/funnelbot/internal/services/funnel"
	ratesvc "github.com/optrixtrades/funnelbot/internal/services/rate"
	statssvc "github.com/optrixtrades/funnelbot/internal/services/stats"
	storagesvc "github.com/optrixtrades/funnelbot/internal/services/storage"
	verifsvc "github.com/optrixtrades/funnelbot/internal/services/verification"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	s3         *minio.Client
	httpRouter http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)

	var pool *pgxpool.Pool
	if p, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConns); err != nil {
		log.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
	} else {
		pool = p
	}

	redisClient := redisrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)

	var s3Client *minio.Client
	if c, err := s3infra.NewClient(s3infra.Config{
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		UseSSL:    cfg.S3.UseSSL,
	}); err != nil {
		log.Warn("s3 init failed, continuing in degraded mode", zap.Error(err))
	} else {
		s3Client = c
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
	}, log)

	funnel := funnelsvc.NewService(funnelsvc.Dependencies{
		Users:        userRepo,
		States:       stateRepo,
		Cache:        cacheRepo,
		Interactions: interactionRepo,
		Metrics:      metricsRepo,
		Registrar:    verifications,
		RateLimiter:  limiter,
	}, funnelsvc.Config{StateTTL: cfg.Bot.SessionTTL}, log)

	stats := statssvc.NewService(userRepo, verificationRepo, interactionRepo, metricsRepo)
	stats.AttachCacheStats(cacheRepo)

	authService := apiauthsvc.NewService(cfg.Auth.JWTSecret, cfg.Auth.AdminSecret, cfg.Auth.JWTAccessTTL)

	plan, err := followup.PlanByName(cfg.Bot.FollowUp.Plan, cfg.Bot.SupportUsername)
	if err != nil {
		_ = redisClient.Close()
		if pool != nil {
			pool.Close()
		}
		return nil, fmt.Errorf("load follow-up plan: %w", err)
	}

	// Manual follow-up runs and broadcasts go out through Telegram, so both
	// stay nil without a bot token and the routes degrade.
	var (
		engine     *followup.Engine
		broadcasts *broadcastsvc.Service
	)
	if strings.TrimSpace(cfg.Bot.Token) != "" {
		if bot, err := tginfra.NewBot(cfg.Bot.Token, httpclient.New(60*time.Second)); err != nil {
			log.Warn("telegram init failed, follow-up and broadcast routes disabled", zap.Error(err))
		} else {
			engine = followup.NewEngine(plan, userRepo, interactionRepo, metricsRepo, bot, followup.Config{
				SendPerSecond: float64(cfg.Bot.FollowUp.SendPerSecond),
				SendBurst:     cfg.Bot.FollowUp.SendBurst,
			}, log)
			broadcasts = broadcastsvc.NewService(userRepo, broadcastRepo, metricsRepo, bot, broadcastsvc.Config{
				SendPerSecond: float64(cfg.Bot.FollowUp.SendPerSecond),
				SendBurst:     cfg.Bot.FollowUp.SendBurst,
			}, log)
		}
	}

	RegisterRoutes(r, Dependencies{
		AuthService:         authService,
		StatsService:        stats,
		FunnelService:       funnel,
		VerificationService: verifications,
		FollowUpEngine:      engine,
		BroadcastService:    broadcasts,
		ScreenshotPresigner: storage,
		Logger:              log,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		s3:         s3Client,
		httpRouter: r,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}
