package apiapp

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apiauthsvc "github.com/optrixtrades/funnelbot/internal/services/apiauth"
	broadcastsvc "github.com/optrixtrades/funnelbot/internal/services/broadcast"
	"github.com/optrixtrades/funnelbot/internal/services/followup"
	funnelsvc "github.com/optrixtrades/funnelbot/internal/services/funnel"
	statssvc "github.com/optrixtrades/funnelbot/internal/services/stats"
	verifsvc "github.com/optrixtrades/funnelbot/internal/services/verification"
	"github.com/optrixtrades/funnelbot/internal/transport/http/handlers"
)

type Dependencies struct {
	AuthService         *apiauthsvc.Service
	StatsService        *statssvc.Service
	FunnelService       *funnelsvc.Service
	VerificationService *verifsvc.Service
	FollowUpEngine      *followup.Engine
	BroadcastService    *broadcastsvc.Service
	ScreenshotPresigner handlers.ScreenshotPresigner
	Logger              *zap.Logger
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler()
	authHandler := handlers.NewAuthHandler(deps.AuthService)
	statsHandler := handlers.NewStatsHandler(deps.StatsService)
	usersHandler := handlers.NewUsersHandler(deps.FunnelService)
	verificationsHandler := handlers.NewVerificationsHandler(deps.VerificationService)
	if deps.ScreenshotPresigner != nil {
		verificationsHandler.AttachPresigner(deps.ScreenshotPresigner)
	}
	followUpsHandler := handlers.NewFollowUpsHandler(deps.FollowUpEngine)
	broadcastsHandler := handlers.NewBroadcastsHandler(deps.BroadcastService)
	authMW := AuthMiddleware(deps.AuthService, deps.Logger)

	r.Get("/health", healthHandler.Get)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/token", authHandler.Token)
		r.With(authMW).Get("/stats", statsHandler.Get)
		r.With(authMW).Get("/stats/daily", statsHandler.Daily)
		r.With(authMW).Get("/users/{id}", usersHandler.Get)
		r.With(authMW).Get("/verifications/pending", verificationsHandler.Pending)
		r.With(authMW).Post("/followups/run", followUpsHandler.Run)
		r.With(authMW).Post("/broadcasts", broadcastsHandler.Create)
		r.With(authMW).Get("/broadcasts", broadcastsHandler.History)
	})
}
