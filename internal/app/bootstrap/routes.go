// internal/app/bootstrap/routes.go
package bootstrap

import (
	"context"
	"net/http"

	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	aitoolsfeature "github.com/zerlake/thesisai/internal/app/features/aitools"
	analysisfeature "github.com/zerlake/thesisai/internal/app/features/analysis"
	auditlogfeature "github.com/zerlake/thesisai/internal/app/features/auditlog"
	authapifeature "github.com/zerlake/thesisai/internal/app/features/authapi"
	dashboardfeature "github.com/zerlake/thesisai/internal/app/features/dashboard"
	documentsfeature "github.com/zerlake/thesisai/internal/app/features/documents"
	errorsfeature "github.com/zerlake/thesisai/internal/app/features/errors"
	healthfeature "github.com/zerlake/thesisai/internal/app/features/health"
	messagesfeature "github.com/zerlake/thesisai/internal/app/features/messages"
	notificationsfeature "github.com/zerlake/thesisai/internal/app/features/notifications"
	papersearchfeature "github.com/zerlake/thesisai/internal/app/features/papersearch"
	payoutsfeature "github.com/zerlake/thesisai/internal/app/features/payouts"
	profilefeature "github.com/zerlake/thesisai/internal/app/features/profile"
	ratelimitsfeature "github.com/zerlake/thesisai/internal/app/features/ratelimits"
	referralsfeature "github.com/zerlake/thesisai/internal/app/features/referrals"
	relationshipsfeature "github.com/zerlake/thesisai/internal/app/features/relationships"
	studyfeature "github.com/zerlake/thesisai/internal/app/features/study"
	syncfeature "github.com/zerlake/thesisai/internal/app/features/sync"
	notificationstore "github.com/zerlake/thesisai/internal/app/store/notifications"
	profilestore "github.com/zerlake/thesisai/internal/app/store/profiles"
	"github.com/zerlake/thesisai/internal/app/system/ai"
	"github.com/zerlake/thesisai/internal/app/system/auth"
	"github.com/zerlake/thesisai/internal/app/system/metrics"
	"github.com/zerlake/thesisai/internal/app/system/ratelimit"
	"go.uber.org/zap"
)

// Per-minute ceilings of the metered routes. Daily quotas come from the plan.
const (
	aiPerMinute       = 10
	papersPerMinute   = 20
	messagesPerMinute = 30
)

// BuildHandler constructs the root router. WAFFLE calls it after ConnectDB,
// EnsureSchema and Startup.
//
// Middleware order: request id, panic recovery, CORS, metrics, then the
// signed-in user. Everything under /api is also audited and held to the
// caller's plan-wide request ceiling.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.MongoDatabase

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	svc, err := buildServices(context.Background(), appCfg, deps, m, logger)
	if err != nil {
		logger.Error("service init failed", zap.Error(err))
		return nil, err
	}

	tokens, err := auth.NewTokenIssuer(appCfg.JWTSecret, appCfg.JWTTTL)
	if err != nil {
		logger.Error("token issuer init failed", zap.Error(err))
		return nil, err
	}
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.JWTTTL, secure, tokens, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}
	// Re-read the profile on each request so role, plan and disabled status
	// take effect immediately.
	sessionMgr.SetUserFetcher(profilestore.NewFetcher(db))

	errLog := errorsfeature.NewErrorLogger(logger)
	notifications := notificationstore.New(db, appCfg.NotificationTTL)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   appCfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(m.Middleware)
	r.Use(sessionMgr.LoadUser)

	var redisPing healthfeature.Pinger
	if svc.redis != nil {
		redisPing = svc.redis
	}
	r.Mount("/health", healthfeature.Routes(healthfeature.NewHandler(deps.MongoClient, redisPing, logger)))
	r.Handle("/metrics", m.Handler())

	guard := svc.rateLimit.Guard
	aiGate := svc.rateLimit.Gate(ratelimit.Options{Feature: ratelimit.FeatureAICompletions, Limit: aiPerMinute, DailyQuota: true})

	docsHandler := documentsfeature.NewHandler(db, svc.storage, svc.audit, errLog, logger)
	material := ai.Material{Gen: svc.gen, Catalog: svc.catalog}
	studyHandler := studyfeature.NewHandler(db, material, errLog, logger)
	studyHandler.AIGate = aiGate
	profileHandler := profilefeature.NewHandler(db, svc.audit, errLog, logger)
	payoutsHandler := payoutsfeature.NewHandler(db, notifications, appCfg.PayoutMinimum, svc.audit, errLog, logger)
	referralsHandler := referralsfeature.NewHandler(db, notifications, appCfg.ReferralCommission, svc.audit, errLog, logger)

	r.Route("/api", func(api chi.Router) {
		api.Use(svc.audit.Middleware)
		api.Use(guard(ratelimit.CoreOptions()))

		authHandler := authapifeature.NewHandler(db, sessionMgr, svc.login, svc.audit, errLog, logger)
		api.Mount("/auth", authapifeature.Routes(authHandler))
		api.Mount("/profile", profilefeature.Routes(profileHandler))

		api.Mount("/relationships", relationshipsfeature.Routes(
			relationshipsfeature.NewHandler(db, notifications, svc.audit, errLog, logger)))

		api.Mount("/payouts", payoutsfeature.Routes(payoutsHandler))
		api.Mount("/ledger", payoutsfeature.LedgerRoutes(payoutsHandler))
		api.Mount("/referrals", referralsfeature.Routes(referralsHandler))

		api.Mount("/study-guides", studyfeature.GuideRoutes(studyHandler))
		api.Mount("/flashcards/decks", studyfeature.DeckRoutes(studyHandler))
		api.Mount("/defense/sets", studyfeature.DefenseRoutes(studyHandler))
		api.Mount("/instruments/defense-responses", studyfeature.DefenseResponseRoutes(studyHandler))
		api.Mount("/analysis", analysisfeature.Routes(analysisfeature.NewHandler(errLog, logger)))

		api.Mount("/documents", documentsfeature.Routes(docsHandler))

		api.Mount("/messages", messagesfeature.Routes(
			messagesfeature.NewHandler(db, notifications, svc.audit, errLog, logger),
			guard(ratelimit.Options{Feature: ratelimit.FeatureMessages, Limit: messagesPerMinute})))
		api.Mount("/notifications", notificationsfeature.Routes(
			notificationsfeature.NewHandler(notifications, errLog, logger)))

		api.Mount("/paper-search", papersearchfeature.Routes(
			papersearchfeature.NewHandler(svc.papers, errLog, logger),
			guard(ratelimit.Options{Feature: ratelimit.FeaturePaperSearch, Limit: papersPerMinute, DailyQuota: true})))
		aiTools := aitoolsfeature.NewHandler(svc.gen, svc.catalog, docsHandler.Access, errLog, logger)
		aiTools.Gate = aiGate
		api.Mount("/ai-tools", aitoolsfeature.Routes(aiTools))

		api.Mount("/sync", syncfeature.Routes(syncfeature.NewHandler(db, errLog, logger)))
		api.Mount("/dashboard", dashboardfeature.Routes(dashboardfeature.NewHandler(db, errLog, logger)))

		api.Route("/admin", func(admin chi.Router) {
			admin.Use(auth.RequireSignedIn)
			admin.Mount("/users", profilefeature.AdminRoutes(profileHandler))
			admin.Mount("/payouts", payoutsfeature.AdminRoutes(payoutsHandler))
			admin.Mount("/referrals", referralsfeature.AdminRoutes(referralsHandler))
			admin.Mount("/audit", auditlogfeature.Routes(auditlogfeature.NewHandler(db, errLog, logger)))
			admin.Mount("/rate-limiting", ratelimitsfeature.Routes(
				ratelimitsfeature.NewHandler(db, svc.rateLimit, errLog, logger)))
		})
	})

	r.NotFound(errorsfeature.NotFound)
	r.MethodNotAllowed(errorsfeature.MethodNotAllowed)

	logger.Info("router built",
		zap.Bool("redis_limiter", svc.redis != nil),
		zap.Bool("ai", svc.gen != nil),
		zap.Bool("storage", svc.storage != nil),
		zap.Bool("ratelimit_enabled", appCfg.RateLimitEnabled),
		zap.Bool("ratelimit_shadow", appCfg.RateLimitShadow))
	return r, nil
}
