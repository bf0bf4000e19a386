package bootstrap

import (
	"context"
	"net/http"
	"time"

	auditstore "github.com/zerlake/thesisai/internal/app/store/audit"
	ratelimitstore "github.com/zerlake/thesisai/internal/app/store/ratelimit"
	"github.com/zerlake/thesisai/internal/app/system/ai"
	"github.com/zerlake/thesisai/internal/app/system/auditlog"
	"github.com/zerlake/thesisai/internal/app/system/metrics"
	"github.com/zerlake/thesisai/internal/app/system/papers"
	"github.com/zerlake/thesisai/internal/app/system/ratelimit"
	"github.com/zerlake/thesisai/internal/app/system/storage"
	"go.uber.org/zap"
)

// services are the shared collaborators handed to feature handlers.
type services struct {
	audit     *auditlog.Logger
	limiter   ratelimit.Limiter
	redis     *ratelimit.RedisLimiter // nil without Redis
	rateLimit *ratelimit.Service
	login     *ratelimit.LoginLimiter
	gen       ai.Generator // nil when no API key is configured
	catalog   *ai.Catalog
	storage   *storage.Presigner // nil when uploads are off
	papers    *papers.Searcher
}

func buildServices(ctx context.Context, appCfg AppConfig, deps DBDeps, m *metrics.Metrics, logger *zap.Logger) (*services, error) {
	db := deps.MongoDatabase
	s := &services{}

	s.audit = auditlog.New(auditstore.New(db), logger.Named("audit"), auditlog.Config{
		Auth:      appCfg.AuditLogAuth,
		Financial: appCfg.AuditLogFinancial,
		Security:  appCfg.AuditLogSecurity,
		API:       appCfg.AuditLogAPI,
	})

	memory := ratelimit.NewMemory(time.Minute)
	deps.state.setLimiter(memory)
	s.limiter = memory
	if deps.Redis != nil {
		s.redis = ratelimit.NewRedis(deps.Redis, "thesisai:rl:")
		s.limiter = ratelimit.NewFallback(s.redis, memory, logger.Named("ratelimit"))
	}

	rlStore := ratelimitstore.New(db)
	s.rateLimit = ratelimit.NewService(ratelimit.Settings{
		Enabled:          appCfg.RateLimitEnabled,
		ShadowMode:       appCfg.RateLimitShadow,
		DefaultPerMinute: appCfg.RateLimitPerMinute,
	}, ratelimit.Deps{
		Limiter:    s.limiter,
		Usage:      rlStore,
		Whitelist:  rlStore,
		Violations: rlStore,
		Audit:      s.audit,
		Observer:   m,
	}, logger.Named("ratelimit"))
	s.login = ratelimit.NewLoginLimiter(s.limiter, ratelimit.DefaultLoginLimits, s.rateLimit, logger.Named("login"))

	gemini, err := ai.NewGemini(ctx, appCfg.GenAIAPIKey, appCfg.GenAIModel)
	if err != nil {
		return nil, err
	}
	if gemini != nil {
		s.gen = gemini
	} else {
		logger.Info("no genai_api_key set; AI tools answer 503")
	}
	if s.catalog, err = ai.LoadCatalog(); err != nil {
		return nil, err
	}

	s.storage, err = storage.New(ctx, storage.Config{
		Region:     appCfg.StorageS3Region,
		Bucket:     appCfg.StorageS3Bucket,
		Prefix:     appCfg.StorageS3Prefix,
		Endpoint:   appCfg.StorageS3Endpoint,
		PresignTTL: appCfg.StoragePresignTTL,
	})
	if err != nil {
		return nil, err
	}
	if s.storage == nil {
		logger.Info("attachment storage not configured; uploads answer 503")
	}

	s.papers = papers.New(papers.Config{
		HTTPClient:         &http.Client{Timeout: appCfg.PapersTimeout + 5*time.Second},
		Timeout:            appCfg.PapersTimeout,
		Mailto:             appCfg.PapersMailto,
		SemanticScholarKey: appCfg.PapersSemanticScholarKey,
	}, logger.Named("papers"))

	return s, nil
}
