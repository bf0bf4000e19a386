// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/zerlake/thesisai/internal/app/system/auditlog"
	"github.com/zerlake/thesisai/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// devJWTSecret is the default secret. It is refused in prod.
const devJWTSecret = "dev-only-jwt-secret-change-me-0123456789"

// appConfigKeys are loaded via WAFFLE's config system:
//   - config files: mongo_uri, jwt_secret, ...
//   - environment: THESISAI_MONGO_URI, THESISAI_JWT_SECRET, ...
//   - flags: --mongo_uri, --jwt_secret, ...
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "thesisai", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size"},

	{Name: "redis_addr", Default: "", Desc: "Redis address for the shared rate limiter (blank: in-memory)"},
	{Name: "redis_password", Default: "", Desc: "Redis password"},
	{Name: "redis_db", Default: 0, Desc: "Redis database number"},

	{Name: "jwt_secret", Default: devJWTSecret, Desc: "HMAC secret for bearer tokens (must be strong in production)"},
	{Name: "jwt_ttl", Default: "24h", Desc: "Bearer token and session lifetime"},
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session cookie signing key"},
	{Name: "session_name", Default: "thesisai-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},

	{Name: "cors_allowed_origins", Default: "http://localhost:3000", Desc: "Comma-separated list of allowed CORS origins"},

	{Name: "ratelimit_enabled", Default: true, Desc: "Enforce rate limits"},
	{Name: "ratelimit_shadow_mode", Default: false, Desc: "Record violations without blocking"},
	{Name: "ratelimit_per_minute", Default: 100, Desc: "Default per-minute ceiling for guarded routes"},

	{Name: "audit_log_auth", Default: "all", Desc: "Auth events: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_financial", Default: "all", Desc: "Financial events: 'all', 'db', 'log', or 'off'"},
	{Name: "audit_log_security", Default: "all", Desc: "Security events: 'all', 'db', 'log', or 'off'"},
	{Name: "audit_log_api", Default: "log", Desc: "API call events: 'all', 'db', 'log', or 'off'"},
	{Name: "audit_retention", Default: "168h", Desc: "How long general audit events are kept"},

	{Name: "genai_api_key", Default: "", Desc: "Gemini API key (blank disables AI tools)"},
	{Name: "genai_model", Default: "gemini-2.5-flash", Desc: "Gemini model name"},

	{Name: "papers_semantic_scholar_key", Default: "", Desc: "Semantic Scholar API key (optional)"},
	{Name: "papers_timeout", Default: "10s", Desc: "Per-provider paper search timeout"},
	{Name: "papers_mailto", Default: "", Desc: "Contact address sent to CrossRef and OpenAlex"},

	{Name: "storage_s3_region", Default: "", Desc: "AWS region for attachments"},
	{Name: "storage_s3_bucket", Default: "", Desc: "S3 bucket for attachments (blank disables uploads)"},
	{Name: "storage_s3_prefix", Default: "attachments/", Desc: "S3 key prefix"},
	{Name: "storage_s3_endpoint", Default: "", Desc: "S3-compatible endpoint override (MinIO)"},
	{Name: "storage_presign_ttl", Default: "15m", Desc: "Presigned URL lifetime"},

	{Name: "payout_minimum", Default: 50000, Desc: "Smallest payout in centavos"},
	{Name: "referral_commission", Default: 10000, Desc: "Commission per referral conversion in centavos"},

	{Name: "notification_ttl", Default: "720h", Desc: "Notification lifetime"},
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// LoadConfig loads WAFFLE core config and thesisai's app config.
// Precedence is flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "THESISAI", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		RedisAddr:     appValues.String("redis_addr"),
		RedisPassword: appValues.String("redis_password"),
		RedisDB:       appValues.Int("redis_db"),

		JWTSecret:     appValues.String("jwt_secret"),
		JWTTTL:        appValues.Duration("jwt_ttl", 24*time.Hour),
		SessionKey:    appValues.String("session_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),

		CORSAllowedOrigins: splitList(appValues.String("cors_allowed_origins")),

		RateLimitEnabled:   appValues.Bool("ratelimit_enabled"),
		RateLimitShadow:    appValues.Bool("ratelimit_shadow_mode"),
		RateLimitPerMinute: appValues.Int("ratelimit_per_minute"),

		AuditLogAuth:      strings.ToLower(appValues.String("audit_log_auth")),
		AuditLogFinancial: strings.ToLower(appValues.String("audit_log_financial")),
		AuditLogSecurity:  strings.ToLower(appValues.String("audit_log_security")),
		AuditLogAPI:       strings.ToLower(appValues.String("audit_log_api")),
		AuditRetention:    appValues.Duration("audit_retention", 7*24*time.Hour),

		GenAIAPIKey: appValues.String("genai_api_key"),
		GenAIModel:  appValues.String("genai_model"),

		PapersSemanticScholarKey: appValues.String("papers_semantic_scholar_key"),
		PapersTimeout:            appValues.Duration("papers_timeout", 10*time.Second),
		PapersMailto:             appValues.String("papers_mailto"),

		StorageS3Region:   appValues.String("storage_s3_region"),
		StorageS3Bucket:   appValues.String("storage_s3_bucket"),
		StorageS3Prefix:   appValues.String("storage_s3_prefix"),
		StorageS3Endpoint: appValues.String("storage_s3_endpoint"),
		StoragePresignTTL: appValues.Duration("storage_presign_ttl", 15*time.Minute),

		PayoutMinimum:      int64(appValues.Int("payout_minimum")),
		ReferralCommission: int64(appValues.Int("referral_commission")),

		NotificationTTL: appValues.Duration("notification_ttl", 30*24*time.Hour),
	}

	if n := timeouts.ConfigureFromEnv(); n > 0 {
		logger.Info("timeouts overridden from environment", zap.Int("count", n))
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig rejects configurations that would fail later or run unsafely.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if err := validateAppConfig(coreCfg.Env, appCfg); err != nil {
		logger.Error("invalid configuration", zap.Error(err))
		return err
	}
	return nil
}

// validateAppConfig holds the checks that need no logger, so tests can call
// it directly.
func validateAppConfig(env string, appCfg AppConfig) error {
	var errs []error
	if env == "prod" && (appCfg.JWTSecret == devJWTSecret || len(appCfg.JWTSecret) < 32) {
		errs = append(errs, errors.New("jwt_secret must be set to a strong value (32+ chars) in prod"))
	}
	for name, mode := range map[string]string{
		"audit_log_auth":      appCfg.AuditLogAuth,
		"audit_log_financial": appCfg.AuditLogFinancial,
		"audit_log_security":  appCfg.AuditLogSecurity,
		"audit_log_api":       appCfg.AuditLogAPI,
	} {
		if !auditlog.ValidMode(mode) {
			errs = append(errs, fmt.Errorf("%s: unknown mode %q (want all, db, log or off)", name, mode))
		}
	}
	if appCfg.JWTTTL <= 0 {
		errs = append(errs, errors.New("jwt_ttl must be positive"))
	}
	if appCfg.AuditRetention < time.Hour {
		errs = append(errs, errors.New("audit_retention must be at least 1h"))
	}
	if appCfg.PayoutMinimum <= 0 {
		errs = append(errs, errors.New("payout_minimum must be positive"))
	}
	if appCfg.ReferralCommission < 0 {
		errs = append(errs, errors.New("referral_commission must not be negative"))
	}
	if (appCfg.StorageS3Bucket == "") != (appCfg.StorageS3Region == "") {
		errs = append(errs, errors.New("storage_s3_bucket and storage_s3_region must be set together"))
	}
	return errors.Join(errs...)
}
